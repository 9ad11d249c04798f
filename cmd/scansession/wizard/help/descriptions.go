package help

// HelpText contains information about a field
type HelpText struct {
	Title       string
	Description string
	Details     string
}

// Texts contains help information for all wizard fields
var Texts = map[string]HelpText{
	"project": {
		Title:       "PROJECT",
		Description: "Project the session belongs to.",
		Details: `First level of the archive tree (<target>/<project>/sub-NNN/ses-NNN).
Projects listed in sst.yaml also provide checklist items, files,
notes and measurement templates.`,
	},
	"subject_number": {
		Title:       "SUBJECT NUMBER",
		Description: "Subject number, 1 to 999.",
		Details:     "Written as three digits in folder names (sub-001).",
	},
	"subject_type": {
		Title:       "SUBJECT TYPE",
		Description: "Optional subject group.",
		Details:     "Appended to the subject folder when set (sub-001-patient).",
	},
	"session_number": {
		Title:       "SESSION NUMBER",
		Description: "Session number, 1 to 999.",
		Details:     "Written as three digits in folder names (ses-001).",
	},
	"session_type": {
		Title:       "SESSION TYPE",
		Description: "Optional session kind.",
		Details:     "Appended to the session folder when set (ses-001-pre).",
	},
	"date": {
		Title:       "DATE",
		Description: "Day of the scan session.",
		Details:     "Format: YYYY-MM-DD. Used in the protocol file name.",
	},
	"time_a": {
		Title:       "TIME A",
		Description: "Start of the session.",
		Details:     "Free text, for example 09:30.",
	},
	"time_b": {
		Title:       "TIME B",
		Description: "End of the session.",
		Details:     "Free text, for example 11:00.",
	},
	"user_1": {
		Title:       "USER 1",
		Description: "Operator running the scanner.",
		Details:     "Suggestions come from the project's user list.",
	},
	"user_2": {
		Title:       "USER 2",
		Description: "Second operator.",
		Details:     "Suggestions come from the project's user list.",
	},
	"checklist": {
		Title:       "CHECKLIST",
		Description: "Documents collected during the session.",
		Details:     "Space toggles an item. Checked items are marked [x] in the protocol.",
	},
	"files": {
		Title:       "FILES",
		Description: "Extra files to archive with the session.",
		Details: `Comma-separated masks relative to the source directory.
A mask may contain one * wildcard or name a whole directory.`,
	},
	"notes": {
		Title:       "NOTES",
		Description: "Free text written to the protocol.",
		Details:     "Multiple lines are kept as-is.",
	},
	"number": {
		Title:       "MEASUREMENT NUMBER",
		Description: "Series number shown by the scanner.",
		Details:     "Images are matched to the measurement by their DICOM SeriesNumber.",
	},
	"type": {
		Title:       "MEASUREMENT TYPE",
		Description: "Kind of acquisition.",
		Details: `anat - structural images
func - functional runs with stimulus logfiles
misc - anything else, logfiles included`,
	},
	"name": {
		Title:       "MEASUREMENT NAME",
		Description: "Name of the measurement folder.",
		Details: `Images are archived into <type>/NNN-<name>.
Measurements without a name are reported and skipped.`,
	},
	"vols": {
		Title:       "VOLUMES",
		Description: "Expected number of volumes.",
		Details:     "A different count in the source only produces a warning. Leave 0 when unknown.",
	},
	"logfiles": {
		Title:       "LOGFILES",
		Description: "Stimulus logfiles for this measurement.",
		Details: `Comma-separated masks relative to the source directory.
Left empty for func and misc, the project default
<project>_<sub>_<ses>_<name>.* is used.`,
	},
	"comments": {
		Title:       "COMMENTS",
		Description: "Remarks about the measurement.",
		Details:     "Written to the protocol.",
	},
	"source": {
		Title:       "SOURCE DIRECTORY",
		Description: "Scanner export to archive from.",
		Details:     "Searched recursively for DICOM images (.dcm, .ima), logfiles and documents.",
	},
	"target": {
		Title:       "TARGET DIRECTORY",
		Description: "Archive root.",
		Details:     "The session is written to <target>/<project>/sub-NNN/ses-NNN and must not exist yet.",
	},
	"bv_links": {
		Title:       "BRAINVOYAGER LINKS",
		Description: "Create BrainVoyager-named links to the images.",
		Details:     "Links go to <session>/BV with names like <project>_sub001_ses001_003-0003-0001-00001.dcm.",
	},
	"tbv_links": {
		Title:       "TURBO-BRAINVOYAGER",
		Description: "Archive real-time analysis files.",
		Details:     "The working directory is copied to <session>/TBV and each run is linked to its images.",
	},
	"tbv_dir": {
		Title:       "TBV DIRECTORY",
		Description: "Turbo-BrainVoyager working directory.",
		Details:     "Relative to the source directory. Default: TBVFiles",
	},
	"tbv_prefix": {
		Title:       "TBV PREFIX",
		Description: "Name prefix of real-time measurements.",
		Details:     "Runs are looked up in func/NNN-<prefix>*. Default: TBV_",
	},
	"remember": {
		Title:       "REMEMBER SETTINGS",
		Description: "Save these settings for the next session.",
		Details:     "Written as YAML and loaded when the wizard starts.",
	},
}
