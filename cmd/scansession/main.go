package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "archive":
		err = runArchive(os.Args[2:])
	case "check":
		err = runCheck(os.Args[2:])
	case "show":
		err = runShow(os.Args[2:])
	case "new":
		err = runNew(os.Args[2:])
	case "synth":
		err = runSynth(os.Args[2:])
	case "wizard":
		err = runWizard(os.Args[2:])
	case "version", "--version", "-version":
		fmt.Printf("scansession %s\n", version)
		os.Exit(0)
	case "help", "--help", "-help", "-h":
		printHelp()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  scansession <command> [options]")
	fmt.Fprintln(os.Stderr, "\nCommands: archive, check, show, new, synth, wizard, version, help")
}

func printHelp() {
	fmt.Println("scansession")
	fmt.Println("===========")
	fmt.Println()
	fmt.Println("Document MRI scan sessions and archive their data into a standard layout.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  scansession <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  wizard                Fill in a scan protocol interactively and archive it")
	fmt.Println("  archive               Archive the data of a scan protocol")
	fmt.Println("  check                 Show what archive would do without writing anything")
	fmt.Println("  show <FILE>           Print a scan protocol in canonical form")
	fmt.Println("  new                   Create a scan protocol from flags and project templates")
	fmt.Println("  synth                 Generate a synthetic scanner export for testing")
	fmt.Println("  version               Show version")
	fmt.Println()
	fmt.Println("Archive options:")
	fmt.Println("  --protocol <FILE>     Scan protocol to archive (required)")
	fmt.Println("  --source <DIR>        Scanner export with DICOM images and logfiles")
	fmt.Println("  --target <DIR>        Archive root")
	fmt.Println("  --bv-links            Create BrainVoyager links in BV/")
	fmt.Println("  --tbv-links           Copy and link Turbo-BrainVoyager files in TBV/")
	fmt.Println("  --tbv-dir <NAME>      Turbo-BrainVoyager working directory (default: TBVFiles)")
	fmt.Println("  --tbv-prefix <PREFIX> Name prefix of real-time runs (default: TBV_)")
	fmt.Printf("  --workers <N>         Parallel DICOM readers (default: %d = CPU cores)\n", runtime.NumCPU())
	fmt.Println("  --config <FILE>       Load archive settings from YAML file")
	fmt.Println("  --save-config <FILE>  Save archive settings to YAML file (after archiving)")
	fmt.Println("  --write-back          Rewrite the protocol with expanded logfile masks")
	fmt.Println("  --quiet               Only print the final report")
	fmt.Println()
	fmt.Println("New options:")
	fmt.Println("  --project <NAME>      Project name")
	fmt.Println("  --subject <N>         Subject number, 1-999 (default: 1)")
	fmt.Println("  --subject-type <T>    Subject type, e.g. Patient")
	fmt.Println("  --session <N>         Session number, 1-999 (default: 1)")
	fmt.Println("  --session-type <T>    Session type, e.g. Transfer")
	fmt.Println("  --date <YYYY-MM-DD>   Session date (default: today)")
	fmt.Println("  --measurement <TYPE:NAME[:VOLS]>")
	fmt.Println("                        Add a measurement (repeatable, numbered from 1)")
	fmt.Println("  --projects <FILE>     Project templates (default: ./sst.yaml, then ~/sst.yaml)")
	fmt.Println("  --out <FILE>          Write the protocol to FILE instead of stdout")
	fmt.Println()
	fmt.Println("Synth options:")
	fmt.Println("  --output <DIR>        Output directory (required)")
	fmt.Println("  --series <LIST>       NUMBER:PROTOCOL:VOLUMES list (default: 1:Localizer:3,2:T1:1,3:Run1:10)")
	fmt.Println("  --echoes <N>          Echoes per volume (default: 1)")
	fmt.Println("  --corrupt <N>         Number of unreadable image files to add")
	fmt.Println("  --tbv                 Write Turbo-BrainVoyager files for TBV_ series")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Create a protocol, generate matching data and archive it")
	fmt.Println("  scansession new --project Lab1 --session-type Transfer --measurement anat:Localizer:3 \\")
	fmt.Println("      --measurement func:Run1:10 --out protocol.txt")
	fmt.Println("  scansession synth --output export --series 1:Localizer:3,2:Run1:10")
	fmt.Println("  scansession archive --protocol protocol.txt --source export --target archive")
	fmt.Println()
	fmt.Println("  # Interactive wizard starting from an existing protocol")
	fmt.Println("  scansession wizard --from protocol.txt")
	fmt.Println()
	fmt.Println("Output:")
	fmt.Println("  <target>/<project>/sub-NNN[-type]/ses-NNN[-type]/")
	fmt.Println("    <type>/NNN-<name>/DICOM/   images of each measurement")
	fmt.Println("    BV/, TBV/                  optional links")
	fmt.Println("    ScanProtocol_<...>.txt     the protocol, with expanded logfile masks")
}
