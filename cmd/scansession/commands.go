package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mrsinham/scansession/cmd/scansession/wizard"
	"github.com/mrsinham/scansession/internal/archive"
	"github.com/mrsinham/scansession/internal/config"
	"github.com/mrsinham/scansession/internal/protocol"
	"github.com/mrsinham/scansession/internal/session"
	"github.com/mrsinham/scansession/internal/synth"
)

func runArchive(args []string) error {
	fs := flag.NewFlagSet("archive", flag.ContinueOnError)
	protocolPath := fs.String("protocol", "", "Scan protocol to archive (required)")
	source := fs.String("source", "", "Scanner export with DICOM images and logfiles")
	target := fs.String("target", "", "Archive root")
	bvLinks := fs.Bool("bv-links", false, "Create BrainVoyager links")
	tbvLinks := fs.Bool("tbv-links", false, "Copy and link Turbo-BrainVoyager files")
	tbvDir := fs.String("tbv-dir", "", "Turbo-BrainVoyager working directory (default: TBVFiles)")
	tbvPrefix := fs.String("tbv-prefix", "", "Name prefix of real-time runs (default: TBV_)")
	workers := fs.Int("workers", 0, "Parallel DICOM readers (default: CPU cores)")
	configFile := fs.String("config", "", "Load archive settings from YAML file")
	saveConfig := fs.String("save-config", "", "Save archive settings to YAML file (after archiving)")
	writeBack := fs.Bool("write-back", false, "Rewrite the protocol with expanded logfile masks")
	quiet := fs.Bool("quiet", false, "Only print the final report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings := config.DefaultArchive()
	if *configFile != "" {
		var err error
		if settings, err = config.LoadArchive(*configFile); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}
	// Flags given on the command line win over the settings file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			settings.Source = *source
		case "target":
			settings.Target = *target
		case "bv-links":
			settings.BVLinks = *bvLinks
		case "tbv-links":
			settings.TBVLinks = *tbvLinks
		case "tbv-dir":
			settings.TBVDir = *tbvDir
		case "tbv-prefix":
			settings.TBVPrefix = *tbvPrefix
		case "workers":
			settings.Workers = *workers
		}
	})

	if *protocolPath == "" {
		return errors.New("--protocol is required")
	}
	if settings.Source == "" || settings.Target == "" {
		return errors.New("--source and --target are required")
	}

	r, err := protocol.ReadFile(*protocolPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep := archive.Discard
	if !*quiet {
		fmt.Println("scansession")
		fmt.Println("===========")
		fmt.Printf("Archiving %s\n\n", r.Filename())
		rep = &statusPrinter{}
	}

	start := time.Now()
	res, err := archive.Run(ctx, r, settings.Options(), rep)
	if err != nil {
		if res != nil {
			fmt.Print(res.Report())
		}
		return fmt.Errorf("archiving failed: %w", err)
	}

	fmt.Println()
	fmt.Print(res.Report())

	if *writeBack {
		if err := protocol.WriteFile(*protocolPath, res.Record); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not update protocol: %v\n", err)
		}
	}
	if *saveConfig != "" {
		if err := config.SaveArchive(*saveConfig, settings); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
		} else if !*quiet {
			fmt.Printf("Configuration saved to %s\n", *saveConfig)
		}
	}

	if !*quiet {
		fmt.Println("\n✓ Archiving complete!")
		fmt.Printf("  %s in %s\n", res.Summary(), time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// statusPrinter prints archiving progress, one line per step and quarter.
type statusPrinter struct {
	last archive.Status
}

func (p *statusPrinter) Report(s archive.Status) {
	if s.State == p.last.State && s.Measurement == p.last.Measurement && s.Step == p.last.Step &&
		s.Percent/25 == p.last.Percent/25 {
		return
	}
	p.last = s
	fmt.Printf("  %s\n", s)
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	protocolPath := fs.String("protocol", "", "Scan protocol to check (required)")
	source := fs.String("source", "", "Scanner export (required)")
	target := fs.String("target", ".", "Archive root")
	workers := fs.Int("workers", 0, "Parallel DICOM readers (default: CPU cores)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *protocolPath == "" || *source == "" {
		return errors.New("--protocol and --source are required")
	}

	r, err := protocol.ReadFile(*protocolPath)
	if err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		fmt.Printf("Protocol problems:\n%v\n\n", err)
	}

	opts := archive.DefaultOptions()
	opts.Source = *source
	opts.Target = *target
	opts.Workers = *workers
	plan, err := archive.Check(context.Background(), r, opts)
	if err != nil {
		return err
	}
	fmt.Print(plan.String())
	if !plan.Ready() {
		return errors.New("archive would be incomplete")
	}
	fmt.Println("\n✓ Ready to archive")
	return nil
}

func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	validate := fs.Bool("validate", false, "Also check the archiving preconditions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: scansession show [--validate] FILE")
	}

	r, err := protocol.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if _, err := os.Stdout.Write(protocol.Marshal(r)); err != nil {
		return err
	}
	if *validate {
		return r.Validate()
	}
	return nil
}

func runNew(args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	project := fs.String("project", "", "Project name")
	subject := fs.Int("subject", 1, "Subject number")
	subjectType := fs.String("subject-type", "", "Subject type")
	sess := fs.Int("session", 1, "Session number")
	sessionType := fs.String("session-type", "", "Session type")
	date := fs.String("date", time.Now().Format(session.DateLayout), "Session date")
	user1 := fs.String("user1", "", "First operator")
	user2 := fs.String("user2", "", "Second operator")
	projectsFile := fs.String("projects", "", "Project templates file")
	out := fs.String("out", "", "Output file (default: stdout)")
	var measurements []string
	fs.Func("measurement", "Measurement TYPE:NAME[:VOLS] (repeatable)", func(s string) error {
		measurements = append(measurements, s)
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return err
	}

	r := session.New()
	r.Project = *project
	r.SubjectNumber = *subject
	r.SubjectType = *subjectType
	r.SessionNumber = *sess
	r.SessionType = *sessionType
	r.Date = *date
	r.User1 = *user1
	r.User2 = *user2

	if len(measurements) > 0 {
		r.Measurements = nil
	}
	for i, s := range measurements {
		m, err := parseMeasurement(s, i+1)
		if err != nil {
			return err
		}
		r.Measurements = append(r.Measurements, m)
	}

	projects, err := config.LoadProjects(*projectsFile)
	if err != nil {
		return err
	}
	if p, ok := projects[r.Project]; ok {
		p.Apply(r)
		for i := range r.Measurements {
			p.ApplyTemplate(&r.Measurements[i])
		}
	}
	for i := range r.Measurements {
		m := &r.Measurements[i]
		if m.Type.HasLogfiles() && m.Name != "" && len(m.Logfiles) == 0 {
			m.Logfiles = []string{r.LogfileMask(m.Name)}
		}
	}

	if err := r.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: protocol cannot be archived yet:\n%v\n", err)
	}
	if *out == "" {
		_, err := os.Stdout.Write(protocol.Marshal(r))
		return err
	}
	if err := protocol.WriteFile(*out, r); err != nil {
		return err
	}
	fmt.Printf("✓ Protocol written to %s\n", *out)
	return nil
}

func runSynth(args []string) error {
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	output := fs.String("output", "", "Output directory (required)")
	seriesList := fs.String("series", "1:Localizer:3,2:T1:1,3:Run1:10", "NUMBER:PROTOCOL:VOLUMES list")
	echoes := fs.Int("echoes", 1, "Echoes per volume")
	subfolders := fs.Bool("subfolders", false, "One folder per series")
	ima := fs.Bool("ima", false, "Use the .IMA extension")
	corrupt := fs.Int("corrupt", 0, "Number of unreadable image files to add")
	logfiles := fs.String("logfiles", "", "Comma-separated logfile names to create")
	documents := fs.String("documents", "", "Comma-separated document names to create")
	withTBV := fs.Bool("tbv", false, "Write Turbo-BrainVoyager files for TBV_ series")
	tbvJSON := fs.Bool("tbvj", false, "Write JSON Turbo-BrainVoyager projects")
	seed := fs.Uint64("seed", 0, "Seed for pixel data")
	workers := fs.Int("workers", 0, "Parallel writers (default: CPU cores)")
	quiet := fs.Bool("quiet", false, "Suppress progress output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		return errors.New("--output is required")
	}

	series, err := parseSeries(*seriesList, *echoes)
	if err != nil {
		return err
	}
	opts := synth.Options{
		OutputDir:  *output,
		Series:     series,
		Subfolders: *subfolders,
		Logfiles:   splitList(*logfiles),
		Documents:  splitList(*documents),
		Corrupt:    *corrupt,
		Seed:       *seed,
		Workers:    *workers,
		Quiet:      *quiet,
	}
	if *ima {
		opts.Extension = ".IMA"
	}
	if *withTBV || *tbvJSON {
		defaults := archive.DefaultOptions()
		runs := tbvRuns(series, defaults.TBVPrefix)
		if len(runs) == 0 {
			return fmt.Errorf("--tbv needs at least one series named %s<title>", defaults.TBVPrefix)
		}
		opts.TBV = &synth.TBV{Dir: defaults.TBVDir, Runs: runs, JSON: *tbvJSON}
	}

	files, err := synth.Generate(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("generating export: %w", err)
	}
	fmt.Println("\n✓ Generation complete!")
	fmt.Printf("  %s images in %s\n", humanize.Comma(int64(len(files))), *output)
	return nil
}

func runWizard(args []string) error {
	fs := flag.NewFlagSet("wizard", flag.ContinueOnError)
	from := fs.String("from", "", "Start from an existing scan protocol")
	projects := fs.String("projects", "", "Project templates file")
	configFile := fs.String("config", "", "Archive settings file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return wizard.Run(wizard.Options{
		From:     *from,
		Projects: *projects,
		Config:   *configFile,
	})
}
