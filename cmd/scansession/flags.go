package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mrsinham/scansession/internal/session"
	"github.com/mrsinham/scansession/internal/synth"
)

// parseSeries parses a comma-separated list of NUMBER:PROTOCOL:VOLUMES
// entries, e.g. "1:Localizer:3,2:Run1:120".
func parseSeries(s string, echoes int) ([]synth.Series, error) {
	var series []synth.Series
	for _, item := range splitList(s) {
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid series %q: expected NUMBER:PROTOCOL:VOLUMES", item)
		}
		number, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || number < 1 {
			return nil, fmt.Errorf("invalid series number in %q", item)
		}
		volumes, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || volumes < 1 {
			return nil, fmt.Errorf("invalid volume count in %q", item)
		}
		protocol := strings.TrimSpace(parts[1])
		if protocol == "" {
			return nil, fmt.Errorf("missing protocol name in %q", item)
		}
		series = append(series, synth.Series{Number: number, Protocol: protocol, Volumes: volumes, Echoes: echoes})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no series given")
	}
	return series, nil
}

// parseMeasurement parses TYPE:NAME[:VOLS], e.g. "func:Run1:120".
func parseMeasurement(s string, number int) (session.Measurement, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return session.Measurement{}, fmt.Errorf("invalid measurement %q: expected TYPE:NAME[:VOLS]", s)
	}
	t, err := session.ParseType(parts[0])
	if err != nil {
		return session.Measurement{}, err
	}
	m := session.Measurement{Number: number, Type: t, Name: strings.TrimSpace(parts[1])}
	if len(parts) == 3 {
		if m.Vols, err = strconv.Atoi(strings.TrimSpace(parts[2])); err != nil || m.Vols < 0 {
			return session.Measurement{}, fmt.Errorf("invalid vols in %q", s)
		}
	}
	return m, nil
}

// tbvRuns returns one Turbo-BrainVoyager run per series whose protocol
// starts with prefix, titled with the rest of the protocol name.
func tbvRuns(series []synth.Series, prefix string) []synth.TBVRun {
	var runs []synth.TBVRun
	for _, s := range series {
		if title, ok := strings.CutPrefix(s.Protocol, prefix); ok && title != "" {
			runs = append(runs, synth.TBVRun{Series: s.Number, Title: title})
		}
	}
	return runs
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
