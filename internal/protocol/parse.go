package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mrsinham/scansession/internal/session"
)

type section int

const (
	sectionGeneral section = iota
	sectionDocuments
	sectionMeasurements
)

// parser consumes a protocol line by line. Multi-line values are collected
// through add until a blank line or the next label ends the block.
type parser struct {
	r        *session.Record
	section  section
	add      func(value string)
	notes    []string
	comments [][]string
}

// Unmarshal parses protocol text into a record.
func Unmarshal(data []byte) (*session.Record, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if strings.TrimSpace(lines[0]) != headerGeneral {
		return nil, ErrNotProtocol
	}

	p := &parser{r: &session.Record{}}
	for i, line := range lines[1:] {
		if err := p.parseLine(strings.TrimRight(line, "\r")); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
	}

	p.r.Notes = strings.Join(p.notes, "\n")
	for i := range p.r.Measurements {
		p.r.Measurements[i].Comments = strings.Join(p.comments[i], "\n")
	}
	if len(p.r.Measurements) == 0 {
		p.r.Measurements = []session.Measurement{{Number: 1, Type: session.Anat}}
	}
	return p.r, nil
}

func (p *parser) parseLine(line string) error {
	if p.add != nil && strings.HasPrefix(line, indent) {
		p.add(strings.TrimRight(line[labelWidth:], " \t"))
		return nil
	}
	p.add = nil

	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return nil
	case trimmed == headerDocuments && p.section == sectionGeneral:
		p.section = sectionDocuments
		return nil
	case trimmed == headerMeasurements && p.section != sectionMeasurements:
		p.section = sectionMeasurements
		return nil
	case strings.Trim(trimmed, "=-") == "":
		return nil
	}

	switch p.section {
	case sectionGeneral:
		return p.parseGeneral(line)
	case sectionDocuments:
		p.parseDocuments(line)
		return nil
	default:
		return p.parseMeasurement(line)
	}
}

func (p *parser) parseGeneral(line string) error {
	r := p.r
	switch {
	case strings.HasPrefix(line, "Project:"):
		r.Project = strings.TrimSpace(valueAfter(line, "Project:"))
	case strings.HasPrefix(line, "Subject:"):
		n, kind, err := splitNumbered(valueAfter(line, "Subject:"))
		if err != nil {
			return fmt.Errorf("subject: %w", err)
		}
		r.SubjectNumber, r.SubjectType = n, kind
	case strings.HasPrefix(line, "Session:"):
		n, kind, err := splitNumbered(valueAfter(line, "Session:"))
		if err != nil {
			return fmt.Errorf("session: %w", err)
		}
		r.SessionNumber, r.SessionType = n, kind
	case strings.HasPrefix(line, "Date:"):
		r.Date = strings.TrimSpace(valueAfter(line, "Date:"))
	case strings.HasPrefix(line, "Time A:"):
		r.TimeA = strings.TrimSpace(valueAfter(line, "Time A:"))
	case strings.HasPrefix(line, "Time B:"):
		r.TimeB = strings.TrimSpace(valueAfter(line, "Time B:"))
	case strings.HasPrefix(line, "User 1:"):
		r.User1 = strings.TrimSpace(valueAfter(line, "User 1:"))
	case strings.HasPrefix(line, "User 2:"):
		r.User2 = strings.TrimSpace(valueAfter(line, "User 2:"))
	case strings.HasPrefix(line, "Notes:"):
		p.notes = []string{valueAfter(line, "Notes:")}
		p.add = func(v string) { p.notes = append(p.notes, v) }
	}
	return nil
}

func (p *parser) parseDocuments(line string) {
	r := p.r
	switch {
	case strings.HasPrefix(line, "Files:"):
		addFile := func(v string) {
			if v = strings.TrimSpace(v); v != "" {
				r.Files = append(r.Files, v)
			}
		}
		addFile(valueAfter(line, "Files:"))
		p.add = addFile
	case strings.HasPrefix(line, "Checklist:"):
		addItem := func(v string) {
			if item, ok := parseChecklistItem(v); ok {
				r.Checklist = append(r.Checklist, item)
			}
		}
		addItem(valueAfter(line, "Checklist:"))
		p.add = addItem
	}
}

func (p *parser) parseMeasurement(line string) error {
	r := p.r
	if strings.HasPrefix(line, "No. ") {
		n, err := strconv.Atoi(strings.TrimSpace(line[len("No. "):]))
		if err != nil {
			return fmt.Errorf("invalid measurement number %q", line)
		}
		r.Measurements = append(r.Measurements, session.Measurement{Number: n, Type: session.Anat})
		p.comments = append(p.comments, nil)
		return nil
	}
	if len(r.Measurements) == 0 {
		return nil
	}
	i := len(r.Measurements) - 1
	m := &r.Measurements[i]

	switch {
	case strings.HasPrefix(line, "Type:"):
		v := strings.TrimSpace(valueAfter(line, "Type:"))
		if v == "" {
			return nil
		}
		t, err := session.ParseType(v)
		if err != nil {
			return err
		}
		m.Type = t
	case strings.HasPrefix(line, "Vols:"):
		v := strings.TrimSpace(valueAfter(line, "Vols:"))
		if v == "" {
			m.Vols = 0
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid vols %q", v)
		}
		m.Vols = n
	case strings.HasPrefix(line, "Name:"):
		m.Name = strings.TrimSpace(valueAfter(line, "Name:"))
	case strings.HasPrefix(line, "Logfiles:"):
		addMask := func(v string) {
			if v = strings.TrimSpace(v); v != "" {
				r.Measurements[i].Logfiles = append(r.Measurements[i].Logfiles, v)
			}
		}
		addMask(valueAfter(line, "Logfiles:"))
		p.add = addMask
	case strings.HasPrefix(line, "Comments:"):
		p.comments[i] = []string{valueAfter(line, "Comments:")}
		p.add = func(v string) { p.comments[i] = append(p.comments[i], v) }
	}
	return nil
}

// valueAfter returns the value of a labelled line. Values normally start at
// the label column; hand-edited lines with shorter padding are accepted too.
func valueAfter(line, label string) string {
	rest := line[len(label):]
	if len(line) >= labelWidth && strings.TrimSpace(line[len(label):labelWidth]) == "" {
		return strings.TrimRight(line[labelWidth:], " \t")
	}
	return strings.TrimSpace(rest)
}

// splitNumbered splits "007 Transfer" into 7 and "Transfer". Files written
// without the separating space ("001Patient") are accepted.
func splitNumbered(v string) (int, string, error) {
	v = strings.TrimSpace(v)
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, "", fmt.Errorf("missing number in %q", v)
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil {
		return 0, "", err
	}
	return n, strings.TrimSpace(v[end:]), nil
}

func parseChecklistItem(v string) (session.ChecklistItem, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return session.ChecklistItem{}, false
	}
	if len(v) >= 3 && v[0] == '[' && v[2] == ']' {
		return session.ChecklistItem{
			Label:   strings.TrimSpace(v[3:]),
			Checked: v[1] == 'x' || v[1] == 'X',
		}, true
	}
	return session.ChecklistItem{Label: v}, true
}
