// Package protocol reads and writes scan protocol files: the column-aligned
// text form of a session.Record that is stored next to every archived session.
package protocol

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mrsinham/scansession/internal/session"
)

// labelWidth is the column at which every value starts.
const labelWidth = 24

var indent = strings.Repeat(" ", labelWidth)

// ErrNotProtocol is returned when the input lacks the protocol header.
var ErrNotProtocol = errors.New("not a scan protocol")

const (
	headerGeneral      = "General Information"
	headerDocuments    = "Documents"
	headerMeasurements = "Measurements"
)

// ReadFile parses the protocol stored at path.
func ReadFile(path string) (*session.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocol: %w", err)
	}
	r, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parse protocol %s: %w", path, err)
	}
	return r, nil
}

// WriteFile writes r to path, creating the parent directory when needed.
func WriteFile(path string, r *session.Record) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create protocol directory: %w", err)
		}
	}
	if err := os.WriteFile(path, Marshal(r), 0644); err != nil {
		return fmt.Errorf("write protocol: %w", err)
	}
	return nil
}

// Marshal renders r in the protocol text format.
func Marshal(r *session.Record) []byte {
	var b strings.Builder

	b.WriteString(headerGeneral + "\n")
	b.WriteString(underline(headerGeneral) + "\n\n")
	writeField(&b, "Project:", r.Project)
	writeField(&b, "Subject:", numbered(r.SubjectNumber, r.SubjectType))
	writeField(&b, "Session:", numbered(r.SessionNumber, r.SessionType))
	writeField(&b, "Date:", r.Date)
	writeField(&b, "Time A:", r.TimeA)
	writeField(&b, "Time B:", r.TimeB)
	writeField(&b, "User 1:", r.User1)
	writeField(&b, "User 2:", r.User2)

	b.WriteString("\n")
	writeBlock(&b, "Notes:", textLines(r.Notes))
	b.WriteString("\n\n")

	b.WriteString(headerDocuments + "\n")
	b.WriteString(underline(headerDocuments) + "\n\n")
	writeBlock(&b, "Files:", nonEmpty(r.Files))
	b.WriteString("\n")
	checklist := make([]string, len(r.Checklist))
	for i, item := range r.Checklist {
		mark := "[ ]"
		if item.Checked {
			mark = "[x]"
		}
		checklist[i] = mark + " " + item.Label
	}
	writeBlock(&b, "Checklist:", checklist)
	b.WriteString("\n\n")

	b.WriteString(headerMeasurements + "\n")
	b.WriteString(underline(headerMeasurements) + "\n")
	for _, m := range r.Measurements {
		fmt.Fprintf(&b, "\nNo. %d\n-----\n\n", m.Number)
		writeField(&b, "Type:", m.Type.String())
		vols := ""
		if m.Vols > 0 {
			vols = strconv.Itoa(m.Vols)
		}
		writeField(&b, "Vols:", vols)
		writeField(&b, "Name:", m.Name)
		writeBlock(&b, "Logfiles:", nonEmpty(m.Logfiles))
		b.WriteString("\n")
		writeBlock(&b, "Comments:", textLines(m.Comments))
		b.WriteString("\n")
	}

	return []byte(b.String())
}

func underline(s string) string {
	return strings.Repeat("=", len(s))
}

func numbered(n int, kind string) string {
	s := fmt.Sprintf("%03d", n)
	if kind != "" {
		s += " " + kind
	}
	return s
}

// writeField writes a single-line value; an empty value leaves the bare label.
func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		b.WriteString(label + "\n")
		return
	}
	b.WriteString(pad(label) + value + "\n")
}

// writeBlock writes a multi-line value, continuation lines indented to the
// value column. Interior empty lines keep their indentation so they are not
// mistaken for section separators.
func writeBlock(b *strings.Builder, label string, lines []string) {
	if len(lines) == 0 {
		b.WriteString(label + "\n")
		return
	}
	for i, line := range lines {
		if i == 0 {
			b.WriteString(pad(label) + line + "\n")
			continue
		}
		b.WriteString(indent + line + "\n")
	}
}

func pad(label string) string {
	if len(label) >= labelWidth {
		return label + " "
	}
	return label + strings.Repeat(" ", labelWidth-len(label))
}

// textLines splits a multi-line value. Trailing blanks are dropped from every
// line since the text format cannot tell them from padding.
func textLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r")
	}
	return lines
}

func nonEmpty(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
