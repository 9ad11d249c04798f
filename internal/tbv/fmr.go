package tbv

import (
	"fmt"
	"os"
	"strings"
)

const protocolField = "ProtocolFile"

// RelativeProtocolPath is the protocol reference of an archived run: the
// .prt file next to the run folder.
func RelativeProtocolPath(title string) string {
	return fmt.Sprintf(`"./../%s.prt"`, title)
}

// RewriteProtocolPath replaces the protocol path recorded in the .fmr file
// at path with RelativeProtocolPath(title). The value is taken from the last
// ProtocolFile line and replaced everywhere in the file.
func RewriteProtocolPath(path, title string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text := string(data)

	old := ""
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, protocolField) {
			continue
		}
		if fields := strings.Fields(line); len(fields) > 1 {
			old = fields[len(fields)-1]
		}
	}
	if old == "" {
		return fmt.Errorf("%s: no %s entry", path, protocolField)
	}

	text = strings.ReplaceAll(text, old, RelativeProtocolPath(title))
	return os.WriteFile(path, []byte(text), 0644)
}
