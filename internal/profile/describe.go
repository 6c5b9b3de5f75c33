package profile

import (
	"fmt"
	"strings"
)

// SchemaLines describes each column on one line, for prompts and CLI output,
// e.g. "- Salary (numeric) [financial]".
func (s *Set) SchemaLines() []string {
	out := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		line := fmt.Sprintf("- %s (%s)", c.Name, c.Type)
		if len(c.Tags) > 0 {
			line += " [" + strings.Join(c.Tags, ", ") + "]"
		}
		out = append(out, line)
	}
	return out
}
