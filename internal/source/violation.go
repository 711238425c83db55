package source

import "fmt"

// Violation is one SDL-parsing defect, positioned for error reporting
// (grounded on internal/ir/violation.go's Violation/ValidationError idiom).
type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ParseError aggregates every violation found while reading one or more
// sources, instead of failing on the first (spec.md §4.3's accumulation
// discipline applies equally to source reading).
type ParseError []*Violation

func (e ParseError) Error() string {
	msg := fmt.Sprintf("%d violation(s) found reading configuration:\n", len(e))
	for _, v := range e {
		line := "- " + v.Message
		if v.File != "" {
			line += fmt.Sprintf(" %s:%d:%d", v.File, v.Line, v.Column)
		}
		msg += line + "\n"
	}
	return msg
}
