package livereload

import (
	"fmt"
	"strings"
)

// ActionError is returned when an action was decoded but applying it to the
// page failed.
type ActionError struct {
	Action string // Action discriminator, e.g. "reload-css"
	Step   string // What was being done, e.g. "update link href"
	Err    error
}

func (e *ActionError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("action %q", e.Action))
	if e.Step != "" {
		b.WriteString(": " + e.Step)
	}
	b.WriteString(fmt.Sprintf(": %v", e.Err))
	return b.String()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
