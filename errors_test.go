package livereload

import (
	"errors"
	"testing"
)

func TestActionErrorFormatting(t *testing.T) {
	cause := errors.New("element detached")
	err := &ActionError{Action: "reload-css", Step: "update link href", Err: cause}

	want := `action "reload-css": update link href: element detached`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("ActionError should unwrap to its cause")
	}

	noStep := &ActionError{Action: "reload", Err: cause}
	if got := noStep.Error(); got != `action "reload": element detached` {
		t.Errorf("Error() without step = %q", got)
	}
}
