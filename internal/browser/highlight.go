package browser

import (
	"fmt"

	"github.com/livetemplate/livereload/internal/dom"
)

// PageHighlighter defers to the highlighter the page itself ships, exposed
// as window.powerpackPrism. Pages without it are left alone.
type PageHighlighter struct{}

func (PageHighlighter) HighlightAllUnder(el dom.Element) error {
	e, ok := el.(*Element)
	if !ok {
		return fmt.Errorf("page highlighter needs a browser element, got %T", el)
	}
	var ran bool
	err := e.run(&ran, `const p = window.powerpackPrism;
		if (!p || typeof p.highlightAllUnder !== "function") {
			return false;
		}
		p.highlightAllUnder(el);
		return true;`)
	if err != nil {
		return fmt.Errorf("page highlighter failed: %w", err)
	}
	if !ran {
		e.doc.logf("No page highlighter present")
	}
	return nil
}
