package browser

import (
	"fmt"

	"github.com/livetemplate/livereload/internal/dom"
)

// Element is a reference to an element of the page load it was obtained in.
type Element struct {
	doc *Document
	ref int
}

var _ dom.Element = (*Element)(nil)

func (e *Element) run(res any, body string, args ...any) error {
	return e.doc.eval(elementScript(e.ref, body, args...), res)
}

type attrResult struct {
	OK    bool   `json:"ok"`
	Value string `json:"value"`
}

// Attr reports a missing attribute for elements that no longer exist.
func (e *Element) Attr(name string) (string, bool) {
	var res attrResult
	err := e.run(&res, `const v = el.getAttribute(%s); return v === null ? {ok: false, value: ""} : {ok: true, value: v};`, name)
	if err != nil {
		e.doc.logf("Reading attribute %q failed: %v", name, err)
		return "", false
	}
	return res.Value, res.OK
}

func (e *Element) SetAttr(name, value string) error {
	var ok bool
	if err := e.run(&ok, `el.setAttribute(%s, %s); return true;`, name, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", name, err)
	}
	return nil
}

func (e *Element) HasClass(class string) bool {
	var has bool
	if err := e.run(&has, `return el.classList.contains(%s);`, class); err != nil {
		e.doc.logf("Reading class list failed: %v", err)
		return false
	}
	return has
}

func (e *Element) ToggleClass(class string) (bool, error) {
	var present bool
	if err := e.run(&present, `return el.classList.toggle(%s);`, class); err != nil {
		return false, fmt.Errorf("failed to toggle %s: %w", class, err)
	}
	return present, nil
}

// Closest returns the nearest inclusive ancestor carrying class, or nil.
func (e *Element) Closest(class string) (dom.Element, error) {
	var ref int
	err := e.run(&ref, `const c = el.closest("." + CSS.escape(%s)); return c ? window.__livereload.ref(c) : 0;`, class)
	if err != nil {
		return nil, fmt.Errorf("failed to find .%s ancestor: %w", class, err)
	}
	if ref == 0 {
		return nil, nil
	}
	return &Element{doc: e.doc, ref: ref}, nil
}

func (e *Element) InnerHTML() (string, error) {
	var markup string
	if err := e.run(&markup, `return el.innerHTML;`); err != nil {
		return "", fmt.Errorf("failed to read markup: %w", err)
	}
	return markup, nil
}

func (e *Element) SetInnerHTML(markup string) error {
	var ok bool
	if err := e.run(&ok, `el.innerHTML = %s; return true;`, markup); err != nil {
		return fmt.Errorf("failed to replace markup: %w", err)
	}
	return nil
}
