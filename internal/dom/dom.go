// Package dom defines the page capabilities the live-update client works
// against, plus an in-memory HTML document implementing them.
package dom

// Element is a handle to an element node in a page.
type Element interface {
	// Attr returns the value of the named attribute and whether it is present.
	Attr(name string) (string, bool)
	SetAttr(name, value string) error
	HasClass(class string) bool
	// ToggleClass adds class when absent and removes it when present.
	// It reports whether the class is present afterwards.
	ToggleClass(class string) (bool, error)
	// Closest returns the element itself or its nearest ancestor carrying
	// class, or nil when there is none.
	Closest(class string) (Element, error)
	InnerHTML() (string, error)
	// SetInnerHTML replaces every child of the element with markup.
	SetInnerHTML(markup string) error
}

// ClickEvent is a click delivered to a body-level listener.
type ClickEvent struct {
	Target Element

	defaultPrevented   bool
	propagationStopped bool
}

// PreventDefault suppresses the click's default action.
func (e *ClickEvent) PreventDefault() { e.defaultPrevented = true }

// StopPropagation stops the click from reaching listeners further up.
func (e *ClickEvent) StopPropagation() { e.propagationStopped = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *ClickEvent) DefaultPrevented() bool { return e.defaultPrevented }

// PropagationStopped reports whether a listener called StopPropagation.
func (e *ClickEvent) PropagationStopped() bool { return e.propagationStopped }

// ClickListener handles a click delegated to the document body.
type ClickListener func(*ClickEvent)

// Document is one page load of a served page.
//
// Reload ends the current page load. Elements and listeners obtained before
// a reload belong to the old page and must not be used afterwards.
type Document interface {
	// CreateOverlayHost creates an empty element and appends it to the body.
	CreateOverlayHost() (Element, error)
	// Links returns every <link> element currently in the document.
	Links() ([]Element, error)
	// AddClickListener registers a delegated click listener on the body.
	AddClickListener(fn ClickListener) error
	// Reload forces a full reload of the page, bypassing caches.
	Reload() error
}
