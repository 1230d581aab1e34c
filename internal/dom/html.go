package dom

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LoadFunc returns the markup of a fresh page load.
type LoadFunc func() (string, error)

// HTMLDocument is an in-memory Document parsed with golang.org/x/net/html.
//
// It is not safe for concurrent use; callers serialise access the same way
// a browser delivers events on a single thread.
type HTMLDocument struct {
	load      LoadFunc
	root      *html.Node
	body      *html.Node
	listeners []ClickListener
	reloads   int
}

// ParseHTML parses page into a document whose reloads restore the same markup.
func ParseHTML(page string) (*HTMLDocument, error) {
	return NewHTMLDocument(func() (string, error) { return page, nil })
}

// NewHTMLDocument performs the first page load using load. Every Reload calls
// load again.
func NewHTMLDocument(load LoadFunc) (*HTMLDocument, error) {
	if load == nil {
		return nil, errors.New("dom: nil load function")
	}
	d := &HTMLDocument{load: load}
	if err := d.navigate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *HTMLDocument) navigate() error {
	page, err := d.load()
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}
	body := findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
	if body == nil {
		// html.Parse always synthesises a body, so this only guards odd inputs.
		return errors.New("dom: page has no body")
	}
	d.root = root
	d.body = body
	d.listeners = nil
	return nil
}

// CreateOverlayHost appends an empty div to the body.
func (d *HTMLDocument) CreateOverlayHost() (Element, error) {
	n := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	d.body.AppendChild(n)
	return &HTMLElement{node: n}, nil
}

// Links returns every link element in document order.
func (d *HTMLDocument) Links() ([]Element, error) {
	return d.elements(func(n *html.Node) bool { return n.DataAtom == atom.Link }), nil
}

func (d *HTMLDocument) AddClickListener(fn ClickListener) error {
	if fn == nil {
		return errors.New("dom: nil click listener")
	}
	d.listeners = append(d.listeners, fn)
	return nil
}

// Reload discards the current page, including listeners, and loads it again.
func (d *HTMLDocument) Reload() error {
	d.reloads++
	return d.navigate()
}

// Reloads reports how many times Reload has been called.
func (d *HTMLDocument) Reloads() int { return d.reloads }

// Click dispatches a click on target to the body listeners, the way a click
// bubbles up to a delegated handler.
func (d *HTMLDocument) Click(target Element) *ClickEvent {
	ev := &ClickEvent{Target: target}
	for _, fn := range d.listeners {
		fn(ev)
	}
	return ev
}

// Body returns the body element.
func (d *HTMLDocument) Body() Element { return &HTMLElement{node: d.body} }

// GetElementByID returns the element with the given id, or nil.
func (d *HTMLDocument) GetElementByID(id string) Element {
	n := findFirst(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return n.Type == html.ElementNode && ok && v == id
	})
	if n == nil {
		return nil
	}
	return &HTMLElement{node: n}
}

// ElementsByTag returns every element with the given tag name.
func (d *HTMLDocument) ElementsByTag(tag string) []Element {
	tag = strings.ToLower(tag)
	return d.elements(func(n *html.Node) bool { return n.Data == tag })
}

// ElementsByClass returns every element carrying class.
func (d *HTMLDocument) ElementsByClass(class string) []Element {
	return d.elements(func(n *html.Node) bool { return hasClass(n, class) })
}

// String renders the whole document.
func (d *HTMLDocument) String() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

func (d *HTMLDocument) elements(match func(*html.Node) bool) []Element {
	var out []Element
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, &HTMLElement{node: n})
		}
	})
	return out
}

// HTMLElement is an element of an HTMLDocument.
type HTMLElement struct {
	node *html.Node
}

// Tag returns the lower-case tag name.
func (e *HTMLElement) Tag() string { return e.node.Data }

func (e *HTMLElement) Attr(name string) (string, bool) {
	return attr(e.node, name)
}

func (e *HTMLElement) SetAttr(name, value string) error {
	name = strings.ToLower(name)
	for i := range e.node.Attr {
		if e.node.Attr[i].Namespace == "" && e.node.Attr[i].Key == name {
			e.node.Attr[i].Val = value
			return nil
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

func (e *HTMLElement) HasClass(class string) bool {
	return hasClass(e.node, class)
}

func (e *HTMLElement) ToggleClass(class string) (bool, error) {
	current, _ := attr(e.node, "class")
	fields := strings.Fields(current)
	kept := fields[:0]
	removed := false
	for _, f := range fields {
		if f == class {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	if !removed {
		kept = append(kept, class)
	}
	return !removed, e.SetAttr("class", strings.Join(kept, " "))
}

func (e *HTMLElement) Closest(class string) (Element, error) {
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hasClass(n, class) {
			return &HTMLElement{node: n}, nil
		}
	}
	return nil, nil
}

func (e *HTMLElement) InnerHTML() (string, error) {
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (e *HTMLElement) SetInnerHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("failed to parse markup: %w", err)
	}
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// Children returns the element children of e.
func (e *HTMLElement) Children() []Element {
	var out []Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &HTMLElement{node: c})
		}
	}
	return out
}

// QueryClass returns the first descendant of e carrying class, or nil.
func (e *HTMLElement) QueryClass(class string) Element {
	n := findFirst(e.node, func(n *html.Node) bool {
		return n != e.node && n.Type == html.ElementNode && hasClass(n, class)
	})
	if n == nil {
		return nil
	}
	return &HTMLElement{node: n}
}

func attr(n *html.Node, name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, f := range strings.Fields(v) {
		if f == class {
			return true
		}
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}
