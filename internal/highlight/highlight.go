// Package highlight colours code blocks inside overlay markup with chroma.
package highlight

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/livetemplate/livereload/internal/dom"
)

// highlightedAttr marks blocks that have already been processed so repeated
// calls leave them alone.
const highlightedAttr = "data-highlighted"

// Chroma highlights <pre><code class="language-X"> blocks, the same markup
// convention Prism uses.
type Chroma struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// New returns a highlighter using the named chroma style. Unknown styles fall
// back to chroma's default.
func New(style string) *Chroma {
	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}
	return &Chroma{
		style:     s,
		formatter: chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4)),
	}
}

// HighlightAllUnder highlights every code block below el.
func (c *Chroma) HighlightAllUnder(el dom.Element) error {
	markup, err := el.InnerHTML()
	if err != nil {
		return err
	}
	out, changed, err := c.HighlightMarkup(markup)
	if err != nil || !changed {
		return err
	}
	return el.SetInnerHTML(out)
}

// HighlightMarkup highlights the code blocks in an HTML fragment. It reports
// whether anything was highlighted.
func (c *Chroma) HighlightMarkup(markup string) (string, bool, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), root)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse overlay markup: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	var blocks []block
	collect(root, &blocks)
	if len(blocks) == 0 {
		return markup, false, nil
	}

	for _, b := range blocks {
		pre := b.pre
		if pre.Parent == nil {
			continue
		}
		replacement, err := c.render(b.lang, b.source)
		if err != nil {
			return "", false, err
		}
		for _, r := range replacement {
			pre.Parent.InsertBefore(r, pre)
		}
		pre.Parent.RemoveChild(pre)
	}

	var buf bytes.Buffer
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if err := html.Render(&buf, n); err != nil {
			return "", false, err
		}
	}
	return buf.String(), true, nil
}

func (c *Chroma) render(lang, source string) ([]*html.Node, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenise %s block: %w", lang, err)
	}
	var buf bytes.Buffer
	if err := c.formatter.Format(&buf, c.style, iterator); err != nil {
		return nil, fmt.Errorf("failed to format %s block: %w", lang, err)
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(&buf, body)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom == atom.Pre {
			n.Attr = append(n.Attr, html.Attribute{Key: highlightedAttr, Val: "chroma"})
		}
	}
	return nodes, nil
}

// block is an unprocessed pre and the code it holds.
type block struct {
	pre    *html.Node
	lang   string
	source string
}

// collect finds unprocessed pre elements with at least one direct code child
// carrying a language class. A pre with several such children becomes one
// block in the first child's language, their text joined by newlines.
func collect(n *html.Node, out *[]block) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Pre && !hasAttr(n, highlightedAttr) {
		var b block
		var parts []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || c.DataAtom != atom.Code {
				continue
			}
			lang := language(c)
			if lang == "" {
				continue
			}
			if b.lang == "" {
				b.lang = lang
			}
			parts = append(parts, textContent(c))
		}
		if len(parts) > 0 {
			b.pre = n
			b.source = strings.Join(parts, "\n")
			*out = append(*out, b)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, out)
	}
}

func language(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, f := range strings.Fields(a.Val) {
			if lang, ok := strings.CutPrefix(f, "language-"); ok {
				return lang
			}
			if lang, ok := strings.CutPrefix(f, "lang-"); ok {
				return lang
			}
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
