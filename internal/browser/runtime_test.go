package browser

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/livereload/internal/dom"
)

func TestInstallScript(t *testing.T) {
	script := installScript(3, `powerpack-toggle`)
	assert.Contains(t, script, "load: 3,")
	assert.Contains(t, script, `const cancel = "powerpack-toggle";`)
	assert.Contains(t, script, "window.__livereloadClick(")

	script = installScript(1, "")
	assert.Contains(t, script, `const cancel = "";`)
}

func TestElementScriptQuotesArguments(t *testing.T) {
	script := elementScript(7, `el.innerHTML = %s; return true;`, `</script><b class="x">'hi'</b>`)
	assert.True(t, strings.HasSuffix(script, "(window.__livereload.get(7))"))
	assert.Contains(t, script, `el.innerHTML = "</script><b class=\"x\">'hi'</b>";`)
}

func newTestDocument(t *testing.T) *Document {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &Document{
		ctx:    ctx,
		opts:   Options{Logger: log.New(io.Discard, "", 0)},
		load:   1,
		clicks: make(chan clickPayload, 1),
	}
}

func TestDeliverDropsStaleClicks(t *testing.T) {
	d := newTestDocument(t)
	var refs []int
	require.NoError(t, d.AddClickListener(func(ev *dom.ClickEvent) {
		refs = append(refs, ev.Target.(*Element).ref)
	}))

	d.deliver(clickPayload{Ref: 4, Load: 1})
	d.deliver(clickPayload{Ref: 5, Load: 0})
	assert.Equal(t, []int{4}, refs)

	assert.Error(t, d.AddClickListener(nil))
}

func TestOnEventQueuesBindingCalls(t *testing.T) {
	d := newTestDocument(t)

	d.onEvent(&runtime.EventBindingCalled{Name: "other", Payload: `{"ref":1,"load":1}`})
	d.onEvent(&runtime.EventBindingCalled{Name: bindingName, Payload: `not json`})
	assert.Empty(t, d.clicks)

	d.onEvent(&runtime.EventBindingCalled{Name: bindingName, Payload: `{"ref":9,"load":1}`})
	// Queue is full; this one is dropped rather than blocking.
	d.onEvent(&runtime.EventBindingCalled{Name: bindingName, Payload: `{"ref":10,"load":1}`})
	require.Len(t, d.clicks, 1)
	assert.Equal(t, clickPayload{Ref: 9, Load: 1}, <-d.clicks)
}

func TestPageHighlighterRejectsForeignElements(t *testing.T) {
	doc, err := dom.ParseHTML("<html><body></body></html>")
	require.NoError(t, err)
	host, err := doc.CreateOverlayHost()
	require.NoError(t, err)
	assert.Error(t, PageHighlighter{}.HighlightAllUnder(host))
}
