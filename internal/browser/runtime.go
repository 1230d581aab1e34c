package browser

import (
	"encoding/json"
	"fmt"
)

// bindingName is the page-global function clicks are reported through.
const bindingName = "__livereloadClick"

// pageRuntime is installed once per page load. It keeps a registry of the
// elements handed to Go so the page markup is never annotated, and forwards
// body clicks through the binding.
//
// %[1]s is the binding name, %[2]d the page-load generation and %[3]s the
// JSON-quoted class whose clicks are cancelled in the page.
const pageRuntime = `(() => {
	if (window.__livereload) {
		return window.__livereload.load;
	}
	const rt = {
		load: %[2]d,
		next: 0,
		refs: new Map(),
		ids: new WeakMap(),
		ref(el) {
			let id = rt.ids.get(el);
			if (id === undefined) {
				id = ++rt.next;
				rt.ids.set(el, id);
				rt.refs.set(id, el);
			}
			return id;
		},
		get(id) {
			const el = rt.refs.get(id);
			if (!el) {
				throw new Error("stale element reference " + id);
			}
			return el;
		},
	};
	window.__livereload = rt;
	const cancel = %[3]s;
	document.body.addEventListener("click", (ev) => {
		const target = ev.target;
		if (!(target instanceof Element)) {
			return;
		}
		if (cancel && target.classList.contains(cancel)) {
			ev.preventDefault();
			ev.stopPropagation();
		}
		window.%[1]s(JSON.stringify({ref: rt.ref(target), load: rt.load}));
	});
	return rt.load;
})()`

// clickPayload is what the page sends through the binding.
type clickPayload struct {
	Ref  int `json:"ref"`
	Load int `json:"load"`
}

func installScript(load int, cancelClass string) string {
	return fmt.Sprintf(pageRuntime, bindingName, load, jsValue(cancelClass))
}

// elementScript wraps body in a function receiving the element for ref.
func elementScript(ref int, body string, args ...any) string {
	quoted := make([]any, len(args))
	for i, a := range args {
		quoted[i] = jsValue(a)
	}
	return fmt.Sprintf(`((el) => { %s })(window.__livereload.get(%d))`, fmt.Sprintf(body, quoted...), ref)
}

// jsValue renders v as a JavaScript literal.
func jsValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
