// Package protocol defines the JSON payloads a development server pushes to
// the live-update client.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Action discriminator values.
const (
	ActionReload    = "reload"
	ActionReloadCSS = "reload-css"
	ActionRenderHud = "render-hud"
)

// Payload is the wire form of every push message body.
type Payload struct {
	Action      string `json:"action"`
	Path        string `json:"path,omitempty"`
	UpdatedPath string `json:"updatedPath,omitempty"`
	Markup      string `json:"markup,omitempty"`
}

// Action is a decoded payload. It is one of Reload, ReloadCSS, RenderHud
// or Unknown.
type Action interface {
	Name() string
}

// Reload asks for a full page reload.
type Reload struct{}

func (Reload) Name() string { return ActionReload }

// ReloadCSS swaps the stylesheet tracked as Path for UpdatedPath.
type ReloadCSS struct {
	Path        string
	UpdatedPath string
}

func (ReloadCSS) Name() string { return ActionReloadCSS }

// RenderHud replaces the overlay content with Markup.
type RenderHud struct {
	Markup string
}

func (RenderHud) Name() string { return ActionRenderHud }

// Unknown is an action this client does not understand. Newer servers may
// send actions older clients ignore.
type Unknown struct {
	Action string
}

func (u Unknown) Name() string { return u.Action }

// Decode parses a push message body.
func Decode(data []byte) (Action, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &DecodeError{Data: string(data), Err: errNotObject}
	}

	var p Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, &DecodeError{Data: string(data), Err: err}
	}

	switch p.Action {
	case ActionReload:
		return Reload{}, nil
	case ActionReloadCSS:
		if p.Path == "" {
			return nil, &ValidationError{Action: p.Action, Field: "path", Reason: "is required"}
		}
		if p.UpdatedPath == "" {
			return nil, &ValidationError{Action: p.Action, Field: "updatedPath", Reason: "is required"}
		}
		return ReloadCSS{Path: p.Path, UpdatedPath: p.UpdatedPath}, nil
	case ActionRenderHud:
		return RenderHud{Markup: p.Markup}, nil
	default:
		return Unknown{Action: p.Action}, nil
	}
}

// Encode renders an action in wire form.
func Encode(a Action) ([]byte, error) {
	var p Payload
	switch a := a.(type) {
	case Reload:
		p.Action = ActionReload
	case ReloadCSS:
		p = Payload{Action: ActionReloadCSS, Path: a.Path, UpdatedPath: a.UpdatedPath}
	case RenderHud:
		p = Payload{Action: ActionRenderHud, Markup: a.Markup}
	case Unknown:
		p.Action = a.Action
	default:
		return nil, fmt.Errorf("protocol: cannot encode %T", a)
	}
	return json.Marshal(p)
}
