//go:build js && wasm

package page

import (
	"fmt"
	"log/slog"

	"github.com/hack-pad/safejs"

	"multichat/internal/core"
)

const hiddenClass = "hidden"

// DOM binds the controller to the page shell served at "/". It implements
// core.Form, core.Notifier, core.View and core.Container.
type DOM struct {
	global    safejs.Value
	document  safejs.Value
	form      safejs.Value
	prompt    safejs.Value
	submit    safejs.Value
	loading   safejs.Value
	responses safejs.Value
	cards     safejs.Value
}

// NewDOM looks up the page's elements. Every element must be present.
func NewDOM() (*DOM, error) {
	global := safejs.Global()
	document, err := global.Get("document")
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}

	d := &DOM{global: global, document: document}
	for id, dst := range map[string]*safejs.Value{
		"chat-form":      &d.form,
		"prompt":         &d.prompt,
		"submit-btn":     &d.submit,
		"loading":        &d.loading,
		"responses":      &d.responses,
		"response-cards": &d.cards,
	} {
		el, err := document.Call("getElementById", id)
		if err != nil {
			return nil, fmt.Errorf("lookup #%s: %w", id, err)
		}
		if el.IsNull() || el.IsUndefined() {
			return nil, fmt.Errorf("element #%s not found", id)
		}
		*dst = el
	}
	return d, nil
}

// Page returns the page collaborators for the orchestrator.
func (d *DOM) Page() core.Page {
	return core.Page{Form: d, Notifier: d, View: d}
}

// Origin returns window.location.origin, e.g. "http://localhost:8000".
func (d *DOM) Origin() (string, error) {
	location, err := d.global.Get("location")
	if err != nil {
		return "", err
	}
	origin, err := location.Get("origin")
	if err != nil {
		return "", err
	}
	return origin.String()
}

// OnSubmit registers fn as the form's submit listener. The browser's own
// submission is always prevented. The returned func removes the listener.
func (d *DOM) OnSubmit(fn func()) (func(), error) {
	listener, err := safejs.FuncOf(func(_ safejs.Value, args []safejs.Value) any {
		if len(args) > 0 {
			if _, err := args[0].Call("preventDefault"); err != nil {
				slog.Warn("preventDefault failed", "error", err)
			}
		}
		fn()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := d.form.Call("addEventListener", "submit", listener); err != nil {
		listener.Release()
		return nil, err
	}
	return func() {
		_, _ = d.form.Call("removeEventListener", "submit", listener)
		listener.Release()
	}, nil
}

// SelectedModels returns the values of checked model checkboxes in document order.
func (d *DOM) SelectedModels() []string {
	nodes, err := d.document.Call("querySelectorAll", `input[name="model"]:checked`)
	if err != nil {
		slog.Warn("failed to query selected models", "error", err)
		return nil
	}
	n, err := nodes.Length()
	if err != nil {
		return nil
	}

	ids := make([]string, 0, n)
	for i := range n {
		node, err := nodes.Index(i)
		if err != nil {
			continue
		}
		if v, ok := stringProp(node, "value"); ok {
			ids = append(ids, v)
		}
	}
	return ids
}

// PromptText returns the prompt field's raw value.
func (d *DOM) PromptText() string {
	v, _ := stringProp(d.prompt, "value")
	return v
}

// Notify shows a blocking alert.
func (d *DOM) Notify(message string) {
	if _, err := d.global.Call("alert", message); err != nil {
		slog.Warn("alert failed", "error", err)
	}
}

func (d *DOM) SetLoadingVisible(visible bool) {
	setHidden(d.loading, !visible)
}

func (d *DOM) SetResponsesVisible(visible bool) {
	setHidden(d.responses, !visible)
}

func (d *DOM) SetSubmitEnabled(enabled bool) {
	if err := d.submit.Set("disabled", !enabled); err != nil {
		slog.Warn("failed to toggle submit button", "error", err)
	}
}

// Clear empties the response cards container.
func (d *DOM) Clear() {
	if err := d.cards.Set("innerHTML", ""); err != nil {
		slog.Warn("failed to clear responses", "error", err)
	}
}

// Append inserts an escaped HTML fragment at the end of the container.
func (d *DOM) Append(fragment string) {
	if _, err := d.cards.Call("insertAdjacentHTML", "beforeend", fragment); err != nil {
		slog.Warn("failed to append response", "error", err)
	}
}

// Reveal shows the responses area.
func (d *DOM) Reveal() {
	setHidden(d.responses, false)
}

func setHidden(el safejs.Value, hidden bool) {
	classList, err := el.Get("classList")
	if err == nil {
		_, err = classList.Call("toggle", hiddenClass, hidden)
	}
	if err != nil {
		slog.Warn("failed to toggle visibility", "error", err)
	}
}

func stringProp(v safejs.Value, name string) (string, bool) {
	prop, err := v.Get(name)
	if err != nil {
		return "", false
	}
	s, err := prop.String()
	if err != nil {
		return "", false
	}
	return s, true
}
