// Package page provides hosts for the controller: the browser DOM (js/wasm
// builds only), an in-memory page that mirrors the browser shell, and a
// static form for non-interactive clients.
package page

import (
	"slices"
	"strings"
	"sync"

	"multichat/internal/core"
)

// Headless is an in-memory stand-in for the chat page. It implements
// core.Form, core.Notifier, core.View and core.Container.
type Headless struct {
	mu sync.Mutex

	options []string
	checked map[string]bool
	prompt  string

	alerts           []string
	loadingVisible   bool
	responsesVisible bool
	submitEnabled    bool
	units            []string
}

// NewHeadless creates a page offering the given model options in document order.
func NewHeadless(options ...string) *Headless {
	return &Headless{
		options:       slices.Clone(options),
		checked:       make(map[string]bool),
		submitEnabled: true,
	}
}

// Page returns the page collaborators for the orchestrator.
func (h *Headless) Page() core.Page {
	return core.Page{Form: h, Notifier: h, View: h}
}

// Check ticks the given model checkboxes. Unknown IDs are ignored.
func (h *Headless) Check(ids ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		if slices.Contains(h.options, id) {
			h.checked[id] = true
		}
	}
}

// Uncheck clears the given model checkboxes.
func (h *Headless) Uncheck(ids ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		delete(h.checked, id)
	}
}

// SetPrompt replaces the prompt field value.
func (h *Headless) SetPrompt(prompt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prompt = prompt
}

// SelectedModels implements core.Form.
func (h *Headless) SelectedModels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, id := range h.options {
		if h.checked[id] {
			out = append(out, id)
		}
	}
	return out
}

// PromptText implements core.Form.
func (h *Headless) PromptText() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.prompt
}

// Notify implements core.Notifier.
func (h *Headless) Notify(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alerts = append(h.alerts, message)
}

// SetLoadingVisible implements core.View.
func (h *Headless) SetLoadingVisible(visible bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadingVisible = visible
}

// SetResponsesVisible implements core.View.
func (h *Headless) SetResponsesVisible(visible bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responsesVisible = visible
}

// SetSubmitEnabled implements core.View.
func (h *Headless) SetSubmitEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.submitEnabled = enabled
}

// Clear implements core.Container.
func (h *Headless) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.units = nil
}

// Append implements core.Container.
func (h *Headless) Append(fragment string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.units = append(h.units, fragment)
}

// Reveal implements core.Container.
func (h *Headless) Reveal() {
	h.SetResponsesVisible(true)
}

// Alerts returns the notifications shown so far.
func (h *Headless) Alerts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.alerts)
}

// LoadingVisible reports whether the loading indicator is shown.
func (h *Headless) LoadingVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadingVisible
}

// ResponsesVisible reports whether the response area is shown.
func (h *Headless) ResponsesVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.responsesVisible
}

// SubmitEnabled reports whether the submit control accepts clicks.
func (h *Headless) SubmitEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.submitEnabled
}

// Units returns the rendered fragments in order.
func (h *Headless) Units() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.units)
}

// HTML returns the cards container's inner HTML.
func (h *Headless) HTML() string {
	return strings.Join(h.Units(), "")
}
