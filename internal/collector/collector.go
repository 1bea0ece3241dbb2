// Package collector reads and validates a submission from the page form.
package collector

import (
	"errors"
	"strings"

	"multichat/internal/core"
)

// Collector turns the current form state into a SubmissionRequest.
type Collector struct {
	form     core.Form
	notifier core.Notifier
}

// New creates a collector over the given form. A nil notifier disables user notification.
func New(form core.Form, notifier core.Notifier) *Collector {
	return &Collector{form: form, notifier: notifier}
}

// Collect reads the form and validates it. Rules are checked in order and the
// first failure wins; its message is shown through the notifier and returned
// as a *core.ValidationError.
func (c *Collector) Collect() (core.SubmissionRequest, error) {
	req, err := Validate(c.form.SelectedModels(), c.form.PromptText())
	if err != nil {
		var verr *core.ValidationError
		if c.notifier != nil && errors.As(err, &verr) {
			c.notifier.Notify(verr.Message)
		}
		return core.SubmissionRequest{}, err
	}
	return req, nil
}

// Validate builds a request from raw selections and prompt text without side effects.
func Validate(selected []string, prompt string) (core.SubmissionRequest, error) {
	ids := uniqueInOrder(selected)
	if len(ids) == 0 {
		return core.SubmissionRequest{}, core.ErrEmptySelection
	}
	if len(ids) > core.MaxModels {
		return core.SubmissionRequest{}, core.ErrTooManySelections
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return core.SubmissionRequest{}, core.ErrEmptyPrompt
	}

	return core.SubmissionRequest{Prompt: prompt, ModelIDs: ids}, nil
}

// uniqueInOrder drops blank and repeated identifiers, keeping first positions.
func uniqueInOrder(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
