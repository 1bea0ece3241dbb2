// Package core defines the types and interfaces shared by the multichat
// controller, its renderers and the frontend server.
package core

import "context"

// Form exposes the page's input controls.
type Form interface {
	// SelectedModels returns the values of the checked model selectors in document order.
	SelectedModels() []string
	// PromptText returns the raw, untrimmed prompt field value.
	PromptText() string
}

// Notifier surfaces a blocking message to the user (a browser alert).
type Notifier interface {
	Notify(message string)
}

// View is the set of controls whose visibility depends on UIState.
type View interface {
	SetLoadingVisible(visible bool)
	SetResponsesVisible(visible bool)
	SetSubmitEnabled(enabled bool)
}

// Container is the display tree the HTML renderer draws into.
type Container interface {
	// Clear removes every rendered unit.
	Clear()
	// Append adds one pre-escaped HTML fragment at the end.
	Append(fragment string)
	// Reveal makes the response area visible.
	Reveal()
}

// Renderer draws one submission's result. Implementations clear prior content first.
type Renderer interface {
	Render(prompt string, result SubmissionResult)
}

// Submitter issues the single outbound call for a submission.
// Server-reported failures are returned inside the result; a non-nil error
// is always a *TransportError.
type Submitter interface {
	Submit(ctx context.Context, req SubmissionRequest) (SubmissionResult, error)
}

// Page bundles the page collaborators captured once at startup.
type Page struct {
	Form     Form
	Notifier Notifier
	View     View
}
