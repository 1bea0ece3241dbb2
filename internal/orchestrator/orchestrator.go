// Package orchestrator owns the submission lifecycle: it moves the page
// between idle and loading, issues the single outbound call and hands the
// outcome to the renderer.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"multichat/internal/collector"
	"multichat/internal/core"
)

// ErrSubmissionInFlight is returned when a submission is attempted while another is loading.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// Orchestrator drives one page. At most one submission is in flight at a time.
type Orchestrator struct {
	view      core.View
	collector *collector.Collector
	submitter core.Submitter
	renderer  core.Renderer
	logger    *slog.Logger

	requestOrder bool
	state        atomic.Int32
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRequestOrder re-keys outcome sets by model ID into the order the models
// were requested in. Outcomes for IDs that were not requested follow, in the
// order the server sent them.
func WithRequestOrder() Option {
	return func(o *Orchestrator) {
		o.requestOrder = true
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an orchestrator over page, posting through submitter and drawing with renderer.
func New(page core.Page, submitter core.Submitter, renderer core.Renderer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		view:      page.View,
		collector: collector.New(page.Form, page.Notifier),
		submitter: submitter,
		renderer:  renderer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() core.UIState {
	return core.UIState(o.state.Load())
}

// HandleSubmit is the form's submit handler: it collects the form and, when
// valid, submits it. Validation failures are already shown to the user and
// are returned unchanged; nothing else happens for them.
func (o *Orchestrator) HandleSubmit(ctx context.Context) error {
	if o.State() == core.StateLoading {
		return ErrSubmissionInFlight
	}
	req, err := o.collector.Collect()
	if err != nil {
		o.logger.Debug("submission rejected", "reason", err)
		return err
	}
	return o.Submit(ctx, req)
}

// Submit runs one full cycle for a validated request: enter loading, call
// the endpoint once, render, return to idle. Server-reported failures and
// transport failures are rendered, not returned; the only error is
// ErrSubmissionInFlight.
func (o *Orchestrator) Submit(ctx context.Context, req core.SubmissionRequest) error {
	if !o.state.CompareAndSwap(int32(core.StateIdle), int32(core.StateLoading)) {
		return ErrSubmissionInFlight
	}
	o.enterLoading()
	defer o.enterIdle()

	start := time.Now()
	result, err := o.submitter.Submit(ctx, req)
	if err != nil {
		o.logger.Warn("submission failed",
			"error", err,
			"models", len(req.ModelIDs),
			"duration", time.Since(start),
		)
		result = core.TransportFailureResult()
	} else if o.requestOrder && result.Kind == core.ResultOutcomes {
		result.Outcomes = alignToRequest(req.ModelIDs, result.Outcomes)
	}

	o.renderer.Render(req.Prompt, result)

	o.logger.Debug("submission rendered",
		"result", result.Kind.String(),
		"models", len(req.ModelIDs),
		"outcomes", len(result.Outcomes),
		"duration", time.Since(start),
	)
	return nil
}

func (o *Orchestrator) enterLoading() {
	o.view.SetLoadingVisible(true)
	o.view.SetResponsesVisible(false)
	o.view.SetSubmitEnabled(false)
}

// enterIdle runs on every path out of Submit, including panics in the
// submitter or renderer.
func (o *Orchestrator) enterIdle() {
	o.view.SetLoadingVisible(false)
	o.view.SetSubmitEnabled(true)
	o.state.Store(int32(core.StateIdle))
}

// alignToRequest orders outcomes by the position of their model ID in ids.
func alignToRequest(ids []string, outcomes []core.ModelOutcome) []core.ModelOutcome {
	byID := make(map[string][]core.ModelOutcome, len(ids))
	requested := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}

	var extra []core.ModelOutcome
	for _, outcome := range outcomes {
		if _, ok := requested[outcome.ModelID]; ok {
			byID[outcome.ModelID] = append(byID[outcome.ModelID], outcome)
			continue
		}
		extra = append(extra, outcome)
	}

	aligned := make([]core.ModelOutcome, 0, len(outcomes))
	for _, id := range ids {
		aligned = append(aligned, byID[id]...)
	}
	return append(aligned, extra...)
}
