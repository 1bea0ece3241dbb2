package core

import "strings"

// MaxModels is the largest number of models one submission may target.
const MaxModels = 3

// SubmissionRequest is the body sent to the chat endpoint.
// It is built fresh for every submission and never modified after sending.
type SubmissionRequest struct {
	Prompt   string   `json:"prompt"`
	ModelIDs []string `json:"model_ids"`
}

// ModelOutcome is the result for one model within one submission.
type ModelOutcome struct {
	ModelID      string `json:"model_id"`
	ModelName    string `json:"model_name,omitempty"`
	Success      bool   `json:"success"`
	ResponseText string `json:"response,omitempty"`
	ErrorText    string `json:"error,omitempty"`
}

// Label returns the display name, falling back to the model ID.
func (o ModelOutcome) Label() string {
	if o.ModelName != "" {
		return o.ModelName
	}
	return o.ModelID
}

// Body returns the text shown for the outcome.
// Failing outcomes without an error message read "Unknown error".
func (o ModelOutcome) Body() string {
	if o.Success {
		return o.ResponseText
	}
	if o.ErrorText != "" {
		return o.ErrorText
	}
	return UnknownErrorText
}

// ResultKind discriminates the variants of SubmissionResult.
type ResultKind int

const (
	// ResultEmpty is a well-formed response carrying neither an error nor outcomes.
	ResultEmpty ResultKind = iota
	// ResultGlobalError is a server-reported failure of the whole submission.
	ResultGlobalError
	// ResultOutcomes is a per-model outcome collection.
	ResultOutcomes
	// ResultTransportFailure means the call failed below the JSON layer.
	ResultTransportFailure
)

func (k ResultKind) String() string {
	switch k {
	case ResultEmpty:
		return "empty"
	case ResultGlobalError:
		return "global_error"
	case ResultOutcomes:
		return "outcomes"
	case ResultTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// SubmissionResult is what the renderer draws for a submission.
// Only the fields matching Kind are meaningful.
type SubmissionResult struct {
	Kind     ResultKind
	Message  string
	Outcomes []ModelOutcome
}

// GlobalErrorResult builds a ResultGlobalError.
func GlobalErrorResult(message string) SubmissionResult {
	return SubmissionResult{Kind: ResultGlobalError, Message: message}
}

// OutcomesResult builds a ResultOutcomes.
func OutcomesResult(outcomes []ModelOutcome) SubmissionResult {
	return SubmissionResult{Kind: ResultOutcomes, Outcomes: outcomes}
}

// EmptyResult builds a ResultEmpty.
func EmptyResult() SubmissionResult {
	return SubmissionResult{Kind: ResultEmpty}
}

// TransportFailureResult builds the fixed connection-error result.
func TransportFailureResult() SubmissionResult {
	return SubmissionResult{Kind: ResultTransportFailure}
}

// Fixed texts shown by renderers.
const (
	PromptLabel            = "Your prompt:"
	GlobalErrorTitle       = "Error"
	UnknownErrorText       = "Unknown error"
	ConnectionErrorTitle   = "Connection Error"
	ConnectionErrorMessage = "Could not connect to the server. Please try again."
)

// UIState is the lifecycle state of the submission controls.
type UIState int32

const (
	StateIdle UIState = iota
	StateLoading
)

func (s UIState) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "idle"
}

// ModelInfo describes a model offered for selection.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxLength   int    `json:"max_length,omitempty"`
}

// DisplayName returns Name, or ID when the backend sent no name.
func (m ModelInfo) DisplayName() string {
	if strings.TrimSpace(m.Name) != "" {
		return m.Name
	}
	return m.ID
}
