package chatclient

import (
	"github.com/tidwall/gjson"

	"multichat/internal/core"
)

// ParseResult classifies a response body:
//   - a truthy top-level "error" is a global error;
//   - otherwise a truthy "responses" array is an outcome set;
//   - otherwise the result is empty.
//
// Bodies that are not a JSON object, or whose responses are malformed, are
// transport failures.
func ParseResult(body []byte) (core.SubmissionResult, error) {
	if !gjson.ValidBytes(body) {
		return core.SubmissionResult{}, core.NewTransportError("decode response", errInvalidJSON)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return core.SubmissionResult{}, core.NewTransportError("decode response", errNotObject)
	}

	if msg, ok := errorText(root.Get("error")); ok {
		return core.GlobalErrorResult(msg), nil
	}

	responses := root.Get("responses")
	if !truthy(responses) {
		return core.EmptyResult(), nil
	}
	if !responses.IsArray() {
		return core.SubmissionResult{}, core.NewTransportError("decode response", errResponsesShape)
	}

	entries := responses.Array()
	outcomes := make([]core.ModelOutcome, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsObject() {
			return core.SubmissionResult{}, core.NewTransportError("decode response", errOutcomeNotEntry)
		}
		outcomes = append(outcomes, toOutcome(entry))
	}
	return core.OutcomesResult(outcomes), nil
}

func toOutcome(entry gjson.Result) core.ModelOutcome {
	outcome := core.ModelOutcome{
		ModelID:   entry.Get("model_id").String(),
		ModelName: entry.Get("model_name").String(),
		Success:   truthy(entry.Get("success")),
	}
	if outcome.Success {
		outcome.ResponseText = entry.Get("response").String()
	} else if msg, ok := errorText(entry.Get("error")); ok {
		outcome.ErrorText = msg
	}
	return outcome
}

// errorText extracts a displayable message from an error field. Structured
// errors ({"message": ...}) yield their message; other truthy values their raw JSON.
func errorText(v gjson.Result) (string, bool) {
	if !truthy(v) {
		return "", false
	}
	switch v.Type {
	case gjson.String:
		return v.Str, true
	case gjson.JSON:
		if msg := v.Get("message"); msg.Type == gjson.String && msg.Str != "" {
			return msg.Str, true
		}
		return v.Raw, true
	default:
		return v.String(), true
	}
}

// truthy mirrors JavaScript truthiness for decoded JSON values.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	default:
		return true
	}
}
