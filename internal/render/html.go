// Package render draws a submission's result as isolated display units.
package render

import (
	"html/template"
	"log/slog"
	"strings"

	"multichat/internal/core"
)

const fragments = `
{{- define "prompt" -}}
<div class="prompt-display"><strong>{{.Label}}</strong> {{.Text}}</div>
{{- end -}}
{{- define "card" -}}
<div class="response-card{{if .Failed}} error{{end}}"><h3>{{.Title}}</h3><div class="content">{{.Body}}</div></div>
{{- end -}}`

var fragmentTmpl = template.Must(template.New("fragments").Parse(fragments))

// card is one display unit: a titled box styled as success or failure.
type card struct {
	Title  string
	Body   string
	Failed bool
}

// cards converts a result into its ordered display units, excluding the prompt echo.
func cards(result core.SubmissionResult) []card {
	switch result.Kind {
	case core.ResultGlobalError:
		return []card{{Title: core.GlobalErrorTitle, Body: result.Message, Failed: true}}
	case core.ResultOutcomes:
		out := make([]card, 0, len(result.Outcomes))
		for _, o := range result.Outcomes {
			out = append(out, card{Title: o.Label(), Body: o.Body(), Failed: !o.Success})
		}
		return out
	case core.ResultTransportFailure:
		return []card{{Title: core.ConnectionErrorTitle, Body: core.ConnectionErrorMessage, Failed: true}}
	default:
		return nil
	}
}

// HTMLRenderer draws cards into a DOM-like container. All text passes
// through html/template, so prompts, labels and bodies are inert.
type HTMLRenderer struct {
	container core.Container
}

// NewHTML creates a renderer drawing into container.
func NewHTML(container core.Container) *HTMLRenderer {
	return &HTMLRenderer{container: container}
}

// Render clears the container, echoes the prompt, draws one unit per card
// and reveals the response area.
func (r *HTMLRenderer) Render(prompt string, result core.SubmissionResult) {
	r.container.Clear()
	r.container.Append(execute("prompt", struct{ Label, Text string }{core.PromptLabel, prompt}))
	for _, c := range cards(result) {
		r.container.Append(execute("card", c))
	}
	r.container.Reveal()
}

func execute(name string, data any) string {
	var b strings.Builder
	if err := fragmentTmpl.ExecuteTemplate(&b, name, data); err != nil {
		slog.Error("failed to render fragment", "template", name, "error", err)
		return ""
	}
	return b.String()
}
