package page

// Form is a fixed selection and prompt, used by non-interactive clients.
type Form struct {
	Models []string
	Prompt string
}

// SelectedModels implements core.Form.
func (f Form) SelectedModels() []string {
	return f.Models
}

// PromptText implements core.Form.
func (f Form) PromptText() string {
	return f.Prompt
}
