package page

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"multichat/internal/core"
)

var (
	_ core.Form      = (*Headless)(nil)
	_ core.Notifier  = (*Headless)(nil)
	_ core.View      = (*Headless)(nil)
	_ core.Container = (*Headless)(nil)
	_ core.Form      = Form{}
)

func TestHeadless_InitialState(t *testing.T) {
	h := NewHeadless("a", "b")

	assert.False(t, h.LoadingVisible())
	assert.False(t, h.ResponsesVisible())
	assert.True(t, h.SubmitEnabled())
	assert.Empty(t, h.SelectedModels())
	assert.Empty(t, h.Units())
}

func TestHeadless_SelectionFollowsDocumentOrder(t *testing.T) {
	h := NewHeadless("a", "b", "c")

	h.Check("c", "a", "unknown")
	assert.Equal(t, []string{"a", "c"}, h.SelectedModels())

	h.Uncheck("a")
	assert.Equal(t, []string{"c"}, h.SelectedModels())
}

func TestHeadless_Container(t *testing.T) {
	h := NewHeadless()

	h.Append("<p>1</p>")
	h.Append("<p>2</p>")
	assert.Equal(t, "<p>1</p><p>2</p>", h.HTML())

	h.Clear()
	assert.Empty(t, h.HTML())

	h.Reveal()
	assert.True(t, h.ResponsesVisible())
}

func TestHeadless_Notify(t *testing.T) {
	h := NewHeadless()
	h.Notify("one")
	h.Notify("two")

	assert.Equal(t, []string{"one", "two"}, h.Alerts())
}

func TestForm(t *testing.T) {
	f := Form{Models: []string{"x"}, Prompt: " hi "}

	assert.Equal(t, []string{"x"}, f.SelectedModels())
	assert.Equal(t, " hi ", f.PromptText())
}
