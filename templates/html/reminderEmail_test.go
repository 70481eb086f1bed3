package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderReminderEmail(t *testing.T) {
	out := RenderReminderEmail("Ibuprofen <b>", "400mg", "08:00")

	assert.Contains(t, out, "Ibuprofen &lt;b&gt;")
	assert.Contains(t, out, "400mg")
	assert.Contains(t, out, "08:00")
	assert.Contains(t, out, "<title>Medication reminder</title>")
	assert.False(t, strings.Contains(out, "<b>"))
}
