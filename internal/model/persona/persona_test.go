package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPersona(t *testing.T) {
	p := Default()
	assert.Equal(t, "momversation", p.ID)
	assert.NotEmpty(t, p.OpeningLine)
	assert.Len(t, p.QuickTopics, 4)

	// callers get their own slices
	p.QuickTopics[0] = "changed"
	assert.Equal(t, "New mom anxiety", Default().QuickTopics[0])
}
