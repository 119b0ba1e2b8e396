package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		owner     string
		hidden    bool
		want      Decision
	}{
		{"self visible", "a", "a", false, Reveal},
		{"self hidden", "a", "a", true, Reveal},
		{"other visible", "b", "a", false, Reveal},
		{"other hidden", "b", "a", true, Redact},
		{"anonymous hidden", "", "a", true, Redact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.requester, tt.owner, tt.hidden))
		})
	}
}
