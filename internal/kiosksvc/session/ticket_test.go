package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTicketID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewTicketID()
		assert.Len(t, id, ticketIDLength)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(ticketAlphabet, r), "unexpected character %q in %s", r, id)
		}
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1, "ids must not repeat")
}
