package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	assert.False(t, Evaluate(5, 5), "matching destinations are not fraud")
	assert.True(t, Evaluate(5, 7), "exiting elsewhere raises suspicion")
	assert.True(t, Evaluate(7, 5))

	// Holds for every pair: Evaluate(a, b) == (a != b).
	for a := 1; a <= 17; a++ {
		for b := 1; b <= 17; b++ {
			assert.Equal(t, a != b, Evaluate(a, b))
		}
	}
}
