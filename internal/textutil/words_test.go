package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFields_SplitsOnSeparatorsAndUnicodeSpace(t *testing.T) {
	assert.Equal(t, []string{"loan", "emi", "kyc", "neft"}, Fields(" loan\x1cemi\x1f kyc neft　"))
}

func TestTrimSpace(t *testing.T) {
	assert.Equal(t, "what is kyc", TrimSpace("\x1d\t what is kyc \x1e\n"))
	assert.Empty(t, TrimSpace("\x1c\x1d\x1e\x1f"))
}

func TestContentWords_DropsStopwords(t *testing.T) {
	assert.Equal(t, []string{"savings", "account", "interest"}, ContentWords("The savings account and the interest"))
}
