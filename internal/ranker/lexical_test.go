package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_CountsDistinctSharedTokens(t *testing.T) {
	assert.Equal(t, 2, Score("The loan rate is the best rate", "LOAN rate today"))
	assert.Equal(t, 0, Score("nothing shared", "loan"))
	assert.Equal(t, 0, Score("anything", ""))
}

func TestScore_PunctuationStaysAttached(t *testing.T) {
	assert.Equal(t, 0, Score("what is emi?", "emi"))
}

func TestSelectRelevant_OrdersByScore(t *testing.T) {
	chunks := []string{
		"savings account opening",
		"home loan interest rate details",
		"loan",
		"interest rate for fixed deposit",
	}

	got := SelectRelevant(chunks, "home loan interest rate", 3)

	assert.Equal(t, []string{
		"home loan interest rate details",
		"interest rate for fixed deposit",
		"loan",
	}, got)
}

func TestSelectRelevant_TiesKeepOriginalOrder(t *testing.T) {
	chunks := []string{"b kyc", "a kyc", "c kyc", "d kyc"}

	got := SelectRelevant(chunks, "kyc", 3)

	assert.Equal(t, []string{"b kyc", "a kyc", "c kyc"}, got)
}

func TestSelectRelevant_DropsZeroScores(t *testing.T) {
	chunks := []string{"atm limits", "branch hours"}

	assert.Empty(t, SelectRelevant(chunks, "upi pin reset", 3))
	assert.Equal(t, []string{"atm limits"}, SelectRelevant(chunks, "atm", 3))
}

func TestSelectRelevant_DefaultCap(t *testing.T) {
	chunks := []string{"fd", "fd", "fd", "fd", "fd"}

	assert.Len(t, SelectRelevant(chunks, "fd", 0), DefaultMaxChunks)
	assert.Len(t, SelectRelevant(chunks, "fd", 1), 1)
}

func TestSelectRelevant_EmptyInputs(t *testing.T) {
	assert.Empty(t, SelectRelevant(nil, "loan", 3))
	assert.Empty(t, SelectRelevant([]string{"loan"}, "   ", 3))
}

func TestScore_InformationSeparatorsSplitTokens(t *testing.T) {
	assert.Equal(t, 2, Score("home loan\x1finterest", "loan\x1cinterest"))
}
