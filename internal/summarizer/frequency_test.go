package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "Go channels connect goroutines. Channels carry values between goroutines. " +
	"The weather was nice. Goroutines and channels make concurrency simple"

func TestSentences(t *testing.T) {
	s := NewFrequencySummarizer()
	got := s.Sentences(sample)
	assert.Equal(t, []string{
		"Go channels connect goroutines.",
		"Channels carry values between goroutines.",
		"The weather was nice.",
		"Goroutines and channels make concurrency simple",
	}, got)
}

func TestSummarize_KeepsDocumentOrder(t *testing.T) {
	s := NewFrequencySummarizer()

	summary, err := s.Summarize(sample, 2)
	require.NoError(t, err)
	assert.NotContains(t, summary, "weather")
	assert.Contains(t, summary, "goroutines")
}

func TestSummarize_NoSentences(t *testing.T) {
	s := NewFrequencySummarizer()
	summary, err := s.Summarize("   ", 3)
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestBestSentence(t *testing.T) {
	s := NewFrequencySummarizer()
	assert.Equal(t, "The weather was nice.", s.BestSentence(sample, "how was the weather?"))
	assert.Empty(t, s.BestSentence(sample, "zebra"))
}
