package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "kil myself", CleanText("KiLLLL   mys3lf!!"))
	assert.Equal(t, "self harm", CleanText("self-harm"))
	assert.Equal(t, "suicide", CleanText("$uicid3"))
	assert.Equal(t, "", CleanText(" ... "))
}

func TestDetectSelfHarm(t *testing.T) {
	tests := []struct {
		msg     string
		flagged bool
	}{
		{"I want to kill myself", true},
		{"thinking about s u i c i d e", false},
		{"I've been feeling suicidal lately", true},
		{"I wish I was dead", true},
		{"Sometimes I think everyone is better off dead without me", true},
		{"I want to k1ll mys3lf", true},
		{"my exams are killing me", false},
		{"I need new skills for my job", false},
		{"I'm so stressed about finals", false},
		{"I want to end it all", true},
		{"I'll send it all to my friend tomorrow", false},
		{"my friend it all started at the party", false},
		{"we can blend it all together", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			flagged, matched := DetectSelfHarm(tt.msg)
			assert.Equal(t, tt.flagged, flagged)
			if tt.flagged {
				assert.NotEmpty(t, matched)
			}
		})
	}
}

func TestContainsConfirmedWordMatchesWholeWords(t *testing.T) {
	ok, _ := ContainsConfirmedWord("unalived", []string{"unalive"})
	assert.False(t, ok)

	ok, words := ContainsConfirmedWord("they said unalive", []string{"unalive"})
	assert.True(t, ok)
	assert.Equal(t, []string{"unalive"}, words)
}

func TestContainsConfirmedWordMatchesPhrasesOnBoundaries(t *testing.T) {
	phrases := cleanAll([]string{"end it all"})

	ok, _ := ContainsConfirmedWord(CleanText("friend it all"), phrases)
	assert.False(t, ok)

	ok, words := ContainsConfirmedWord(CleanText("I just want to end it all."), phrases)
	assert.True(t, ok)
	assert.Equal(t, phrases, words)
}
