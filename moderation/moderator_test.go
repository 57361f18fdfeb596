package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T, words ...string) Moderator {
	t.Helper()
	moderator, err := NewModerator(words, '*')
	require.NoError(t, err)
	return moderator
}

func Test_Censor_Replaces_Forbidden_Words(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t, "bigot")

	req.Equal("what a *****", moderator.Censor("what a bigot"))
}

func Test_Censor_Leaves_Clean_Text_Untouched(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t, "bigot")

	clean := "a perfectly polite sentence"
	req.Equal(clean, moderator.Censor(clean))
}

func Test_Censor_Defeats_Leet_Speak(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t, "bigot")

	req.Equal("what a *****", moderator.Censor("what a b1g0t"))
}

func Test_Censor_Ignores_Case(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t, "bigot")

	req.Equal("*****!", moderator.Censor("BiGoT!"))
}

func Test_Censor_Matches_Across_Punctuation(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t, "bigot")

	// Punctuation inside the word is normalized away for matching but
	// the replacement spans the original characters.
	req.Equal("*********", moderator.Censor("b.i.g.o.t"))
}

func Test_Censor_Handles_Multiple_Words(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t, "bigot", "scumbag")

	req.Equal("that ***** is a *******", moderator.Censor("that bigot is a scumbag"))
}

func Test_Load_Censored_Words(t *testing.T) {
	req := require.New(t)

	words, err := LoadCensoredWords()
	req.NoError(err)
	req.NotEmpty(words)
	req.Contains(words, "bigot")
}
