package chat

import (
	"math/rand/v2"
	"strings"
)

// RandomSource picks an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int {
	return rand.IntN(n)
}

var positivePhrases = []string{
	"That sounds amazing! 🌟",
	"Positive vibes detected! 😊",
	"I'm loving the energy! ✨",
	"That's quite encouraging!",
	"Optimistic outlook! 🌈",
	"Keep up the great spirit! 🎉",
	"Such a refreshing perspective! ☀️",
	"Joyful thoughts! 😄",
	"That’s truly motivating! 💡",
	"Positivity at its finest! 🌺",
}

var neutralPhrases = []string{
	"That's alright 🤔",
	"Keeping it balanced.",
	"Middle ground detected.",
	"Neither here nor there.",
	"That's fairly neutral.",
	"A steady perspective.",
	"Neutral vibes incoming.",
	"Staying in the middle.",
	"Neither positive nor negative.",
	"A balanced outlook.",
}

var negativePhrases = []string{
	"That doesn't sound good... 😕",
	"Not the best news. 😟",
	"That seems concerning.",
	"I sense some negativity.",
	"Hmm, that could be better. 😬",
	"Oh no, that’s unfortunate. 😔",
	"That might be tough to deal with. 😣",
	"I hope things improve soon. 🌱",
	"That’s a bit disheartening. 💔",
	"That's not nice. 😢",
}

// Phrases returns a copy of the reply set used for label. Labels other than positive and
// negative share the neutral set.
func Phrases(label string) []string {
	set := phraseSet(label)
	out := make([]string, len(set))
	copy(out, set)
	return out
}

func phraseSet(label string) []string {
	switch strings.ToLower(label) {
	case "positive":
		return positivePhrases
	case "negative":
		return negativePhrases
	default:
		return neutralPhrases
	}
}

// PickPhrase returns a reply for the sentiment label, drawn uniformly from the label's
// phrase set using src.
func PickPhrase(label string, src RandomSource) string {
	set := phraseSet(label)
	return set[src.IntN(len(set))]
}
