package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_LowercasesStripsAndSplits(t *testing.T) {
	tokens := Tokenize("Hello, World! foo_bar 123")
	assert.Equal(t, []string{"hello", "world", "foo_bar", "123"}, tokens)
}

func TestTokenize_EmptyStringYieldsNoTokens(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   ,,, !!!  "))
}

func TestVocabulary_GrowsOnDemand(t *testing.T) {
	v := NewVocabulary()
	a, ok := v.idOf("foo")
	require.True(t, ok)
	b, ok := v.idOf("bar")
	require.True(t, ok)
	again, ok := v.idOf("foo")
	require.True(t, ok)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, again)
	assert.Equal(t, 2, v.Size())
}

func TestVocabulary_FreezeStopsGrowth(t *testing.T) {
	v := NewVocabulary()
	v.idOf("foo")
	v.Freeze()

	_, ok := v.idOf("new-term")
	assert.False(t, ok)
	assert.Equal(t, 1, v.Size())

	_, ok = v.idOf("foo")
	assert.True(t, ok, "already-known terms still resolve after freeze")
}

func TestEncoder_TrainComputesIDF(t *testing.T) {
	e := NewEncoder()
	docs := []string{
		"the quick brown fox",
		"the lazy dog",
		"the quick dog runs",
	}
	e.Train(docs)

	assert.Equal(t, 3, e.numDocs)
	assert.True(t, e.trained)
	assert.Greater(t, e.avgDocLen, 0.0)
}

func TestEncoder_TrainFreezesVocabulary(t *testing.T) {
	e := NewEncoder()
	e.Train([]string{"alpha beta", "gamma delta"})

	vec := e.Generate("alpha epsilon", 0)
	// "epsilon" never appeared during training, so it contributes nothing.
	for _, idx := range vec.Indices {
		tok, ok := lookupToken(e.Vocab, idx)
		require.True(t, ok)
		assert.NotEqual(t, "epsilon", tok)
	}
}

// lookupToken reverses a vocabulary ID back to its token, for test
// assertions only.
func lookupToken(v *Vocabulary, id uint32) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for tok, tid := range v.tokens {
		if tid == id {
			return tok, true
		}
	}
	return "", false
}

func TestEncoder_GenerateOnlyPositiveScores(t *testing.T) {
	e := NewEncoder()
	e.Train([]string{"common common common", "common rare term", "common other text"})

	vec := e.Generate("rare", 0)
	for _, score := range vec.Values {
		assert.Greater(t, float64(score), 0.0)
	}
}

func TestEncoder_GenerateIndicesUnique(t *testing.T) {
	e := NewEncoder()
	e.Train([]string{"alpha beta gamma"})

	vec := e.Generate("alpha alpha alpha beta", 0)
	seen := map[uint32]bool{}
	for _, idx := range vec.Indices {
		assert.False(t, seen[idx], "duplicate index %d", idx)
		seen[idx] = true
	}
}

func TestEncoder_RareTermScoresHigherThanCommonTerm(t *testing.T) {
	e := NewEncoder()
	docs := []string{
		"common common common rare",
		"common common common",
		"common common common",
		"common common common",
	}
	e.Train(docs)

	rareVec := e.Generate("rare", 4)
	commonVec := e.Generate("common", 4)

	require.Len(t, rareVec.Values, 1)
	require.Len(t, commonVec.Values, 1)
	assert.Greater(t, rareVec.Values[0], commonVec.Values[0])
}

func TestEncoder_DefaultParameters(t *testing.T) {
	e := NewEncoder()
	assert.Equal(t, DefaultK1, e.K1)
	assert.Equal(t, DefaultB, e.B)
}

func TestEncoder_GenerateBeforeTrainGrowsVocabulary(t *testing.T) {
	e := NewEncoder()
	e.Generate("alpha beta", 0)
	assert.Equal(t, 2, e.Vocab.Size())
}
