// Package sparse implements classical BM25 term weighting over a growable
// vocabulary, producing sparse (index, value) vectors for hybrid search
// (spec §4.8).
package sparse

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

var nonWordRE = regexp.MustCompile(`[^\w]+`)

// Tokenize lowercases, strips non-word characters, splits on whitespace,
// and drops empty tokens (spec §4.8).
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	cleaned := nonWordRE.ReplaceAllString(lowered, " ")
	fields := strings.Fields(cleaned)
	return fields
}

// Vector is a sparse vector: parallel index/value arrays, indices unique,
// values non-negative (spec §3).
type Vector struct {
	Indices []uint32
	Values  []float32
}

// Vocabulary assigns a stable integer to every token seen, growing on
// demand until frozen by Train.
type Vocabulary struct {
	mu     sync.RWMutex
	tokens map[string]uint32
	frozen bool
}

// NewVocabulary creates an empty, growable vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{tokens: make(map[string]uint32)}
}

// idOf returns token's ID, assigning the next integer if unseen and the
// vocabulary is not frozen. Returns (0, false) for an unseen token once
// frozen.
func (v *Vocabulary) idOf(token string) (uint32, bool) {
	v.mu.RLock()
	id, ok := v.tokens[token]
	frozen := v.frozen
	v.mu.RUnlock()
	if ok {
		return id, true
	}
	if frozen {
		return 0, false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if id, ok := v.tokens[token]; ok {
		return id, true
	}
	id = uint32(len(v.tokens))
	v.tokens[token] = id
	return id, true
}

// Freeze stops the vocabulary from growing; subsequent unseen tokens are
// dropped rather than assigned new IDs. Called by Train so that query-time
// encoding is deterministic across the lifetime of a trained encoder
// (resolved Open Question: vocabulary freezes after Train).
func (v *Vocabulary) Freeze() {
	v.mu.Lock()
	v.frozen = true
	v.mu.Unlock()
}

// Size returns the current vocabulary size.
func (v *Vocabulary) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.tokens)
}

// Encoder implements BM25 term weighting against a shared, growable
// vocabulary.
type Encoder struct {
	Vocab *Vocabulary
	K1    float64
	B     float64

	mu          sync.RWMutex
	docFreq     map[uint32]int // token id -> document frequency
	idf         map[uint32]float64
	numDocs     int
	avgDocLen   float64
	trained     bool
}

// NewEncoder creates a BM25 encoder with the default k1/b parameters over
// a fresh vocabulary.
func NewEncoder() *Encoder {
	return &Encoder{
		Vocab:   NewVocabulary(),
		K1:      DefaultK1,
		B:       DefaultB,
		docFreq: make(map[uint32]int),
		idf:     make(map[uint32]float64),
	}
}

// termFrequencies tokenizes text and counts occurrences per vocabulary ID,
// growing the vocabulary as needed when called before Train.
func (e *Encoder) termFrequencies(text string) (map[uint32]int, int) {
	tokens := Tokenize(text)
	freq := make(map[uint32]int, len(tokens))
	length := 0
	for _, tok := range tokens {
		id, ok := e.Vocab.idOf(tok)
		if !ok {
			continue
		}
		freq[id]++
		length++
	}
	return freq, length
}

// Train computes document-frequency-based IDF over a corpus:
// idf(t) = ln((N - df + 0.5) / (df + 0.5) + 1). After Train, the
// vocabulary is frozen: Generate calls after Train no longer add new
// terms (resolved Open Question, spec §9).
func (e *Encoder) Train(docs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	docFreq := make(map[uint32]int)
	totalLen := 0
	for _, doc := range docs {
		freq, length := e.termFrequencies(doc)
		totalLen += length
		seen := make(map[uint32]struct{}, len(freq))
		for id := range freq {
			seen[id] = struct{}{}
		}
		for id := range seen {
			docFreq[id]++
		}
	}

	n := len(docs)
	idf := make(map[uint32]float64, len(docFreq))
	for id, df := range docFreq {
		idf[id] = math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}

	avgLen := 0.0
	if n > 0 {
		avgLen = float64(totalLen) / float64(n)
	}

	e.docFreq = docFreq
	e.idf = idf
	e.numDocs = n
	e.avgDocLen = avgLen
	e.trained = true

	e.Vocab.Freeze()
}

// Generate produces a sparse BM25-weighted vector for text. avgDocLen, if
// 0, falls back to the corpus average computed by Train (or 1 if Train
// has not run). Only positive-score terms are kept in the result (spec
// §4.8).
func (e *Encoder) Generate(text string, avgDocLen float64) Vector {
	freq, docLen := e.termFrequencies(text)

	e.mu.RLock()
	defer e.mu.RUnlock()

	if avgDocLen <= 0 {
		avgDocLen = e.avgDocLen
	}
	if avgDocLen <= 0 {
		avgDocLen = 1
	}

	ids := make([]uint32, 0, len(freq))
	for id := range freq {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	vec := Vector{}
	for _, id := range ids {
		tf := float64(freq[id])
		idf := e.idf[id] // zero for unseen/untrained terms
		if idf <= 0 {
			continue
		}
		numerator := tf * (e.K1 + 1)
		denominator := tf + e.K1*(1-e.B+e.B*docLen/avgDocLen)
		score := idf * numerator / denominator
		if score > 0 {
			vec.Indices = append(vec.Indices, id)
			vec.Values = append(vec.Values, float32(score))
		}
	}
	return vec
}
