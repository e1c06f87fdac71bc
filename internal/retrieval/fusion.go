package retrieval

import "sort"

// DefaultRRFConstant is the standard RRF smoothing parameter. k=60 is
// empirically validated across domains (used by Azure AI Search, OpenSearch,
// etc.) and is the default for both local fusion here and the server-side
// prefetch fusion issued to the vector store (spec §4.11, §6).
const DefaultRRFConstant = 60

// SparseHit is one row of a BM25/sparse-vector ranked list.
type SparseHit struct {
	ChunkID      string
	Score        float64
	MatchedTerms []string
}

// DenseHit is one row of a dense-vector ranked list.
type DenseHit struct {
	ChunkID string
	Score   float32
}

// Weights controls the relative contribution of each ranked list to the
// fused RRF score.
type Weights struct {
	Sparse float64
	Dense  float64
}

// EqualWeights weights both lists equally.
func EqualWeights() Weights { return Weights{Sparse: 1, Dense: 1} }

// FusedResult is one document after RRF fusion of a sparse and dense list.
type FusedResult struct {
	ChunkID      string
	RRFScore     float64
	SparseScore  float64
	SparseRank   int
	DenseScore   float32
	DenseRank    int
	InBothLists  bool
	MatchedTerms []string
}

// RRFFusion combines a sparse (BM25) and a dense (vector) ranked list using
// Reciprocal Rank Fusion:
//
//	RRF_score(d) = Σ weight_i / (k + rank_i)
//
// rank_i is the 1-indexed position of d in ranked list i; documents absent
// from a list receive that list's contribution at missing_rank =
// max(len(sparse), len(dense)) + 1 (spec §4.11, §4.12).
type RRFFusion struct {
	K int
}

// NewRRFFusion creates an RRF fusion instance with the default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates an RRF fusion instance with a custom k. A
// non-positive k falls back to the default.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse combines sparse and dense ranked lists. Results are sorted by
// RRFScore (desc) → InBothLists (true first) → SparseScore (desc) →
// ChunkID (asc), then normalized to 0-1 using the top score as reference.
func (f *RRFFusion) Fuse(sparse []SparseHit, dense []DenseHit, w Weights) []*FusedResult {
	if len(sparse) == 0 && len(dense) == 0 {
		return []*FusedResult{}
	}

	scores := make(map[string]*FusedResult, len(sparse)+len(dense))

	for rank, r := range sparse {
		result := getOrCreate(scores, r.ChunkID)
		result.SparseScore = r.Score
		result.SparseRank = rank + 1
		result.MatchedTerms = r.MatchedTerms
		result.RRFScore += w.Sparse / float64(f.K+rank+1)
	}

	for rank, r := range dense {
		result := getOrCreate(scores, r.ChunkID)
		result.DenseScore = r.Score
		result.DenseRank = rank + 1
		result.RRFScore += w.Dense / float64(f.K+rank+1)
		if result.SparseRank > 0 {
			result.InBothLists = true
		}
	}

	missingRank := missingRank(len(sparse), len(dense))
	for _, r := range scores {
		if r.SparseRank == 0 && r.DenseRank > 0 {
			r.RRFScore += w.Sparse / float64(f.K+missingRank)
		}
		if r.DenseRank == 0 && r.SparseRank > 0 {
			r.RRFScore += w.Dense / float64(f.K+missingRank)
		}
	}

	results := toSortedSlice(scores)
	normalize(results)
	return results
}

func getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &FusedResult{ChunkID: id}
	m[id] = r
	return r
}

func missingRank(sparseLen, denseLen int) int {
	if sparseLen > denseLen {
		return sparseLen + 1
	}
	return denseLen + 1
}

func toSortedSlice(m map[string]*FusedResult) []*FusedResult {
	results := make([]*FusedResult, 0, len(m))
	for _, r := range m {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		return rankBefore(results[i], results[j])
	})
	return results
}

// rankBefore reports whether a should rank before b: higher RRF score,
// then in-both-lists, then higher sparse score, then smaller ChunkID.
func rankBefore(a, b *FusedResult) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}
	if a.InBothLists != b.InBothLists {
		return a.InBothLists
	}
	if a.SparseScore != b.SparseScore {
		return a.SparseScore > b.SparseScore
	}
	return a.ChunkID < b.ChunkID
}

func normalize(results []*FusedResult) {
	if len(results) == 0 {
		return
	}
	maxScore := results[0].RRFScore
	if maxScore == 0 {
		return
	}
	for _, r := range results {
		r.RRFScore /= maxScore
	}
}
