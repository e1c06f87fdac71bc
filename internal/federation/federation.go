// Package federation implements the Federator (spec §4.12): it fans a
// single query out across multiple repository paths and, within each,
// across the code index and/or the git-history index, then fuses the
// per-repository result lists into one globally ranked list via
// Reciprocal Rank Fusion.
package federation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codeforge-dev/indexcore/internal/gitindex"
	"github.com/codeforge-dev/indexcore/internal/index"
)

// SearchType selects which index(es) a federated search consults.
type SearchType string

const (
	SearchTypeCode SearchType = "code"
	SearchTypeGit  SearchType = "git"
	SearchTypeBoth SearchType = "both"
)

// rrfConstant is the RRF smoothing parameter (spec §4.12: "k = 60").
const rrfConstant = 60

// ResultType distinguishes which index a fused result came from.
type ResultType string

const (
	ResultTypeCode ResultType = "code"
	ResultTypeGit  ResultType = "git"
)

// Result is one fused hit, tagged with its origin repository and index.
type Result struct {
	ID          string
	RepoPath    string
	ResultType  ResultType
	RawScore    float32
	NormScore   float64
	RRFScore    float64
	Payload     map[string]any
}

// Federator dispatches a query across repositories and index kinds.
type Federator struct {
	CodeIndexer *index.Indexer
	GitIndexer  *gitindex.GitIndexer
}

// New builds a Federator over the given orchestrators.
func New(codeIndexer *index.Indexer, gitIndexer *gitindex.GitIndexer) *Federator {
	return &Federator{CodeIndexer: codeIndexer, GitIndexer: gitIndexer}
}

// Search runs the full federated-search algorithm (spec §4.12).
func (f *Federator) Search(ctx context.Context, paths []string, query string, searchType SearchType, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("federation.search: no paths given")
	}

	if err := f.validateIndexed(ctx, paths, searchType); err != nil {
		return nil, err
	}

	perPath := int(math.Ceil(float64(limit) / float64(len(paths))))

	type tagged struct {
		rt   ResultType
		repo string
		id   string
		score float32
		payload map[string]any
	}

	var mu sync.Mutex
	var all []tagged

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		p := p
		if searchType == SearchTypeCode || searchType == SearchTypeBoth {
			g.Go(func() error {
				results, err := f.CodeIndexer.SearchCode(gctx, p, query, index.SearchOptions{Limit: perPath})
				if err != nil {
					return fmt.Errorf("federation.search: code search %s: %w", p, err)
				}
				mu.Lock()
				for _, r := range results {
					all = append(all, tagged{rt: ResultTypeCode, repo: p, id: r.ID, score: r.Score, payload: r.Payload})
				}
				mu.Unlock()
				return nil
			})
		}
		if searchType == SearchTypeGit || searchType == SearchTypeBoth {
			g.Go(func() error {
				results, err := f.GitIndexer.SearchHistory(gctx, p, query, gitindex.SearchOptions{Limit: perPath})
				if err != nil {
					return fmt.Errorf("federation.search: git search %s: %w", p, err)
				}
				mu.Lock()
				for _, r := range results {
					all = append(all, tagged{rt: ResultTypeGit, repo: p, id: r.ID, score: r.Score, payload: r.Payload})
				}
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]Result, len(all))
	for i, t := range all {
		results[i] = Result{ID: t.id, RepoPath: t.repo, ResultType: t.rt, RawScore: t.score, Payload: t.payload}
	}

	normalizeByType(results)
	ranks := rankWithinGroup(results)
	for i := range results {
		results[i].RRFScore = 1.0 / float64(rrfConstant+ranks[i])
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].RRFScore > results[j].RRFScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// validateIndexed fails fast (spec §4.12 step 1): every path's relevant
// index state must already be `indexed`. All missing-index errors are
// collected and surfaced together, before any search is issued.
func (f *Federator) validateIndexed(ctx context.Context, paths []string, searchType SearchType) error {
	var problems []string
	for _, p := range paths {
		if searchType == SearchTypeCode || searchType == SearchTypeBoth {
			status, err := f.CodeIndexer.GetIndexStatus(ctx, p)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: code index status: %v", p, err))
			} else if status.Status != "indexed" {
				problems = append(problems, fmt.Sprintf("%s: code index is %s, not indexed", p, status.Status))
			}
		}
		if searchType == SearchTypeGit || searchType == SearchTypeBoth {
			status, err := f.GitIndexer.GetGitIndexStatus(ctx, p)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: git index status: %v", p, err))
			} else if status.Status != "indexed" {
				problems = append(problems, fmt.Sprintf("%s: git index is %s, not indexed", p, status.Status))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("federation.search: not all paths are indexed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// normalizeByType applies min-max normalization within each ResultType so
// scores lie in [0,1] (spec §4.12 step 4: singletons and all-equal groups
// normalize to 1).
func normalizeByType(results []Result) {
	groups := map[ResultType][]int{}
	for i, r := range results {
		groups[r.ResultType] = append(groups[r.ResultType], i)
	}
	for _, idxs := range groups {
		if len(idxs) == 0 {
			continue
		}
		min, max := results[idxs[0]].RawScore, results[idxs[0]].RawScore
		for _, i := range idxs {
			if results[i].RawScore < min {
				min = results[i].RawScore
			}
			if results[i].RawScore > max {
				max = results[i].RawScore
			}
		}
		for _, i := range idxs {
			if max == min {
				results[i].NormScore = 1
				continue
			}
			results[i].NormScore = float64(results[i].RawScore-min) / float64(max-min)
		}
	}
}

// rankWithinGroup groups results by (repoPath, resultType), ranks each
// group descending by normalized score, and returns the 1-indexed rank
// parallel to results (spec §4.12 step 5: "fair interleaving").
func rankWithinGroup(results []Result) []int {
	type key struct {
		repo string
		rt   ResultType
	}
	groups := map[key][]int{}
	for i, r := range results {
		k := key{repo: r.RepoPath, rt: r.ResultType}
		groups[k] = append(groups[k], i)
	}
	ranks := make([]int, len(results))
	for _, idxs := range groups {
		sort.Slice(idxs, func(a, b int) bool {
			return results[idxs[a]].NormScore > results[idxs[b]].NormScore
		})
		for rank, i := range idxs {
			ranks[i] = rank + 1
		}
	}
	return ranks
}
