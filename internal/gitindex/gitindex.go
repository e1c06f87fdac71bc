// Package gitindex implements the Git Indexer orchestrator (spec §4.10):
// the same shape as the Code Indexer but operating over commit chunks
// produced by the git extractor and commit chunker, with commit-aware
// search filters (type, author, date range).
package gitindex

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	coreerrors "github.com/codeforge-dev/indexcore/internal/errors"

	"github.com/codeforge-dev/indexcore/internal/collection"
	"github.com/codeforge-dev/indexcore/internal/commit"
	"github.com/codeforge-dev/indexcore/internal/embed"
	"github.com/codeforge-dev/indexcore/internal/gitextract"
	"github.com/codeforge-dev/indexcore/internal/merkle"
	"github.com/codeforge-dev/indexcore/internal/metadata"
	"github.com/codeforge-dev/indexcore/internal/retrieval"
	"github.com/codeforge-dev/indexcore/internal/snapshot"
	"github.com/codeforge-dev/indexcore/internal/sparse"
	"github.com/codeforge-dev/indexcore/internal/vectorstore"
)

// headKey is the synthetic FileHashes entry a git Snapshot uses to carry
// the last-indexed commit hash (the Snapshot type is shared with the code
// indexer and has no dedicated field for it).
const headKey = "__HEAD__"

type ProgressFunc func(phase string, current, total int, pct float64, message string)

type Config struct {
	BatchSize          int
	BatchRetryAttempts int
	MaxTotalChunks     int
	EnableHybridSearch bool
	Distance           vectorstore.Distance
	ChunkOptions       commit.ChunkOptions
	ExtractorOptions   gitextract.Options
}

func DefaultConfig() Config {
	return Config{
		BatchSize:          32,
		BatchRetryAttempts: 3,
		MaxTotalChunks:     200000,
		EnableHybridSearch: true,
		Distance:           vectorstore.DistanceCosine,
		ChunkOptions:       commit.ChunkOptions{MaxChunkSize: 4000, IncludeDiff: false},
		ExtractorOptions:   gitextract.DefaultOptions(),
	}
}

type Options struct {
	ForceReindex bool
	MaxCommits   int
	SinceDate    string
}

type Stats struct {
	FilesScanned  int // commits scanned, named to mirror the code indexer's Stats shape
	FilesIndexed  int
	ChunksCreated int
	DurationMs    int64
	Status        string
	Errors        []string
}

type ChangeStats struct {
	FilesAdded    int // new commits indexed
	ChunksAdded   int
	DurationMs    int64
}

type SearchOptions struct {
	Limit          int
	CommitTypes    []string
	Authors        []string
	DateFrom       string
	DateTo         string
	ScoreThreshold float64
}

type SearchResult = retrieval.Result

type Status struct {
	Status      string
	ChunksCount *int
	LastUpdated *time.Time
}

const (
	statusNotIndexed = "not_indexed"
	statusIndexing   = "indexing"
	statusIndexed    = "indexed"

	statusCompleted = "completed"
	statusPartial   = "partial"
	statusFailed    = "failed"
)

type GitIndexer struct {
	Store     vectorstore.VectorStore
	Embedder  embed.Embedder
	Sparse    *sparse.Encoder
	Snapshots *snapshot.Store
	Retriever *retrieval.Retriever
	Config    Config
	Logger    *slog.Logger
}

func New(store vectorstore.VectorStore, embedder embed.Embedder, enc *sparse.Encoder, snapshots *snapshot.Store, cfg Config, logger *slog.Logger) *GitIndexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitIndexer{
		Store: store, Embedder: embedder, Sparse: enc, Snapshots: snapshots,
		Retriever: retrieval.New(store, embedder, enc),
		Config:    cfg, Logger: logger,
	}
}

func resolveCanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", coreerrors.Wrap(coreerrors.KindInvalidPath, "gitindex.resolvePath", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil
	}
	return resolved, nil
}

func (gi *GitIndexer) collectionName(ctx context.Context, root string, ext *gitextract.Extractor) string {
	remote := gitextract.NormalizeRemoteURL(ext.RemoteURL(ctx))
	return collection.Name(collection.Git, root, remote)
}

func pointFor(c commit.Chunk, dense []float32, sp *vectorstore.SparseVector) vectorstore.Point {
	payload := map[string]any{
		"commitHash":  c.Metadata.CommitHash,
		"shortHash":   c.Metadata.ShortHash,
		"author":      c.Metadata.Author,
		"authorEmail": c.Metadata.AuthorEmail,
		"date":        c.Metadata.DateISO,
		"subject":     c.Metadata.Subject,
		"commitType":  string(c.Metadata.CommitType),
		"files":       c.Metadata.Files,
		"insertions":  c.Metadata.Insertions,
		"deletions":   c.Metadata.Deletions,
		"repoPath":    c.Metadata.RepoPath,
		"content":     c.Content,
	}
	if ts, err := time.Parse("2006-01-02", c.Metadata.DateISO); err == nil {
		payload["dateUnix"] = ts.Unix()
	}
	return vectorstore.Point{ID: c.ID, Dense: dense, Sparse: sp, Payload: payload}
}

func (gi *GitIndexer) buildChunks(raw []gitextract.RawCommit, repoPath string) []commit.Chunk {
	chunks := make([]commit.Chunk, 0, len(raw))
	for _, rc := range raw {
		if gi.Config.MaxTotalChunks > 0 && len(chunks) >= gi.Config.MaxTotalChunks {
			break
		}
		chunks = append(chunks, commit.BuildChunk(rc, repoPath, gi.Config.ChunkOptions))
	}
	return chunks
}

func (gi *GitIndexer) upsertBatches(ctx context.Context, collName string, chunks []commit.Chunk, progress ProgressFunc) (int, []string) {
	hybrid := gi.Config.EnableHybridSearch && gi.Sparse != nil
	if hybrid {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		gi.Sparse.Train(texts)
	}
	batchSize := gi.Config.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	var indexed int
	var errs []string
	retryCfg := coreerrors.RetryConfig{
		MaxRetries: gi.Config.BatchRetryAttempts, InitialDelay: 1 * time.Second,
		MaxDelay: 30 * time.Second, Multiplier: 2.0,
	}
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		err := coreerrors.Retry(ctx, retryCfg, func() error {
			embeddings, err := gi.Embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return err
			}
			points := make([]vectorstore.Point, len(batch))
			for i, c := range batch {
				var sp *vectorstore.SparseVector
				if hybrid {
					v := gi.Sparse.Generate(c.Content, 0)
					sp = &vectorstore.SparseVector{Indices: v.Indices, Values: v.Values}
				}
				points[i] = pointFor(c, embeddings[i], sp)
			}
			if hybrid {
				return gi.Store.UpsertWithSparse(ctx, collName, points)
			}
			return gi.Store.Upsert(ctx, collName, points)
		})
		if err != nil {
			errs = append(errs, fmt.Sprintf("batch %d-%d: %v", start, end, err))
			gi.Logger.Warn("gitindex_batch_failed", slog.String("collection", collName), slog.Int("start", start), slog.Int("end", end), slog.Any("error", err))
			continue
		}
		indexed += len(batch)
		if progress != nil {
			progress("embed", end, len(chunks), float64(end)/float64(len(chunks))*100, fmt.Sprintf("%d/%d commits embedded", end, len(chunks)))
		}
	}
	return indexed, errs
}

func (gi *GitIndexer) marker(ctx context.Context, collName string, vectorSize uint64, complete bool, startedAt, completedAt *time.Time) error {
	payload := vectorstore.MarkerPayload{IndexingComplete: complete, StartedAt: startedAt, CompletedAt: completedAt}
	point := vectorstore.NewMarkerPoint(vectorstore.GitMarkerID, vectorSize, payload)
	return gi.Store.Upsert(ctx, collName, []vectorstore.Point{point})
}

// IndexGitHistory runs the full git-history index (spec §4.10, "same shape
// as §4.9 but using commit chunks").
func (gi *GitIndexer) IndexGitHistory(ctx context.Context, path string, opts Options, progress ProgressFunc) (Stats, error) {
	start := time.Now()
	stats := Stats{Status: statusCompleted}
	root, err := resolveCanonicalPath(path)
	if err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}
	ext := gitextract.New(root, gi.Config.ExtractorOptions)
	if !ext.ValidateRepository(ctx) {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, "not a git repository: "+root)
		return stats, nil
	}
	collName := gi.collectionName(ctx, root, ext)
	unlock, err := gi.Snapshots.Lock(collName)
	if err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}
	defer unlock()

	exists, err := gi.Store.CollectionExists(ctx, collName)
	if err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}
	if exists && opts.ForceReindex {
		if err := gi.Store.DeleteCollection(ctx, collName); err != nil {
			stats.Status = statusFailed
			stats.Errors = append(stats.Errors, err.Error())
			return stats, nil
		}
		exists = false
	}
	vectorSize := uint64(gi.Embedder.Dimensions())
	if !exists {
		if err := gi.Store.CreateCollection(ctx, collName, vectorSize, gi.Config.Distance, gi.Config.EnableHybridSearch); err != nil {
			stats.Status = statusFailed
			stats.Errors = append(stats.Errors, err.Error())
			return stats, nil
		}
	}

	startedAt := time.Now()
	if err := gi.marker(ctx, collName, vectorSize, false, &startedAt, nil); err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}

	raw, err := ext.Commits(ctx, gitextract.CommitsOptions{MaxCommits: opts.MaxCommits, SinceDate: opts.SinceDate})
	if err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}
	stats.FilesScanned = len(raw)

	chunks := gi.buildChunks(raw, root)
	stats.ChunksCreated = len(chunks)
	if progress != nil {
		progress("chunk", len(chunks), len(chunks), 100, fmt.Sprintf("%d commits chunked", len(chunks)))
	}

	_, batchErrs := gi.upsertBatches(ctx, collName, chunks, progress)
	stats.Errors = append(stats.Errors, batchErrs...)
	if len(batchErrs) > 0 {
		stats.Status = statusPartial
	}
	stats.FilesIndexed = len(raw)

	completedAt := time.Now()
	if err := gi.marker(ctx, collName, vectorSize, true, &startedAt, &completedAt); err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}

	hashes := make(merkle.FileHashes, len(raw)+1)
	for _, c := range raw {
		hashes["commit:"+c.Hash] = c.Hash
	}
	if lastHash, err := ext.LatestCommitHash(ctx); err == nil {
		hashes[headKey] = lastHash
	} else if len(raw) > 0 {
		hashes[headKey] = raw[0].Hash
	}
	if err := gi.Snapshots.Save(collName, snapshot.New(root, hashes, completedAt)); err != nil {
		stats.Errors = append(stats.Errors, err.Error())
		stats.Status = statusPartial
	}

	stats.DurationMs = time.Since(start).Milliseconds()
	return stats, nil
}

// IndexNewCommits appends only commits newer than the last-indexed HEAD
// (spec §4.10): requires an existing collection and snapshot, fetches
// `commits({sinceCommit: lastHash})`, then chunks/embeds/upserts and
// advances the snapshot.
func (gi *GitIndexer) IndexNewCommits(ctx context.Context, path string, progress ProgressFunc) (ChangeStats, error) {
	start := time.Now()
	var stats ChangeStats
	root, err := resolveCanonicalPath(path)
	if err != nil {
		return stats, err
	}
	ext := gitextract.New(root, gi.Config.ExtractorOptions)
	collName := gi.collectionName(ctx, root, ext)

	unlock, err := gi.Snapshots.Lock(collName)
	if err != nil {
		return stats, err
	}
	defer unlock()

	exists, err := gi.Store.CollectionExists(ctx, collName)
	if err != nil {
		return stats, err
	}
	if !exists {
		return stats, coreerrors.New(coreerrors.KindSnapshotMissing, "gitindex.indexNewCommits", collName, "no git collection exists; run indexGitHistory first", nil)
	}
	prev, err := gi.Snapshots.Load(collName)
	if err != nil {
		return stats, err
	}
	if prev == nil {
		return stats, coreerrors.New(coreerrors.KindSnapshotMissing, "gitindex.indexNewCommits", collName, "no snapshot exists; run indexGitHistory first", nil)
	}
	lastHash := prev.FileHashes[headKey]

	raw, err := ext.Commits(ctx, gitextract.CommitsOptions{SinceCommit: lastHash})
	if err != nil {
		return stats, err
	}
	if len(raw) == 0 {
		stats.DurationMs = time.Since(start).Milliseconds()
		return stats, nil
	}
	stats.FilesAdded = len(raw)

	chunks := gi.buildChunks(raw, root)
	added, _ := gi.upsertBatches(ctx, collName, chunks, progress)
	stats.ChunksAdded = added

	hashes := make(merkle.FileHashes, len(prev.FileHashes)+len(raw))
	for k, v := range prev.FileHashes {
		hashes[k] = v
	}
	for _, c := range raw {
		hashes["commit:"+c.Hash] = c.Hash
	}
	if newHead, err := ext.LatestCommitHash(ctx); err == nil {
		hashes[headKey] = newHead
	} else {
		hashes[headKey] = raw[0].Hash
	}
	if err := gi.Snapshots.Save(collName, snapshot.New(root, hashes, time.Now())); err != nil {
		return stats, err
	}

	stats.DurationMs = time.Since(start).Milliseconds()
	return stats, nil
}

// SearchHistory issues a commit-history query with type/author/date-range
// filters (spec §4.10).
func (gi *GitIndexer) SearchHistory(ctx context.Context, path, query string, opts SearchOptions) ([]SearchResult, error) {
	if err := retrieval.ValidateDateRange(opts.DateFrom, opts.DateTo); err != nil {
		return nil, err
	}
	root, err := resolveCanonicalPath(path)
	if err != nil {
		return nil, err
	}
	ext := gitextract.New(root, gi.Config.ExtractorOptions)
	collName := gi.collectionName(ctx, root, ext)

	filter := vectorstore.Filter{}
	if len(opts.CommitTypes) > 0 {
		any := make([]any, len(opts.CommitTypes))
		for i, t := range opts.CommitTypes {
			any[i] = t
		}
		filter.Must = append(filter.Must, vectorstore.Condition{Key: "commitType", Match: &vectorstore.MatchCondition{Any: any}})
	}
	for _, author := range opts.Authors {
		filter.Should = append(filter.Should, vectorstore.Condition{Key: "author", Match: &vectorstore.MatchCondition{Text: author}})
	}
	if rng := dateRangeCondition(opts.DateFrom, opts.DateTo); rng != nil {
		filter.Must = append(filter.Must, *rng)
	}

	return gi.Retriever.Search(ctx, collName, query, retrieval.SearchOptions{
		Limit: opts.Limit, ScoreThreshold: opts.ScoreThreshold, Filter: filter,
	})
}

func dateRangeCondition(dateFrom, dateTo string) *vectorstore.Condition {
	if dateFrom == "" && dateTo == "" {
		return nil
	}
	rc := &vectorstore.RangeCondition{}
	if dateFrom != "" {
		if t, err := time.Parse("2006-01-02", dateFrom); err == nil {
			v := float64(t.Unix())
			rc.Gte = &v
		}
	}
	if dateTo != "" {
		if t, err := time.Parse("2006-01-02", dateTo); err == nil {
			v := float64(t.AddDate(0, 0, 1).Unix())
			rc.Lte = &v
		}
	}
	if rc.Gte == nil && rc.Lte == nil {
		return nil
	}
	return &vectorstore.Condition{Key: "dateUnix", Range: rc}
}

// GetGitIndexStatus mirrors the code indexer's three-state status
// (spec §4.9, applied to the git marker).
func (gi *GitIndexer) GetGitIndexStatus(ctx context.Context, path string) (Status, error) {
	root, err := resolveCanonicalPath(path)
	if err != nil {
		return Status{}, err
	}
	ext := gitextract.New(root, gi.Config.ExtractorOptions)
	collName := gi.collectionName(ctx, root, ext)

	exists, err := gi.Store.CollectionExists(ctx, collName)
	if err != nil {
		return Status{}, err
	}
	if !exists {
		return Status{Status: statusNotIndexed}, nil
	}
	info, err := gi.Store.GetCollectionInfo(ctx, collName)
	if err != nil {
		return Status{}, err
	}
	point, err := gi.Store.GetPoint(ctx, collName, vectorstore.GitMarkerID)
	if err != nil {
		return Status{}, err
	}
	if point == nil {
		if info.PointsCount > 0 {
			count := int(info.PointsCount)
			return Status{Status: statusIndexed, ChunksCount: &count}, nil
		}
		return Status{Status: statusNotIndexed}, nil
	}
	marker := vectorstore.MarkerFromPayload(point.Payload)
	if !marker.IndexingComplete {
		return Status{Status: statusIndexing}, nil
	}
	count := int(info.PointsCount) - 1
	return Status{Status: statusIndexed, ChunksCount: &count, LastUpdated: marker.CompletedAt}, nil
}

// ClearGitIndex drops the collection and its snapshot.
func (gi *GitIndexer) ClearGitIndex(ctx context.Context, path string) error {
	root, err := resolveCanonicalPath(path)
	if err != nil {
		return err
	}
	ext := gitextract.New(root, gi.Config.ExtractorOptions)
	collName := gi.collectionName(ctx, root, ext)
	if err := gi.Store.DeleteCollection(ctx, collName); err != nil {
		return err
	}
	return gi.Snapshots.Delete(collName)
}
