// Package index implements the Code Indexer orchestrator (spec §4.9): it
// wires the scanner, chunker, metadata, embedder, sparse encoder, vector
// store, and snapshot store into indexCodebase/reindexChanges/searchCode/
// getIndexStatus/clearIndex.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	coreerrors "github.com/codeforge-dev/indexcore/internal/errors"

	"github.com/codeforge-dev/indexcore/internal/chunk"
	"github.com/codeforge-dev/indexcore/internal/collection"
	"github.com/codeforge-dev/indexcore/internal/embed"
	"github.com/codeforge-dev/indexcore/internal/merkle"
	"github.com/codeforge-dev/indexcore/internal/metadata"
	"github.com/codeforge-dev/indexcore/internal/retrieval"
	"github.com/codeforge-dev/indexcore/internal/scanner"
	"github.com/codeforge-dev/indexcore/internal/snapshot"
	"github.com/codeforge-dev/indexcore/internal/sparse"
	"github.com/codeforge-dev/indexcore/internal/vectorstore"
)

// ProgressFunc reports phase progress back to a caller (SPEC_FULL §10):
// phase names one of "scan", "chunk", "embed"; current/total are counts
// within that phase; pct is current/total as a percentage; message is a
// short human-readable note.
type ProgressFunc func(phase string, current, total int, pct float64, message string)

// Config configures an Indexer's batch sizing and storage behavior.
type Config struct {
	BatchSize          int
	BatchRetryAttempts int
	MaxChunksPerFile   int
	MaxTotalChunks     int
	EnableHybridSearch bool
	Distance           vectorstore.Distance
}

// DefaultConfig returns the indexer's default tuning.
func DefaultConfig() Config {
	return Config{
		BatchSize:          32,
		BatchRetryAttempts: 3,
		MaxChunksPerFile:   500,
		MaxTotalChunks:     200000,
		EnableHybridSearch: true,
		Distance:           vectorstore.DistanceCosine,
	}
}

// Options configures a single indexCodebase call.
type Options struct {
	ForceReindex   bool
	Extensions     []string
	IgnorePatterns []string
}

// Stats is returned by indexCodebase.
type Stats struct {
	FilesScanned  int
	FilesIndexed  int
	ChunksCreated int
	DurationMs    int64
	Status        string // completed, partial, failed
	Errors        []string
}

// ChangeStats is returned by reindexChanges.
type ChangeStats struct {
	FilesAdded    int
	FilesModified int
	FilesDeleted  int
	ChunksAdded   int
	DurationMs    int64
}

// SearchOptions configures searchCode.
type SearchOptions struct {
	Limit          int
	FileTypes      []string
	PathPattern    string
	ScoreThreshold float64
	UseHybrid      bool
}

// SearchResult is a single ranked code search hit.
type SearchResult = retrieval.Result

// Status is returned by getIndexStatus.
type Status struct {
	Status      string // not_indexed, indexing, indexed
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

// Indexer implements the Code Indexer orchestrator over its collaborators.
type Indexer struct {
	Store     vectorstore.VectorStore
	Embedder  embed.Embedder
	Scanner   *scanner.Scanner
	Chunker   chunk.Chunker
	Sparse    *sparse.Encoder
	Snapshots *snapshot.Store
	Retriever *retrieval.Retriever
	Config    Config
	Logger    *slog.Logger
}

// New builds an Indexer over the given collaborators, deriving its
// Retriever from store/embedder/sparse.
func New(store vectorstore.VectorStore, embedder embed.Embedder, scn *scanner.Scanner, chunker chunk.Chunker, enc *sparse.Encoder, snapshots *snapshot.Store, cfg Config, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		Store:     store,
		Embedder:  embedder,
		Scanner:   scn,
		Chunker:   chunker,
		Sparse:    enc,
		Snapshots: snapshots,
		Retriever: retrieval.New(store, embedder, enc),
		Config:    cfg,
		Logger:    logger,
	}
}

// resolveCanonicalPath follows symlinks to the real on-disk path (spec
// §4.9 step 1), falling back to the absolute form when the target does
// not exist (e.g. a path about to be created, or already deleted).
func resolveCanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", coreerrors.Wrap(coreerrors.KindInvalidPath, "index.resolvePath", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil
	}
	return resolved, nil
}

// fileHash returns the content hash used both for the file's content-hash
// chunk metadata and for the Merkle tree backing incremental reindexing.
func fileHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

type scannedFile struct {
	relPath string
	absPath string
	content []byte
	hash    string
	lang    string
}

// scanFiles walks root, applies the extension/ignore filters, and reads
// every candidate file's content. Per-file read failures are appended to
// errs rather than aborting the scan (spec §4.9 failure semantics).
func (ix *Indexer) scanFiles(ctx context.Context, root string, opts Options, progress ProgressFunc) ([]scannedFile, []string, error) {
	results, err := ix.Scanner.Scan(ctx, &scanner.ScanOptions{
		RootDir:          root,
		ExcludePatterns:  opts.IgnorePatterns,
		RespectGitignore: true,
	})
	if err != nil {
		return nil, nil, coreerrors.Wrap(coreerrors.KindInvalidPath, "index.scanFiles", root, err)
	}

	var files []scannedFile
	var errs []string
	extSet := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		extSet[strings.ToLower(e)] = true
	}

	count := 0
	for res := range results {
		if res.Error != nil {
			errs = append(errs, res.Error.Error())
			continue
		}
		f := res.File
		if len(extSet) > 0 && !extSet[strings.ToLower(filepath.Ext(f.Path))] {
			continue
		}
		content, err := os.ReadFile(f.AbsPath)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f.Path, err))
			continue
		}
		if findings := metadata.ScanForSecrets(string(content)); len(findings) > 0 {
			errs = append(errs, fmt.Sprintf("%s: secret detected (%s), excluded from index", f.Path, findings[0].Kind))
			continue
		}
		files = append(files, scannedFile{
			relPath: f.Path,
			absPath: f.AbsPath,
			content: content,
			hash:    fileHash(content),
			lang:    f.Language,
		})
		count++
		if progress != nil {
			progress("scan", count, count, 100, f.Path)
		}
	}
	return files, errs, nil
}

// chunkFiles turns scanned files into chunks, respecting the per-file and
// global chunk caps (spec §4.9 step 5).
func (ix *Indexer) chunkFiles(ctx context.Context, files []scannedFile, progress ProgressFunc) ([]*chunk.Chunk, []string) {
	var chunks []*chunk.Chunk
	var errs []string

	for i, f := range files {
		if ix.Config.MaxTotalChunks > 0 && len(chunks) >= ix.Config.MaxTotalChunks {
			errs = append(errs, fmt.Sprintf("global chunk cap (%d) reached, remaining files skipped", ix.Config.MaxTotalChunks))
			break
		}
		cs, err := ix.Chunker.Chunk(ctx, &chunk.FileInput{Path: f.relPath, Content: f.content, Language: f.lang})
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f.relPath, err))
			continue
		}
		for _, c := range cs {
			if ix.Config.MaxTotalChunks > 0 && len(chunks) >= ix.Config.MaxTotalChunks {
				break
			}
			c.Metadata = map[string]string{
				"contentHash": f.hash,
				"complexity":  fmt.Sprintf("%d", metadata.Complexity(c.Content)),
			}
			chunks = append(chunks, c)
		}
		if progress != nil {
			progress("chunk", i+1, len(files), float64(i+1)/float64(len(files))*100, f.relPath)
		}
	}
	return chunks, errs
}

// pointFor builds the vector-store Point payload for a code chunk (spec
// §4.5/§4.13 payload shape).
func pointFor(c *chunk.Chunk, dense []float32, sp *vectorstore.SparseVector) vectorstore.Point {
	id := metadata.ChunkID(c.RelativePath, c.StartLine, c.EndLine, c.RawContent)
	payload := map[string]any{
		"relativePath": c.RelativePath,
		"language":     c.Language,
		"kind":         string(c.Kind),
		"name":         c.Name,
		"content":      c.Content,
		"startLine":    c.StartLine,
		"endLine":      c.EndLine,
		"chunkIndex":   c.ChunkIndex,
	}
	for k, v := range c.Metadata {
		payload[k] = v
	}
	return vectorstore.Point{ID: id, Dense: dense, Sparse: sp, Payload: payload}
}

// upsertBatches embeds and upserts chunks in batches, retrying each batch
// with exponential backoff (spec §4.9 step 6). Returns chunks successfully
// indexed and any batch errors (which demote the overall run to partial).
func (ix *Indexer) upsertBatches(ctx context.Context, collName string, chunks []*chunk.Chunk, progress ProgressFunc) (int, []string) {
	hybrid := ix.Config.EnableHybridSearch && ix.Sparse != nil
	var avgDocLen float64
	if hybrid {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		ix.Sparse.Train(texts)
	}

	batchSize := ix.Config.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	var indexed int
	var errs []string
	retryCfg := coreerrors.RetryConfig{
		MaxRetries:   ix.Config.BatchRetryAttempts,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
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
			embeddings, err := ix.Embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return err
			}
			points := make([]vectorstore.Point, len(batch))
			for i, c := range batch {
				var sp *vectorstore.SparseVector
				if hybrid {
					v := ix.Sparse.Generate(c.Content, avgDocLen)
					sp = &vectorstore.SparseVector{Indices: v.Indices, Values: v.Values}
				}
				points[i] = pointFor(c, embeddings[i], sp)
			}
			if hybrid {
				return ix.Store.UpsertWithSparse(ctx, collName, points)
			}
			return ix.Store.Upsert(ctx, collName, points)
		})

		if err != nil {
			errs = append(errs, fmt.Sprintf("batch %d-%d: %v", start, end, err))
			ix.Logger.Warn("index_batch_failed", slog.String("collection", collName), slog.Int("start", start), slog.Int("end", end), slog.Any("error", err))
			continue
		}
		indexed += len(batch)
		if progress != nil {
			progress("embed", end, len(chunks), float64(end)/float64(len(chunks))*100, fmt.Sprintf("%d/%d chunks embedded", end, len(chunks)))
		}
	}
	return indexed, errs
}

// marker writes the indexing marker point with the given completion state.
func (ix *Indexer) marker(ctx context.Context, collName string, vectorSize uint64, complete bool, startedAt, completedAt *time.Time) error {
	payload := vectorstore.MarkerPayload{IndexingComplete: complete, StartedAt: startedAt, CompletedAt: completedAt}
	point := vectorstore.NewMarkerPoint(vectorstore.CodeMarkerID, vectorSize, payload)
	return ix.Store.Upsert(ctx, collName, []vectorstore.Point{point})
}

// indexCodebase performs a full index of path (spec §4.9).
func (ix *Indexer) IndexCodebase(ctx context.Context, path string, opts Options, progress ProgressFunc) (Stats, error) {
	start := time.Now()
	stats := Stats{Status: statusCompleted}

	root, err := resolveCanonicalPath(path)
	if err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}

	collName := collection.Name(collection.Code, root, "")

	unlock, err := ix.Snapshots.Lock(collName)
	if err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}
	defer unlock()

	exists, err := ix.Store.CollectionExists(ctx, collName)
	if err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}
	if exists && opts.ForceReindex {
		if err := ix.Store.DeleteCollection(ctx, collName); err != nil {
			stats.Status = statusFailed
			stats.Errors = append(stats.Errors, err.Error())
			return stats, nil
		}
		exists = false
	}

	vectorSize := uint64(ix.Embedder.Dimensions())
	if !exists {
		if err := ix.Store.CreateCollection(ctx, collName, vectorSize, ix.Config.Distance, ix.Config.EnableHybridSearch); err != nil {
			stats.Status = statusFailed
			stats.Errors = append(stats.Errors, err.Error())
			return stats, nil
		}
	}

	startedAt := time.Now()
	if err := ix.marker(ctx, collName, vectorSize, false, &startedAt, nil); err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}

	files, scanErrs, err := ix.scanFiles(ctx, root, opts, progress)
	stats.Errors = append(stats.Errors, scanErrs...)
	if err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}
	stats.FilesScanned = len(files)

	chunks, chunkErrs := ix.chunkFiles(ctx, files, progress)
	stats.Errors = append(stats.Errors, chunkErrs...)
	stats.ChunksCreated = len(chunks)

	indexed, batchErrs := ix.upsertBatches(ctx, collName, chunks, progress)
	stats.Errors = append(stats.Errors, batchErrs...)
	if len(batchErrs) > 0 {
		stats.Status = statusPartial
	}
	_ = indexed

	indexedFiles := make(map[string]bool, len(files))
	for _, c := range chunks {
		indexedFiles[c.RelativePath] = true
	}
	stats.FilesIndexed = len(indexedFiles)

	completedAt := time.Now()
	if err := ix.marker(ctx, collName, vectorSize, true, &startedAt, &completedAt); err != nil {
		stats.Status = statusFailed
		stats.Errors = append(stats.Errors, err.Error())
		return stats, nil
	}

	hashes := make(merkle.FileHashes, len(files))
	for _, f := range files {
		hashes[f.relPath] = f.hash
	}
	if err := ix.Snapshots.Save(collName, snapshot.New(root, hashes, completedAt)); err != nil {
		stats.Errors = append(stats.Errors, err.Error())
		stats.Status = statusPartial
	}

	stats.DurationMs = time.Since(start).Milliseconds()
	return stats, nil
}

// reindexChanges performs an incremental reindex of path using the stored
// Merkle snapshot (spec §4.9 "Incremental reindex").
func (ix *Indexer) ReindexChanges(ctx context.Context, path string, progress ProgressFunc) (ChangeStats, error) {
	start := time.Now()
	var stats ChangeStats

	root, err := resolveCanonicalPath(path)
	if err != nil {
		return stats, err
	}
	collName := collection.Name(collection.Code, root, "")

	unlock, err := ix.Snapshots.Lock(collName)
	if err != nil {
		return stats, err
	}
	defer unlock()

	prev, err := ix.Snapshots.Load(collName)
	if err != nil {
		return stats, err
	}
	if prev == nil {
		return stats, coreerrors.New(coreerrors.KindSnapshotMissing, "index.reindexChanges", collName, "no snapshot exists; run indexCodebase first", nil)
	}

	files, scanErrs, err := ix.scanFiles(ctx, root, Options{}, progress)
	if err != nil {
		return stats, err
	}
	_ = scanErrs

	current := make(merkle.FileHashes, len(files))
	byPath := make(map[string]scannedFile, len(files))
	for _, f := range files {
		current[f.relPath] = f.hash
		byPath[f.relPath] = f
	}

	diff := merkle.DetectChanges(prev.FileHashes, current)
	if diff.IsEmpty() {
		stats.DurationMs = time.Since(start).Milliseconds()
		return stats, nil
	}

	stats.FilesAdded = len(diff.Added)
	stats.FilesModified = len(diff.Modified)
	stats.FilesDeleted = len(diff.Deleted)

	for _, p := range append(append([]string{}, diff.Modified...), diff.Deleted...) {
		filter := vectorstore.Filter{Must: []vectorstore.Condition{{Key: "relativePath", Match: &vectorstore.MatchCondition{Value: p}}}}
		if err := ix.Store.DeletePointsByFilter(ctx, collName, filter); err != nil {
			return stats, err
		}
	}

	var toChunk []scannedFile
	for _, p := range append(append([]string{}, diff.Added...), diff.Modified...) {
		if f, ok := byPath[p]; ok {
			toChunk = append(toChunk, f)
		}
	}

	chunks, _ := ix.chunkFiles(ctx, toChunk, progress)
	added, _ := ix.upsertBatches(ctx, collName, chunks, progress)
	stats.ChunksAdded = added

	if err := ix.Snapshots.Save(collName, snapshot.New(root, current, time.Now())); err != nil {
		return stats, err
	}

	stats.DurationMs = time.Since(start).Milliseconds()
	return stats, nil
}

// searchCode dispatches a code-collection search through the Retriever,
// adding the file-type and path-pattern filters this orchestrator owns
// (spec §4.9/§4.11).
func (ix *Indexer) SearchCode(ctx context.Context, path, query string, opts SearchOptions) ([]SearchResult, error) {
	root, err := resolveCanonicalPath(path)
	if err != nil {
		return nil, err
	}
	collName := collection.Name(collection.Code, root, "")

	filter := vectorstore.Filter{}
	if len(opts.FileTypes) > 0 {
		any := make([]any, len(opts.FileTypes))
		for i, t := range opts.FileTypes {
			any[i] = t
		}
		filter.Must = append(filter.Must, vectorstore.Condition{Key: "language", Match: &vectorstore.MatchCondition{Any: any}})
	}

	results, err := ix.Retriever.Search(ctx, collName, query, retrieval.SearchOptions{
		Limit:          opts.Limit,
		ScoreThreshold: opts.ScoreThreshold,
		UseHybrid:      opts.UseHybrid,
		Filter:         filter,
	})
	if err != nil {
		return nil, err
	}

	if opts.PathPattern == "" {
		return results, nil
	}
	filtered := make([]SearchResult, 0, len(results))
	for _, r := range results {
		rp, _ := r.Payload["relativePath"].(string)
		if matched, _ := filepath.Match(opts.PathPattern, rp); matched || strings.Contains(rp, opts.PathPattern) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// getIndexStatus reports one of not_indexed/indexing/indexed for path
// (spec §4.9).
func (ix *Indexer) GetIndexStatus(ctx context.Context, path string) (Status, error) {
	root, err := resolveCanonicalPath(path)
	if err != nil {
		return Status{}, err
	}
	collName := collection.Name(collection.Code, root, "")

	exists, err := ix.Store.CollectionExists(ctx, collName)
	if err != nil {
		return Status{}, err
	}
	if !exists {
		return Status{Status: statusNotIndexed}, nil
	}

	info, err := ix.Store.GetCollectionInfo(ctx, collName)
	if err != nil {
		return Status{}, err
	}

	point, err := ix.Store.GetPoint(ctx, collName, vectorstore.CodeMarkerID)
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

// clearIndex deletes path's collection and snapshot (spec §4.9).
func (ix *Indexer) ClearIndex(ctx context.Context, path string) error {
	root, err := resolveCanonicalPath(path)
	if err != nil {
		return err
	}
	collName := collection.Name(collection.Code, root, "")

	if err := ix.Store.DeleteCollection(ctx, collName); err != nil {
		return err
	}
	return ix.Snapshots.Delete(collName)
}
