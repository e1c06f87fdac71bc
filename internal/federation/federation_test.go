package federation

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeforge-dev/indexcore/internal/chunk"
	"github.com/codeforge-dev/indexcore/internal/gitindex"
	"github.com/codeforge-dev/indexcore/internal/index"
	"github.com/codeforge-dev/indexcore/internal/scanner"
	"github.com/codeforge-dev/indexcore/internal/snapshot"
	"github.com/codeforge-dev/indexcore/internal/sparse"
	"github.com/codeforge-dev/indexcore/internal/vectorstore"
)

type fakeEmbedder struct{ dims int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dims), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                    { return f.dims }
func (f *fakeEmbedder) ModelName() string                  { return "fake" }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                       { return nil }

type fakeStore struct {
	collections map[string]bool
	hybrid      map[string]bool
	points      map[string]map[string]vectorstore.Point
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: map[string]bool{},
		hybrid:      map[string]bool{},
		points:      map[string]map[string]vectorstore.Point{},
	}
}

func (s *fakeStore) CreateCollection(ctx context.Context, name string, vectorSize uint64, distance vectorstore.Distance, enableHybrid bool) error {
	s.collections[name] = true
	s.hybrid[name] = enableHybrid
	s.points[name] = map[string]vectorstore.Point{}
	return nil
}

func (s *fakeStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	return s.collections[name], nil
}

func (s *fakeStore) GetCollectionInfo(ctx context.Context, name string) (vectorstore.CollectionInfo, error) {
	return vectorstore.CollectionInfo{PointsCount: uint64(len(s.points[name])), HybridEnabled: s.hybrid[name]}, nil
}

func (s *fakeStore) DeleteCollection(ctx context.Context, name string) error {
	delete(s.collections, name)
	delete(s.points, name)
	delete(s.hybrid, name)
	return nil
}

func (s *fakeStore) ListCollections(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names, nil
}

func (s *fakeStore) Upsert(ctx context.Context, name string, points []vectorstore.Point) error {
	for _, p := range points {
		s.points[name][p.ID] = p
	}
	return nil
}

func (s *fakeStore) UpsertWithSparse(ctx context.Context, name string, points []vectorstore.Point) error {
	return s.Upsert(ctx, name, points)
}

func (s *fakeStore) Search(ctx context.Context, name string, vector []float32, limit int, filter vectorstore.Filter) ([]vectorstore.Hit, error) {
	var hits []vectorstore.Hit
	i := 0
	for id, p := range s.points[name] {
		if id == vectorstore.CodeMarkerID || id == vectorstore.GitMarkerID {
			continue
		}
		i++
		hits = append(hits, vectorstore.Hit{ID: id, Score: float32(1.0 / float64(i)), Payload: p.Payload})
	}
	return hits, nil
}

func (s *fakeStore) HybridSearch(ctx context.Context, name string, dense []float32, sp vectorstore.SparseVector, limit int, filter vectorstore.Filter) ([]vectorstore.Hit, error) {
	return s.Search(ctx, name, dense, limit, filter)
}

func (s *fakeStore) GetPoint(ctx context.Context, name string, id string) (*vectorstore.Point, error) {
	p, ok := s.points[name][id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *fakeStore) DeletePoints(ctx context.Context, name string, ids []string) error {
	for _, id := range ids {
		delete(s.points[name], id)
	}
	return nil
}

func (s *fakeStore) DeletePointsByFilter(ctx context.Context, name string, filter vectorstore.Filter) error {
	return nil
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com")
		require.NoError(t, cmd.Run(), "git %v", args)
	}
	run("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "feat: initial commit")
	return dir
}

func newTestFederator(t *testing.T) *Federator {
	t.Helper()
	codeStore := newFakeStore()
	gitStore := newFakeStore()
	scn, err := scanner.New()
	require.NoError(t, err)

	codeIx := index.New(codeStore, &fakeEmbedder{dims: 8}, scn, chunk.NewCodeChunker(), sparse.NewEncoder(), snapshot.NewStore(t.TempDir()), index.DefaultConfig(), nil)
	gitIx := gitindex.New(gitStore, &fakeEmbedder{dims: 8}, sparse.NewEncoder(), snapshot.NewStore(t.TempDir()), gitindex.DefaultConfig(), nil)
	return New(codeIx, gitIx)
}

func TestSearch_FailsFastWhenPathNotIndexed(t *testing.T) {
	requireGit(t)
	f := newTestFederator(t)
	dir := initTestRepo(t)

	_, err := f.Search(context.Background(), []string{dir}, "main", SearchTypeBoth, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not indexed")
}

func TestSearch_ReturnsFusedResultsAcrossRepos(t *testing.T) {
	requireGit(t)
	f := newTestFederator(t)
	dir1 := initTestRepo(t)
	dir2 := initTestRepo(t)

	_, err := f.CodeIndexer.IndexCodebase(context.Background(), dir1, index.Options{}, nil)
	require.NoError(t, err)
	_, err = f.CodeIndexer.IndexCodebase(context.Background(), dir2, index.Options{}, nil)
	require.NoError(t, err)
	_, err = f.GitIndexer.IndexGitHistory(context.Background(), dir1, gitindex.Options{}, nil)
	require.NoError(t, err)
	_, err = f.GitIndexer.IndexGitHistory(context.Background(), dir2, gitindex.Options{}, nil)
	require.NoError(t, err)

	results, err := f.Search(context.Background(), []string{dir1, dir2}, "main", SearchTypeBoth, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].RRFScore, results[i].RRFScore)
	}
}

func TestSearch_DefaultsLimitWhenNonPositive(t *testing.T) {
	requireGit(t)
	f := newTestFederator(t)
	dir := initTestRepo(t)

	_, err := f.CodeIndexer.IndexCodebase(context.Background(), dir, index.Options{}, nil)
	require.NoError(t, err)

	results, err := f.Search(context.Background(), []string{dir}, "main", SearchTypeCode, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}
