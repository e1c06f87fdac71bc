package gitindex

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeforge-dev/indexcore/internal/snapshot"
	"github.com/codeforge-dev/indexcore/internal/sparse"
	"github.com/codeforge-dev/indexcore/internal/vectorstore"
)

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
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "feat: initial commit")
	return dir
}

func commitMore(t *testing.T, dir, file, content, subject string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com")
		require.NoError(t, cmd.Run(), "git %v", args)
	}
	run("add", ".")
	run("commit", "-q", "-m", subject)
}

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
	for id, p := range s.points[name] {
		if id == vectorstore.GitMarkerID {
			continue
		}
		hits = append(hits, vectorstore.Hit{ID: id, Score: 1, Payload: p.Payload})
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

func newTestGitIndexer(t *testing.T) (*GitIndexer, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	gi := New(store, &fakeEmbedder{dims: 8}, sparse.NewEncoder(), snapshot.NewStore(t.TempDir()), DefaultConfig(), nil)
	return gi, store
}

func TestIndexGitHistory_CompletesAndPersistsSnapshot(t *testing.T) {
	requireGit(t)
	gi, _ := newTestGitIndexer(t)
	dir := initTestRepo(t)

	stats, err := gi.IndexGitHistory(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, statusCompleted, stats.Status)
	assert.Equal(t, 1, stats.FilesScanned)
	assert.Equal(t, 1, stats.ChunksCreated)
	assert.Empty(t, stats.Errors)

	status, err := gi.GetGitIndexStatus(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, statusIndexed, status.Status)
	require.NotNil(t, status.ChunksCount)
	assert.Equal(t, 1, *status.ChunksCount)
}

func TestGetGitIndexStatus_NotIndexedWhenCollectionAbsent(t *testing.T) {
	requireGit(t)
	gi, _ := newTestGitIndexer(t)
	dir := initTestRepo(t)

	status, err := gi.GetGitIndexStatus(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, statusNotIndexed, status.Status)
}

func TestIndexNewCommits_RequiresExistingCollection(t *testing.T) {
	requireGit(t)
	gi, _ := newTestGitIndexer(t)
	dir := initTestRepo(t)

	_, err := gi.IndexNewCommits(context.Background(), dir, nil)
	require.Error(t, err)
}

func TestIndexNewCommits_PicksUpCommitsSinceLastHash(t *testing.T) {
	requireGit(t)
	gi, _ := newTestGitIndexer(t)
	dir := initTestRepo(t)

	_, err := gi.IndexGitHistory(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)

	commitMore(t, dir, "b.txt", "world\n", "fix: add b.txt")

	changes, err := gi.IndexNewCommits(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, changes.FilesAdded)
	assert.Equal(t, 1, changes.ChunksAdded)
}

func TestSearchHistory_RejectsInvertedDateRange(t *testing.T) {
	requireGit(t)
	gi, _ := newTestGitIndexer(t)
	dir := initTestRepo(t)

	_, err := gi.IndexGitHistory(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)

	_, err = gi.SearchHistory(context.Background(), dir, "commit", SearchOptions{DateFrom: "2026-06-01", DateTo: "2026-01-01"})
	assert.Error(t, err)
}

func TestSearchHistory_ReturnsIndexedCommits(t *testing.T) {
	requireGit(t)
	gi, _ := newTestGitIndexer(t)
	dir := initTestRepo(t)

	_, err := gi.IndexGitHistory(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)

	results, err := gi.SearchHistory(context.Background(), dir, "initial", SearchOptions{Limit: 5, CommitTypes: []string{"feat"}})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestClearGitIndex_RemovesCollectionAndSnapshot(t *testing.T) {
	requireGit(t)
	gi, store := newTestGitIndexer(t)
	dir := initTestRepo(t)

	_, err := gi.IndexGitHistory(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)

	require.NoError(t, gi.ClearGitIndex(context.Background(), dir))

	status, err := gi.GetGitIndexStatus(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, statusNotIndexed, status.Status)
	assert.Empty(t, store.collections)
}
