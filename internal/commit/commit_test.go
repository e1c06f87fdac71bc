package commit

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeforge-dev/indexcore/internal/gitextract"
)

func TestClassify_OrderMatters(t *testing.T) {
	// "feat(fix):" must classify as feat, not fix, since feat is checked first.
	assert.Equal(t, TypeFeat, Classify("feat(fix): repair the widget", ""))
}

func TestClassify_AllKnownTypes(t *testing.T) {
	cases := map[string]Type{
		"feat: add widget":      TypeFeat,
		"fix: crash on load":    TypeFix,
		"refactor: simplify":    TypeRefactor,
		"docs: update readme":   TypeDocs,
		"test: add coverage":    TypeTest,
		"chore: bump deps":      TypeChore,
		"style: gofmt":          TypeStyle,
		"perf: speed up loop":   TypePerf,
		"build: update makefile": TypeBuild,
		"ci: add workflow":      TypeCI,
		"revert: undo feature":  TypeRevert,
	}
	for subject, want := range cases {
		assert.Equal(t, want, Classify(subject, ""), subject)
	}
}

func TestClassify_NoMatchIsOther(t *testing.T) {
	assert.Equal(t, TypeOther, Classify("bump version to 2.0", ""))
}

func TestClassify_FallsBackToBodyWhenSubjectDoesNotMatch(t *testing.T) {
	assert.Equal(t, TypeFix, Classify("bump version", "this is a fix: corrects the off-by-one"))
}

func TestClassify_ScopedAndBangVariants(t *testing.T) {
	assert.Equal(t, TypeFeat, Classify("feat(auth)!: breaking change", ""))
}

func makeCommit() gitextract.RawCommit {
	return gitextract.RawCommit{
		Hash:        "abcdef1234567890",
		ShortHash:   "abcdef1",
		Author:      "Jane Doe",
		AuthorEmail: "jane@example.com",
		Date:        time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		Subject:     "feat: add widget support",
		Body:        "Implements the widget API end to end.",
		Files: []gitextract.FileStat{
			{Path: "internal/widget/widget.go", Insertions: 40, Deletions: 2},
			{Path: "internal/widget/widget_test.go", Insertions: 80, Deletions: 0},
		},
		Insertions: 120,
		Deletions:  2,
	}
}

func TestBuildChunk_DeterministicID(t *testing.T) {
	c := makeCommit()
	a := BuildChunk(c, "/repo", ChunkOptions{MaxChunkSize: 10000})
	b := BuildChunk(c, "/repo", ChunkOptions{MaxChunkSize: 10000})
	assert.Equal(t, a.ID, b.ID)
	assert.True(t, strings.HasPrefix(a.ID, "gitcommit_"))
}

func TestBuildChunk_DifferentRepoPathDifferentID(t *testing.T) {
	c := makeCommit()
	a := BuildChunk(c, "/repo/one", ChunkOptions{MaxChunkSize: 10000})
	b := BuildChunk(c, "/repo/two", ChunkOptions{MaxChunkSize: 10000})
	assert.NotEqual(t, a.ID, b.ID)
}

func TestBuildChunk_RenderedContentHasExpectedFields(t *testing.T) {
	c := makeCommit()
	chunk := BuildChunk(c, "/repo", ChunkOptions{MaxChunkSize: 10000})

	assert.Contains(t, chunk.Content, "abcdef1")
	assert.Contains(t, chunk.Content, "feat")
	assert.Contains(t, chunk.Content, "Jane Doe")
	assert.Contains(t, chunk.Content, "2024-03-15")
	assert.Contains(t, chunk.Content, "add widget support")
	assert.Contains(t, chunk.Content, "internal/widget/widget.go")
	assert.Contains(t, chunk.Content, "+120 -2")
	assert.Equal(t, TypeFeat, chunk.Metadata.CommitType)
}

func TestBuildChunk_FilesListTruncatesAfterTwenty(t *testing.T) {
	c := makeCommit()
	files := make([]gitextract.FileStat, 25)
	for i := range files {
		files[i] = gitextract.FileStat{Path: "file.go"}
	}
	c.Files = files

	chunk := BuildChunk(c, "/repo", ChunkOptions{MaxChunkSize: 100000})
	assert.Contains(t, chunk.Content, "and 5 more")
}

func TestBuildChunk_InvalidDateRendersMarker(t *testing.T) {
	c := makeCommit()
	c.DateInvalid = true
	chunk := BuildChunk(c, "/repo", ChunkOptions{MaxChunkSize: 10000})
	assert.Contains(t, chunk.Content, "invalid-date")
}

func TestBuildChunk_TruncatesWhenOversized(t *testing.T) {
	c := makeCommit()
	c.Body = strings.Repeat("lorem ipsum dolor sit amet ", 200)

	chunk := BuildChunk(c, "/repo", ChunkOptions{MaxChunkSize: 200})
	assert.Contains(t, chunk.Content, "[content truncated due to size]")
	assert.LessOrEqual(t, len(chunk.Content), 200+len(c.ShortHash)+600)
}

func TestBuildChunk_TruncatedVariantKeepsHeaderAndTotals(t *testing.T) {
	c := makeCommit()
	c.Body = strings.Repeat("x", 5000)

	chunk := BuildChunk(c, "/repo", ChunkOptions{MaxChunkSize: 100})
	assert.Contains(t, chunk.Content, c.ShortHash)
	assert.Contains(t, chunk.Content, c.Subject)
	assert.Contains(t, chunk.Content, "+120 -2")
}

func TestBuildChunk_DiffPreviewIncludedWhenRequested(t *testing.T) {
	c := makeCommit()
	diff := strings.Repeat("diff line\n", 100)
	chunk := BuildChunk(c, "/repo", ChunkOptions{MaxChunkSize: 100000, IncludeDiff: true, DiffPreview: diff})
	assert.Contains(t, chunk.Content, "diff preview:")
	assert.Equal(t, maxDiffPreviewLines, strings.Count(chunk.Content, "diff line"))
}

func TestBuildChunk_NoMaxChunkSizeNeverTruncates(t *testing.T) {
	c := makeCommit()
	c.Body = strings.Repeat("x", 10000)
	chunk := BuildChunk(c, "/repo", ChunkOptions{})
	require.NotContains(t, chunk.Content, "[content truncated due to size]")
}
