package commit

import (
	"fmt"
	"strings"

	"github.com/codeforge-dev/indexcore/internal/gitextract"
	"github.com/codeforge-dev/indexcore/internal/metadata"
)

const (
	maxFilesListed     = 20
	maxDiffPreviewLines = 50
	truncatedMaxFiles  = 10
	truncatedMaxBody   = 500
)

// ChunkMetadata carries the structured fields a commit chunk's payload
// needs alongside its rendered text (spec §3 "Chunk (commit)").
type ChunkMetadata struct {
	CommitHash  string
	ShortHash   string
	Author      string
	AuthorEmail string
	DateISO     string
	Subject     string
	CommitType  Type
	Files       []string
	Insertions  int
	Deletions   int
	RepoPath    string
}

// Chunk is one retrievable unit for a commit: deterministic ID, rendered
// content, and its structured metadata.
type Chunk struct {
	ID       string
	Content  string
	Metadata ChunkMetadata
}

// ChunkOptions bounds the rendered chunk's size.
type ChunkOptions struct {
	MaxChunkSize  int
	IncludeDiff   bool
	DiffPreview   string // pre-fetched diff text (caller fetches via gitextract)
}

// BuildChunk renders one commit into a deterministic, human-readable
// chunk (spec §4.7). If the rendered content exceeds MaxChunkSize, a
// truncated variant is produced instead.
func BuildChunk(c gitextract.RawCommit, repoPath string, opts ChunkOptions) Chunk {
	typ := Classify(c.Subject, c.Body)

	files := make([]string, len(c.Files))
	for i, f := range c.Files {
		files[i] = f.Path
	}

	dateISO := isoDateOnly(c)

	meta := ChunkMetadata{
		CommitHash:  c.Hash,
		ShortHash:   c.ShortHash,
		Author:      c.Author,
		AuthorEmail: c.AuthorEmail,
		DateISO:     dateISO,
		Subject:     c.Subject,
		CommitType:  typ,
		Files:       files,
		Insertions:  c.Insertions,
		Deletions:   c.Deletions,
		RepoPath:    repoPath,
	}

	content := render(c, typ, dateISO, files, opts)
	if len(content) > opts.MaxChunkSize && opts.MaxChunkSize > 0 {
		content = renderTruncated(c, typ, dateISO, files)
	}

	return Chunk{
		ID:       metadata.CommitChunkID(c.Hash, repoPath),
		Content:  content,
		Metadata: meta,
	}
}

func isoDateOnly(c gitextract.RawCommit) string {
	if c.DateInvalid {
		return "invalid-date"
	}
	return c.Date.Format("2006-01-02")
}

func render(c gitextract.RawCommit, typ Type, dateISO string, files []string, opts ChunkOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "commit %s\n", c.ShortHash)
	fmt.Fprintf(&b, "type: %s\n", typ)
	fmt.Fprintf(&b, "author: %s\n", c.Author)
	fmt.Fprintf(&b, "date: %s\n", dateISO)
	fmt.Fprintf(&b, "subject: %s\n", c.Subject)

	if strings.TrimSpace(c.Body) != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(c.Body))
	}

	if len(files) > 0 {
		b.WriteString("\nfiles:\n")
		shown := files
		extra := 0
		if len(files) > maxFilesListed {
			shown = files[:maxFilesListed]
			extra = len(files) - maxFilesListed
		}
		for _, f := range shown {
			fmt.Fprintf(&b, "  %s\n", f)
		}
		if extra > 0 {
			fmt.Fprintf(&b, "  and %d more\n", extra)
		}
	}

	fmt.Fprintf(&b, "\n+%d -%d\n", c.Insertions, c.Deletions)

	if opts.IncludeDiff && opts.DiffPreview != "" {
		b.WriteString("\ndiff preview:\n")
		b.WriteString(previewLines(opts.DiffPreview, maxDiffPreviewLines))
	}

	return b.String()
}

// previewLines returns the first n lines of text, each file header
// (`diff --git`) preserved since callers rely on them to tell which file
// a hunk belongs to.
func previewLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

func renderTruncated(c gitextract.RawCommit, typ Type, dateISO string, files []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "commit %s\n", c.ShortHash)
	fmt.Fprintf(&b, "type: %s\n", typ)
	fmt.Fprintf(&b, "author: %s\n", c.Author)
	fmt.Fprintf(&b, "date: %s\n", dateISO)
	fmt.Fprintf(&b, "subject: %s\n", c.Subject)

	body := strings.TrimSpace(c.Body)
	if len(body) > truncatedMaxBody {
		body = body[:truncatedMaxBody]
	}
	if body != "" {
		fmt.Fprintf(&b, "\n%s\n", body)
	}

	if len(files) > 0 {
		b.WriteString("\nfiles:\n")
		shown := files
		if len(shown) > truncatedMaxFiles {
			shown = shown[:truncatedMaxFiles]
		}
		for _, f := range shown {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}

	fmt.Fprintf(&b, "\n+%d -%d\n", c.Insertions, c.Deletions)
	b.WriteString("\n[content truncated due to size]")

	return b.String()
}
