// Package gitextract shells out to the git binary to read repository
// history: commits, diffs, and remote identity (spec §4.6). It never runs
// a shell string — every invocation is an argument-array exec.Command,
// the idiom the corpus's git-backup tooling uses for the same reason
// (no quoting/injection surface).
package gitextract

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"

	coreerrors "github.com/codeforge-dev/indexcore/internal/errors"
)

// Options configures subprocess execution bounds.
type Options struct {
	// MaxOutputBytes bounds captured stdout; exceeding it truncates rather
	// than exhausting memory on a pathological repo (spec: "bounded output
	// buffer (≥ 50 MB)").
	MaxOutputBytes int64
	// Timeout bounds how long a single git invocation may run.
	Timeout time.Duration
	// MaxDiffSize bounds commitDiff's returned text.
	MaxDiffSize int
}

const (
	DefaultMaxOutputBytes = 50 * 1024 * 1024
	DefaultTimeout        = 30 * time.Second
	DefaultMaxDiffSize    = 1 << 20 // 1 MiB
)

// DefaultOptions returns the spec's default bounds.
func DefaultOptions() Options {
	return Options{
		MaxOutputBytes: DefaultMaxOutputBytes,
		Timeout:        DefaultTimeout,
		MaxDiffSize:    DefaultMaxDiffSize,
	}
}

// Extractor runs git subprocesses rooted at one repository path.
type Extractor struct {
	repoPath string
	opts     Options
}

// New creates an Extractor for the repository at repoPath.
func New(repoPath string, opts Options) *Extractor {
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxDiffSize <= 0 {
		opts.MaxDiffSize = DefaultMaxDiffSize
	}
	return &Extractor{repoPath: repoPath, opts: opts}
}

// boundedWriter caps how many bytes it retains; further writes are
// silently dropped (the underlying command still runs to completion).
type boundedWriter struct {
	buf   bytes.Buffer
	limit int64
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	remaining := w.limit - int64(w.buf.Len())
	if remaining <= 0 {
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	w.buf.Write(p)
	return len(p), nil
}

func (e *Extractor) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = e.repoPath

	var stdout, stderr boundedWriter
	stdout.limit = e.opts.MaxOutputBytes
	stderr.limit = e.opts.MaxOutputBytes
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", coreerrors.New(coreerrors.KindGitSubprocess, "git "+strings.Join(args, " "), e.repoPath,
			strings.TrimSpace(stderr.buf.String()), err)
	}
	return strings.TrimSpace(stdout.buf.String()), nil
}

// ValidateRepository runs `git rev-parse --git-dir` and reports success.
func (e *Extractor) ValidateRepository(ctx context.Context) bool {
	_, err := e.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// LatestCommitHash runs `git rev-parse HEAD`.
func (e *Extractor) LatestCommitHash(ctx context.Context) (string, error) {
	return e.run(ctx, "rev-parse", "HEAD")
}

// CommitCount runs `git rev-list --count [sinceCommit..HEAD | HEAD]`.
func (e *Extractor) CommitCount(ctx context.Context, sinceCommit string) (int, error) {
	rangeArg := "HEAD"
	if sinceCommit != "" {
		rangeArg = sinceCommit + "..HEAD"
	}
	out, err := e.run(ctx, "rev-list", "--count", rangeArg)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(out))
	if convErr != nil {
		return 0, coreerrors.Wrap(coreerrors.KindGitSubprocess, "CommitCount", e.repoPath, convErr)
	}
	return n, nil
}

// RemoteURL runs `git remote get-url origin`. A missing remote returns an
// empty string rather than an error (spec: "missing remote returns empty
// string, never raises"). If the git binary itself is unavailable or the
// subprocess fails outright, it falls back to reading the remote straight
// out of .git/config via go-git, so collection naming still resolves a
// stable identity on hosts without a git binary on PATH.
func (e *Extractor) RemoteURL(ctx context.Context) string {
	out, err := e.run(ctx, "remote", "get-url", "origin")
	if err == nil {
		return out
	}
	return e.remoteURLFromConfig()
}

func (e *Extractor) remoteURLFromConfig() string {
	repo, err := git.PlainOpen(e.repoPath)
	if err != nil {
		return ""
	}
	remote, err := repo.Remote("origin")
	if err != nil || len(remote.Config().URLs) == 0 {
		return ""
	}
	return remote.Config().URLs[0]
}

// logDelimiter is a sentinel unlikely to appear in commit text, used to
// split `git log` blocks unambiguously.
const logDelimiter = "\x1e<<<COMMIT>>>\x1e"

const logFieldSep = "\x1f"

// logFormat renders %H|%h|%an|%ae|%aI|%s|%b separated by logFieldSep, one
// block per commit prefixed by logDelimiter.
const logFormat = logDelimiter + "%H" + logFieldSep + "%h" + logFieldSep + "%an" + logFieldSep + "%ae" + logFieldSep + "%aI" + logFieldSep + "%s" + logFieldSep + "%b"

// CommitsOptions filters the commit range returned by Commits.
type CommitsOptions struct {
	SinceCommit string
	SinceDate   string // ISO-8601 date, passed to --since
	MaxCommits  int
}

// Commits runs `git log --pretty=format:<DELIM><FIELDS> --numstat -n<N>`
// and parses the result into RawCommit values (spec §4.6).
func (e *Extractor) Commits(ctx context.Context, opts CommitsOptions) ([]RawCommit, error) {
	args := []string{"log", "--pretty=format:" + logFormat, "--numstat"}
	if opts.MaxCommits > 0 {
		args = append(args, "-n", strconv.Itoa(opts.MaxCommits))
	}
	if opts.SinceDate != "" {
		args = append(args, "--since="+opts.SinceDate)
	}
	if opts.SinceCommit != "" {
		args = append(args, opts.SinceCommit+"..HEAD")
	} else {
		args = append(args, "HEAD")
	}

	out, err := e.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

// CommitDiff runs `git show --no-color -p <hash>`, truncated to
// MaxDiffSize with a trailing marker.
func (e *Extractor) CommitDiff(ctx context.Context, hash string) (string, error) {
	out, err := e.run(ctx, "show", "--no-color", "-p", hash)
	if err != nil {
		return "", err
	}
	if len(out) > e.opts.MaxDiffSize {
		out = out[:e.opts.MaxDiffSize] + "\n[diff truncated due to size]"
	}
	return out, nil
}

// NormalizeRemoteURL strips a leading `git@host:` or `https?://host/`
// prefix and a trailing `.git` suffix. Used only for collection naming
// (spec §4.6). Empty input yields empty output.
func NormalizeRemoteURL(url string) string {
	if url == "" {
		return ""
	}
	s := url
	switch {
	case strings.HasPrefix(s, "git@"):
		if idx := strings.Index(s, ":"); idx >= 0 {
			s = s[idx+1:]
		}
	case strings.HasPrefix(s, "http://"):
		s = s[len("http://"):]
		if idx := strings.Index(s, "/"); idx >= 0 {
			s = s[idx+1:]
		}
	case strings.HasPrefix(s, "https://"):
		s = s[len("https://"):]
		if idx := strings.Index(s, "/"); idx >= 0 {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(s, ".git")
	return s
}

// RawCommit is git log's raw output for one commit, before classification
// or chunking (spec §3: "produced by the Git Extractor, immutable,
// discarded after chunking").
type RawCommit struct {
	Hash         string
	ShortHash    string
	Author       string
	AuthorEmail  string
	Date         time.Time
	DateRaw      string
	DateInvalid  bool
	Subject      string
	Body         string
	Files        []FileStat
	Insertions   int
	Deletions    int
}

// FileStat is one numstat row attributed to a commit.
type FileStat struct {
	Path       string
	Insertions int
	Deletions  int
	Binary     bool
}

func parseLog(raw string) []RawCommit {
	blocks := strings.Split(raw, logDelimiter)
	commits := make([]RawCommit, 0, len(blocks))

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")

		fields := strings.SplitN(lines[0], logFieldSep, 7)
		if len(fields) < 7 {
			continue
		}

		c := RawCommit{
			Hash:        fields[0],
			ShortHash:   fields[1],
			Author:      fields[2],
			AuthorEmail: fields[3],
			DateRaw:     fields[4],
			Subject:     fields[5],
		}

		body := fields[6]
		numstatStart := len(lines)
		for i := 1; i < len(lines); i++ {
			if isNumstatLine(lines[i]) {
				numstatStart = i
				break
			}
		}
		if numstatStart > 1 {
			body = strings.TrimSpace(body + "\n" + strings.Join(lines[1:numstatStart], "\n"))
		}
		c.Body = strings.TrimSpace(body)

		for _, line := range lines[numstatStart:] {
			if stat, ok := parseNumstatLine(line); ok {
				c.Files = append(c.Files, stat)
				c.Insertions += stat.Insertions
				c.Deletions += stat.Deletions
			}
		}

		if t, err := time.Parse(time.RFC3339, fields[4]); err == nil {
			c.Date = t
		} else {
			c.DateInvalid = true
		}

		commits = append(commits, c)
	}
	return commits
}

// isNumstatLine reports whether a log-output line looks like a numstat
// row (`insertions\tdeletions\tfilename`) rather than commit-body text.
func isNumstatLine(line string) bool {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return false
	}
	if parts[0] != "-" {
		if _, err := strconv.Atoi(parts[0]); err != nil {
			return false
		}
	}
	if parts[1] != "-" {
		if _, err := strconv.Atoi(parts[1]); err != nil {
			return false
		}
	}
	return true
}

func parseNumstatLine(line string) (FileStat, bool) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return FileStat{}, false
	}

	stat := FileStat{Path: normalizeRenamePath(parts[2])}

	if parts[0] == "-" && parts[1] == "-" {
		stat.Binary = true
		return stat, true
	}

	ins, err1 := strconv.Atoi(parts[0])
	del, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return FileStat{}, false
	}
	stat.Insertions = ins
	stat.Deletions = del
	return stat, true
}

// normalizeRenamePath resolves git's two rename notations — brace syntax
// (`dir/{old => new}/file`) and whole-path syntax (`old => new`) — to the
// effective (new) filename (spec §4.6).
func normalizeRenamePath(raw string) string {
	if idx := strings.Index(raw, "{"); idx >= 0 {
		end := strings.Index(raw, "}")
		if end > idx {
			inner := raw[idx+1 : end]
			if arrow := strings.Index(inner, " => "); arrow >= 0 {
				newInner := strings.TrimSpace(inner[arrow+len(" => "):])
				return raw[:idx] + newInner + raw[end+1:]
			}
		}
	}
	if arrow := strings.Index(raw, " => "); arrow >= 0 {
		return strings.TrimSpace(raw[arrow+len(" => "):])
	}
	return raw
}
