// Package cliprogress renders indexing progress to a terminal, falling back
// to line-per-update plain text when stdout is not a TTY or CI is detected.
package cliprogress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage names one step of an indexing or git-indexing run.
type Stage int

const (
	StageScanning Stage = iota
	StageChunking
	StageEmbedding
	StageUpserting
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "scanning"
	case StageChunking:
		return "chunking"
	case StageEmbedding:
		return "embedding"
	case StageUpserting:
		return "upserting"
	case StageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Event is a single progress update, matching the ProgressFunc shape used
// throughout the indexing orchestrators.
type Event struct {
	Stage   Stage
	Current int
	Total   int
	Message string
}

// IsTTY reports whether w is a terminal go-isatty recognizes.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectCI reports whether common CI environment variables are set.
func DetectCI() bool {
	for _, key := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE"} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

// Renderer consumes Events and prints them to an output stream.
type Renderer struct {
	out        io.Writer
	interactive bool
	start      time.Time
	lastLine   int
}

// NewRenderer builds a Renderer. It picks single-line, carriage-return
// redrawing when out is an interactive TTY and CI has not been detected;
// otherwise every update is written on its own line, which plays well with
// log aggregators.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:         out,
		interactive: IsTTY(out) && !DetectCI(),
		start:       time.Now(),
	}
}

// Update renders a single progress event.
func (r *Renderer) Update(ev Event) {
	pct := 0.0
	if ev.Total > 0 {
		pct = float64(ev.Current) / float64(ev.Total) * 100
		if pct > 100 {
			pct = 100
		}
	}

	line := fmt.Sprintf("[%s] %d/%d (%.1f%%) %s", ev.Stage, ev.Current, ev.Total, pct, ev.Message)

	if r.interactive {
		pad := r.lastLine - len(line)
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(r.out, "\r%s%s", line, strings.Repeat(" ", pad))
		r.lastLine = len(line)
		return
	}

	fmt.Fprintln(r.out, line)
}

// Done finalizes rendering, ensuring the interactive line is terminated.
func (r *Renderer) Done() {
	if r.interactive {
		fmt.Fprintln(r.out)
	}
}

// Elapsed returns the time since the renderer was created.
func (r *Renderer) Elapsed() time.Duration {
	return time.Since(r.start)
}
