// Package render draws controller events on a terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"fileforge/internal/domain"
	"fileforge/internal/lifecycle"
)

// Terminal writes human-readable progress lines. Progress redraws are
// throttled; the final 100% line is always drawn.
type Terminal struct {
	out        io.Writer
	limiter    *rate.Limiter
	title      cases.Caser
	lastStatus domain.JobStatus
	inProgress bool
}

// NewTerminal returns a renderer writing to out with at most redrawsPerSec
// progress updates per second. Zero or less draws every update.
func NewTerminal(out io.Writer, redrawsPerSec float64) *Terminal {
	limit := rate.Inf
	if redrawsPerSec > 0 {
		limit = rate.Limit(redrawsPerSec)
	}
	return &Terminal{
		out:     out,
		limiter: rate.NewLimiter(limit, 1),
		title:   cases.Title(language.English),
	}
}

var _ lifecycle.Renderer = (*Terminal)(nil)

func (t *Terminal) UploadStarted(fileName string, size int64, op domain.Operation) {
	t.lastStatus = ""
	t.printf("%s: %s (%s)\n%s...\n", op.Label(), fileName, humanize.Bytes(uint64(size)), op.Action())
}

func (t *Terminal) UploadProgress(sent, total int64) {
	if sent < total && !t.limiter.AllowN(time.Now(), 1) {
		return
	}
	pct := 0
	if total > 0 {
		pct = int(sent * 100 / total)
	}
	t.inProgress = true
	t.printf("\rUploading... %3d%%  %s / %s", pct, humanize.Bytes(uint64(sent)), humanize.Bytes(uint64(total)))
}

func (t *Terminal) AwaitingServer() {
	t.endLine()
	t.printf("Processing... Your file is being processed. This may take a moment.\n")
}

func (t *Terminal) PollingStarted(jobID string) {
	t.printf("Job %s submitted.\n", jobID)
}

func (t *Terminal) JobUpdate(job domain.Job) {
	if job.Status == t.lastStatus {
		return
	}
	t.lastStatus = job.Status
	switch job.Status {
	case domain.JobStatusPending:
		t.printf("Queued, waiting for worker... Your job is in the queue.\n")
	case domain.JobStatusProcessing:
		t.printf("Processing... Your file is being processed.\n")
	default:
		t.printf("Status: %s\n", t.title.String(string(job.Status)))
	}
}

func (t *Terminal) Succeeded(res lifecycle.Result) {
	t.endLine()
	line := fmt.Sprintf("Done. %s -> %s", humanize.Bytes(uint64(res.InputSize)), humanize.Bytes(uint64(res.OutputSize)))
	if res.Savings != "" {
		line += " (" + res.Savings + ")"
	}
	t.printf("%s\nDownload: %s\nSave as:  %s\n", line, res.DownloadURL, res.DownloadName)
}

func (t *Terminal) Failed(message string) {
	t.endLine()
	t.printf("Error: %s\n", message)
}

func (t *Terminal) Reset(ready bool) {
	t.endLine()
	t.lastStatus = ""
	if ready {
		t.printf("Ready.\n")
		return
	}
	t.printf("Select a file to start\n")
}

func (t *Terminal) endLine() {
	if t.inProgress {
		t.inProgress = false
		t.printf("\n")
	}
}

func (t *Terminal) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(t.out, format, args...)
}

// FormatNames upper-cases extensions for display: "jpeg, png" -> "JPEG, PNG".
func FormatNames(exts []string) string {
	upper := cases.Upper(language.English)
	names := make([]string, len(exts))
	for i, ext := range exts {
		names[i] = upper.String(ext)
	}
	return strings.Join(names, ", ")
}
