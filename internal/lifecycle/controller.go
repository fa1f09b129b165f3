// Package lifecycle drives one conversion job at a time from upload through
// polling to a final outcome, and tells a Renderer what to show.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"

	"fileforge/internal/domain"
	"fileforge/internal/infra"
	"fileforge/internal/poller"
	"fileforge/internal/upload"
)

var (
	ErrBusy   = errors.New("lifecycle: a job is already in progress")
	ErrNoFile = errors.New("lifecycle: no file selected")
)

// Uploader starts job submissions.
type Uploader interface {
	Start(req upload.Request, cb upload.Callbacks) *upload.Handle
}

// StatusPoller starts status poll loops.
type StatusPoller interface {
	Start(jobID string, cb poller.Callbacks) *poller.Handle
}

// Options wires a Controller.
type Options struct {
	BaseURL  string
	Uploader Uploader
	Poller   StatusPoller
	Renderer Renderer
	Logger   *infra.Logger
}

// Snapshot is a point-in-time copy of the controller's state.
type Snapshot struct {
	State         State
	FileName      string
	FileSelected  bool
	Operation     domain.Operation
	JobID         string
	Sent          int64
	Total         int64
	Indeterminate bool
	Job           *domain.Job
	Result        *Result
	Message       string
}

// Controller owns at most one job. Every event handler runs under mu and is
// tagged with the epoch of the job that produced it; events from an older
// epoch are dropped.
type Controller struct {
	baseURL  string
	uploader Uploader
	poller   StatusPoller
	renderer Renderer
	logger   *infra.Logger

	mu            sync.Mutex
	epoch         uint64
	state         State
	file          *domain.SelectedFile
	op            domain.Operation
	job           *domain.Job
	result        *Result
	message       string
	sent          int64
	total         int64
	indeterminate bool
	upload        *upload.Handle
	poll          *poller.Handle
	done          chan struct{}
}

// New builds a Controller in the Idle state.
func New(opts Options) *Controller {
	renderer := opts.Renderer
	if renderer == nil {
		renderer = NopRenderer{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Controller{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		uploader: opts.Uploader,
		poller:   opts.Poller,
		renderer: renderer,
		logger:   logger,
	}
}

// Start submits file for op with the given parameters. It is rejected while
// another job is in flight.
func (c *Controller) Start(file *domain.SelectedFile, op domain.Operation, params domain.ParameterBag) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if file == nil {
		return ErrNoFile
	}
	if c.state.Busy() {
		return ErrBusy
	}

	c.clearJob()
	c.file = file
	c.op = op
	c.move(StateUploading)
	c.done = make(chan struct{})
	epoch := c.epoch

	c.logger.Debug().Str("operation", op.String()).Str("file", file.Name).Uint64("epoch", epoch).Msg("lifecycle: starting job")
	c.renderer.UploadStarted(file.Name, file.Size, op)

	req := upload.Request{File: file, Operation: op, Params: params}
	c.upload = c.uploader.Start(req, upload.Callbacks{
		OnProgress: func(sent, total int64) { c.onUploadProgress(epoch, sent, total) },
		OnSent:     func() { c.onUploadSent(epoch) },
		OnComplete: func(job domain.Job) { c.onUploadComplete(epoch, job) },
		OnError:    func(err *domain.Error) { c.onUploadError(epoch, err) },
	})
	return nil
}

// Reset cancels any upload or poll and returns to Idle. It does nothing when
// already Idle with no activity.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle && c.upload == nil && c.poll == nil {
		return
	}
	c.resetLocked()
}

// FileChanged records a new selection (nil clears it) and implicitly resets
// whatever was in progress.
func (c *Controller) FileChanged(file *domain.SelectedFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = file
	c.resetLocked()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until the current job succeeds, fails or is reset, then
// returns the snapshot at that point. With no job in flight it returns
// immediately.
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
	return c.Snapshot(), nil
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:         c.state,
		FileSelected:  c.file != nil,
		Operation:     c.op,
		Sent:          c.sent,
		Total:         c.total,
		Indeterminate: c.indeterminate,
		Message:       c.message,
	}
	if c.file != nil {
		s.FileName = c.file.Name
	}
	if c.job != nil {
		job := c.job.Clone()
		s.Job = &job
		s.JobID = job.ID
	}
	if c.result != nil {
		res := *c.result
		s.Result = &res
	}
	return s
}

func (c *Controller) onUploadProgress(epoch uint64, sent, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch || c.state != StateUploading {
		return
	}
	c.sent, c.total = sent, total
	c.renderer.UploadProgress(sent, total)
}

func (c *Controller) onUploadSent(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch || c.state != StateUploading {
		return
	}
	c.move(StateAwaitingServer)
	c.indeterminate = true
	c.renderer.AwaitingServer()
}

func (c *Controller) onUploadComplete(epoch uint64, job domain.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch || !c.move(StatePolling) {
		return
	}
	c.upload = nil
	c.indeterminate = true
	c.job = &job

	c.logger.Debug().Str("job_id", job.ID).Msg("lifecycle: job created, polling")
	c.renderer.PollingStarted(job.ID)
	c.poll = c.poller.Start(job.ID, poller.Callbacks{
		OnUpdate:   func(job domain.Job) { c.onPollUpdate(epoch, job) },
		OnTerminal: func(job *domain.Job, err *domain.Error) { c.onPollTerminal(epoch, job, err) },
	})
}

func (c *Controller) onUploadError(epoch uint64, err *domain.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return
	}
	c.upload = nil
	c.fail(err)
}

func (c *Controller) onPollUpdate(epoch uint64, job domain.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch || c.state != StatePolling {
		return
	}
	c.job = &job
	c.renderer.JobUpdate(job)
}

func (c *Controller) onPollTerminal(epoch uint64, job *domain.Job, err *domain.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch || c.state != StatePolling {
		return
	}
	c.poll = nil
	if job != nil {
		j := *job
		c.job = &j
	}
	if err != nil {
		c.fail(err)
		return
	}
	c.succeed()
}

func (c *Controller) succeed() {
	if !c.move(StateSuccess) {
		return
	}
	c.indeterminate = false
	job := c.job
	inputName := ""
	if c.file != nil {
		inputName = c.file.Name
	}
	res := Result{
		JobID:        job.ID,
		InputSize:    job.InputSize,
		OutputSize:   job.OutputBytes(),
		Savings:      SizeDelta(job.InputSize, job.OutputBytes()),
		DownloadURL:  DownloadURL(c.baseURL, job.ID),
		DownloadName: DownloadName(inputName, job.OutputFilename),
	}
	c.result = &res
	c.logger.Debug().Str("job_id", job.ID).Str("status", string(job.Status)).Str("savings", res.Savings).Msg("lifecycle: job succeeded")
	c.renderer.Succeeded(res)
	c.closeDone()
}

func (c *Controller) fail(err *domain.Error) {
	if !c.move(StateError) {
		return
	}
	c.indeterminate = false
	c.message = err.Message
	ev := c.logger.Debug().Str("kind", err.Kind.String()).Str("message", err.Message)
	if c.job != nil {
		ev = ev.Str("job_id", c.job.ID)
	}
	ev.Msg("lifecycle: job failed")
	c.renderer.Failed(err.Message)
	c.closeDone()
}

func (c *Controller) resetLocked() {
	if c.state != StateIdle {
		c.move(StateIdle)
	}
	c.clearJob()
	c.renderer.Reset(c.file != nil)
	c.closeDone()
}

// clearJob stops active handles, forgets the previous job and advances the
// epoch so their late events are ignored.
func (c *Controller) clearJob() {
	if c.upload != nil {
		c.upload.Cancel()
		c.upload = nil
	}
	if c.poll != nil {
		c.poll.Stop()
		c.poll = nil
	}
	c.epoch++
	c.job = nil
	c.result = nil
	c.message = ""
	c.sent, c.total = 0, 0
	c.indeterminate = false
}

func (c *Controller) move(to State) bool {
	if !canMove(c.state, to) {
		c.logger.Warn().Str("from", c.state.String()).Str("to", to.String()).Msg("lifecycle: ignoring illegal transition")
		return false
	}
	c.state = to
	return true
}

func (c *Controller) closeDone() {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}
