// Package poller queries a job's status on a fixed period until the service
// reports a terminal status or an error.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"fileforge/internal/domain"
	"fileforge/internal/infra"
)

// DefaultInterval is the period between status checks.
const DefaultInterval = 2 * time.Second

// Display messages for poll failures.
const (
	MsgProcessingFailed = "Processing failed. Please try again."
	MsgLostContact      = "Lost contact with the server while checking job status."
)

const maxResponseBytes = 1 << 20

// State is the poller's lifecycle position.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateCompleted
	StateFailed
	StateErrored
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateErrored:
		return "errored"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures a Poller.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Interval   time.Duration
	// MaxConsecutiveFailures ends polling after that many swallowed attempts
	// in a row. Zero keeps polling forever.
	MaxConsecutiveFailures int
	Logger                 *infra.Logger
}

// Poller creates poll loops against the job-status endpoint.
type Poller struct {
	baseURL     string
	httpClient  *http.Client
	interval    time.Duration
	maxFailures int
	logger      *infra.Logger
}

// Callbacks receive poll outcomes. OnTerminal fires at most once: with the
// job and a nil error on completion, otherwise with an error.
type Callbacks struct {
	OnUpdate   func(job domain.Job)
	OnTerminal func(job *domain.Job, err *domain.Error)
}

// New constructs a Poller with defaults applied.
func New(opts Options) *Poller {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxFailures := opts.MaxConsecutiveFailures
	if maxFailures < 0 {
		maxFailures = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Poller{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  httpClient,
		interval:    interval,
		maxFailures: maxFailures,
		logger:      logger,
	}
}

// Interval returns the configured poll period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Handle controls one poll loop.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
	state  State
}

// Stop ends polling. It is idempotent, never blocks, and is safe in any
// state including after the loop ended on its own.
func (h *Handle) Stop() {
	h.mu.Lock()
	if h.state == StatePolling || h.state == StateIdle {
		h.state = StateStopped
	}
	h.mu.Unlock()
	h.cancel()
}

// State reports where the loop is.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done is closed when the loop goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) polling() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == StatePolling
}

// settle moves a polling handle to a terminal state. It returns false if the
// handle was stopped first.
func (h *Handle) settle(to State) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StatePolling {
		return false
	}
	h.state = to
	return true
}

// Start checks the job immediately and then every interval. Requests are
// issued one at a time from a single goroutine.
func (p *Poller) Start(jobID string, cb Callbacks) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{cancel: cancel, done: make(chan struct{}), state: StatePolling}

	go func() {
		defer close(h.done)
		defer cancel()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		failures := 0
		for {
			res := p.check(ctx, jobID)
			if ctx.Err() != nil || !h.polling() {
				return
			}
			switch res.kind {
			case resultSwallowed:
				failures++
				p.logger.Debug().Err(res.cause).Str("job_id", jobID).Int("failures", failures).Msg("poller: attempt failed, will retry")
				if p.maxFailures > 0 && failures >= p.maxFailures {
					p.finish(h, StateErrored, nil, &domain.Error{Kind: domain.KindTransport, Message: MsgLostContact, Err: res.cause}, cb)
					return
				}
			case resultIgnored:
				failures = 0
			case resultUpdate:
				failures = 0
				if cb.OnUpdate != nil {
					cb.OnUpdate(res.job)
				}
			case resultCompleted:
				job := res.job
				p.finish(h, StateCompleted, &job, nil, cb)
				return
			case resultFailed:
				job := res.job
				p.finish(h, StateFailed, &job, res.err, cb)
				return
			case resultErrored:
				p.finish(h, StateErrored, nil, res.err, cb)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return h
}

func (p *Poller) finish(h *Handle, to State, job *domain.Job, err *domain.Error, cb Callbacks) {
	if !h.settle(to) {
		return
	}
	p.logger.Debug().Str("state", to.String()).Msg("poller: stopped")
	if cb.OnTerminal != nil {
		cb.OnTerminal(job, err)
	}
}

type resultKind int

const (
	resultSwallowed resultKind = iota
	resultIgnored
	resultUpdate
	resultCompleted
	resultFailed
	resultErrored
)

type result struct {
	kind  resultKind
	job   domain.Job
	err   *domain.Error
	cause error
}

type statusError struct {
	Error string `json:"error"`
}

func (p *Poller) check(ctx context.Context, jobID string) result {
	endpoint := p.baseURL + "/api/jobs/" + url.PathEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return result{kind: resultSwallowed, cause: fmt.Errorf("poller: build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return result{kind: resultSwallowed, cause: fmt.Errorf("poller: http request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return result{kind: resultSwallowed, cause: fmt.Errorf("poller: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("Status check failed (HTTP %d)", resp.StatusCode)
		var detail statusError
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Error != "" {
			msg = detail.Error
		}
		return result{kind: resultErrored, err: &domain.Error{Kind: domain.KindServer, Message: msg, StatusCode: resp.StatusCode}}
	}

	var job domain.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return result{kind: resultSwallowed, cause: fmt.Errorf("poller: decode job: %w", err)}
	}
	if job.ID == "" {
		job.ID = jobID
	}

	switch job.Status {
	case domain.JobStatusPending, domain.JobStatusProcessing:
		return result{kind: resultUpdate, job: job}
	case domain.JobStatusCompleted:
		return result{kind: resultCompleted, job: job}
	case domain.JobStatusFailed:
		msg := job.ErrorMessage
		if msg == "" {
			msg = MsgProcessingFailed
		}
		return result{kind: resultFailed, job: job, err: domain.NewError(domain.KindJobFailure, msg)}
	default:
		p.logger.Debug().Str("job_id", jobID).Str("status", string(job.Status)).Msg("poller: ignoring unknown status")
		return result{kind: resultIgnored, job: job}
	}
}
