// Package upload submits a file and its parameters to the job-creation
// endpoint while reporting byte-level progress.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"fileforge/internal/domain"
	"fileforge/internal/infra"
)

// Display messages for upload failures.
const (
	MsgCancelled       = "Upload was cancelled."
	MsgNetwork         = "Network error. Please check your connection and try again."
	MsgInvalidResponse = "Invalid response from server."
	MsgNoFile          = "Select a file to start"
)

const maxResponseBytes = 1 << 20

// Options configures the upload Manager.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Manager posts jobs to the conversion service.
type Manager struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// Request is one file submission.
type Request struct {
	File      *domain.SelectedFile
	Operation domain.Operation
	Params    domain.ParameterBag
}

// Callbacks receive the upload's events. OnComplete and OnError are mutually
// exclusive and each fires at most once. Any of them may be nil.
type Callbacks struct {
	OnProgress func(sent, total int64)
	OnSent     func()
	OnComplete func(job domain.Job)
	OnError    func(err *domain.Error)
}

// NewManager constructs a Manager. A nil HTTP client means no overall
// timeout: uploads of large files are bounded by cancellation only.
func NewManager(opts Options) *Manager {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Manager{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Handle controls one in-flight upload started with Start.
type Handle struct {
	cancel    context.CancelFunc
	done      chan struct{}
	mu        sync.Mutex
	finished  bool
	cancelled bool
}

// Cancel aborts the upload. If no outcome has been reported yet, OnError
// fires with MsgCancelled; OnComplete never fires afterwards.
func (h *Handle) Cancel() {
	h.mu.Lock()
	if !h.finished {
		h.cancelled = true
	}
	h.mu.Unlock()
	h.cancel()
}

// Done is closed once the outcome callback has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) isCancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// finish claims the single outcome slot and reports whether the upload was
// cancelled before it was claimed.
func (h *Handle) finish() (claimed, cancelled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		return false, false
	}
	h.finished = true
	return true, h.cancelled
}

// Start runs the upload in the background and returns immediately.
func (m *Manager) Start(req Request, cb Callbacks) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	progress := func(sent, total int64) {
		if cb.OnProgress != nil && !h.isCancelled() {
			cb.OnProgress(sent, total)
		}
	}
	sent := func() {
		if cb.OnSent != nil && !h.isCancelled() {
			cb.OnSent()
		}
	}

	go func() {
		defer close(h.done)
		defer cancel()
		job, err := m.Submit(ctx, req, progress, sent)
		claimed, cancelled := h.finish()
		if !claimed {
			return
		}
		switch {
		case cancelled:
			if cb.OnError != nil {
				cb.OnError(domain.NewError(domain.KindCancelled, MsgCancelled))
			}
		case err != nil:
			if cb.OnError != nil {
				cb.OnError(asDomainError(err))
			}
		default:
			if cb.OnComplete != nil {
				cb.OnComplete(job)
			}
		}
	}()
	return h
}

func asDomainError(err error) *domain.Error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return &domain.Error{Kind: domain.KindTransport, Message: MsgNetwork, Err: err}
}

type createResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Submit performs the upload synchronously. onProgress and onSent may be nil.
// Failures are *domain.Error values carrying the display message.
func (m *Manager) Submit(ctx context.Context, req Request, onProgress func(sent, total int64), onSent func()) (domain.Job, error) {
	if err := validateRequest(req); err != nil {
		return domain.Job{}, &domain.Error{Kind: domain.KindValidation, Message: MsgNoFile, Err: err}
	}
	body, err := newMultipartBody(req)
	if err != nil {
		return domain.Job{}, &domain.Error{Kind: domain.KindTransport, Message: MsgNetwork, Err: err}
	}
	reader, err := body.reader(onProgress, onSent)
	if err != nil {
		return domain.Job{}, &domain.Error{Kind: domain.KindTransport, Message: MsgNetwork, Err: fmt.Errorf("upload: open file: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/jobs", reader)
	if err != nil {
		reader.Close()
		return domain.Job{}, &domain.Error{Kind: domain.KindTransport, Message: MsgNetwork, Err: fmt.Errorf("upload: build request: %w", err)}
	}
	httpReq.ContentLength = body.length
	httpReq.Header.Set("Content-Type", body.contentType)
	httpReq.Header.Set("Accept", "application/json")

	m.logger.Debug().
		Str("operation", req.Operation.String()).
		Str("file", req.File.Name).
		Int64("bytes", body.length).
		Msg("upload: sending job")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Job{}, &domain.Error{Kind: domain.KindCancelled, Message: MsgCancelled, Err: ctx.Err()}
		}
		m.logger.Debug().Err(err).Msg("upload: transport failure")
		return domain.Job{}, &domain.Error{Kind: domain.KindTransport, Message: MsgNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return domain.Job{}, &domain.Error{Kind: domain.KindCancelled, Message: MsgCancelled, Err: ctx.Err()}
		}
		return domain.Job{}, &domain.Error{Kind: domain.KindTransport, Message: MsgNetwork, Err: fmt.Errorf("upload: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("Upload failed (HTTP %d)", resp.StatusCode)
		var detail createResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Error != "" {
			msg = detail.Error
		}
		m.logger.Debug().Int("status", resp.StatusCode).Str("message", msg).Msg("upload: rejected")
		return domain.Job{}, &domain.Error{Kind: domain.KindServer, Message: msg, StatusCode: resp.StatusCode}
	}

	var created createResponse
	if err := json.Unmarshal(raw, &created); err != nil || strings.TrimSpace(created.ID) == "" {
		if err == nil {
			err = fmt.Errorf("upload: response has no job id")
		}
		return domain.Job{}, &domain.Error{Kind: domain.KindProtocol, Message: MsgInvalidResponse, StatusCode: resp.StatusCode, Err: err}
	}

	var job domain.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		m.logger.Debug().Err(err).Msg("upload: job record partially decoded")
		job = domain.Job{}
	}
	job.ID = created.ID
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	if job.InputSize == 0 {
		job.InputSize = req.File.Size
	}
	m.logger.Debug().Str("job_id", job.ID).Msg("upload: job created")
	return job, nil
}
