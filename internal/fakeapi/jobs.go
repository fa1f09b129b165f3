package fakeapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fileforge/internal/domain"
	"fileforge/internal/middleware"
)

type record struct {
	job     domain.Job
	session string
	params  JobParams
	input   []byte
	output  []byte
	reads   int
}

// Shrink returns a Converter whose output is the leading percent of the
// input, zero-padded when percent exceeds 100.
func Shrink(percent int) Converter {
	return func(_ domain.Operation, _ JobParams, input []byte) ([]byte, error) {
		n := len(input) * percent / 100
		if n < 1 {
			n = 1
		}
		if n > len(input) {
			out := make([]byte, n)
			copy(out, input)
			return out, nil
		}
		return bytes.Clone(input[:n]), nil
	}
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize+10<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large. Maximum: %s", humanize.IBytes(uint64(s.maxFileSize))))
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	op, err := domain.ParseOperation(strings.TrimSpace(r.FormValue("operation")))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid operation: %q", r.FormValue("operation")))
		return
	}
	entry, ok := s.cat.Entry(op)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid operation: %q", op))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "No file provided. Use field name 'file'.")
		return
	}
	defer file.Close()

	if header.Size > s.maxFileSize {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large (%s). Maximum: %s",
				humanize.IBytes(uint64(header.Size)), humanize.IBytes(uint64(s.maxFileSize))))
		return
	}
	if header.Size == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "File is empty")
		return
	}

	inputExt := normalizeExt(filepath.Ext(header.Filename))
	if !entry.Accepts(inputExt) {
		middleware.WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("Unsupported input format .%s for %s", inputExt, op))
		return
	}

	params, err := parseParams(r, op, entry, inputExt)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	input, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}

	now := s.now().UTC()
	rec := &record{
		job: domain.Job{
			ID:           uuid.NewString(),
			Operation:    op,
			Status:       domain.JobStatusPending,
			InputSize:    int64(len(input)),
			OriginalName: header.Filename,
			CreatedAt:    &now,
		},
		session: middleware.SessionFromContext(r.Context()),
		params:  params,
		input:   input,
	}

	s.mu.Lock()
	s.jobs[rec.job.ID] = rec
	resp := rec.job.Clone()
	s.mu.Unlock()

	s.logger.Info().
		Str("job_id", resp.ID).
		Str("operation", op.String()).
		Str("size", humanize.IBytes(uint64(resp.InputSize))).
		Msg("fakeapi: job created")
	middleware.WriteJSON(w, http.StatusCreated, resp)
}

// lookup resolves the {id} route parameter to a record visible to the
// caller, writing the error response itself when it cannot.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*record, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid job ID")
		return nil, false
	}
	rec, ok := s.jobs[id]
	if !ok || (s.requireSession && rec.session != middleware.SessionFromContext(r.Context())) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return nil, false
	}
	return rec, true
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rec, ok := s.lookup(w, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.advance(rec)
	resp := rec.job.Clone()
	s.mu.Unlock()

	middleware.WriteJSON(w, http.StatusOK, resp)
}

// advance moves a job one read further along pending, processing and its
// final status. The conversion runs once, on the read that finishes it.
func (s *Server) advance(rec *record) {
	if rec.job.Status.Terminal() {
		return
	}
	rec.reads++
	switch {
	case rec.reads <= s.pollsPerStage:
		rec.job.Status = domain.JobStatusPending
	case rec.reads <= 2*s.pollsPerStage:
		if rec.job.Status != domain.JobStatusProcessing {
			started := s.now().UTC()
			rec.job.StartedAt = &started
		}
		rec.job.Status = domain.JobStatusProcessing
	default:
		s.finish(rec)
	}
}

func (s *Server) finish(rec *record) {
	now := s.now().UTC()
	if rec.job.StartedAt == nil {
		rec.job.StartedAt = &now
	}
	rec.job.CompletedAt = &now

	out, err := s.convert(rec.job.Operation, rec.params, rec.input)
	if err != nil {
		rec.job.Status = domain.JobStatusFailed
		rec.job.ErrorMessage = err.Error()
		s.logger.Info().Str("job_id", rec.job.ID).Str("status", string(rec.job.Status)).Err(err).Msg("fakeapi: job failed")
		return
	}
	size := int64(len(out))
	base := strings.TrimSuffix(rec.job.OriginalName, filepath.Ext(rec.job.OriginalName))
	rec.output = out
	rec.job.Status = domain.JobStatusCompleted
	rec.job.OutputSize = &size
	rec.job.OutputFilename = base + "." + rec.params.OutputFormat
	s.logger.Info().Str("job_id", rec.job.ID).Str("status", string(rec.job.Status)).Int64("output_size", size).Msg("fakeapi: job completed")
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rec, ok := s.lookup(w, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	job := rec.job.Clone()
	output := rec.output
	s.mu.Unlock()

	switch job.Status {
	case domain.JobStatusCompleted:
	case domain.JobStatusPending, domain.JobStatusProcessing:
		middleware.WriteError(w, http.StatusConflict, "Job is still processing")
		return
	case domain.JobStatusFailed:
		msg := "Job failed"
		if job.ErrorMessage != "" {
			msg = job.ErrorMessage
		}
		middleware.WriteError(w, http.StatusUnprocessableEntity, msg)
		return
	default:
		middleware.WriteError(w, http.StatusConflict, "Job not ready for download")
		return
	}

	name := job.OutputFilename
	if name == "" {
		name = "download"
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sanitizeFilename(name)))
	w.Header().Set("Content-Length", strconv.Itoa(len(output)))
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(output))
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rec, ok := s.lookup(w, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	id := rec.job.ID
	delete(s.jobs, id)
	s.mu.Unlock()

	s.logger.Info().Str("job_id", id).Msg("fakeapi: job deleted")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func sanitizeFilename(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "", "\"", "'").Replace(name)
	if name == "" {
		name = "download"
	}
	return name
}
