package fakeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fileforge/internal/catalog"
	"fileforge/internal/domain"
	"fileforge/internal/infra"
)

func newService(t *testing.T, opts Options) (*Server, *httptest.Server, *http.Client) {
	t.Helper()
	srv, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	client, err := infra.NewHTTPClient(5 * time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return srv, ts, client
}

type reply struct {
	status int
	header http.Header
	body   []byte
}

func (r reply) errorText(t *testing.T) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(r.body, &body); err != nil {
		t.Fatalf("decode error body %q: %v", r.body, err)
	}
	return body.Error
}

func (r reply) job(t *testing.T) domain.Job {
	t.Helper()
	var job domain.Job
	if err := json.Unmarshal(r.body, &job); err != nil {
		t.Fatalf("decode job %q: %v", r.body, err)
	}
	return job
}

func do(t *testing.T, client *http.Client, req *http.Request) reply {
	t.Helper()
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return reply{status: resp.StatusCode, header: resp.Header, body: body}
}

func postJob(t *testing.T, client *http.Client, base, fileName string, data []byte, fields map[string]string) reply {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write(data)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()
	req, _ := http.NewRequest(http.MethodPost, base+"/api/jobs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(t, client, req)
}

func get(t *testing.T, client *http.Client, url string) reply {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	return do(t, client, req)
}

func TestFormatsLoadThroughCatalogLoader(t *testing.T) {
	_, ts, client := newService(t, Options{})
	cat, src := catalog.NewLoader(catalog.Options{BaseURL: ts.URL, HTTPClient: client}).Load(context.Background())
	if src != catalog.SourceRemote {
		t.Fatalf("source = %s", src)
	}
	compress := cat[domain.OpImageCompress]
	if !compress.SameAsInput || compress.OutputChoices() != nil {
		t.Fatalf("image_compress should follow its input: %+v", compress)
	}
	if len(cat[domain.OpPDFCompress].Params) == 0 {
		t.Fatalf("pdf_compress params hint missing")
	}
	if got := cat[domain.OpImageRemoveBG].DefaultOutput; got != "png" {
		t.Fatalf("default output = %q", got)
	}
}

func TestCreateJobValidation(t *testing.T) {
	_, ts, client := newService(t, Options{})
	tests := []struct {
		name   string
		file   string
		data   []byte
		fields map[string]string
		want   string
	}{
		{name: "unknown operation", file: "a.png", data: []byte("x"), fields: map[string]string{"operation": "sharpen"}, want: `Invalid operation: "sharpen"`},
		{name: "no file", fields: map[string]string{"operation": "pdf_compress"}, want: "No file provided. Use field name 'file'."},
		{name: "empty file", file: "a.pdf", fields: map[string]string{"operation": "pdf_compress"}, want: "File is empty"},
		{name: "unsupported input", file: "notes.txt", data: []byte("x"), fields: map[string]string{"operation": "image_convert", "output_format": "png"}, want: "Unsupported input format .txt for image_convert"},
		{name: "missing output format", file: "a.png", data: []byte("x"), fields: map[string]string{"operation": "image_convert"}, want: "output_format is required for image_convert"},
		{name: "bad output format", file: "a.png", data: []byte("x"), fields: map[string]string{"operation": "image_convert", "output_format": "pdf"}, want: "unsupported output format: pdf"},
		{name: "remove bg format", file: "a.png", data: []byte("x"), fields: map[string]string{"operation": "image_remove_bg", "output_format": "jpeg"}, want: "background removal supports png or webp output"},
		{name: "quality range", file: "a.png", data: []byte("x"), fields: map[string]string{"operation": "image_compress", "quality": "0"}, want: "quality must be between 1 and 100"},
		{name: "dpi set", file: "a.pdf", data: []byte("x"), fields: map[string]string{"operation": "pdf_compress", "image_dpi": "200"}, want: "image_dpi must be 72, 150, 300, or 600"},
		{name: "dpi number", file: "a.pdf", data: []byte("x"), fields: map[string]string{"operation": "pdf_compress", "image_dpi": "high"}, want: "invalid image_dpi value"},
		{name: "image quality", file: "a.pdf", data: []byte("x"), fields: map[string]string{"operation": "pdf_compress", "image_quality": "101"}, want: "image_quality must be between 1 and 100"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rep := postJob(t, client, ts.URL, tc.file, tc.data, tc.fields)
			if rep.status != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rep.status, rep.body)
			}
			if got := rep.errorText(t); got != tc.want {
				t.Fatalf("error = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCreateJobRejectsOversizedFile(t *testing.T) {
	_, ts, client := newService(t, Options{MaxFileSize: 10})
	rep := postJob(t, client, ts.URL, "a.png", bytes.Repeat([]byte("x"), 11), map[string]string{"operation": "image_compress"})
	if rep.status != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rep.status)
	}
	if got := rep.errorText(t); got != "File too large (11 B). Maximum: 10 B" {
		t.Fatalf("error = %q", got)
	}
}

func TestJobProgressionAndDownload(t *testing.T) {
	srv, ts, client := newService(t, Options{PollsPerStage: 1})
	input := bytes.Repeat([]byte("p"), 1000)
	rep := postJob(t, client, ts.URL, "Photo.JPG", input, map[string]string{"operation": "image_compress"})
	if rep.status != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rep.status, rep.body)
	}
	created := rep.job(t)
	if created.Status != domain.JobStatusPending || created.InputSize != 1000 || created.OriginalName != "Photo.JPG" {
		t.Fatalf("created = %+v", created)
	}

	jobURL := ts.URL + "/api/jobs/" + created.ID
	if rep := get(t, client, jobURL+"/download"); rep.status != http.StatusConflict || rep.errorText(t) != "Job is still processing" {
		t.Fatalf("early download = %d %s", rep.status, rep.body)
	}

	var statuses []domain.JobStatus
	var last domain.Job
	for i := 0; i < 4; i++ {
		last = get(t, client, jobURL).job(t)
		statuses = append(statuses, last.Status)
	}
	want := []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobStatusCompleted}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", statuses, want)
		}
	}
	if last.OutputBytes() != 300 || last.OutputFilename != "Photo.jpeg" || last.CompletedAt == nil {
		t.Fatalf("completed job = %+v", last)
	}

	dl := get(t, client, jobURL+"/download")
	if dl.status != http.StatusOK || len(dl.body) != 300 {
		t.Fatalf("download = %d (%d bytes)", dl.status, len(dl.body))
	}
	if cd := dl.header.Get("Content-Disposition"); cd != `attachment; filename="Photo.jpeg"` {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if got, _ := srv.Job(created.ID); got.Status != domain.JobStatusCompleted {
		t.Fatalf("server view = %+v", got)
	}
}

func TestFailedJob(t *testing.T) {
	_, ts, client := newService(t, Options{
		Convert: func(domain.Operation, JobParams, []byte) ([]byte, error) {
			return nil, errors.New("decode error")
		},
	})
	created := postJob(t, client, ts.URL, "a.pdf", []byte("%PDF"), map[string]string{"operation": "pdf_compress"}).job(t)
	jobURL := ts.URL + "/api/jobs/" + created.ID
	job := get(t, client, jobURL).job(t)
	if job.Status != domain.JobStatusFailed || job.ErrorMessage != "decode error" {
		t.Fatalf("job = %+v", job)
	}
	if rep := get(t, client, jobURL+"/download"); rep.status != http.StatusUnprocessableEntity || rep.errorText(t) != "decode error" {
		t.Fatalf("download = %d %s", rep.status, rep.body)
	}
}

func TestJobLookupErrors(t *testing.T) {
	_, ts, client := newService(t, Options{RequireSession: true})
	if rep := get(t, client, ts.URL+"/api/jobs/not-a-uuid"); rep.status != http.StatusBadRequest || rep.errorText(t) != "Invalid job ID" {
		t.Fatalf("bad id = %d %s", rep.status, rep.body)
	}
	if rep := get(t, client, ts.URL+"/api/jobs/7f1c2a1e-5f6b-4a7e-9a55-2d0a0a4b6c11"); rep.status != http.StatusNotFound {
		t.Fatalf("missing job = %d", rep.status)
	}

	created := postJob(t, client, ts.URL, "a.mp4", []byte("video"), map[string]string{"operation": "video_compress"}).job(t)
	jobURL := ts.URL + "/api/jobs/" + created.ID
	if rep := get(t, client, jobURL); rep.status != http.StatusOK {
		t.Fatalf("owner lookup = %d", rep.status)
	}
	if rep := get(t, http.DefaultClient, jobURL); rep.status != http.StatusNotFound {
		t.Fatalf("foreign session lookup = %d, want 404", rep.status)
	}

	req, _ := http.NewRequest(http.MethodDelete, jobURL, nil)
	if rep := do(t, client, req); rep.status != http.StatusOK {
		t.Fatalf("delete = %d", rep.status)
	}
	if rep := get(t, client, jobURL); rep.status != http.StatusNotFound {
		t.Fatalf("lookup after delete = %d", rep.status)
	}
}

func TestRateLimitedJobs(t *testing.T) {
	_, ts, client := newService(t, Options{RateLimitPerHour: 1})
	if rep := get(t, client, ts.URL+"/api/jobs/7f1c2a1e-5f6b-4a7e-9a55-2d0a0a4b6c11"); rep.status != http.StatusNotFound {
		t.Fatalf("first request = %d", rep.status)
	}
	rep := postJob(t, client, ts.URL, "a.png", []byte("x"), map[string]string{"operation": "image_compress"})
	if rep.status != http.StatusTooManyRequests || rep.header.Get("Retry-After") == "" {
		t.Fatalf("second request = %d, Retry-After %q", rep.status, rep.header.Get("Retry-After"))
	}
	if rep := get(t, client, ts.URL+"/api/health"); rep.status != http.StatusOK {
		t.Fatalf("health should not be limited: %d", rep.status)
	}
}
