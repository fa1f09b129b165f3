// Package download fetches a finished job's output into a FileStore.
package download

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"fileforge/internal/domain"
	"fileforge/internal/infra"
	"fileforge/internal/lifecycle"
	"fileforge/internal/storage"
)

// Fetcher downloads job outputs.
type Fetcher struct {
	httpClient *http.Client
	store      *storage.FileStore
	logger     *infra.Logger
}

// NewFetcher builds a Fetcher. The HTTP client should be the one used for
// the upload so the session cookie travels with the request.
func NewFetcher(httpClient *http.Client, store *storage.FileStore, logger *infra.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Fetcher{httpClient: httpClient, store: store, logger: logger}
}

// Fetch saves res's output under its suggested name and returns the path.
func (f *Fetcher) Fetch(ctx context.Context, res lifecycle.Result) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.DownloadURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("download: build request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", 0, &domain.Error{Kind: domain.KindTransport, Message: "Download failed. Please check your connection and try again.", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("Download failed (HTTP %d)", resp.StatusCode)
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil && body.Error != "" {
			msg = body.Error
		}
		return "", 0, &domain.Error{Kind: domain.KindServer, Message: msg, StatusCode: resp.StatusCode}
	}

	path, n, err := f.store.Save(ctx, res.DownloadName, resp.Body)
	if err != nil {
		return "", n, err
	}
	f.logger.Debug().Str("job_id", res.JobID).Str("path", path).Int64("bytes", n).Msg("download: saved output")
	return path, n, nil
}
