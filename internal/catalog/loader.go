package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fileforge/internal/domain"
	"fileforge/internal/infra"
)

// Source tells where a loaded catalog came from.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceBuiltin Source = "builtin"
)

// Options configures a Loader.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Loader fetches the format catalog from the service.
type Loader struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewLoader constructs a loader; a nil HTTP client gets a short timeout.
func NewLoader(opts Options) *Loader {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Loader{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Load asks the service for its catalog and falls back to Builtin on any
// failure. Operations the service leaves out are taken from Builtin.
func (l *Loader) Load(ctx context.Context) (Catalog, Source) {
	remote, err := l.fetch(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("catalog: using built-in formats")
		return Builtin(), SourceBuiltin
	}
	builtin := Builtin()
	for _, op := range domain.Operations {
		if _, ok := remote[op]; !ok {
			l.logger.Debug().Str("operation", op.String()).Msg("catalog: operation missing from service, using built-in entry")
			remote[op] = builtin[op]
		}
	}
	return remote, SourceRemote
}

func (l *Loader) fetch(ctx context.Context) (Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/formats", nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog: status %d", resp.StatusCode)
	}
	var decoded map[string]Entry
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("catalog: decode response: %w", err)
	}
	out := make(Catalog, len(decoded))
	for name, entry := range decoded {
		op, err := domain.ParseOperation(name)
		if err != nil {
			l.logger.Debug().Str("operation", name).Msg("catalog: ignoring unknown operation")
			continue
		}
		out[op] = entry
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("catalog: service returned no known operations")
	}
	return out, nil
}
