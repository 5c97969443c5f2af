package wasmhost

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/crypto/wasm"
)

// Fetcher downloads and verifies engine bundles.
type Fetcher struct {
	client *retryablehttp.Client
	log    zerolog.Logger
}

// NewFetcher returns a fetcher with three retries. httpClient may be nil.
func NewFetcher(httpClient *http.Client, log zerolog.Logger) *Fetcher {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.Logger = leveledLogger{log: log}
	if httpClient != nil {
		c.HTTPClient = httpClient
	}
	return &Fetcher{client: c, log: log}
}

// Fetch downloads cfg.BundleURL and checks it against cfg.SHA256.
func (f *Fetcher) Fetch(ctx context.Context, cfg *Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if cfg.Timeouts.Fetch > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeouts.Fetch)
		defer cancel()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, cfg.BundleURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build bundle request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch engine bundle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch engine bundle: unexpected status %s", resp.Status)
	}

	limit := cfg.MaxBundleSize
	if limit <= 0 {
		limit = wasm.DefaultMaxBundleSize
	}
	// one extra byte lets the verifier see an oversized bundle
	bundle, err := io.ReadAll(io.LimitReader(resp.Body, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("read engine bundle: %w", err)
	}

	verifier := wasm.NewBundleVerifier(limit)
	verifier.Pin(cfg.BundleURL, cfg.SHA256)
	if err := verifier.Verify(cfg.BundleURL, bundle); err != nil {
		return nil, err
	}

	version, _ := cfg.Version()
	f.log.Info().Str("version", version).Int("bytes", len(bundle)).Msg("engine bundle verified")
	return bundle, nil
}

// leveledLogger routes retryablehttp logs to zerolog.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debug().Fields(kv).Msg(msg) }
