// Package wasmhost runs the crypto engine from a remote, version pinned
// WebAssembly bundle inside an extism sandbox.
package wasmhost

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	extism "github.com/extism/go-sdk"

	"github.com/sonr-io/keybridge/crypto/wasm"
)

// Pinned engine bundle. The version segment of the URL selects the engine
// build; SHA256 must match that build.
const (
	DefaultVersion   = "0.2.0"
	DefaultBundleURL = "https://cdn.sonr.io/keybridge-engine/" + DefaultVersion + "/engine.wasm"
)

var versionSegment = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

// Config describes where the engine bundle comes from and how it runs.
type Config struct {
	// BundleURL is the fully qualified bundle location
	BundleURL string `json:"bundle_url" toml:"bundle_url"`

	// SHA256 is the hex digest the fetched bundle must match
	SHA256 string `json:"sha256" toml:"sha256"`

	// MaxBundleSize bounds the downloaded bytes
	MaxBundleSize int `json:"max_bundle_size" toml:"max_bundle_size"`

	// KeyScheme and KDFProfile are handed to the guest as manifest config
	KeyScheme  string `json:"key_scheme" toml:"key_scheme"`
	KDFProfile string `json:"kdf_profile" toml:"kdf_profile"`

	// EnableWASI enables WebAssembly System Interface for the guest
	EnableWASI bool `json:"enable_wasi" toml:"enable_wasi"`

	// AllowInsecure permits plain http bundle URLs
	AllowInsecure bool `json:"allow_insecure" toml:"allow_insecure"`

	Timeouts TimeoutConfig `json:"timeouts" toml:"timeouts"`
}

// TimeoutConfig specifies timeout values for host operations.
type TimeoutConfig struct {
	// Fetch bounds bundle download including retries
	Fetch time.Duration `json:"fetch" toml:"fetch"`

	// PluginInit bounds plugin compilation and instantiation
	PluginInit time.Duration `json:"plugin_init" toml:"plugin_init"`

	// Call bounds a single guest call
	Call time.Duration `json:"call" toml:"call"`
}

// DefaultConfig returns the pinned bundle with conservative limits. The
// SHA256 pin has to be supplied by the deployment.
func DefaultConfig() *Config {
	return &Config{
		BundleURL:     DefaultBundleURL,
		MaxBundleSize: wasm.DefaultMaxBundleSize,
		KeyScheme:     "x25519",
		KDFProfile:    "default",
		EnableWASI:    true,
		Timeouts: TimeoutConfig{
			Fetch:      30 * time.Second,
			PluginInit: 15 * time.Second,
			Call:       10 * time.Second,
		},
	}
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BundleURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("bundle_url must be an absolute URL")
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !c.AllowInsecure {
			return fmt.Errorf("bundle_url must use https")
		}
	default:
		return fmt.Errorf("unsupported bundle_url scheme %q", u.Scheme)
	}

	if _, err := c.Version(); err != nil {
		return err
	}
	if len(c.SHA256) != 64 {
		return fmt.Errorf("sha256 pin is required")
	}
	if c.MaxBundleSize < 0 {
		return fmt.Errorf("max_bundle_size must not be negative")
	}
	switch c.KDFProfile {
	case "", "default", "light":
	default:
		return fmt.Errorf("unknown kdf_profile %q", c.KDFProfile)
	}
	return nil
}

// Version returns the version segment embedded in BundleURL.
func (c *Config) Version() (string, error) {
	u, err := url.Parse(c.BundleURL)
	if err != nil {
		return "", fmt.Errorf("parse bundle_url: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 2; i >= 0; i-- {
		if versionSegment.MatchString(segments[i]) {
			return segments[i], nil
		}
	}
	return "", fmt.Errorf("bundle_url %q carries no version segment", c.BundleURL)
}

// ToManifestConfig converts the configuration to guest config values.
func (c *Config) ToManifestConfig() map[string]string {
	version, _ := c.Version()
	return map[string]string{
		"engine_version": version,
		"key_scheme":     c.KeyScheme,
		"kdf_profile":    c.KDFProfile,
	}
}

// ToPluginConfig converts the configuration to extism plugin config.
func (c *Config) ToPluginConfig() extism.PluginConfig {
	return extism.PluginConfig{
		EnableWasi: c.EnableWASI,
	}
}
