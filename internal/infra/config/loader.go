// Package config loads the gateway configuration from YAML, dotenv files and
// QUOTEGW_ environment variables.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"quotegw/internal/domain"
)

const EnvPrefix = "QUOTEGW"

var validDrivers = map[string]struct{}{
	"bolt":     {},
	"postgres": {},
	"memory":   {},
}

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger.Named("config")}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.listenAddress", domain.DefaultHTTPListenAddress)
	v.SetDefault("http.allowedOrigins", domain.DefaultAllowedOrigins)
	v.SetDefault("http.mcpPath", domain.DefaultMCPPath)
	v.SetDefault("store.driver", domain.DefaultStoreDriver)
	v.SetDefault("store.bolt.path", domain.DefaultBoltPath)
	v.SetDefault("store.bolt.bucket", domain.DefaultBoltBucket)
	v.SetDefault("store.postgres.url", "")
	v.SetDefault("fetcher.baseURL", domain.DefaultFetcherBaseURL)
	v.SetDefault("fetcher.timeoutSeconds", domain.DefaultFetcherTimeoutSeconds)
	v.SetDefault("observer.endpoint", "")
	v.SetDefault("observer.notifyTimeoutSeconds", domain.DefaultNotifyTimeoutSeconds)
	v.SetDefault("stream.heartbeatSeconds", domain.DefaultHeartbeatSeconds)
	v.SetDefault("stream.bufferSize", domain.DefaultStreamBufferSize)
	v.SetDefault("stream.deliverEvents", domain.DefaultStreamDeliverEvents)
	v.SetDefault("events.natsURL", "")
	v.SetDefault("events.subject", domain.DefaultEventsSubject)
	v.SetDefault("quotes.uniqueSuffix", domain.DefaultQuotesUniqueSuffix)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.metrics", domain.DefaultObservabilityMetrics)
}

type rawConfig struct {
	HTTP struct {
		ListenAddress  string   `mapstructure:"listenAddress"`
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
		MCPPath        string   `mapstructure:"mcpPath"`
	} `mapstructure:"http"`
	Store struct {
		Driver string `mapstructure:"driver"`
		Bolt   struct {
			Path   string `mapstructure:"path"`
			Bucket string `mapstructure:"bucket"`
		} `mapstructure:"bolt"`
		Postgres struct {
			URL string `mapstructure:"url"`
		} `mapstructure:"postgres"`
	} `mapstructure:"store"`
	Fetcher struct {
		BaseURL        string `mapstructure:"baseURL"`
		TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	} `mapstructure:"fetcher"`
	Observer struct {
		Endpoint             string `mapstructure:"endpoint"`
		NotifyTimeoutSeconds int    `mapstructure:"notifyTimeoutSeconds"`
	} `mapstructure:"observer"`
	Stream struct {
		HeartbeatSeconds int  `mapstructure:"heartbeatSeconds"`
		BufferSize       int  `mapstructure:"bufferSize"`
		DeliverEvents    bool `mapstructure:"deliverEvents"`
	} `mapstructure:"stream"`
	Events struct {
		NATSURL string `mapstructure:"natsURL"`
		Subject string `mapstructure:"subject"`
	} `mapstructure:"events"`
	Quotes struct {
		UniqueSuffix bool `mapstructure:"uniqueSuffix"`
	} `mapstructure:"quotes"`
	Observability struct {
		ListenAddress string `mapstructure:"listenAddress"`
		Metrics       bool   `mapstructure:"metrics"`
	} `mapstructure:"observability"`
}

// LoadDotEnv loads the given dotenv files into the process environment.
// Missing files are ignored; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads path (optional), applies defaults and environment overrides and
// validates the result. All validation problems are reported together.
func (l *Loader) Load(ctx context.Context, path string) (domain.Config, error) {
	v := newViper()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		expander := newEnvExpander()
		expanded, err := expander.expand(data)
		if err != nil {
			return domain.Config{}, err
		}
		if missing := expander.missingNames(); len(missing) > 0 {
			l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
		}
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return domain.Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Config{}, err
	}

	cfg := normalize(raw)
	if errs := Validate(cfg); len(errs) > 0 {
		return domain.Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

func normalize(raw rawConfig) domain.Config {
	origins := make([]string, 0, len(raw.HTTP.AllowedOrigins))
	for _, origin := range raw.HTTP.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return domain.Config{
		HTTP: domain.HTTPConfig{
			ListenAddress:  strings.TrimSpace(raw.HTTP.ListenAddress),
			AllowedOrigins: origins,
			MCPPath:        strings.TrimSpace(raw.HTTP.MCPPath),
		},
		Store: domain.StoreConfig{
			Driver: strings.ToLower(strings.TrimSpace(raw.Store.Driver)),
			Bolt: domain.BoltConfig{
				Path:   strings.TrimSpace(raw.Store.Bolt.Path),
				Bucket: strings.TrimSpace(raw.Store.Bolt.Bucket),
			},
			Postgres: domain.PostgresConfig{URL: strings.TrimSpace(raw.Store.Postgres.URL)},
		},
		Fetcher: domain.FetcherConfig{
			BaseURL:        strings.TrimSpace(raw.Fetcher.BaseURL),
			TimeoutSeconds: raw.Fetcher.TimeoutSeconds,
		},
		Observer: domain.ObserverConfig{
			Endpoint:             strings.TrimSpace(raw.Observer.Endpoint),
			NotifyTimeoutSeconds: raw.Observer.NotifyTimeoutSeconds,
		},
		Stream: domain.StreamConfig{
			HeartbeatSeconds: raw.Stream.HeartbeatSeconds,
			BufferSize:       raw.Stream.BufferSize,
			DeliverEvents:    raw.Stream.DeliverEvents,
		},
		Events: domain.EventsConfig{
			NATSURL: strings.TrimSpace(raw.Events.NATSURL),
			Subject: strings.TrimSpace(raw.Events.Subject),
		},
		Quotes: domain.QuotesConfig{UniqueSuffix: raw.Quotes.UniqueSuffix},
		Observability: domain.ObservabilityConfig{
			ListenAddress: strings.TrimSpace(raw.Observability.ListenAddress),
			Metrics:       raw.Observability.Metrics,
		},
	}
}

// Validate returns every problem found in cfg.
func Validate(cfg domain.Config) []string {
	var errs []string

	if !validHostPort(cfg.HTTP.ListenAddress) {
		errs = append(errs, fmt.Sprintf("http.listenAddress %q must be host:port", cfg.HTTP.ListenAddress))
	}
	if !strings.HasPrefix(cfg.HTTP.MCPPath, "/") {
		errs = append(errs, "http.mcpPath must start with /")
	}

	if _, ok := validDrivers[cfg.Store.Driver]; !ok {
		errs = append(errs, fmt.Sprintf("store.driver %q must be one of bolt, postgres, memory", cfg.Store.Driver))
	}
	switch cfg.Store.Driver {
	case "bolt":
		if cfg.Store.Bolt.Path == "" {
			errs = append(errs, "store.bolt.path is required for the bolt driver")
		}
		if cfg.Store.Bolt.Bucket == "" {
			errs = append(errs, "store.bolt.bucket is required for the bolt driver")
		}
	case "postgres":
		if cfg.Store.Postgres.URL == "" {
			errs = append(errs, "store.postgres.url is required for the postgres driver")
		}
	}

	if !absoluteHTTPURL(cfg.Fetcher.BaseURL) {
		errs = append(errs, fmt.Sprintf("fetcher.baseURL %q must be an absolute http(s) url", cfg.Fetcher.BaseURL))
	}
	if cfg.Fetcher.TimeoutSeconds <= 0 {
		errs = append(errs, "fetcher.timeoutSeconds must be > 0")
	}

	if cfg.Observer.Endpoint != "" && !absoluteHTTPURL(cfg.Observer.Endpoint) {
		errs = append(errs, fmt.Sprintf("observer.endpoint %q must be an absolute http(s) url", cfg.Observer.Endpoint))
	}
	if cfg.Observer.NotifyTimeoutSeconds <= 0 {
		errs = append(errs, "observer.notifyTimeoutSeconds must be > 0")
	}

	if cfg.Stream.HeartbeatSeconds <= 0 {
		errs = append(errs, "stream.heartbeatSeconds must be > 0")
	}
	if cfg.Stream.BufferSize <= 0 {
		errs = append(errs, "stream.bufferSize must be > 0")
	}

	if cfg.Events.NATSURL != "" && cfg.Events.Subject == "" {
		errs = append(errs, "events.subject is required when events.natsURL is set")
	}

	if cfg.Observability.Metrics && !validHostPort(cfg.Observability.ListenAddress) {
		errs = append(errs, fmt.Sprintf("observability.listenAddress %q must be host:port", cfg.Observability.ListenAddress))
	}
	return errs
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() domain.Config {
	var raw rawConfig
	// defaults always decode
	_ = newDefaultsOnlyViper().Unmarshal(&raw)
	return normalize(raw)
}

func newDefaultsOnlyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// Marshal renders cfg as YAML.
func Marshal(cfg domain.Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func validHostPort(addr string) bool {
	if addr == "" {
		return false
	}
	_, port, err := net.SplitHostPort(addr)
	return err == nil && port != ""
}

func absoluteHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
