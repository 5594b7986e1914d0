package domain

import "time"

// Config is the effective gateway configuration after defaults, file and
// environment overrides have been applied.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Store         StoreConfig         `yaml:"store"`
	Fetcher       FetcherConfig       `yaml:"fetcher"`
	Observer      ObserverConfig      `yaml:"observer"`
	Stream        StreamConfig        `yaml:"stream"`
	Events        EventsConfig        `yaml:"events"`
	Quotes        QuotesConfig        `yaml:"quotes"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type HTTPConfig struct {
	ListenAddress  string   `yaml:"listenAddress"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	MCPPath        string   `yaml:"mcpPath"`
}

type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	Bolt     BoltConfig     `yaml:"bolt"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type BoltConfig struct {
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

type FetcherConfig struct {
	BaseURL        string `yaml:"baseURL"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type ObserverConfig struct {
	Endpoint             string `yaml:"endpoint"`
	NotifyTimeoutSeconds int    `yaml:"notifyTimeoutSeconds"`
}

type StreamConfig struct {
	HeartbeatSeconds int  `yaml:"heartbeatSeconds"`
	BufferSize       int  `yaml:"bufferSize"`
	DeliverEvents    bool `yaml:"deliverEvents"`
}

type EventsConfig struct {
	NATSURL string `yaml:"natsURL"`
	Subject string `yaml:"subject"`
}

type QuotesConfig struct {
	UniqueSuffix bool `yaml:"uniqueSuffix"`
}

type ObservabilityConfig struct {
	ListenAddress string `yaml:"listenAddress"`
	Metrics       bool   `yaml:"metrics"`
}

func (c FetcherConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ObserverConfig) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutSeconds) * time.Second
}

func (c StreamConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}
