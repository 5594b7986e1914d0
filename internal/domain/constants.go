package domain

const (
	ServiceName = "quotegw"
	// Version is the gateway protocol version stamped onto every persisted quote.
	Version = "1.0.0"
)

const (
	QuoteKeyPrefix  = "quotes:"
	WildcardPattern = "*"
)

const (
	DefaultHTTPListenAddress          = "0.0.0.0:8100"
	DefaultMCPPath                    = "/mcp"
	DefaultStoreDriver                = "bolt"
	DefaultBoltPath                   = "data/quotegw.db"
	DefaultBoltBucket                 = "kv"
	DefaultFetcherBaseURL             = "https://api.api-ninjas.com/v1/quotes"
	DefaultFetcherTimeoutSeconds      = 10
	DefaultNotifyTimeoutSeconds       = 5
	DefaultHeartbeatSeconds           = 15
	DefaultStreamBufferSize           = 64
	DefaultStreamDeliverEvents        = true
	DefaultEventsSubject              = "quotegw.quote.added"
	DefaultQuotesUniqueSuffix         = false
	DefaultObservabilityListenAddress = "0.0.0.0:9090"
	DefaultObservabilityMetrics       = true
)

var DefaultAllowedOrigins = []string{"*"}
