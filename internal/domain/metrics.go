package domain

import "time"

// NotifyResult labels the outcome of a detached observer push.
type NotifyResult string

const (
	NotifyResultDelivered NotifyResult = "delivered"
	NotifyResultRejected  NotifyResult = "rejected"
	NotifyResultFailed    NotifyResult = "failed"
	NotifyResultTimeout   NotifyResult = "timeout"
)

// FetchStatus labels the outcome of a provider request.
type FetchStatus string

const (
	FetchStatusSuccess  FetchStatus = "success"
	FetchStatusNotFound FetchStatus = "not_found"
	FetchStatusError    FetchStatus = "error"
)

// ToolOutcome labels the outcome of a tool invocation.
type ToolOutcome string

const (
	ToolOutcomeSaved    ToolOutcome = "saved"
	ToolOutcomeNoMatch  ToolOutcome = "no_match"
	ToolOutcomeInvalid  ToolOutcome = "invalid"
	ToolOutcomeUpstream ToolOutcome = "upstream_error"
	ToolOutcomePersist  ToolOutcome = "persist_error"
	ToolOutcomeSuccess  ToolOutcome = "success"
	ToolOutcomeError    ToolOutcome = "error"
)

// Metrics records operational metrics for the gateway.
type Metrics interface {
	ObserveToolCall(tool string, outcome ToolOutcome, duration time.Duration)
	ObserveFetch(status FetchStatus, duration time.Duration)
	ObserveNotify(result NotifyResult, duration time.Duration)
	ObserveStoreOp(op string, err error)
	ObservePublish(publisher string, err error)
	AddActiveStreams(delta int)
	ObserveHeartbeat()
}
