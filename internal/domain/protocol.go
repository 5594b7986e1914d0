package domain

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Operation names exposed by the gateway facade.
const (
	OpGetManifest      = "getManifest"
	OpPing             = "ping"
	OpListResources    = "listResources"
	OpReadResource     = "readResource"
	OpListStoreKeys    = "listStoreKeys"
	OpListTools        = "listTools"
	OpInvokeTool       = "invokeTool"
	OpRegisterObserver = "registerObserver"
	OpInvokeAddQuote   = "invokeAddQuote"
	OpListQuotes       = "listQuotes"
	OpOpenStream       = "openStream"
)

// Operations is the static operation list advertised by the manifest.
var Operations = []string{
	OpGetManifest,
	OpPing,
	OpListResources,
	OpReadResource,
	OpListStoreKeys,
	OpListTools,
	OpInvokeTool,
	OpRegisterObserver,
	OpInvokeAddQuote,
	OpListQuotes,
	OpOpenStream,
}

type Manifest struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Operations []string `json:"operations"`
}

type PingStatus struct {
	Status   string  `json:"status"`
	Name     string  `json:"name"`
	Version  string  `json:"version"`
	Observer *string `json:"observer"`
}

type ObserverRegistration struct {
	Registered bool   `json:"registered"`
	Endpoint   string `json:"endpoint"`
}

// ToolSpec describes a named tool and its argument schema.
type ToolSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// ToolResult is the uniform result envelope returned by every tool.
type ToolResult struct {
	Success bool        `json:"success"`
	Data    any         `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Outcome ToolOutcome `json:"-"`
}

// Tool is a named side-effecting operation with a fixed argument schema.
type Tool interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, args json.RawMessage) (ToolResult, error)
}
