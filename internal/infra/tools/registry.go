// Package tools holds the named tools the gateway exposes and the addQuote
// invoker.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/telemetry"
)

type registeredTool struct {
	tool     domain.Tool
	spec     domain.ToolSpec
	resolved *jsonschema.Resolved
}

// Registry maps tool names to tools and validates arguments before dispatch.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*registeredTool
	order   []string
	logger  *zap.Logger
	metrics domain.Metrics
}

func NewRegistry(logger *zap.Logger, metrics domain.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Registry{
		tools:   make(map[string]*registeredTool),
		logger:  logger.Named("tools"),
		metrics: metrics,
	}
}

func (r *Registry) Register(tool domain.Tool) error {
	spec := tool.Spec()
	if spec.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	entry := &registeredTool{tool: tool, spec: spec}
	if spec.InputSchema != nil {
		resolved, err := spec.InputSchema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("resolve schema for %s: %w", spec.Name, err)
		}
		entry.resolved = resolved
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("tool %q already registered", spec.Name)
	}
	r.tools[spec.Name] = entry
	r.order = append(r.order, spec.Name)
	return nil
}

// List returns tool specs in registration order.
func (r *Registry) List() []domain.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]domain.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].spec)
	}
	return specs
}

// Invoke validates args against the tool schema and dispatches the call. The
// returned result is always a complete envelope, also when err is non-nil.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (domain.ToolResult, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		err := domain.E(domain.CodeNotFound, "tools.Invoke", fmt.Sprintf("tool %q not found", name), domain.ErrToolNotFound)
		return failure(err), err
	}

	start := time.Now()
	result, err := r.dispatch(ctx, entry, args)
	duration := time.Since(start)
	if err != nil && result.Error == "" {
		result = failure(err)
	}
	if result.Outcome == "" {
		result.Outcome = outcomeFor(result, err)
	}
	r.metrics.ObserveToolCall(name, result.Outcome, duration)

	fields := append(telemetry.RequestFieldsFromContext(ctx),
		telemetry.ToolField(name),
		zap.String("outcome", string(result.Outcome)),
		telemetry.DurationField(duration),
	)
	if err != nil {
		r.logger.Info("tool call failed", append(fields, zap.Error(err))...)
	} else {
		r.logger.Debug("tool call completed", fields...)
	}
	return result, err
}

func (r *Registry) dispatch(ctx context.Context, entry *registeredTool, args json.RawMessage) (domain.ToolResult, error) {
	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = json.RawMessage(`{}`)
	}
	if entry.resolved != nil {
		var instance any
		if err := json.Unmarshal(args, &instance); err != nil {
			return domain.ToolResult{}, domain.E(domain.CodeInvalidArgument, "tools.Invoke", "arguments must be valid json", err)
		}
		if err := entry.resolved.Validate(instance); err != nil {
			return domain.ToolResult{}, domain.E(domain.CodeInvalidArgument, "tools.Invoke", err.Error(), err)
		}
	}
	return entry.tool.Invoke(ctx, args)
}

func failure(err error) domain.ToolResult {
	return domain.ToolResult{Success: false, Error: err.Error()}
}

func outcomeFor(result domain.ToolResult, err error) domain.ToolOutcome {
	if err == nil {
		if result.Success {
			return domain.ToolOutcomeSuccess
		}
		return domain.ToolOutcomeError
	}
	code, _ := domain.CodeFrom(err)
	switch code {
	case domain.CodeInvalidArgument:
		return domain.ToolOutcomeInvalid
	case domain.CodeUpstream:
		return domain.ToolOutcomeUpstream
	case domain.CodePersist:
		return domain.ToolOutcomePersist
	default:
		return domain.ToolOutcomeError
	}
}
