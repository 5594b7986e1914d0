package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/catalog"
)

// ResourceScheme prefixes store keys exposed as MCP resources.
const ResourceScheme = "quotegw"

// ResourceURI maps a store key to its MCP resource URI.
func ResourceURI(key string) string {
	return ResourceScheme + ":" + url.PathEscape(key)
}

// KeyFromURI reverses ResourceURI.
func KeyFromURI(uri string) (string, bool) {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme != ResourceScheme || parsed.Opaque == "" {
		return "", false
	}
	key, err := url.PathUnescape(parsed.Opaque)
	if err != nil {
		return "", false
	}
	return key, true
}

// MCPServer exposes the facade to MCP clients: registered tools as MCP tools
// and store keys as resources.
type MCPServer struct {
	facade *Facade
	server *mcp.Server
	logger *zap.Logger

	// syncMu orders reconciliation against event-driven additions.
	syncMu     sync.Mutex
	mu         sync.Mutex
	registered map[string]struct{}
}

func NewMCPServer(facade *Facade, logger *zap.Logger) *MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MCPServer{
		facade:     facade,
		logger:     logger.Named("mcp"),
		registered: make(map[string]struct{}),
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    domain.ServiceName,
		Version: domain.Version,
	}, &mcp.ServerOptions{
		HasTools:     true,
		HasResources: true,
	})
	s.server.AddReceivingMiddleware(s.resyncMiddleware())
	for _, spec := range facade.ListTools() {
		tool := mcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: map[string]any{"type": "object"},
		}
		if spec.InputSchema != nil {
			tool.InputSchema = spec.InputSchema
		}
		s.server.AddTool(&tool, s.toolHandler(spec.Name))
	}
	return s
}

// Server returns the underlying MCP server.
func (s *MCPServer) Server() *mcp.Server {
	return s.server
}

// Handler serves MCP over streamable HTTP.
func (s *MCPServer) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Sync reconciles the MCP resource list with the store: keys written by
// anyone are added and keys that went away are removed.
func (s *MCPServer) Sync(ctx context.Context) error {
	resources, err := s.facade.ListResources(ctx)
	if err != nil {
		return err
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	next := make(map[string]struct{}, len(resources))
	for _, resource := range resources {
		next[ResourceURI(resource.Key)] = struct{}{}
		s.addResource(resource.Key)
	}

	var remove []string
	s.mu.Lock()
	for uri := range s.registered {
		if _, ok := next[uri]; !ok {
			remove = append(remove, uri)
			delete(s.registered, uri)
		}
	}
	s.mu.Unlock()
	if len(remove) > 0 {
		s.server.RemoveResources(remove...)
	}
	return nil
}

// resyncMiddleware serves resources/list from the store as it is now.
func (s *MCPServer) resyncMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method == "resources/list" {
				if err := s.Sync(ctx); err != nil {
					s.logger.Warn("resource sync failed", zap.Error(err))
				}
			}
			return next(ctx, method, req)
		}
	}
}

// Publish registers the key of a newly written quote. It lets the MCP
// surface sit behind the same event fan-out as streams.
func (s *MCPServer) Publish(_ context.Context, event domain.Event) error {
	if event.Key != "" {
		s.syncMu.Lock()
		s.addResource(event.Key)
		s.syncMu.Unlock()
	}
	return nil
}

// Close ends every connected MCP session, including open streamable GETs.
func (s *MCPServer) Close() error {
	var errs []error
	for session := range s.server.Sessions() {
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *MCPServer) addResource(key string) {
	uri := ResourceURI(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registered[uri]; ok {
		return
	}
	s.server.AddResource(&mcp.Resource{
		URI:         uri,
		Name:        key,
		Description: string(catalog.ClassifyKey(key)) + " stored under " + key,
		MIMEType:    "application/json",
	}, s.readResource)
	s.registered[uri] = struct{}{}
}

func (s *MCPServer) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := ""
	if req != nil && req.Params != nil {
		uri = req.Params.URI
	}
	key, ok := KeyFromURI(uri)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	value, err := s.facade.ReadResource(ctx, key)
	if err != nil {
		if domain.IsCode(err, domain.CodeNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(value),
		}},
	}, nil
}

func (s *MCPServer) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		result, err := s.facade.InvokeTool(ctx, name, args)
		if err != nil && errors.Is(err, domain.ErrToolNotFound) {
			return nil, err
		}
		encoded, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			return nil, marshalErr
		}
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: string(encoded)}},
			StructuredContent: json.RawMessage(encoded),
			IsError:           !result.Success,
		}, nil
	}
}

var _ domain.Publisher = (*MCPServer)(nil)
