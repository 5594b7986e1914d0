package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/catalog"
	"quotegw/internal/infra/telemetry"
)

const maxRequestBytes = 1 << 20

type HTTPOptions struct {
	AllowedOrigins []string
	MCPPath        string
	MCP            http.Handler
}

// errorBody is the JSON shape of every failed HTTP response.
type errorBody struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code"`
}

type addQuoteBody struct {
	APIKey   string `json:"apiKey"`
	Category string `json:"category"`
}

type addQuoteResponse struct {
	Saved   bool          `json:"saved"`
	Key     string        `json:"key,omitempty"`
	Quote   *domain.Quote `json:"quote,omitempty"`
	Message string        `json:"message,omitempty"`
}

type observerBody struct {
	Endpoint string `json:"endpoint"`
}

type storedResource struct {
	Key   string              `json:"key"`
	Kind  domain.ResourceKind `json:"kind"`
	Value json.RawMessage     `json:"value"`
}

// Handler builds the HTTP surface: facade routes, the push stream and the
// optional MCP endpoint, wrapped with CORS and request metadata.
func (f *Facade) Handler(opts HTTPOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /manifest", f.handleManifest)
	mux.HandleFunc("GET /ping", f.handlePing)
	mux.HandleFunc("GET /health", f.handleHealth)
	mux.HandleFunc("GET /resources", f.handleListResources)
	mux.HandleFunc("GET /resources/{key}", f.handleReadResource)
	mux.HandleFunc("GET /keys", f.handleListKeys)
	mux.HandleFunc("GET /tools", f.handleListTools)
	mux.HandleFunc("POST /tools/{name}", f.handleInvokeTool)
	mux.HandleFunc("POST /quotes", f.handleAddQuote)
	mux.HandleFunc("GET /quotes", f.handleListQuotes)
	mux.HandleFunc("POST /observer", f.handleRegisterObserver)
	if f.stream != nil {
		mux.Handle("GET /sse", f.stream)
	}
	if opts.MCP != nil {
		path := opts.MCPPath
		if path == "" {
			path = domain.DefaultMCPPath
		}
		mux.Handle(path, opts.MCP)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = domain.DefaultAllowedOrigins
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{telemetry.RequestIDHeader, "Mcp-Session-Id"},
	})
	return telemetry.RequestMiddleware(c.Handler(mux))
}

func (f *Facade) handleManifest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, f.Manifest())
}

func (f *Facade) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, f.Ping())
}

func (f *Facade) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, f.Health())
}

func (f *Facade) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := f.ListResources(r.Context())
	if err != nil {
		f.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

func (f *Facade) handleReadResource(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := f.ReadResource(r.Context(), key)
	if err != nil {
		f.writeError(w, r, err)
		return
	}
	body := storedResource{Key: key, Kind: catalog.ClassifyKey(key), Value: value}
	if !json.Valid(value) {
		encoded, _ := json.Marshal(string(value))
		body.Value = encoded
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *Facade) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := f.ListStoreKeys(r.Context())
	if err != nil {
		f.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (f *Facade) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, f.ListTools())
}

func (f *Facade) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	args, err := readBody(r)
	if err != nil {
		f.writeError(w, r, err)
		return
	}
	result, err := f.InvokeTool(r.Context(), r.PathValue("name"), args)
	status := http.StatusOK
	if err != nil {
		status = StatusFor(err)
	}
	writeJSON(w, status, result)
}

func (f *Facade) handleAddQuote(w http.ResponseWriter, r *http.Request) {
	var body addQuoteBody
	if err := decodeBody(r, &body); err != nil {
		f.writeError(w, r, err)
		return
	}
	result, err := f.InvokeAddQuote(r.Context(), domain.AddQuoteRequest{Credential: body.APIKey, Category: body.Category})
	if err != nil {
		f.writeError(w, r, err)
		return
	}
	if !result.Saved() {
		writeJSON(w, http.StatusNotFound, addQuoteResponse{Saved: false, Message: "no quote matched"})
		return
	}
	writeJSON(w, http.StatusOK, addQuoteResponse{Saved: true, Key: result.Key, Quote: result.Quote})
}

func (f *Facade) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := f.ListQuotes(r.Context())
	if err != nil {
		f.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (f *Facade) handleRegisterObserver(w http.ResponseWriter, r *http.Request) {
	var body observerBody
	if err := decodeBody(r, &body); err != nil {
		f.writeError(w, r, err)
		return
	}
	registration, err := f.RegisterObserver(body.Endpoint)
	if err != nil {
		f.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registration)
}

// StatusFor maps an error to the HTTP status callers observe.
func StatusFor(err error) int {
	code, _ := domain.CodeFrom(err)
	switch code {
	case domain.CodeInvalidArgument:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeUpstream:
		return http.StatusBadGateway
	case domain.CodePersist:
		return http.StatusInternalServerError
	case domain.CodeUnavailable:
		return http.StatusServiceUnavailable
	case domain.CodeCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func (f *Facade) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	code, ok := domain.CodeFrom(err)
	if !ok {
		code = domain.CodeInternal
	}
	if status >= http.StatusInternalServerError {
		f.logger.Warn("request failed",
			append(telemetry.RequestFieldsFromContext(r.Context()),
				zap.Int("status", status),
				zap.Error(err),
			)...,
		)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(r *http.Request) (json.RawMessage, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "gateway.readBody", "read request body", err)
	}
	return json.RawMessage(data), nil
}

func decodeBody(r *http.Request, v any) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		var syntaxErr *json.SyntaxError
		msg := "request body must be a json object"
		if errors.As(err, &syntaxErr) {
			msg = "malformed json body"
		}
		return domain.E(domain.CodeInvalidArgument, "gateway.decodeBody", msg, err)
	}
	return nil
}
