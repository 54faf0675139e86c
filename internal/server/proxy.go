package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/telhawk-systems/keyhawk/internal/api"
	"github.com/telhawk-systems/keyhawk/internal/logging"
)

// maxProxyBody caps request bodies forwarded to the licensing API.
const maxProxyBody = 1 << 20

// Proxy forwards /api/v1/{path...} to the licensing API through the
// authenticated client, so the browser never sees the bearer token.
type Proxy struct {
	client *api.Client
	logger *logging.Logger
	// onMutation runs after a successful write, e.g. to drop cached stats.
	onMutation func()
}

func NewProxy(client *api.Client, logger *logging.Logger, onMutation func()) *Proxy {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Proxy{client: client, logger: logger, onMutation: onMutation}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.Trim(r.PathValue("path"), "/")
	if endpoint == "" || strings.Contains(endpoint, "..") {
		writeJSONAPIError(w, http.StatusNotFound, "not_found", "Not Found", "unknown resource path")
		return
	}

	req := api.Request{
		Method:   r.Method,
		Endpoint: endpoint,
		Params:   r.URL.Query(),
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBody+1))
	if err != nil {
		writeJSONAPIError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "failed to read request body")
		return
	}
	if len(data) > maxProxyBody {
		writeJSONAPIError(w, http.StatusRequestEntityTooLarge, "body_too_large", "Request Entity Too Large", "request body exceeds 1MB")
		return
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if !json.Valid(data) {
			writeJSONAPIError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be a JSON:API document")
			return
		}
		req.Body = json.RawMessage(data)
	}

	resp, err := p.client.Do(r.Context(), req)
	if err != nil {
		p.logger.DebugContext(r.Context(), "proxied call failed",
			logging.Method(r.Method),
			logging.Path(endpoint),
			logging.Error(err),
		)
		writeError(w, err)
		return
	}

	if r.Method != http.MethodGet && p.onMutation != nil {
		p.onMutation()
	}

	if resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0 {
		w.WriteHeader(resp.StatusCode)
		return
	}
	w.Header().Set("Content-Type", api.MediaType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
