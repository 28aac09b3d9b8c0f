// Package rpc implements the JSON-RPC 2.0 API server.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/txroot/config"
	"github.com/Klingon-tech/txroot/internal/blockstore"
	"github.com/Klingon-tech/txroot/internal/intake"
	klog "github.com/Klingon-tech/txroot/internal/log"
	"github.com/Klingon-tech/txroot/internal/mempool"
	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/tx"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// maxBatchSize caps the number of requests in one batch.
const maxBatchSize = 100

// submitTimeout bounds how long tx_submit waits for a full intake queue.
const submitTimeout = 5 * time.Second

// handlerFunc serves one JSON-RPC method.
type handlerFunc func(s *Server, req *Request) (interface{}, *Error)

// methods is the dispatch table.
var methods = map[string]handlerFunc{
	"merkle_root":        (*Server).handleMerkleRoot,
	"block_validate":     (*Server).handleBlockValidate,
	"block_get":          (*Server).handleBlockGet,
	"block_list":         (*Server).handleBlockList,
	"block_verify":       (*Server).handleBlockVerify,
	"tx_submit":          (*Server).handleTxSubmit,
	"tx_hash":            (*Server).handleTxHash,
	"mempool_getInfo":    (*Server).handleMempoolGetInfo,
	"mempool_getContent": (*Server).handleMempoolGetContent,
	"node_getStats":      (*Server).handleNodeGetStats,
}

// Intake is the part of the pipeline the server drives.
type Intake interface {
	Submit(ctx context.Context, t *tx.Transaction) error
	Stats() intake.Stats
}

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr        string
	tree        *merkle.Tree      // Default tree for merkle_root/block_validate.
	pool        *mempool.Pool     // For mempool_* and tx_submit (nil = disabled).
	store       *blockstore.Store // For block_get/block_list (nil = disabled).
	intake      Intake            // For tx_submit and node_getStats (nil = direct pool adds).
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	ipFilter    bool           // Set when an allow-list was configured.
	allowedNets []netip.Prefix // Nothing parsed = deny all when ipFilter is set.
	corsOrigins []string       // Empty = no CORS headers.
}

// New creates a new RPC server. The rpcCfg parameter controls IP filtering
// and CORS. A zero-value RPCConfig allows all IPs and disables CORS; an
// allow-list whose entries all fail to parse denies every client.
// A nil tree selects merkle.Default.
func New(addr string, tree *merkle.Tree, pool *mempool.Pool, store *blockstore.Store, rpcCfg ...config.RPCConfig) *Server {
	if tree == nil {
		tree = merkle.Default
	}
	s := &Server{
		addr:   addr,
		tree:   tree,
		pool:   pool,
		store:  store,
		logger: klog.RPC,
	}

	if len(rpcCfg) > 0 {
		entries := rpcCfg[0].AllowedIPs
		s.ipFilter = len(entries) > 0
		s.allowedNets = parseAllowedIPs(entries)
		if skipped := len(entries) - len(s.allowedNets); skipped > 0 {
			s.logger.Warn().Int("skipped", skipped).Strs("allowed", entries).Msg("Ignoring unparseable RPC allow-list entries")
		}
		s.corsOrigins = rpcCfg[0].CORSOrigins
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// SetIntake sets the pipeline used by tx_submit and node_getStats.
func (s *Server) SetIntake(in Intake) {
	s.intake = in
}

// parseAllowedIPs converts IP and CIDR entries into prefixes. A bare
// address becomes a single-host prefix; unparseable entries are skipped.
func parseAllowedIPs(entries []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if p, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleRequest is the HTTP entry point. The body is either one request
// object or a batch array of them.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if s.ipFilter && !s.isRemoteAllowed(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	s.setCORSHeaders(w, r)

	// CORS preflight.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		s.serveBatch(w, body)
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}
	writeJSON(w, s.call(&req))
}

// serveBatch answers a JSON-RPC batch with one response per element,
// in request order.
func (s *Server) serveBatch(w http.ResponseWriter, body []byte) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}
	if len(raws) == 0 {
		writeError(w, nil, CodeInvalidRequest, "empty batch")
		return
	}
	if len(raws) > maxBatchSize {
		writeError(w, nil, CodeInvalidRequest, fmt.Sprintf("batch exceeds %d requests", maxBatchSize))
		return
	}

	out := make([]Response, len(raws))
	for i, raw := range raws {
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			out[i] = Response{JSONRPC: "2.0", Error: &Error{Code: CodeInvalidRequest, Message: "invalid request object"}}
			continue
		}
		out[i] = s.call(&req)
	}
	writeJSON(w, out)
}

// call checks the envelope, runs the method and logs the outcome.
func (s *Server) call(req *Request) Response {
	if req.JSONRPC != "2.0" {
		return Response{JSONRPC: "2.0", Error: &Error{Code: CodeInvalidRequest, Message: `jsonrpc must be "2.0"`}, ID: req.ID}
	}

	start := time.Now()
	var (
		result interface{}
		rpcErr *Error
	)
	if h, ok := methods[req.Method]; ok {
		result, rpcErr = h(s, req)
	} else {
		rpcErr = &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}

	ev := s.logger.Debug().Str("method", req.Method).Dur("took", time.Since(start))
	if rpcErr != nil {
		ev.Int("code", rpcErr.Code).Msg("RPC call failed")
		return Response{JSONRPC: "2.0", Error: rpcErr, ID: req.ID}
	}
	ev.Msg("RPC call")
	return Response{JSONRPC: "2.0", Result: result, ID: req.ID}
}

// writeJSON writes a JSON-RPC response or batch.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// isRemoteAllowed checks a request's remote address against the allow-list.
func (s *Server) isRemoteAllowed(remote string) bool {
	ap, err := netip.ParseAddrPort(remote)
	if err != nil {
		return false
	}
	return s.isIPAllowed(ap.Addr())
}

// isIPAllowed checks if the address is in the allowed networks list.
func (s *Server) isIPAllowed(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range s.allowedNets {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	// Check if origin is allowed.
	allowed := false
	for _, o := range s.corsOrigins {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			allowed = true
			break
		}
		if o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			allowed = true
			break
		}
	}

	if allowed {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}
}

// parseParams unmarshals the request params into the given target.
func parseParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}

	data, err := json.Marshal(req.Params)
	if err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid params"}
	}

	if err := json.Unmarshal(data, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
