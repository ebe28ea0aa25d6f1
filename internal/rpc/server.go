// Package rpc implements the `indexchan rpc` subcommand: a JSON-RPC server
// speaking newline-delimited JSON over stdin/stdout, exposing the indexer
// operations (scan, search, stats, gather_context, get_dependencies,
// get_dependents, validate_changes, preview_changes, apply_changes) to a
// driving process without shelling back out to the CLI for every call.
package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	cherrors "indexchan/internal/core/errors"
	"indexchan/internal/core/indexer"
	"indexchan/internal/data/store"
	"indexchan/internal/shared/util"
)

const storeBusyTimeout = 5 * time.Second

// defaultRequestsPerSecond/defaultBurst bound how fast a single driving
// process can hammer the RPC surface; apply_changes/scan are the expensive
// methods this is meant to smooth out, not the read-only ones.
const (
	defaultRequestsPerSecond = 50
	defaultBurst             = 100
)

// request is one line of RPC input.
type request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// response is one line of RPC output; exactly one of Result/Error is set.
type response struct {
	JSONRPC string    `json:"jsonrpc,omitempty"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server dispatches RPC requests against an indexer.Engine resolved per
// request from a "dir" param, matching the CLI's per-directory model.
type Server struct {
	in      io.Reader
	out     io.Writer
	limiter *util.Limiter
}

// New returns a Server reading from in and writing responses to out. It
// panics if a method's embedded JSON Schema is malformed, since that is a
// programming error in this package, not a runtime condition callers can
// recover from.
func New(in io.Reader, out io.Writer) *Server {
	if err := validateDescriptors(); err != nil {
		panic(err)
	}
	return &Server{in: in, out: out, limiter: util.NewLimiter(defaultRequestsPerSecond, defaultBurst)}
}

// NewStdio returns a Server wired to the process's stdin/stdout.
func NewStdio() *Server {
	return New(os.Stdin, os.Stdout)
}

// Serve reads one JSON request per line until EOF, dispatching each to the
// matching handler and writing back one JSON response per line. A
// malformed line produces an error response rather than terminating the
// loop; only a read error or EOF ends Serve.
func (s *Server) Serve() error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	writer := bufio.NewWriter(s.out)
	defer writer.Flush()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(writer, response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error: " + err.Error()}})
			continue
		}

		resp := s.dispatch(req)
		s.writeResponse(writer, resp)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}

func (s *Server) writeResponse(w *bufio.Writer, resp response) {
	resp.JSONRPC = "2.0"
	enc := json.NewEncoder(w)
	if err := enc.Encode(resp); err != nil {
		return
	}
	w.Flush()
}

func (s *Server) dispatch(req request) response {
	resp := response{ID: req.ID}

	if s.limiter != nil && !s.limiter.Allow(1) {
		resp.Error = &rpcError{Code: -32000, Message: "rate limit exceeded"}
		return resp
	}

	handler, ok := methods[req.Method]
	if !ok {
		resp.Error = &rpcError{Code: -32601, Message: fmt.Sprintf("unknown method %q", req.Method)}
		return resp
	}

	result, err := handler(req.Params)
	if err != nil {
		resp.Error = toRPCError(err)
		return resp
	}
	resp.Result = result
	return resp
}

func toRPCError(err error) *rpcError {
	return &rpcError{Code: cherrors.ExitCode(err), Message: err.Error()}
}

var methods = map[string]func(json.RawMessage) (any, error){
	"scan":             handleScan,
	"search":           handleSearch,
	"stats":            handleStats,
	"gather_context":   handleGatherContext,
	"get_dependencies": handleGetDependencies,
	"get_dependents":   handleGetDependents,
	"validate_changes": handleValidateChanges,
	"preview_changes":  handlePreviewChanges,
	"apply_changes":    handleApplyChanges,
	"describe":         handleDescribe,
}

// handleDescribe lets a driving process introspect the method/schema surface
// above without hand-maintaining a mirrored list on its own side.
func handleDescribe(json.RawMessage) (any, error) {
	return Descriptors(), nil
}

// baseParams is the set of fields every method accepts: dir names the
// project root, matching the CLI's positional <dir> argument.
type baseParams struct {
	Dir string `json:"dir"`
}

func openEngine(dir string) (*indexer.Engine, error) {
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeInput, "resolve dir")
	}
	cfg, err := indexer.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	return indexer.New(root, cfg)
}

func openStore(dir string) (*store.Store, func(), error) {
	eng, err := openEngine(dir)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(filepath.Join(eng.StateDir(), "store.db"), storeBusyTimeout)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { st.Close() }, nil
}

func unmarshalParams[T any](raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, cherrors.Wrap(err, cherrors.CodeInput, "decode params")
	}
	return p, nil
}
