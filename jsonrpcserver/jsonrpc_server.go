// Package jsonrpcserver exposes functions like:
// func Foo(context, int) (int, error)
// as JSON-RPC methods behind a Flashbots style relay endpoint.
//
// Requests may carry an X-Flashbots-Signature header. When present it is verified against the
// request body and the recovered address is available to methods via GetSigner.
package jsonrpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/mev-share-client-go/signature"
)

var (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeCustomError    = -32000
)

const (
	SignatureHeader    = signature.Header
	defaultMaxBodySize = 1 << 20
)

type signerKey struct{}

type JSONRPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      any               `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type JSONRPCResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      any              `json:"id"`
	Result  *json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError    `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *any   `json:"data,omitempty"`
}

type Methods map[string]any

type HandlerOpts struct {
	// RequireSignature rejects requests without a signature header.
	RequireSignature bool
	// MaxBodySize defaults to 1MiB.
	MaxBodySize int64
}

type Handler struct {
	methods map[string]*method
	opts    HandlerOpts
}

// NewHandler creates JSONRPC http.Handler from the map that maps method names to method functions
// each method function must:
// - have context as a first argument
// - return error as a last argument
// - have argument types that can be unmarshalled from JSON
// - have return types that can be marshalled to JSON
func NewHandler(methods Methods, opts HandlerOpts) (*Handler, error) {
	m := make(map[string]*method, len(methods))
	for name, fn := range methods {
		parsed, err := newMethod(fn)
		if err != nil {
			return nil, err
		}
		m[name] = parsed
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	return &Handler{
		methods: m,
		opts:    opts,
	}, nil
}

func writeJSONRPCError(w http.ResponseWriter, id any, code int, msg string) {
	res := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: msg,
		},
	}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, h.opts.MaxBodySize))
	if err != nil {
		writeJSONRPCError(w, nil, CodeParseError, err.Error())
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONRPCError(w, nil, CodeParseError, err.Error())
		return
	}

	if req.JSONRPC != "2.0" {
		writeJSONRPCError(w, req.ID, CodeParseError, "invalid jsonrpc version")
		return
	}
	switch req.ID.(type) {
	case nil, string, float64:
	default:
		writeJSONRPCError(w, nil, CodeInvalidRequest, "invalid id type")
		return
	}

	ctx := r.Context()
	signer, err := signature.Verify(r.Header.Get(SignatureHeader), body)
	switch {
	case err == nil:
		ctx = context.WithValue(ctx, signerKey{}, signer)
	case errors.Is(err, signature.ErrMissingSignature) && !h.opts.RequireSignature:
	default:
		writeJSONRPCError(w, req.ID, CodeInvalidRequest, err.Error())
		return
	}

	m, ok := h.methods[req.Method]
	if !ok {
		writeJSONRPCError(w, req.ID, CodeMethodNotFound, "method not found")
		return
	}

	result, err := m.call(ctx, req.Params)
	if err != nil {
		code := CodeCustomError
		if errors.Is(err, ErrInvalidParams) {
			code = CodeInvalidParams
		}
		writeJSONRPCError(w, req.ID, code, err.Error())
		return
	}

	marshaledResult, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, req.ID, CodeInternalError, err.Error())
		return
	}

	rawMessageResult := json.RawMessage(marshaledResult)
	res := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  &rawMessageResult,
	}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetSigner returns the verified request signer or the zero address for unsigned requests.
func GetSigner(ctx context.Context) common.Address {
	value, ok := ctx.Value(signerKey{}).(common.Address)
	if !ok {
		return common.Address{}
	}
	return value
}
