package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Version is the only JSON-RPC protocol version this server speaks.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes, plus the implementation-defined
// authentication code in the -32000..-32099 server range.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeAuthRequired   = -32000
)

// Request is the loosely-typed JSON-RPC request envelope. JSONRPC and
// Method are decoded as `any` so that a wrong-typed field is an Invalid
// Request (-32600) rather than a parse failure (-32700).
type Request struct {
	JSONRPC any             `json:"jsonrpc"`
	Method  any             `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Valid reports whether the envelope is structurally a JSON-RPC 2.0
// request: jsonrpc is exactly "2.0" and method is a string.
func (r *Request) Valid() bool {
	if v, ok := r.JSONRPC.(string); !ok || v != Version {
		return false
	}
	_, ok := r.Method.(string)
	return ok
}

// MethodName returns the method as a string, or "" if it is not one.
func (r *Request) MethodName() string {
	m, _ := r.Method.(string)
	return m
}

// CallParams is the params shape for tools/call. Name is decoded loosely
// so a non-string name maps to Invalid params rather than a decode error.
type CallParams struct {
	Name      any            `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result or Error is
// set. ID is echoed verbatim from the request; a nil RawMessage marshals
// as null, which is what the protocol requires when no id is known.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// NewResult builds a success response echoing the given id.
func NewResult(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, Result: result, ID: id}
}

// NewError builds an error response echoing the given id.
func NewError(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: Version, Error: &Error{Code: code, Message: message}, ID: id}
}

// NewErrorWithData builds an error response carrying structured data.
func NewErrorWithData(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{JSONRPC: Version, Error: &Error{Code: code, Message: message, Data: data}, ID: id}
}
