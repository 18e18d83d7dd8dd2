// Package dispatch implements the JSON-RPC method router: envelope
// checks, method routing, tier gating, handler invocation, and the
// uniform translation of every failure into an error envelope. Dispatch
// is a total function; it never panics outward and never returns a Go
// error to the transport.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/bindings"
	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/jsonrpc"
	"github.com/calbridge/calbridge/internal/logging"
	"github.com/calbridge/calbridge/internal/registry"
	"github.com/calbridge/calbridge/internal/storage"
	"github.com/calbridge/calbridge/internal/tier"
	"github.com/calbridge/calbridge/internal/validate"
)

// Recorder receives dispatch outcomes for metrics. The nil Recorder is
// valid and records nothing.
type Recorder interface {
	RecordRequest(ctx context.Context, method string, code int)
	RecordToolCall(ctx context.Context, tool, callerTier, userDomain, outcome string, elapsed time.Duration)
	RecordTierDenial(ctx context.Context, tool, callerTier string)
}

// Engine routes authenticated JSON-RPC requests against a registry.
type Engine struct {
	registry *registry.Registry
	logger   *slog.Logger
	recorder Recorder
	audit    *instrumentation.AuditLogger
}

// New returns an engine over reg. logger must not be nil; recorder and
// audit may be.
func New(reg *registry.Registry, logger *slog.Logger, recorder Recorder, audit *instrumentation.AuditLogger) *Engine {
	return &Engine{registry: reg, logger: logger, recorder: recorder, audit: audit}
}

// Dispatch handles one authenticated request and always produces a
// response envelope echoing the request id.
func (e *Engine) Dispatch(ctx context.Context, user *auth.UserContext, req *jsonrpc.Request) *jsonrpc.Response {
	resp := e.route(ctx, user, req)
	if e.recorder != nil {
		code := 0
		if resp.Error != nil {
			code = resp.Error.Code
		}
		e.recorder.RecordRequest(ctx, req.MethodName(), code)
	}
	return resp
}

func (e *Engine) route(ctx context.Context, user *auth.UserContext, req *jsonrpc.Request) *jsonrpc.Response {
	if !req.Valid() {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidRequest, "Invalid Request")
	}

	switch req.MethodName() {
	case "tools/list":
		return jsonrpc.NewResult(req.ID, map[string]any{"tools": e.registry.Tools()})
	case "tools/call":
		return e.call(ctx, user, req)
	default:
		return jsonrpc.NewError(req.ID, jsonrpc.CodeMethodNotFound, "Method not found")
	}
}

func (e *Engine) call(ctx context.Context, user *auth.UserContext, req *jsonrpc.Request) *jsonrpc.Response {
	var params jsonrpc.CallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidParams, "Invalid params")
		}
	}
	name, ok := params.Name.(string)
	if !ok || name == "" {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidParams, "'name' must be a string")
	}

	def, ok := e.registry.Get(name)
	if !ok {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeMethodNotFound, "Tool not found: "+name)
	}

	// Tier gate runs before argument validation so a denied caller
	// triggers no side effects at all.
	if decision := tier.CheckAccess(name, def.RequiredTier, user.Tier); !decision.Allowed {
		if e.recorder != nil {
			e.recorder.RecordTierDenial(ctx, name, user.Tier.String())
		}
		e.logger.Info("tool call denied",
			logging.Tool(name),
			logging.TierName(user.Tier.String()),
			logging.UserHash(user.Email))
		return jsonrpc.NewErrorWithData(req.ID, jsonrpc.CodeInternalError,
			"Tier '"+decision.RequiredTier.String()+"' required for tool "+name,
			map[string]any{
				"code":          "TIER_REQUIRED",
				"required_tier": decision.RequiredTier.String(),
				"current_tier":  decision.CurrentTier.String(),
				"tool":          decision.Tool,
			})
	}

	start := time.Now()
	ctx, span := instrumentation.StartToolSpan(ctx, name,
		attribute.String(instrumentation.SpanAttrTier, user.Tier.String()))
	invocation := instrumentation.NewToolInvocation(name).
		WithUser(user.Email, user.Tier.String()).
		WithSpanContext(ctx)

	result, err := e.invoke(ctx, def, user, params.Arguments)
	elapsed := time.Since(start)

	outcome := "ok"
	var resp *jsonrpc.Response
	if err != nil {
		outcome = "error"
		instrumentation.SetSpanError(span, err)
		resp = e.errorResponse(req.ID, name, err)
	} else {
		instrumentation.SetSpanSuccess(span)
		resp = jsonrpc.NewResult(req.ID, result)
	}
	span.End()

	if e.audit != nil {
		e.audit.LogToolInvocation(invocation.Complete(err == nil, err))
	}
	if e.recorder != nil {
		e.recorder.RecordToolCall(ctx, name, user.Tier.String(), logging.ExtractDomain(user.Email), outcome, elapsed)
	}
	e.logger.Info("tool call",
		logging.Tool(name),
		logging.TierName(user.Tier.String()),
		logging.UserHash(user.Email),
		logging.Status(outcome),
		logging.Duration(elapsed))
	return resp
}

// invoke runs the handler, converting a panic into an error so the
// dispatcher stays total.
func (e *Engine) invoke(ctx context.Context, def registry.Definition, user *auth.UserContext, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool handler panicked",
				logging.Tool(def.Tool.Name),
				slog.Any("panic", r))
			err = errors.New("internal error")
		}
	}()
	return def.Handler(ctx, user, args)
}

// errorResponse applies the error taxonomy: validation and domain
// errors keep their message on -32602, everything else collapses to a
// generic -32603.
func (e *Engine) errorResponse(id json.RawMessage, tool string, err error) *jsonrpc.Response {
	var invalid *validate.InvalidParamsError
	if errors.As(err, &invalid) {
		return jsonrpc.NewError(id, jsonrpc.CodeInvalidParams, invalid.Message)
	}
	var notFound *storage.NotFoundError
	if errors.As(err, &notFound) {
		return jsonrpc.NewError(id, jsonrpc.CodeInvalidParams, notFound.Error())
	}
	var invalidState *storage.InvalidStateError
	if errors.As(err, &invalidState) {
		return jsonrpc.NewError(id, jsonrpc.CodeInvalidParams, invalidState.Message)
	}
	if errors.Is(err, bindings.ErrUnavailable) {
		e.logger.Warn("service binding unavailable", logging.Tool(tool))
		return jsonrpc.NewError(id, jsonrpc.CodeInternalError, "Service binding unavailable")
	}

	e.logger.Error("tool call failed", logging.Tool(tool), logging.Err(err))
	return jsonrpc.NewError(id, jsonrpc.CodeInternalError, "Internal error")
}
