// Package pipeline implements the orchestration engine (C5): the single
// entry point that sequences context retrieval, LLM planning, safety
// validation, bounded action execution, fire-and-forget memory storage,
// and response assembly for one request (§4.5).
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

// LLMGenerator is the capability the pipeline needs from the LLM
// collaborator.
type LLMGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// MemoryStore is the capability the pipeline needs from the memory
// collaborator.
type MemoryStore interface {
	Search(ctx context.Context, query string, limit int) []plan.MemoryHit
	Store(ctx context.Context, id, content string, metadata map[string]interface{}) bool
}

// ActionRunner is the capability the pipeline needs from the action
// executor (C4).
type ActionRunner interface {
	Run(ctx context.Context, p plan.Plan) []plan.ActionOutcome
}

// Validator is the capability the pipeline needs from the safety
// validator (C3).
type Validator interface {
	Validate(p plan.Plan) plan.ValidationVerdict
}

// AuditSink optionally persists a best-effort summary of a pipeline
// invocation (C9). Never blocks, never fails, the response.
type AuditSink interface {
	Record(ctx context.Context, requestID, content, intent string, status plan.ResponseStatus, outcomeCount, successCount int)
}

const memorySearchLimit = 5

// Pipeline wires the five collaborators together into the process() entry
// point used by both the HTTP handler and the session multiplexer.
type Pipeline struct {
	llm            LLMGenerator
	memory         MemoryStore
	validator      Validator
	executor       ActionRunner
	audit          AuditSink
	systemPrompt   string
	allowedActions []string
	requestTimeout time.Duration
	logger         *slog.Logger
}

// New constructs a Pipeline. audit may be nil when the audit log is
// disabled (§4.9).
func New(llm LLMGenerator, memory MemoryStore, validator Validator, exec ActionRunner, audit AuditSink, systemPrompt string, allowedActions []string, requestTimeout time.Duration, logger *slog.Logger) *Pipeline {
	if requestTimeout <= 0 {
		requestTimeout = 120 * time.Second
	}
	return &Pipeline{
		llm:            llm,
		memory:         memory,
		validator:      validator,
		executor:       exec,
		audit:          audit,
		systemPrompt:   systemPrompt,
		allowedActions: allowedActions,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// Process runs the seven stages of §4.5 for one request and returns
// exactly one PipelineResponse (P1).
func (p *Pipeline) Process(ctx context.Context, req plan.Request) plan.PipelineResponse {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	response := p.process(ctx, req)

	if ctx.Err() != nil && response.Status != plan.ResponseRejected {
		return plan.PipelineResponse{
			RequestID: req.ID,
			Status:    plan.ResponseError,
			Reason:    "deadline_exceeded",
			Timestamp: time.Now().UTC(),
		}
	}

	return response
}

func (p *Pipeline) process(ctx context.Context, req plan.Request) (response plan.PipelineResponse) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic", slog.String("request_id", req.ID), slog.Any("recover", r))
			response = plan.PipelineResponse{
				RequestID: req.ID,
				Status:    plan.ResponseError,
				Reason:    "internal",
				Timestamp: time.Now().UTC(),
			}
		}
	}()

	// Stage 1: context retrieval. Absorbed on failure (MemoryStore never
	// raises), so this call cannot itself produce an error path.
	memoryHits := p.memory.Search(ctx, req.Content, memorySearchLimit)

	// Stage 2+3: prompt assembly and plan generation.
	prompt := buildPrompt(p.systemPrompt, req, memoryHits, p.allowedActions)
	text, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		p.logger.Warn("llm generate failed", slog.String("request_id", req.ID), slog.String("error", err.Error()))
		resp := plan.PipelineResponse{
			RequestID: req.ID,
			Status:    plan.ResponseError,
			Reason:    "llm_unavailable",
			Timestamp: time.Now().UTC(),
		}
		p.recordAudit(ctx, req, nil, resp)
		return resp
	}

	parsed := plan.Parse(text)
	if parsed.IsError() {
		resp := plan.PipelineResponse{
			RequestID: req.ID,
			Status:    plan.ResponseError,
			Reason:    parsed.Error,
			Timestamp: time.Now().UTC(),
		}
		p.recordAudit(ctx, req, &parsed, resp)
		return resp
	}

	// Stage 4: validation.
	verdict := p.validator.Validate(parsed)
	if !verdict.Safe {
		resp := plan.PipelineResponse{
			RequestID: req.ID,
			Status:    plan.ResponseRejected,
			Reason:    verdict.Reason,
			Timestamp: time.Now().UTC(),
		}
		p.recordAudit(ctx, req, &parsed, resp)
		return resp
	}

	// Stage 5: execution.
	outcomes := p.executor.Run(ctx, parsed)

	// Stage 6: memory store, fire-and-forget (I4). A detached context with
	// its own short budget so cancellation of the parent request does not
	// rule out recording a response the caller already received.
	go func() {
		storeCtx, storeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer storeCancel()
		p.memory.Store(storeCtx, req.ID, req.Content, map[string]interface{}{
			"intent": parsed.Intent,
			"plan":   parsed,
			"status": statusFor(outcomes, len(parsed.Actions)),
		})
	}()

	// Stage 7: response assembly.
	status := statusFor(outcomes, len(parsed.Actions))
	successCount := countSuccess(outcomes)
	resp := plan.PipelineResponse{
		RequestID: req.ID,
		Status:    status,
		Plan:      &parsed,
		Results:   outcomes,
		Summary:   fmt.Sprintf("Executed %d/%d actions successfully.", successCount, len(parsed.Actions)),
		Timestamp: time.Now().UTC(),
	}
	p.recordAudit(ctx, req, &parsed, resp)
	return resp
}

// recordAudit persists a best-effort summary of one pipeline invocation
// (C9). Detached from ctx and run on its own goroutine with a short budget
// so a slow or unreachable database can never consume the request's
// remaining deadline or override an already-decided response (I4).
func (p *Pipeline) recordAudit(ctx context.Context, req plan.Request, parsedPlan *plan.Plan, resp plan.PipelineResponse) {
	if p.audit == nil {
		return
	}
	intent := ""
	if parsedPlan != nil {
		intent = parsedPlan.Intent
	}
	outcomeCount, successCount := len(resp.Results), countSuccess(resp.Results)
	go func() {
		auditCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p.audit.Record(auditCtx, req.ID, req.Content, intent, resp.Status, outcomeCount, successCount)
	}()
}

// statusFor derives the pipeline-level status from stage 5's outcomes:
// success only when every one of the plan's actions produced a success
// outcome; partial otherwise, including the stop-on-critical case where
// some actions were never dispatched (S6).
func statusFor(outcomes []plan.ActionOutcome, total int) plan.ResponseStatus {
	if total == 0 {
		return plan.ResponseSuccess
	}
	if countSuccess(outcomes) == total {
		return plan.ResponseSuccess
	}
	return plan.ResponsePartial
}

func countSuccess(outcomes []plan.ActionOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == plan.OutcomeSuccess {
			n++
		}
	}
	return n
}
