// Package executor dispatches a Plan's actions in order, enforcing a
// per-action timeout and stop-on-critical semantics (§4.4).
package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/orchestrator/pkg/clients"
	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

// ActionClient is the capability the executor needs from the action-exec
// collaborator — a narrow interface so tests can inject a deterministic
// double instead of a real HTTP round trip (§9's "duck-typed collaborator
// clients -> capability interface" redesign note).
type ActionClient interface {
	Execute(ctx context.Context, action plan.Action) (clients.ExecuteResult, error)
}

// Executor runs a plan's actions sequentially against an ActionClient.
type Executor struct {
	client        ActionClient
	actionTimeout time.Duration
	dryRun        bool
	logger        *slog.Logger
}

// New constructs an Executor with the configured per-action timeout
// (default 30s per §4.4). When dryRun is true, actions are never sent to
// the action-exec collaborator — each yields a synthetic success outcome,
// mirroring the original source's action_executor dry-run short-circuit
// (DRY_RUN_MODE logs "would execute" and returns without side effects).
func New(client ActionClient, actionTimeout time.Duration, dryRun bool, logger *slog.Logger) *Executor {
	if actionTimeout <= 0 {
		actionTimeout = 30 * time.Second
	}
	return &Executor{client: client, actionTimeout: actionTimeout, dryRun: dryRun, logger: logger}
}

// Run executes plan's actions in declared order. Each action gets its own
// ACTION_TIMEOUT deadline; on the first non-success outcome whose action
// carries Critical == true, dispatch halts and the outcomes collected so
// far are returned (I1, I3 for the "partial" derivation upstream).
func (e *Executor) Run(ctx context.Context, p plan.Plan) []plan.ActionOutcome {
	outcomes := make([]plan.ActionOutcome, 0, len(p.Actions))

	for _, action := range p.Actions {
		outcome := e.runOne(ctx, action)
		outcomes = append(outcomes, outcome)

		if outcome.Status != plan.OutcomeSuccess && action.Critical {
			e.logger.Info("stop-on-critical halted dispatch",
				slog.String("tool", action.Tool),
				slog.String("status", string(outcome.Status)),
			)
			break
		}
	}

	return outcomes
}

func (e *Executor) runOne(ctx context.Context, action plan.Action) plan.ActionOutcome {
	if e.dryRun {
		e.logger.Info("dry run: would execute", slog.String("tool", action.Tool))
		return plan.ActionOutcome{
			Action:    action.Tool,
			Status:    plan.OutcomeSuccess,
			Result:    "dry run - no action taken",
			Timestamp: time.Now().UTC(),
		}
	}

	actionCtx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	start := time.Now()
	result, err := e.client.Execute(actionCtx, action)
	elapsed := time.Since(start).Seconds()
	now := time.Now().UTC()

	if err != nil {
		if errors.Is(actionCtx.Err(), context.DeadlineExceeded) {
			return plan.ActionOutcome{
				Action:         action.Tool,
				Status:         plan.OutcomeTimeout,
				ExecutionTimeS: e.actionTimeout.Seconds(),
				Timestamp:      now,
			}
		}
		e.logger.Warn("action execution failed", slog.String("tool", action.Tool), slog.String("error", err.Error()))
		return plan.ActionOutcome{
			Action:         action.Tool,
			Status:         plan.OutcomeError,
			Error:          err.Error(),
			ExecutionTimeS: elapsed,
			Timestamp:      now,
		}
	}

	if result.Status != "success" {
		return plan.ActionOutcome{
			Action:         action.Tool,
			Status:         plan.OutcomeError,
			Error:          result.Error,
			ExecutionTimeS: elapsed,
			Timestamp:      now,
		}
	}

	return plan.ActionOutcome{
		Action:         action.Tool,
		Status:         plan.OutcomeSuccess,
		Result:         result.Result,
		ExecutionTimeS: elapsed,
		Timestamp:      now,
	}
}
