// Package safety implements the allow-list, per-tool policy, argument
// screening, and concurrency-cap checks the orchestration pipeline applies
// to a plan before dispatching any action (§4.3).
package safety

import (
	"strings"

	"github.com/codeready-toolchain/orchestrator/pkg/config"
	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

// Validator applies the safety policy to a Plan. It is deterministic and
// pure — the policy is read once at construction, never touched again
// (P4: validate(plan) is a pure function of plan given a fixed policy).
type Validator struct {
	policy                *Policy
	maxConcurrentActions  int
	sandboxEnabled        bool
}

// NewValidator builds a Validator bound to policy and cfg's concurrency cap
// and sandbox flag.
func NewValidator(policy *Policy, cfg *config.Config) *Validator {
	return &Validator{
		policy:               policy,
		maxConcurrentActions: cfg.MaxConcurrentActions,
		sandboxEnabled:       cfg.EnableSandbox,
	}
}

// Validate runs the rules of §4.3 in order and returns exactly one verdict.
func (v *Validator) Validate(p plan.Plan) plan.ValidationVerdict {
	if len(p.Actions) == 0 {
		return plan.ValidationVerdict{Safe: true, Reason: "no actions"}
	}

	requiresConfirmation := false
	for _, action := range p.Actions {
		if !v.policy.Allowed(action.Tool) {
			return plan.ValidationVerdict{Safe: false, Reason: "'" + action.Tool + "' not allowed"}
		}

		if action.SafetyLevel == plan.SafetyCritical {
			requiresConfirmation = true
			if !v.sandboxEnabled {
				return plan.ValidationVerdict{Safe: false, Reason: "critical requires sandbox"}
			}
		}
		_, toolConfirms := v.policy.ToolLevel(action.Type, action.Tool)
		if toolConfirms {
			requiresConfirmation = true
		}

		if reason, unsafe := v.screenArguments(action); unsafe {
			return plan.ValidationVerdict{Safe: false, Reason: reason}
		}
	}

	if len(p.Actions) > v.maxConcurrentActions {
		return plan.ValidationVerdict{Safe: false, Reason: "too many actions"}
	}

	return plan.ValidationVerdict{Safe: true, Reason: "ok", RequiresConfirmation: requiresConfirmation}
}

// screenArguments applies the tool-specific dangerous-argument checks.
// Today only execute_command is screened, matching the original source's
// hard-coded check (core/safety.py); other tools pass through untouched.
func (v *Validator) screenArguments(action plan.Action) (reason string, unsafe bool) {
	if action.Tool != "execute_command" {
		return "", false
	}
	cmd, _ := action.Arguments["command"].(string)
	for _, pattern := range v.policy.DangerousPatterns {
		if strings.Contains(cmd, pattern) {
			return "dangerous command: " + pattern, true
		}
	}
	return "", false
}
