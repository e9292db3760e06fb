package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

// defaultSystemPrompt is the built-in fallback used when the Pipeline is
// constructed with an empty system prompt (there is no setting that loads
// one from a file), matching §9's "policy/prompt file absent -> built-in
// is the specification" design note.
const defaultSystemPrompt = "You are an autonomous assistant that plans actions for a user request."

// buildPrompt assembles the fixed-heading planning prompt exactly as laid
// out in §6 — the heading order is a wire contract with the LLM, not an
// implementation detail, so it must not be reordered or relabeled.
func buildPrompt(systemPrompt string, req plan.Request, memory []plan.MemoryHit, allowedActions []string) string {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n## User Request\n")
	b.WriteString(req.Content)
	b.WriteString("\n\n## Relevant Context\n")
	b.WriteString(mustJSON(map[string]interface{}{
		"relevant":    memory,
		"preferences": userPreferences(req),
	}))
	b.WriteString("\n\n## Available Actions\n")
	b.WriteString(mustJSON(allowedActions))
	b.WriteString("\n\n## Current State\n")
	b.WriteString(mustJSON(req.Context))
	b.WriteString("\n\n## Your Task\nGenerate a JSON execution plan.\n")
	return b.String()
}

// userPreferences recovers request.context.user_preferences, defaulting to
// an empty object when absent or the wrong shape (§4.5 stage 1).
func userPreferences(req plan.Request) map[string]interface{} {
	if prefs, ok := req.Context["user_preferences"].(map[string]interface{}); ok {
		return prefs
	}
	return map[string]interface{}{}
}

func mustJSON(v interface{}) string {
	if v == nil {
		v = map[string]interface{}{}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(out)
}
