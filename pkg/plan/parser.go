package plan

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Parse error reasons, carried in Plan.Error on an error plan.
const (
	ReasonInvalidJSON  = "invalid_json"
	ReasonShapeInvalid = "shape_invalid"
	ReasonInternal     = "internal"
)

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*\\n?(.*?)\\n?```")
	anyFenceRe  = regexp.MustCompile("(?s)```\\w*\\s*\\n?(.*?)\\n?```")
)

// rawPlan mirrors the wire shape the LLM emits, before defaulting and
// enum coercion. Fields are untyped where the wire form is looser than the
// final Plan (e.g. safety_level as a bare string to be validated).
type rawPlan struct {
	Intent               string   `json:"intent"`
	Actions              []rawAction `json:"actions"`
	RequiresConfirmation *bool    `json:"requires_confirmation"`
	EstimatedDuration    *int     `json:"estimated_duration"`
	EstimatedDurationS   *int     `json:"estimated_duration_s"`
}

type rawAction struct {
	Type        string                 `json:"type"`
	Tool        string                 `json:"tool"`
	Arguments   map[string]interface{} `json:"arguments"`
	SafetyLevel *string                `json:"safety_level"`
	Description string                 `json:"description"`
	Critical    bool                   `json:"critical"`
}

// Parse recovers a typed Plan from free-form model output. It never panics
// or returns an error to the caller: any failure is reported as an error
// plan so the pipeline can short-circuit uniformly (C2's contract).
func Parse(text string) Plan {
	body := extractBody(text)

	var raw rawPlan
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return errorPlan(ReasonInvalidJSON)
	}

	actions := make([]Action, 0, len(raw.Actions))
	for _, ra := range raw.Actions {
		level := SafetyMedium
		if ra.SafetyLevel != nil {
			level = SafetyLevel(*ra.SafetyLevel)
			if !level.Valid() {
				return errorPlan(ReasonShapeInvalid)
			}
		}
		args := ra.Arguments
		if args == nil {
			args = map[string]interface{}{}
		}
		actions = append(actions, Action{
			Type:        ra.Type,
			Tool:        ra.Tool,
			Arguments:   args,
			SafetyLevel: level,
			Description: ra.Description,
			Critical:    ra.Critical,
		})
	}

	requiresConfirmation := false
	if raw.RequiresConfirmation != nil {
		requiresConfirmation = *raw.RequiresConfirmation
	}

	duration := 0
	if raw.EstimatedDurationS != nil {
		duration = *raw.EstimatedDurationS
	} else if raw.EstimatedDuration != nil {
		duration = *raw.EstimatedDuration
	}

	if raw.Intent == "" {
		return errorPlan(ReasonShapeInvalid)
	}

	return Plan{
		Intent:               raw.Intent,
		Actions:              actions,
		RequiresConfirmation: requiresConfirmation,
		EstimatedDurationS:   duration,
	}
}

// extractBody applies the fenced-block recovery rules in order: a
// ```json fence first, any fence second, the raw text otherwise.
func extractBody(text string) string {
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := anyFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

func errorPlan(reason string) Plan {
	return Plan{
		Intent:  "error",
		Actions: []Action{},
		Error:   reason,
	}
}
