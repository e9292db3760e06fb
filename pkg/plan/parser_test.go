package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptyPlan(t *testing.T) {
	p := Parse(`{"intent":"noop","actions":[]}`)
	require.False(t, p.IsError())
	assert.Equal(t, "noop", p.Intent)
	assert.Empty(t, p.Actions)
	assert.False(t, p.RequiresConfirmation)
	assert.Equal(t, 0, p.EstimatedDurationS)
}

func TestParse_FencedJSONBlock(t *testing.T) {
	text := "Sure thing, here's the plan:\n```json\n" +
		`{"intent":"open firefox","actions":[{"type":"system_action","tool":"open_app","arguments":{"name":"firefox"},"safety_level":"low"}],"requires_confirmation":false,"estimated_duration":2}` +
		"\n```\nLet me know if that works."

	p := Parse(text)
	require.False(t, p.IsError())
	assert.Equal(t, "open firefox", p.Intent)
	require.Len(t, p.Actions, 1)
	assert.Equal(t, "open_app", p.Actions[0].Tool)
	assert.Equal(t, SafetyLow, p.Actions[0].SafetyLevel)
	assert.Equal(t, 2, p.EstimatedDurationS)
}

func TestParse_GenericFenceFallback(t *testing.T) {
	text := "```\n" + `{"intent":"noop","actions":[]}` + "\n```"
	p := Parse(text)
	require.False(t, p.IsError())
	assert.Equal(t, "noop", p.Intent)
}

func TestParse_FencedEquivalentToBareJSON(t *testing.T) {
	bare := `{"intent":"noop","actions":[]}`
	fenced := "```json\n" + bare + "\n```"

	assert.Equal(t, Parse(bare), Parse(fenced))
}

func TestParse_MalformedOutputYieldsErrorPlan(t *testing.T) {
	p := Parse("hello there")
	assert.True(t, p.IsError())
	assert.Equal(t, ReasonInvalidJSON, p.Error)
	assert.Empty(t, p.Actions)
}

func TestParse_UnknownSafetyLevelYieldsShapeInvalid(t *testing.T) {
	text := `{"intent":"x","actions":[{"type":"system_action","tool":"t","safety_level":"extreme"}]}`
	p := Parse(text)
	assert.True(t, p.IsError())
	assert.Equal(t, ReasonShapeInvalid, p.Error)
}

func TestParse_MissingIntentYieldsShapeInvalid(t *testing.T) {
	p := Parse(`{"actions":[]}`)
	assert.True(t, p.IsError())
	assert.Equal(t, ReasonShapeInvalid, p.Error)
}

func TestParse_DefaultsAppliedWhenFieldsMissing(t *testing.T) {
	p := Parse(`{"intent":"x","actions":[{"type":"system_action","tool":"t"}]}`)
	require.False(t, p.IsError())
	require.Len(t, p.Actions, 1)
	assert.Equal(t, SafetyMedium, p.Actions[0].SafetyLevel)
	assert.NotNil(t, p.Actions[0].Arguments)
	assert.Empty(t, p.Actions[0].Arguments)
}

func TestParse_IdempotentOnItsOwnOutput(t *testing.T) {
	first := Parse(`{"intent":"x","actions":[{"type":"system_action","tool":"t","safety_level":"high"}]}`)
	serialized := `{"intent":"x","actions":[{"type":"system_action","tool":"t","safety_level":"high","arguments":{}}]}`
	second := Parse(serialized)
	assert.Equal(t, first.Intent, second.Intent)
	assert.Equal(t, first.Actions, second.Actions)
}
