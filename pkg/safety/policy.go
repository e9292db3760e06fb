package safety

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/orchestrator/pkg/config"
	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

// ToolPolicy is the per-tool entry of the safety policy document: the
// level the tool is normally dispatched at and whether it additionally
// wants confirmation even below the critical tier.
type ToolPolicy struct {
	Level                plan.SafetyLevel `yaml:"level"`
	RequiresConfirmation bool             `yaml:"requires_confirmation"`
}

// Policy is the YAML-shaped document mapping action_type -> tool -> policy,
// plus the allow-list and dangerous-command screen it governs (§4.3).
type Policy struct {
	Rules           map[string]map[string]ToolPolicy `yaml:"rules"`
	AllowedActions  []string                         `yaml:"allowed_actions"`
	DangerousPatterns []string                        `yaml:"dangerous_patterns"`
}

// defaultDangerousPatterns mirrors the Python original's hard-coded list
// (core/safety.py) — substrings that make an execute_command argument unsafe
// regardless of what the policy file says.
var defaultDangerousPatterns = []string{"rm -rf", "dd if=", "mkfs", "> /dev"}

// BuiltinPolicy returns the default policy applied when no policy file is
// configured or present — "the file only refines" (§9 design note).
func BuiltinPolicy(allowedActions []string) *Policy {
	return &Policy{
		Rules: map[string]map[string]ToolPolicy{
			"system_action": {
				"open_app":        {Level: plan.SafetyLow},
				"close_app":       {Level: plan.SafetyLow},
				"execute_command": {Level: plan.SafetyCritical, RequiresConfirmation: true},
			},
			"iot_action": {
				"toggle_light":  {Level: plan.SafetyLow},
				"set_thermostat": {Level: plan.SafetyMedium},
				"unlock_door":    {Level: plan.SafetyHigh, RequiresConfirmation: true},
			},
		},
		AllowedActions:    allowedActions,
		DangerousPatterns: defaultDangerousPatterns,
	}
}

// LoadPolicyFile loads a YAML policy document from path, using cfg's
// allowed-actions list and the built-in dangerous-pattern list as
// fall-through defaults for anything the file leaves unset. An empty path
// returns the built-in policy untouched.
func LoadPolicyFile(path string, cfg *config.Config) (*Policy, error) {
	base := BuiltinPolicy(cfg.AllowedActions)
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return base, nil
	}
	if err != nil {
		return nil, config.NewLoadError(path, err)
	}

	expanded := config.ExpandEnv(data)

	var fromFile Policy
	if err := yaml.Unmarshal(expanded, &fromFile); err != nil {
		return nil, config.NewLoadError(path, err)
	}

	if fromFile.Rules != nil {
		base.Rules = fromFile.Rules
	}
	if len(fromFile.AllowedActions) > 0 {
		base.AllowedActions = fromFile.AllowedActions
	}
	if len(fromFile.DangerousPatterns) > 0 {
		base.DangerousPatterns = fromFile.DangerousPatterns
	}

	return base, nil
}

// ToolLevel returns the configured safety level and confirmation flag for
// a tool under the given action type, falling back to (medium, false) when
// the policy has no opinion.
func (p *Policy) ToolLevel(actionType, tool string) (plan.SafetyLevel, bool) {
	if byTool, ok := p.Rules[actionType]; ok {
		if tp, ok := byTool[tool]; ok {
			return tp.Level, tp.RequiresConfirmation
		}
	}
	return plan.SafetyMedium, false
}

// Allowed reports whether tool appears in the policy's allow-list.
func (p *Policy) Allowed(tool string) bool {
	for _, t := range p.AllowedActions {
		if t == tool {
			return true
		}
	}
	return false
}
