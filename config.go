package guardpeep

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/obruchev/guardpeep/internal/peephole"
	"github.com/obruchev/guardpeep/ir"
)

// ExemptPolicy selects which instructions are allowed between a retain and
// the begin marker without breaking the match.
type ExemptPolicy int

const (
	ExemptPolicyInvalid ExemptPolicy = iota

	// ExemptPolicyDefault permits further retains, effect-free
	// instructions and debug annotations.
	ExemptPolicyDefault

	// ExemptPolicyStrict permits effect-free instructions and debug
	// annotations only; an intervening retain of another root drops the
	// candidate.
	ExemptPolicyStrict
)

var exemptPolicyValueMap = map[ExemptPolicy]string{
	ExemptPolicyDefault: "default",
	ExemptPolicyStrict:  "strict",
}

func (e ExemptPolicy) String() string {
	v, ok := exemptPolicyValueMap[e]
	if !ok {
		return fmt.Sprintf("invalid(%d)", int(e))
	}
	return v
}

// UnmarshalText for setting values with configs, CLI, etc.
func (e *ExemptPolicy) UnmarshalText(rawtext []byte) error {
	text := string(rawtext)
	for k, v := range exemptPolicyValueMap {
		if v == text {
			*e = k
			return nil
		}
	}
	return fmt.Errorf("unknown exempt policy %q", text)
}

// UnmarshalYAML delegates to UnmarshalText.
func (e *ExemptPolicy) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return e.UnmarshalText([]byte(s))
}

func (e ExemptPolicy) predicate() func(in ir.Instr) bool {
	switch e {
	case ExemptPolicyStrict:
		return func(in ir.Instr) bool {
			if _, ok := in.(*ir.DebugValue); ok {
				return true
			}
			return !in.MayHaveSideEffects()
		}
	default:
		return peephole.DefaultExempt
	}
}

// Config controls optional behaviors of the pass. Take DefaultConfig as the
// base; the zero value disables everything including nested cleaning.
type Config struct {
	// CleanNested removes fully enclosed retain/release pairs of the
	// pattern's own root inside an approved window.
	CleanNested bool `yaml:"clean_nested"`

	// MaxRewrites caps rewrites per function, 0 meaning no cap.
	MaxRewrites int `yaml:"max_rewrites"`

	// Trace records every approved rewrite for later inspection through
	// Pass.Rewrites.
	Trace bool `yaml:"trace"`

	// Exempt selects the contiguity exemption policy.
	Exempt ExemptPolicy `yaml:"exempt"`
}

// DefaultConfig mirrors the historical behavior of the pass: nested
// cleaning on, no cap, no tracing, default exemptions.
func DefaultConfig() *Config {
	return &Config{
		CleanNested: true,
		Exempt:      ExemptPolicyDefault,
	}
}

// LoadConfig reads a YAML configuration file. Omitted fields keep their
// defaults.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxRewrites < 0 {
		return fmt.Errorf("max_rewrites must not be negative, got %d", c.MaxRewrites)
	}
	if _, ok := exemptPolicyValueMap[c.Exempt]; !ok {
		return fmt.Errorf("unknown exempt policy value %d", int(c.Exempt))
	}
	return nil
}
