package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// RuleSet evaluates field validation rules. A rule is either the name of a
// configured rule or an inline CEL expression over the number `value`
// returning bool.
type RuleSet struct {
	env   *cel.Env
	named map[string]string
	cache sync.Map // expression -> cel.Program
}

// builtinRules are available to every catalog.
var builtinRules = map[string]string{
	"percentage":  "value >= 0.0 && value <= 100.0",
	"nonNegative": "value >= 0.0",
}

// NewRuleSet compiles the named rules.
func NewRuleSet(named map[string]string) (*RuleSet, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DoubleType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("rule environment: %w", err)
	}
	rs := &RuleSet{env: env, named: make(map[string]string, len(builtinRules)+len(named))}
	for k, v := range builtinRules {
		rs.named[k] = v
	}
	for k, v := range named {
		rs.named[k] = v
	}
	for name := range rs.named {
		if err := rs.Compile(name); err != nil {
			return nil, fmt.Errorf("rule %s: %w", name, err)
		}
	}
	return rs, nil
}

// Compile checks a rule without evaluating it.
func (rs *RuleSet) Compile(rule string) error {
	_, err := rs.program(rule)
	return err
}

// Check evaluates a rule against value.
func (rs *RuleSet) Check(rule string, value float64) (bool, error) {
	prg, err := rs.program(rule)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{"value": value})
	if err != nil {
		return false, fmt.Errorf("evaluate rule %q: %w", rule, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("rule %q did not return bool", rule)
	}
	return ok, nil
}

func (rs *RuleSet) program(rule string) (cel.Program, error) {
	expr := strings.TrimSpace(rule)
	if named, ok := rs.named[expr]; ok {
		expr = named
	}
	if expr == "" {
		return nil, errors.New("expression required")
	}
	if cached, ok := rs.cache.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	ast, issues := rs.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.New("expression output type mismatch")
	}
	prg, err := rs.env.Program(ast)
	if err != nil {
		return nil, err
	}
	rs.cache.Store(expr, prg)
	return prg, nil
}
