// Package policy provides CEL-based admission control for run requests.
package policy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	ErrInvalidRuleExpr = errors.New("invalid policy expression")
	ErrRuleEvaluation  = errors.New("policy evaluation failed")
	ErrDenied          = errors.New("request denied by policy")
)

// DeniedError names the rule that rejected a request.
type DeniedError struct {
	Rule string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("request denied by policy rule %q", e.Rule)
}

func (e *DeniedError) Unwrap() error { return ErrDenied }

// Engine evaluates configured admission rules before every run. Every
// rule must evaluate to true for the request to be admitted; an empty
// rule set admits everything.
type Engine struct {
	env      *cel.Env
	programs map[string]cel.Program
	mu       sync.RWMutex
}

// EvalContext carries the variables exposed to rule expressions.
type EvalContext struct {
	// Artifact describes the target artifact (id, class, entry points).
	Artifact map[string]any
	// Request describes the run request (function, timeout, requester).
	Request map[string]any
}

// NewEngine compiles the given rules into a ready engine.
func NewEngine(rules map[string]string) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("artifact", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	e := &Engine{
		env:      env,
		programs: make(map[string]cel.Program),
	}

	for name, expr := range rules {
		if err := e.compile(name, expr); err != nil {
			return nil, fmt.Errorf("compiling rule %q: %w", name, err)
		}
	}

	return e, nil
}

func (e *Engine) compile(name, expr string) error {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRuleExpr, issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return fmt.Errorf("creating program: %w", err)
	}

	e.mu.Lock()
	e.programs[name] = program
	e.mu.Unlock()
	return nil
}

// Admit evaluates all rules against the context. It returns a
// DeniedError naming the first rule (in name order) that evaluates to
// false, or an ErrRuleEvaluation wrapper when a rule cannot be evaluated.
func (e *Engine) Admit(evalCtx *EvalContext) error {
	e.mu.RLock()
	names := make([]string, 0, len(e.programs))
	for name := range e.programs {
		names = append(names, name)
	}
	sort.Strings(names)
	e.mu.RUnlock()

	vars := map[string]any{
		"artifact": evalCtx.Artifact,
		"request":  evalCtx.Request,
	}

	for _, name := range names {
		e.mu.RLock()
		program := e.programs[name]
		e.mu.RUnlock()

		out, _, err := program.Eval(vars)
		if err != nil {
			return fmt.Errorf("%w: rule %q: %w", ErrRuleEvaluation, name, err)
		}

		allowed, ok := out.Value().(bool)
		if !ok {
			return fmt.Errorf("%w: rule %q did not evaluate to a boolean", ErrRuleEvaluation, name)
		}
		if !allowed {
			return &DeniedError{Rule: name}
		}
	}

	return nil
}

// RuleCount returns the number of compiled rules.
func (e *Engine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.programs)
}
