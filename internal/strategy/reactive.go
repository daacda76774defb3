package strategy

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/turretline/algo/internal/model"
)

// ReactiveEnv is what a reactive condition can see.
type ReactiveEnv struct {
	Turn        int
	LeftHeavy   bool
	LastBreachX int
	LastBreachY int
	Breaches    int
	SP          float64
	MP          float64
}

// ReactiveRule places one unit at the last breach when its condition holds.
type ReactiveRule struct {
	Unit   model.UnitKind
	source string
	prog   *vm.Program
}

// CompileReactive compiles a boolean condition over ReactiveEnv.
func CompileReactive(when string, unit model.UnitKind) (*ReactiveRule, error) {
	if when == "" {
		when = "true"
	}
	prog, err := expr.Compile(when, expr.Env(ReactiveEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile reactive condition %q: %w", when, err)
	}
	return &ReactiveRule{Unit: unit, source: when, prog: prog}, nil
}

// Source returns the condition text.
func (r *ReactiveRule) Source() string {
	return r.source
}

// Eval runs the condition against env.
func (r *ReactiveRule) Eval(env ReactiveEnv) (bool, error) {
	out, err := vm.Run(r.prog, env)
	if err != nil {
		return false, err
	}
	match, ok := out.(bool)
	return ok && match, nil
}
