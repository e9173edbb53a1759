// Package sandbox implements the deterministic, metered, isolated
// execution host contract code runs in (spec §4.7). It embeds a
// small tree-walking interpreter for a fixed class-based subset
// (spec §9's preferred option for determinism) rather than an
// off-the-shelf scripting engine, so that "identical inputs yield
// identical data and identical raised errors" holds by construction:
// no ambient clock, no randomness, no host I/O are reachable from
// contract source.
package sandbox

import (
	"context"
	"time"

	"github.com/davincci9412/Cil-core/contract"
	"github.com/davincci9412/Cil-core/errors"
)

// predefinedClasses is the frozen source prepended to every contract
// (spec §4.5 step 1): it defines the distinguished Base class every
// contract must extend. Base's constructor is intentionally empty;
// subclasses call super() to participate in the chain even though
// there is nothing yet for Base itself to do.
const predefinedClasses = "class Base {\n\tconstructor() {}\n}\n"

// reconstructedClassName is used to splice persisted method source
// back into a class body for RunContract (spec §4.6 step 2).
const reconstructedClassName = "__Reconstructed__"

// DefaultStepsPerCoin converts a coins budget into an interpreter
// step budget. Chosen so that MIN_CONTRACT_FEE buys enough steps for
// a small constructor and a handful of field assignments without
// buying enough to matter for block-level throughput accounting
// (that accounting lives outside this core, per Non-goals).
const DefaultStepsPerCoin = 2000

// NewBudget derives a Budget from a coins amount and the package's
// wall-clock ceiling.
func NewBudget(coins uint64) Budget {
	return Budget{
		Steps:        coins * DefaultStepsPerCoin,
		Timeout:      DefaultTimeout,
		MaxFields:    64,
		MaxStringLen: 4096,
	}
}

// DefaultTimeout is this sandbox's wall-clock ceiling (spec §6's
// TIMEOUT_CODE). It is a secondary guard: the step budget in Budget
// is what actually guarantees determinism and termination.
const DefaultTimeout = 250 * time.Millisecond

// DeployResult is the outcome of compiling and instantiating a
// contract's deployment source (spec §4.5).
type DeployResult struct {
	Data contract.Data
	Code string
}

// Deploy prepends predefinedClasses to source, evaluates it under
// budget with env bound, and requires the distinguished exports slot
// to hold a class instance (an instance of Base itself is accepted
// too). It returns a deep
// snapshot of that instance's fields and the source of its own
// (non-inherited, non-constructor) methods joined by
// bc.ContractMethodSeparator (spec §4.5 steps 2-4).
func Deploy(source string, env map[string]Value, budget Budget) (DeployResult, error) {
	prog, err := cachedParseProgram(predefinedClasses + source)
	if err != nil {
		return DeployResult{}, errors.WithDetail(ErrBadDefinition, err.Error())
	}
	if prog.exports == nil {
		return DeployResult{}, errors.WithDetail(ErrBadDefinition, "missing exports assignment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), budget.Timeout)
	defer cancel()
	ip := newInterp(prog, env, budget, ctx)

	exported, err := ip.eval(prog.exports, &frame{locals: map[string]Value{}})
	if err != nil {
		return DeployResult{}, err
	}
	inst, ok := exported.(*instance)
	if !ok {
		return DeployResult{}, errors.WithDetail(ErrBadDefinition, "exports does not hold a class instance")
	}

	data, err := snapshotFields(inst.fields)
	if err != nil {
		return DeployResult{}, err
	}

	code, err := joinOwnMethods(inst.class)
	if err != nil {
		return DeployResult{}, err
	}

	return DeployResult{Data: data, Code: code}, nil
}

// Invoke reconstructs an executable object by splicing code into a
// fresh class body extending Base, instantiates it with no
// arguments, assigns data onto the instance, and calls methodName
// (spec §4.6 steps 2-3). On success it returns the instance's
// post-call field snapshot; on any sandbox error it returns that
// error and a nil Data, leaving the caller's prior data untouched
// (spec §4.6 step 5).
func Invoke(code string, data contract.Data, methodName string, args []Value, env map[string]Value, budget Budget) (contract.Data, error) {
	combined := predefinedClasses +
		"class " + reconstructedClassName + " extends Base {\n" + code + "\n}\n" +
		"exports = new " + reconstructedClassName + "();\n"

	prog, err := cachedParseProgram(combined)
	if err != nil {
		return nil, errors.WithDetail(ErrBadDefinition, err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), budget.Timeout)
	defer cancel()
	ip := newInterp(prog, env, budget, ctx)

	exported, err := ip.eval(prog.exports, &frame{locals: map[string]Value{}})
	if err != nil {
		return nil, err
	}
	inst, ok := exported.(*instance)
	if !ok {
		return nil, errors.WithDetail(ErrBadDefinition, "exports does not hold a class instance")
	}

	for k, v := range data.Clone() {
		inst.fields[k] = v
	}

	resolvedMethod := methodName
	if resolvedMethod == "" {
		resolvedMethod = "_default"
	}
	if m, _ := ip.findMethod(inst.class, resolvedMethod); m == nil {
		return nil, errors.WithDetailf(ErrUnknownMethod, "%q", resolvedMethod)
	}

	if _, err := ip.callMethod(inst, resolvedMethod, args); err != nil {
		return nil, err
	}

	return snapshotFields(inst.fields)
}

func snapshotFields(fields map[string]Value) (contract.Data, error) {
	d := make(contract.Data, len(fields))
	for k, v := range fields {
		sv, err := snapshotValue(v)
		if err != nil {
			return nil, err
		}
		d[k] = sv
	}
	return d, nil
}

func snapshotValue(v Value) (Value, error) {
	switch v := v.(type) {
	case int64, string, bool, nil:
		return v, nil
	case *instance:
		return nil, errors.WithDetail(ErrBadDefinition, "nested object fields are not supported")
	case contract.Data:
		return snapshotFields(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, vv := range v {
			sv, err := snapshotValue(vv)
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil
	default:
		return nil, errors.WithDetailf(ErrBadDefinition, "unsupported field value type %T", v)
	}
}

// joinOwnMethods joins the source of class's own declared methods
// (excluding its constructor and anything inherited from Base),
// validating each against contract.ValidateMethodSource before it is
// ever persisted (spec §9's injection-prevention requirement).
func joinOwnMethods(class *classDecl) (string, error) {
	sources := make([]string, 0, len(class.methods))
	for _, m := range class.methods {
		if err := contract.ValidateMethodSource(m.name, m.source); err != nil {
			return "", err
		}
		sources = append(sources, m.source)
	}
	return contract.JoinMethods(sources), nil
}
