package lisp

import (
	"fmt"
	"sort"

	"gclisp/gclisp-go/pkg/gc"
)

// Interp evaluates forms against one heap. It is the embedding program
// from the collector's point of view: it owns the global environment
// and registers a root source enumerating every binding, in-flight
// intermediate result and captured closure environment it considers
// live.
type Interp struct {
	heap    *gc.Heap
	globals *Environment
	envs    []*Environment // every environment ever created, incl. closures
	stack   []Value        // in-flight intermediate results
}

// New creates an interpreter bound to heap, installs the builtin
// library in the global environment and registers the interpreter as a
// root source.
func New(heap *gc.Heap) *Interp {
	in := &Interp{
		heap:    heap,
		globals: NewEnvironment(nil),
	}
	in.envs = append(in.envs, in.globals)
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		in.globals.Define(name, BuiltinValue{Name: name, Impl: builtins[name]})
	}
	heap.AddRootSource(in.enumerateRoots)
	return in
}

// Globals exposes the global environment.
func (in *Interp) Globals() *Environment { return in.globals }

// enumerateRoots visits every value reachable from the interpreter's
// own state: all environments (the chain walk covers closures, since
// closure environments are registered at creation) and the evaluation
// stack.
func (in *Interp) enumerateRoots(visit func(gc.Root)) {
	for _, env := range in.envs {
		env.visitValues(func(v Value) {
			visit(ValueRoot(v))
		})
	}
	for _, v := range in.stack {
		visit(ValueRoot(v))
	}
}

func (in *Interp) newEnv(parent *Environment) *Environment {
	env := NewEnvironment(parent)
	in.envs = append(in.envs, env)
	return env
}

func (in *Interp) push(v Value) {
	in.stack = append(in.stack, v)
}

func (in *Interp) popTo(n int) {
	in.stack = in.stack[:n]
}

// EvalString reads and evaluates every form in src, returning the
// value of the last one. Pending forms and the running result live
// only here, so they ride the root-enumerated stack for the duration.
func (in *Interp) EvalString(s *gc.Session, src string) (Value, error) {
	forms, err := ReadAll(s, src)
	if err != nil {
		return nil, err
	}
	depth := len(in.stack)
	defer in.popTo(depth)
	for _, form := range forms {
		in.push(form)
	}
	var result Value = NilValue{}
	for _, form := range forms {
		result, err = in.eval(s, form, in.globals)
		if err != nil {
			return nil, err
		}
		in.push(result)
	}
	return result, nil
}

// Eval evaluates one form in the global environment. The form is
// pinned on the stack, which transitively keeps every not-yet-reached
// subform reachable during collections.
func (in *Interp) Eval(s *gc.Session, form Value) (Value, error) {
	depth := len(in.stack)
	defer in.popTo(depth)
	in.push(form)
	return in.eval(s, form, in.globals)
}

func (in *Interp) eval(s *gc.Session, form Value, env *Environment) (Value, error) {
	switch v := form.(type) {
	case SymbolValue:
		return env.Get(v.Name)
	case PairValue:
		return in.evalPair(s, v, env)
	default:
		// Self-evaluating.
		return form, nil
	}
}

func (in *Interp) evalPair(s *gc.Session, form PairValue, env *Environment) (Value, error) {
	head := form.First(s)
	if sym, ok := head.(SymbolValue); ok {
		switch sym.Name {
		case "quote":
			return in.evalQuote(s, form)
		case "if":
			return in.evalIf(s, form, env)
		case "define":
			return in.evalDefine(s, form, env)
		case "set!":
			return in.evalSet(s, form, env)
		case "lambda":
			return in.evalLambda(s, form, env)
		case "begin":
			return in.evalBegin(s, form, env)
		}
	}

	// Application: evaluate the operator and operands, keeping the
	// pending argument forms and each result on the stack so a
	// collection triggered mid-call cannot reclaim them.
	depth := len(in.stack)
	defer in.popTo(depth)

	fn, err := in.eval(s, head, env)
	if err != nil {
		return nil, err
	}
	in.push(fn)

	args, err := listSlice(s, "apply", form.Rest(s))
	if err != nil {
		return nil, err
	}
	for _, arg := range args {
		in.push(arg)
	}
	evaled := make([]Value, len(args))
	for i, arg := range args {
		v, err := in.eval(s, arg, env)
		if err != nil {
			return nil, err
		}
		evaled[i] = v
		in.push(v)
	}
	return in.apply(s, fn, evaled)
}

func (in *Interp) apply(s *gc.Session, fn Value, args []Value) (Value, error) {
	switch f := fn.(type) {
	case BuiltinValue:
		return f.Impl(s, args)
	case LambdaValue:
		params, err := listSlice(s, "lambda", f.Params)
		if err != nil {
			return nil, err
		}
		if len(params) != len(args) {
			return nil, &ArityError{Op: "lambda", Want: fmt.Sprintf("exactly %d", len(params)), Got: len(args)}
		}
		env := in.newEnv(f.Env)
		for i, p := range params {
			sym, ok := p.(SymbolValue)
			if !ok {
				return nil, &TypeError{Op: "lambda", Want: "symbol", Got: p.Kind()}
			}
			env.Define(sym.Name, args[i])
		}
		body, err := listSlice(s, "lambda", f.Body)
		if err != nil {
			return nil, err
		}
		var result Value = NilValue{}
		for _, stmt := range body {
			result, err = in.eval(s, stmt, env)
			if err != nil {
				return nil, err
			}
		}
		return result, nil
	default:
		return nil, &TypeError{Op: "apply", Want: "procedure", Got: fn.Kind()}
	}
}

func (in *Interp) evalQuote(s *gc.Session, form PairValue) (Value, error) {
	args, err := listSlice(s, "quote", form.Rest(s))
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, &ArityError{Op: "quote", Want: "exactly 1", Got: len(args)}
	}
	return args[0], nil
}

func (in *Interp) evalIf(s *gc.Session, form PairValue, env *Environment) (Value, error) {
	args, err := listSlice(s, "if", form.Rest(s))
	if err != nil {
		return nil, err
	}
	if len(args) != 2 && len(args) != 3 {
		return nil, &ArityError{Op: "if", Want: "2 or 3", Got: len(args)}
	}
	cond, err := in.eval(s, args[0], env)
	if err != nil {
		return nil, err
	}
	// Only #f is false.
	if b, ok := cond.(BoolValue); ok && !b.Val {
		if len(args) == 3 {
			return in.eval(s, args[2], env)
		}
		return NilValue{}, nil
	}
	return in.eval(s, args[1], env)
}

func (in *Interp) evalDefine(s *gc.Session, form PairValue, env *Environment) (Value, error) {
	args, err := listSlice(s, "define", form.Rest(s))
	if err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, &ArityError{Op: "define", Want: "exactly 2", Got: len(args)}
	}
	sym, ok := args[0].(SymbolValue)
	if !ok {
		return nil, &TypeError{Op: "define", Want: "symbol", Got: args[0].Kind()}
	}
	v, err := in.eval(s, args[1], env)
	if err != nil {
		return nil, err
	}
	env.Define(sym.Name, v)
	return NilValue{}, nil
}

func (in *Interp) evalSet(s *gc.Session, form PairValue, env *Environment) (Value, error) {
	args, err := listSlice(s, "set!", form.Rest(s))
	if err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, &ArityError{Op: "set!", Want: "exactly 2", Got: len(args)}
	}
	sym, ok := args[0].(SymbolValue)
	if !ok {
		return nil, &TypeError{Op: "set!", Want: "symbol", Got: args[0].Kind()}
	}
	v, err := in.eval(s, args[1], env)
	if err != nil {
		return nil, err
	}
	if err := env.Assign(sym.Name, v); err != nil {
		return nil, err
	}
	return NilValue{}, nil
}

func (in *Interp) evalLambda(s *gc.Session, form PairValue, env *Environment) (Value, error) {
	tail := form.Rest(s)
	rest, ok := tail.(PairValue)
	if !ok {
		if args, err := listSlice(s, "lambda", tail); err == nil {
			return nil, &ArityError{Op: "lambda", Want: "at least 2", Got: len(args)}
		}
		return nil, &TypeError{Op: "lambda", Want: "parameter list and body", Got: tail.Kind()}
	}
	params := rest.First(s)
	body := rest.Rest(s)
	if _, err := listSlice(s, "lambda", params); err != nil {
		return nil, err
	}
	return LambdaValue{Params: params, Body: body, Env: env}, nil
}

func (in *Interp) evalBegin(s *gc.Session, form PairValue, env *Environment) (Value, error) {
	args, err := listSlice(s, "begin", form.Rest(s))
	if err != nil {
		return nil, err
	}
	var result Value = NilValue{}
	for _, stmt := range args {
		result, err = in.eval(s, stmt, env)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
