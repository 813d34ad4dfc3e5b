package comptime

import (
	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
)

// Evaluator resolves expressions of either surface syntax against Env.
type Evaluator struct {
	Env *Env
	cfg *config.Config
	rep *diag.Reporter
}

// NewEvaluator returns an evaluator over env. rep may be nil, in which case
// warnings are dropped.
func NewEvaluator(env *Env, cfg *config.Config, rep *diag.Reporter) *Evaluator {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Evaluator{Env: env, cfg: cfg, rep: rep}
}

func (ev *Evaluator) requireFeature(ft config.Feature, off, length int, form string) error {
	if ev.cfg.IsFeatureEnabled(ft) {
		return nil
	}
	return diag.Errorf(diag.UnsupportedForm, off, length, "%s is disabled by the current feature set (-Fno-%s)", form, ev.cfg.Features[ft].Name)
}

// bind adds a global. Anonymous structs and procedures take the name they
// are first bound to.
func (ev *Evaluator) bind(name string, off int, val, typ Value, mutable bool) error {
	switch v := val.(type) {
	case *Struct:
		if v.Name == "" {
			v.Name = name
		}
	case *Procedure:
		if v.Name == "" {
			v.Name = name
		}
	case EnumLiteral:
		if !mutable {
			ev.rep.Warn(config.WarnComptimeOnly, off, len(name), "'%s' is bound to %s and produces no C output", name, v)
		}
	}
	return ev.Env.Define(Binding{Name: name, Value: val, Type: typ, Mutable: mutable, Pos: off})
}

type enumMember struct {
	name   string
	off    int
	length int
	value  Value
}

func (ev *Evaluator) makeEnum(members []enumMember, off, length int) (*Enum, error) {
	if len(members) == 0 {
		ev.rep.Warn(config.WarnEmptyEnum, off, length, "enum has no members")
	}
	e := &Enum{}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if seen[m.name] {
			return nil, diag.Errorf(diag.TypeMismatch, m.off, m.length, "duplicate enum member '%s'", m.name)
		}
		seen[m.name] = true
		n, ok := m.value.(Int)
		if !ok {
			return nil, diag.Errorf(diag.TypeMismatch, m.off, m.length, "value of enum member '%s' must be an integer, got %s", m.name, m.value)
		}
		e.Names = append(e.Names, m.name)
		e.Values = append(e.Values, int64(n))
	}
	return e, nil
}

func makeField(container Value, containerName, name string, off, length int) (*EnumField, error) {
	e, ok := container.(*Enum)
	if !ok {
		return nil, diag.Errorf(diag.TypeMismatch, off, length, "field access on %s, which is not an enum", container)
	}
	return &EnumField{Container: containerName, Enum: e, Name: name, Pos: off}, nil
}

// equal evaluates `==`. A field operand is resolved first, so a projection
// of a member its enum lacks fails instead of comparing by name.
func (ev *Evaluator) equal(lhs, rhs Value) (Value, error) {
	for _, v := range []Value{lhs, rhs} {
		if f, ok := v.(*EnumField); ok {
			if _, ok := f.Enum.Lookup(f.Name); !ok {
				return nil, diag.Errorf(diag.InvalidReference, f.Pos, len(f.Name), "enum %s has no member '%s'", f, f.Name)
			}
		}
	}
	return Bool(Equal(lhs, rhs)), nil
}

func (ev *Evaluator) makeProc(params []Param, named bool, cc, ret Value, off int) *Procedure {
	if cc == nil {
		ev.rep.Warn(config.WarnDefaultCallconv, off, len("proc"), "procedure has no explicit calling convention")
	} else if name, ok := CallConvName(cc); ok && name == "default" {
		ev.rep.Warn(config.WarnDefaultCallconv, off, len("proc"), "procedure uses the default calling convention")
	}
	return &Procedure{Params: params, Named: named, CallConv: cc, Return: ret, Pos: off}
}

// foreignOf copies a signature into an unnamed foreign import.
func foreignOf(v Value, lib string, off, length int) (*Procedure, error) {
	p, ok := v.(*Procedure)
	if !ok || p.Defined {
		return nil, diag.Errorf(diag.TypeMismatch, off, length, "foreign expects a procedure signature, got %s", v)
	}
	cp := *p
	cp.Name, cp.Foreign, cp.Library, cp.Pos = "", true, lib, off
	return &cp, nil
}

func (ev *Evaluator) call(callee string, args []Value, off, length int) (Stmt, error) {
	v, err := ev.Env.Get(callee, off, length)
	if err != nil {
		return Stmt{}, err
	}
	p, ok := v.(*Procedure)
	if !ok || (!p.Foreign && !p.Defined) {
		return Stmt{}, diag.Errorf(diag.TypeMismatch, off, length, "'%s' is not a callable procedure", callee)
	}
	if len(args) != len(p.Params) {
		return Stmt{}, diag.Errorf(diag.TypeMismatch, off, length, "'%s' takes %d argument(s), got %d", callee, len(p.Params), len(args))
	}
	return Stmt{Callee: callee, Args: args, Pos: off}, nil
}

func (ev *Evaluator) finishBody(p *Procedure, body []Stmt) {
	if len(body) == 0 {
		ev.rep.Warn(config.WarnEmptyBody, p.Pos, len("proc"), "procedure body has no statements")
	}
	p.Body, p.Defined = body, true
}
