package comptime

import (
	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
)

// Binding is one entry of the global environment.
type Binding struct {
	Name    string
	Value   Value
	Type    Value
	Mutable bool
	Builtin bool
	Pos     int
}

// Env is the flat, insertion-ordered symbol table shared by a whole unit.
// Names are bound at most once.
type Env struct {
	bindings []*Binding
	index    map[string]int
}

// NewEnv returns an environment seeded with the builtin types and the
// CPU_Arch/CPU pair for the configured target.
func NewEnv(cfg *config.Config) *Env {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	e := &Env{index: make(map[string]int)}

	arch := &Enum{}
	for i, cpu := range config.CPUs {
		arch.Names = append(arch.Names, cpu.Name)
		arch.Values = append(arch.Values, int64(i))
	}

	builtins := []struct {
		name string
		val  Value
	}{
		{"noreturn", Noreturn{}},
		{"c_uint", CUint{}},
		{"c-uint", CUint{}},
		{"CPU_Arch", arch},
		{"CPU", &EnumField{Container: "CPU_Arch", Enum: arch, Name: cfg.CPU, Pos: -1}},
	}
	for _, b := range builtins {
		e.index[b.name] = len(e.bindings)
		e.bindings = append(e.bindings, &Binding{Name: b.name, Value: b.val, Builtin: true, Pos: -1})
	}
	return e
}

// CheckFree fails with Redefinition if name is already bound.
func (e *Env) CheckFree(name string, off int) error {
	prev, ok := e.Lookup(name)
	switch {
	case !ok:
		return nil
	case prev.Builtin:
		return diag.Errorf(diag.Redefinition, off, len(name), "'%s' is a builtin and cannot be redefined", name)
	}
	return diag.Errorf(diag.Redefinition, off, len(name), "'%s' is already defined", name)
}

// Define binds b.Name, failing with Redefinition if it is already bound.
func (e *Env) Define(b Binding) error {
	if err := e.CheckFree(b.Name, b.Pos); err != nil {
		return err
	}
	e.index[b.Name] = len(e.bindings)
	e.bindings = append(e.bindings, &b)
	return nil
}

func (e *Env) Lookup(name string) (*Binding, bool) {
	i, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.bindings[i], true
}

// Get reads the value bound to name. off/length locate the reference for
// the UndefinedSymbol error.
func (e *Env) Get(name string, off, length int) (Value, error) {
	b, ok := e.Lookup(name)
	if !ok {
		return nil, diag.Errorf(diag.UndefinedSymbol, off, length, "undefined symbol '%s'", name)
	}
	if b.Mutable {
		return nil, diag.Errorf(diag.UnsupportedValue, off, length, "'%s' is a runtime global, not a compile-time value", name)
	}
	return b.Value, nil
}

// Bindings returns every binding in definition order, builtins first.
func (e *Env) Bindings() []*Binding { return e.bindings }

func (e *Env) Len() int { return len(e.bindings) }
