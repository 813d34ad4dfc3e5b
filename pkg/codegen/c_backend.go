package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/cxc/pkg/comptime"
	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
)

const preamble = "#define Noreturn void\n"

var callConvKeywords = map[string]string{
	"default": "",
	"c":       "__cdecl",
	"stdcall": "__stdcall",
}

// CBackend lowers comptime bindings to C declarations and macros.
type CBackend struct{}

func NewCBackend() *CBackend { return &CBackend{} }

type cGen struct {
	env *comptime.Env
	out *bytes.Buffer
}

func (b *CBackend) Generate(env *comptime.Env, cfg *config.Config) (*bytes.Buffer, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	g := &cGen{env: env, out: new(bytes.Buffer)}
	for _, bd := range env.Bindings() {
		if bd.Builtin {
			continue
		}
		if err := g.binding(bd); err != nil {
			return nil, err
		}
	}

	var sections []string
	if cfg.IsFeatureEnabled(config.FeatPreamble) {
		sections = append(sections, preamble)
	}
	if g.out.Len() > 0 {
		sections = append(sections, g.out.String())
	}
	if cfg.IsFeatureEnabled(config.FeatPlatformBlock) {
		sections = append(sections, platformBlock())
	}
	content := strings.Join(sections, "\n")

	result := new(bytes.Buffer)
	if cfg.IsFeatureEnabled(config.FeatIncludeGuard) {
		guard := GuardName(content)
		fmt.Fprintf(result, "#ifndef %s\n#define %s\n\n", guard, guard)
		result.WriteString(content)
		result.WriteString("\n#endif\n")
		return result, nil
	}
	result.WriteString(content)
	return result, nil
}

// GuardName derives the include guard macro from the guarded text.
func GuardName(content string) string {
	return fmt.Sprintf("CXC_%016X", xxhash.Sum64String(content))
}

func platformBlock() string {
	var sb strings.Builder
	for i, cpu := range config.CPUs {
		directive := "#elif"
		if i == 0 {
			directive = "#if"
		}
		fmt.Fprintf(&sb, "%s %s\n#define HOST_CPU %q\n", directive, cpu.Cond, cpu.Name)
	}
	sb.WriteString("#else\n#define HOST_CPU \"unknown\"\n#endif\n")
	return sb.String()
}

func unsupported(b *comptime.Binding, format string, args ...interface{}) error {
	return diag.Errorf(diag.UnsupportedValue, b.Pos, len(b.Name), format, args...)
}

func (g *cGen) binding(b *comptime.Binding) error {
	if b.Mutable {
		return g.global(b)
	}
	switch v := b.Value.(type) {
	case *comptime.Enum:
		for i, name := range v.Names {
			fmt.Fprintf(g.out, "#define %s_%s %d\n", b.Name, name, v.Values[i])
		}
	case *comptime.EnumField:
		ref, err := g.fieldRef(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "#define %s %s\n", b.Name, ref)
	case comptime.Int:
		fmt.Fprintf(g.out, "#define %s %d\n", b.Name, int64(v))
	case comptime.String:
		fmt.Fprintf(g.out, "#define %s %s\n", b.Name, cString(string(v)))
	case comptime.EnumLiteral:
		// comptime only
	case *comptime.Procedure:
		return g.procedure(b, v)
	case *comptime.Struct:
		if v.Name != b.Name {
			fmt.Fprintf(g.out, "typedef %s %s;\n", v.Name, b.Name)
			return nil
		}
		fmt.Fprintf(g.out, "typedef struct %s {\n", v.Name)
		for _, f := range v.Fields {
			typ, err := g.typeName(f.Type, b)
			if err != nil {
				return err
			}
			fmt.Fprintf(g.out, "\t%s;\n", declarator(typ, f.Name))
		}
		fmt.Fprintf(g.out, "} %s;\n", v.Name)
	case comptime.Noreturn, comptime.CUint:
		typ, _ := g.typeName(v, b)
		fmt.Fprintf(g.out, "typedef %s %s;\n", typ, b.Name)
	default:
		return unsupported(b, "cannot emit '%s' bound to %s", b.Name, b.Value)
	}
	return nil
}

func (g *cGen) global(b *comptime.Binding) error {
	var typ string
	var err error
	switch {
	case b.Type != nil:
		typ, err = g.typeName(b.Type, b)
	case b.Value != nil:
		switch b.Value.(type) {
		case comptime.Int:
			typ = "unsigned int"
		case comptime.String:
			typ = "const char *"
		default:
			err = unsupported(b, "cannot infer a C type for '%s' from %s", b.Name, b.Value)
		}
	}
	if err != nil {
		return err
	}
	if b.Value == nil {
		fmt.Fprintf(g.out, "%s;\n", declarator(typ, b.Name))
		return nil
	}
	init, err := g.expr(b.Value, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.out, "%s = %s;\n", declarator(typ, b.Name), init)
	return nil
}

// fieldRef validates a field projection and returns the macro it aliases.
// Projections out of inline or builtin enums have no macro and render as
// their value.
func (g *cGen) fieldRef(f *comptime.EnumField) (string, error) {
	e := f.Enum
	useMacro := false
	if f.Container != "" {
		cb, ok := g.env.Lookup(f.Container)
		if !ok {
			return "", diag.Errorf(diag.InvalidReference, f.Pos, len(f.Container), "enum '%s' is not defined", f.Container)
		}
		if e, ok = cb.Value.(*comptime.Enum); !ok {
			return "", diag.Errorf(diag.InvalidReference, f.Pos, len(f.Container), "'%s' is not an enum", f.Container)
		}
		useMacro = !cb.Builtin && !cb.Mutable
	}
	val, ok := e.Lookup(f.Name)
	if !ok {
		return "", diag.Errorf(diag.InvalidReference, f.Pos, len(f.Name), "enum %s has no member '%s'", f, f.Name)
	}
	if useMacro {
		return f.Container + "_" + f.Name, nil
	}
	return strconv.FormatInt(val, 10), nil
}

func (g *cGen) callConv(p *comptime.Procedure, b *comptime.Binding) (string, error) {
	if p.CallConv == nil {
		return "", nil
	}
	if f, ok := p.CallConv.(*comptime.EnumField); ok {
		if _, err := g.fieldRef(f); err != nil {
			return "", err
		}
	}
	name, ok := comptime.CallConvName(p.CallConv)
	if !ok {
		return "", unsupported(b, "calling convention must be an enum literal or field, got %s", p.CallConv)
	}
	kw, ok := callConvKeywords[name]
	if !ok {
		return "", unsupported(b, "unsupported calling convention '.%s'", name)
	}
	return kw, nil
}

// signature renders `Ret CC name(params)`; name is passed through unchanged.
func (g *cGen) signature(p *comptime.Procedure, name string, b *comptime.Binding) (string, error) {
	ret, err := g.typeName(p.Return, b)
	if err != nil {
		return "", err
	}
	cc, err := g.callConv(p, b)
	if err != nil {
		return "", err
	}
	params, err := g.paramList(p, b)
	if err != nil {
		return "", err
	}
	parts := []string{ret}
	if cc != "" {
		parts = append(parts, cc)
	}
	parts = append(parts, name+"("+params+")")
	return strings.Join(parts, " "), nil
}

func (g *cGen) paramList(p *comptime.Procedure, b *comptime.Binding) (string, error) {
	if len(p.Params) == 0 {
		return "void", nil
	}
	parts := make([]string, len(p.Params))
	for i, param := range p.Params {
		typ, err := g.typeName(param.Type, b)
		if err != nil {
			return "", err
		}
		if param.Name == "" {
			parts[i] = typ
		} else {
			parts[i] = declarator(typ, param.Name)
		}
	}
	return strings.Join(parts, ", "), nil
}

func (g *cGen) procedure(b *comptime.Binding, p *comptime.Procedure) error {
	header := !p.Foreign && !p.Defined
	if p.Name != b.Name {
		if header {
			fmt.Fprintf(g.out, "typedef %s %s;\n", p.Name, b.Name)
		} else {
			fmt.Fprintf(g.out, "#define %s %s\n", b.Name, p.Name)
		}
		return nil
	}

	switch {
	case p.Foreign:
		sig, err := g.signature(p, strconv.Quote(b.Name), b)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "%s;\n", sig)
	case p.Defined:
		sig, err := g.signature(p, b.Name, b)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "%s {\n", sig)
		for _, stmt := range p.Body {
			args := make([]string, len(stmt.Args))
			for i, a := range stmt.Args {
				s, err := g.expr(a, b)
				if err != nil {
					return err
				}
				args[i] = s
			}
			fmt.Fprintf(g.out, "\t%s(%s);\n", stmt.Callee, strings.Join(args, ", "))
		}
		g.out.WriteString("}\n")
	default:
		cc, err := g.callConv(p, b)
		if err != nil {
			return err
		}
		if cc != "" {
			cc += " "
		}
		ret, err := g.typeName(p.Return, b)
		if err != nil {
			return err
		}
		params, err := g.paramList(p, b)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "typedef %s (%s*%s)(%s);\n", ret, cc, b.Name, params)
	}
	return nil
}

func (g *cGen) typeName(v comptime.Value, b *comptime.Binding) (string, error) {
	switch v := v.(type) {
	case comptime.Noreturn:
		return "Noreturn", nil
	case comptime.CUint:
		return "unsigned int", nil
	case *comptime.Struct:
		if v.Name != "" {
			return v.Name, nil
		}
	case *comptime.Procedure:
		if !v.Foreign && !v.Defined && v.Name != "" {
			return v.Name, nil
		}
	}
	return "", unsupported(b, "%s is not a type", v)
}

func (g *cGen) expr(v comptime.Value, b *comptime.Binding) (string, error) {
	switch v := v.(type) {
	case comptime.Int:
		return strconv.FormatInt(int64(v), 10), nil
	case comptime.String:
		return cString(string(v)), nil
	case *comptime.EnumField:
		return g.fieldRef(v)
	case *comptime.Procedure:
		if (v.Foreign || v.Defined) && v.Name != "" {
			return v.Name, nil
		}
	}
	return "", unsupported(b, "%s has no C representation", v)
}

func declarator(typ, name string) string {
	if strings.HasSuffix(typ, "*") {
		return typ + name
	}
	return typ + " " + name
}

func cString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&sb, `\%03o`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
