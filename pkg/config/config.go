package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xplshn/cxc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatPreamble Feature = iota
	FeatPlatformBlock
	FeatIncludeGuard
	FeatEnums
	FeatConditionals
	FeatStructs
	FeatGlobals
	FeatCount
)

type Warning int

const (
	WarnDefaultCallconv Warning = iota
	WarnEmptyEnum
	WarnEmptyBody
	WarnComptimeOnly
	WarnPedantic
	WarnCount
)

const (
	SyntaxSexpr = "sexpr"
	SyntaxDecl  = "decl"
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// CPU is one entry of the fixed target table. Cond is the preprocessor test
// that identifies it in generated code.
type CPU struct {
	Name string
	Cond string
}

var CPUs = []CPU{
	{"x86", "defined(__i386__) || defined(_M_IX86)"},
	{"x86_64", "defined(__x86_64__) || defined(_M_X64)"},
	{"arm", "defined(__arm__) || defined(_M_ARM)"},
	{"aarch64", "defined(__aarch64__) || defined(_M_ARM64)"},
	{"riscv64", "defined(__riscv) && __riscv_xlen == 64"},
}

var qbeTargetCPUs = map[string]string{
	"amd64_sysv":  "x86_64",
	"amd64_apple": "x86_64",
	"arm64":       "aarch64",
	"arm64_apple": "aarch64",
	"rv64":        "riscv64",
}

var goarchCPUs = map[string]string{
	"386":     "x86",
	"amd64":   "x86_64",
	"arm":     "arm",
	"arm64":   "aarch64",
	"riscv64": "riscv64",
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	Syntax     string
	QbeTarget  string
	CPU        string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		Syntax:     SyntaxDecl,
		CPU:        "x86_64",
	}

	features := map[Feature]Info{
		FeatPreamble:      {"preamble", true, "Emit the `#define Noreturn void` preamble."},
		FeatPlatformBlock: {"platform-block", true, "Append the HOST_CPU identification block."},
		FeatIncludeGuard:  {"include-guard", false, "Wrap the output in a content-hashed include guard."},
		FeatEnums:         {"enums", true, "Allow `enum { ... }` expressions in declaration syntax."},
		FeatConditionals:  {"conditionals", true, "Allow `if (...) a else b` expressions in declaration syntax."},
		FeatStructs:       {"structs", true, "Allow struct declarations."},
		FeatGlobals:       {"globals", true, "Allow mutable `name : T = value` globals."},
	}

	warnings := map[Warning]Info{
		WarnDefaultCallconv: {"default-callconv", false, "Warn when a procedure has no explicit calling convention."},
		WarnEmptyEnum:       {"empty-enum", true, "Warn about enums without members."},
		WarnEmptyBody:       {"empty-body", true, "Warn about procedure bodies without statements."},
		WarnComptimeOnly:    {"comptime-only", false, "Warn about bindings that produce no C output."},
		WarnPedantic:        {"pedantic", false, "Restrict the language to its core fragment."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget resolves the QBE target for goos/goarch (or the explicit target)
// and selects the matching entry of the CPU table.
func (c *Config) SetTarget(goos, goarch, qbeTarget string) error {
	if qbeTarget == "" {
		qbeTarget = libqbe.DefaultTarget(goos, goarch)
	}
	c.QbeTarget = qbeTarget

	if cpu, ok := qbeTargetCPUs[qbeTarget]; ok {
		c.CPU = cpu
		return nil
	}
	// libqbe has no 32-bit targets, so fall back to the Go architecture
	if cpu, ok := goarchCPUs[goarch]; ok {
		c.CPU = cpu
		return nil
	}
	return fmt.Errorf("unrecognized or unsupported target '%s' (%s/%s)", qbeTarget, goos, goarch)
}

// SetCPU overrides the target CPU with an entry from the CPU table.
func (c *Config) SetCPU(name string) error {
	for _, cpu := range CPUs {
		if cpu.Name == name {
			c.CPU = name
			return nil
		}
	}
	names := make([]string, len(CPUs))
	for i, cpu := range CPUs {
		names[i] = cpu.Name
	}
	return fmt.Errorf("unknown cpu '%s'. Supported: %s", name, strings.Join(names, ", "))
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// SyntaxForFile picks the surface syntax from a file extension.
func SyntaxForFile(name string) string {
	switch filepath.Ext(name) {
	case ".cxs", ".sexp", ".lisp":
		return SyntaxSexpr
	default:
		return SyntaxDecl
	}
}

// ApplySyntax selects the input surface. Under -pedantic the declaration
// surface loses everything beyond the core grammar.
func (c *Config) ApplySyntax(name string) error {
	isPedantic := c.IsWarningEnabled(WarnPedantic)

	type syntaxSettings struct {
		feature    Feature
		sexprValue bool
		declValue  bool
	}

	settings := []syntaxSettings{
		{FeatEnums, true, true},
		{FeatConditionals, true, true},
		{FeatStructs, !isPedantic, !isPedantic},
		{FeatGlobals, false, !isPedantic},
	}

	switch name {
	case SyntaxSexpr:
		for _, s := range settings {
			c.SetFeature(s.feature, s.sexprValue)
		}
	case SyntaxDecl:
		for _, s := range settings {
			c.SetFeature(s.feature, s.declValue)
		}
	default:
		return fmt.Errorf("unsupported syntax '%s'. Supported: '%s', '%s'", name, SyntaxSexpr, SyntaxDecl)
	}
	c.Syntax = name
	if isPedantic {
		c.SetWarning(WarnDefaultCallconv, true)
	}
	return nil
}

func (c *Config) applyFlag(flag string) {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		name = trimmed
		isWarning = true
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
		}
		return
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
		}
	} else {
		if f, ok := c.FeatureMap[name]; ok {
			c.SetFeature(f, enable)
		}
	}
}

// ProcessFlags applies -W/-F style flags in order, with -Wall/-Wno-all first
// so that individual flags can override them.
func (c *Config) ProcessFlags(flags []string) {
	for _, f := range flags {
		if f == "-Wall" || f == "-Wno-all" {
			c.applyFlag(f)
		}
	}
	for _, f := range flags {
		if f != "-Wall" && f != "-Wno-all" {
			c.applyFlag(f)
		}
	}
}

// SetupFlagGroups registers -W<warning> and -F<feature> switches on fs. The
// returned entries are indexed by Warning and Feature.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features []cli.FlagGroupEntry) {
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warnings = append(warnings, cli.FlagGroupEntry{Name: info.Name, Usage: info.Description, Enabled: new(bool), Disabled: new(bool)})
	}
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		features = append(features, cli.FlagGroupEntry{Name: info.Name, Usage: info.Description, Enabled: new(bool), Disabled: new(bool)})
	}
	all := cli.FlagGroupEntry{Name: "all", Usage: "Enable all warnings except pedantic.", Enabled: new(bool), Disabled: new(bool)}
	fs.AddFlagGroup("Warning Flags", "W", "warning", append(append([]cli.FlagGroupEntry(nil), warnings...), all))
	fs.AddFlagGroup("Feature Flags", "F", "feature", features)
	return warnings, features
}

// ApplyFlagGroups applies what the user set through SetupFlagGroups, in the
// same order ProcessFlags would.
func (c *Config) ApplyFlagGroups(fs *cli.FlagSet, warnings, features []cli.FlagGroupEntry) {
	var flags []string
	if f := fs.Lookup("Wall"); f != nil && f.Value.Get().(bool) {
		flags = append(flags, "-Wall")
	}
	if f := fs.Lookup("Wno-all"); f != nil && f.Value.Get().(bool) {
		flags = append(flags, "-Wno-all")
	}
	for _, e := range warnings {
		if *e.Enabled {
			flags = append(flags, "-W"+e.Name)
		}
		if *e.Disabled {
			flags = append(flags, "-Wno-"+e.Name)
		}
	}
	for _, e := range features {
		if *e.Enabled {
			flags = append(flags, "-F"+e.Name)
		}
		if *e.Disabled {
			flags = append(flags, "-Fno-"+e.Name)
		}
	}
	c.ProcessFlags(flags)
}
