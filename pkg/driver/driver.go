// Package driver runs the whole pipeline for one source file.
package driver

import (
	"fmt"
	"io"

	"github.com/xplshn/cxc/pkg/ast"
	"github.com/xplshn/cxc/pkg/codegen"
	"github.com/xplshn/cxc/pkg/comptime"
	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
	"github.com/xplshn/cxc/pkg/parser"
	"github.com/xplshn/cxc/pkg/sexp"
)

// Options controls a single compilation. Nil writers discard.
type Options struct {
	Config   *config.Config
	Backend  codegen.Backend
	Log      io.Writer
	Warnings io.Writer
	DumpAST  io.Writer
	DumpEnv  io.Writer
}

// Result is what a successful compilation produced.
type Result struct {
	Env      *comptime.Env
	Module   []*ast.Node
	Forms    []sexp.Exp
	Output   string
	Warnings int
}

func (o *Options) logf(format string, args ...interface{}) {
	if o.Log != nil {
		fmt.Fprintf(o.Log, "cxc: info: "+format+"\n", args...)
	}
}

// Compile reads, evaluates and emits file. Errors keep their *diag.Error
// underneath the file name.
func Compile(file *diag.File, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	backend := opts.Backend
	if backend == nil {
		backend = codegen.NewCBackend()
	}

	res := &Result{Env: comptime.NewEnv(cfg)}
	var rep *diag.Reporter
	if opts.Warnings != nil {
		rep = diag.NewReporter(cfg, file, opts.Warnings)
	}
	ev := comptime.NewEvaluator(res.Env, cfg, rep)
	wrap := func(err error) error { return fmt.Errorf("%s: %w", file.Name, err) }

	switch cfg.Syntax {
	case config.SyntaxSexpr:
		opts.logf("reading forms from '%s'...", file.Name)
		forms, err := sexp.ReadAll(file.Content)
		if err != nil {
			return nil, wrap(err)
		}
		res.Forms = forms
		if opts.DumpAST != nil {
			for _, f := range forms {
				fmt.Fprintln(opts.DumpAST, f)
			}
		}
		opts.logf("evaluating %d form(s)...", len(forms))
		if err := ev.EvalAll(forms); err != nil {
			return nil, wrap(err)
		}
	default:
		opts.logf("parsing '%s'...", file.Name)
		module, err := parser.NewParser(file.Content, cfg).Parse()
		if err != nil {
			return nil, wrap(err)
		}
		res.Module = module
		if opts.DumpAST != nil {
			ast.Dump(opts.DumpAST, module)
		}
		opts.logf("evaluating %d declaration(s)...", len(module))
		if err := ev.EvalModule(module); err != nil {
			return nil, wrap(err)
		}
	}

	if opts.DumpEnv != nil {
		DumpEnv(opts.DumpEnv, res.Env)
	}

	opts.logf("generating C for %d binding(s)...", res.Env.Len())
	buf, err := backend.Generate(res.Env, cfg)
	if err != nil {
		return nil, wrap(err)
	}
	res.Output = buf.String()
	res.Warnings = rep.Count()
	return res, nil
}

// DumpEnv writes one `name = value` line per user binding.
func DumpEnv(w io.Writer, env *comptime.Env) {
	for _, b := range env.Bindings() {
		if b.Builtin {
			continue
		}
		kind := "const"
		if b.Mutable {
			kind = "var"
		}
		val := "_"
		if b.Value != nil {
			val = b.Value.String()
		}
		if b.Type != nil {
			fmt.Fprintf(w, "%s %s : %s = %s\n", kind, b.Name, b.Type, val)
		} else {
			fmt.Fprintf(w, "%s %s = %s\n", kind, b.Name, val)
		}
	}
}
