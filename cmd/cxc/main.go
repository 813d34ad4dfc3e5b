package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/xplshn/cxc/pkg/cli"
	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
	"github.com/xplshn/cxc/pkg/driver"
	"golang.org/x/term"
)

// errReported marks a failure whose diagnostic has already been printed.
var errReported = errors.New("compilation failed")

type options struct {
	outFile  string
	syntax   string
	target   string
	cpu      string
	dumpAST  bool
	dumpEnv  bool
	repl     bool
	verbose  bool
	pedantic bool
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp("cxc")
	app.Synopsis = "[options] <input.cx|input.cxs>"
	app.Description = "Evaluates constants, enums, conditionals and procedure signatures at compile time and lowers them to C."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/cxc>"
	app.Stdout, app.Stderr = stdout, stderr

	var opts options
	fs := app.FlagSet
	fs.String(&opts.outFile, "output", "o", "", "Place the output into <file> instead of stdout.", "file")
	fs.String(&opts.syntax, "syntax", "", "", "Input syntax (sexpr, decl). Defaults to the file extension.", "syntax")
	fs.String(&opts.target, "target", "t", "", "QBE target ABI used to pick the CPU (e.g. amd64_sysv, arm64).", "target")
	fs.String(&opts.cpu, "cpu", "", "", "Target CPU seen by the CPU builtin (x86, x86_64, arm, aarch64, riscv64).", "cpu")
	fs.Bool(&opts.dumpAST, "dump-ast", "", false, "Print the parsed forms to stderr.")
	fs.Bool(&opts.dumpEnv, "dump-env", "", false, "Print the evaluated bindings to stderr.")
	fs.Bool(&opts.repl, "repl", "", false, "Start the interactive comptime REPL.")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Log pipeline progress to stderr.")
	fs.Bool(&opts.pedantic, "pedantic", "", false, "Restrict the language to its core fragment.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		// Pedantic flag affects everything else
		if opts.pedantic {
			cfg.SetWarning(config.WarnPedantic, true)
		}

		syntax := opts.syntax
		if syntax == "" {
			syntax = config.SyntaxSexpr
			if len(inputFiles) > 0 {
				syntax = config.SyntaxForFile(inputFiles[0])
			}
		}
		if err := cfg.ApplySyntax(syntax); err != nil {
			fmt.Fprintf(stderr, "cxc: error: %v\n", err)
			return err
		}

		// Apply -W/-F flags (override syntax settings)
		cfg.ApplyFlagGroups(fs, warningFlags, featureFlags)

		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, opts.target); err != nil {
			fmt.Fprintf(stderr, "cxc: error: %v\n", err)
			return err
		}
		if opts.cpu != "" {
			if err := cfg.SetCPU(opts.cpu); err != nil {
				fmt.Fprintf(stderr, "cxc: error: %v\n", err)
				return err
			}
		}

		if opts.repl {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				err := errors.New("--repl needs an interactive terminal")
				fmt.Fprintf(stderr, "cxc: error: %v\n", err)
				return err
			}
			return runREPL(cfg)
		}

		if len(inputFiles) != 1 {
			err := fmt.Errorf("expected exactly one input file, got %d", len(inputFiles))
			fmt.Fprintf(stderr, "cxc: error: %v\n", err)
			return err
		}
		return compileFile(inputFiles[0], cfg, opts, stdout, stderr)
	}
	return app
}

func compileFile(path string, cfg *config.Config, opts options, stdout, stderr io.Writer) error {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "cxc: error: could not read file '%s': %v\n", path, err)
		return err
	}
	file := &diag.File{Name: path, Content: content}

	dopts := driver.Options{Config: cfg, Warnings: stderr}
	if opts.verbose {
		dopts.Log = stderr
	}
	if opts.dumpAST {
		dopts.DumpAST = stderr
	}
	if opts.dumpEnv {
		dopts.DumpEnv = stderr
	}

	res, err := driver.Compile(file, dopts)
	if err != nil {
		diag.Print(stderr, file, err)
		return errReported
	}

	if opts.outFile == "" {
		_, err = io.WriteString(stdout, res.Output)
		return err
	}
	if opts.verbose {
		fmt.Fprintf(stderr, "cxc: info: writing '%s'...\n", opts.outFile)
	}
	if err := os.WriteFile(opts.outFile, []byte(res.Output), 0o644); err != nil {
		fmt.Fprintf(stderr, "cxc: error: could not write '%s': %v\n", opts.outFile, err)
		return err
	}
	return nil
}

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args[1:]); err != nil && !errors.Is(err, cli.ErrHelp) {
		os.Exit(1)
	}
}
