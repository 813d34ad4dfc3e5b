package codegen

import (
	"bytes"

	"github.com/xplshn/cxc/pkg/comptime"
	"github.com/xplshn/cxc/pkg/config"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes a fully evaluated environment and a configuration, and
	// produces the target source text as a byte buffer.
	Generate(env *comptime.Env, cfg *config.Config) (*bytes.Buffer, error)
}

// Emit renders env as C source with the default backend.
func Emit(env *comptime.Env, cfg *config.Config) (string, error) {
	buf, err := NewCBackend().Generate(env, cfg)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
