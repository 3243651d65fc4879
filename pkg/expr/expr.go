package expr

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/cel-go/cel"
)

// Variable names declared by [NewFileEnvironment].
const (
	VarFile    = "file"
	VarDir     = "dir"
	VarContent = "content"
	VarOp      = "op"
)

// CEL environment creation and compilation are not safe for concurrent use.
var celMutex sync.Mutex

// Environment wraps a [*cel.Env] with the crumbs function library.
type Environment struct {
	env *cel.Env
}

// NewEnvironment creates a new [Environment].
func NewEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	opts = append(opts, cel.Lib(&lib{}))

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &Environment{env: env}, nil
}

// MustNewEnvironment creates a new [Environment] and panics on error.
func MustNewEnvironment(opts ...cel.EnvOption) *Environment {
	env, err := NewEnvironment(opts...)
	if err != nil {
		panic(err)
	}

	return env
}

// NewFileEnvironment creates an [Environment] declaring the file variables.
func NewFileEnvironment() (*Environment, error) {
	return NewEnvironment(
		cel.Variable(VarFile, cel.StringType),
		cel.Variable(VarDir, cel.StringType),
		cel.Variable(VarContent, cel.StringType),
		cel.Variable(VarOp, cel.IntType),
	)
}

// Compile compiles an expression into a program.
//
//nolint:ireturn // Following CEL's function signature.
func (e *Environment) Compile(expression string) (cel.Program, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	return program, nil
}

// FileVars returns the activation for a program compiled in a
// [NewFileEnvironment].
func FileVars(path string, content []byte, op int64) map[string]any {
	return map[string]any{
		VarFile:    path,
		VarDir:     filepath.Dir(path),
		VarContent: string(content),
		VarOp:      op,
	}
}

// EvalBool evaluates program against vars, which must produce a boolean.
func EvalBool(program cel.Program, vars map[string]any) (bool, error) {
	result, _, err := program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluate: %w", err)
	}

	b, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluate: want bool, got %s", result.Type().TypeName())
	}

	return b, nil
}
