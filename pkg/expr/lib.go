package expr

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"
)

// fsOps are the fsnotify operations exposed as fs.<NAME> constants.
var fsOps = map[string]fsnotify.Op{
	"CREATE": fsnotify.Create,
	"REMOVE": fsnotify.Remove,
	"WRITE":  fsnotify.Write,
	"RENAME": fsnotify.Rename,
	"CHMOD":  fsnotify.Chmod,
}

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	opts := []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),

		// `has` checks an event for any of the given flags.
		// Example: op.has(fs.WRITE).
		// Example: op.has(fs.CREATE, fs.RENAME, fs.REMOVE).
		cel.Macros(cel.ReceiverVarArgMacro("has", hasVarArgMacro)),
		cel.Function("@has",
			cel.Overload("@has_int_int", []*cel.Type{cel.IntType, cel.IntType}, cel.BoolType,
				cel.BinaryBinding(func(event, flag ref.Val) ref.Val {
					return hasOp(event, []ref.Val{flag})
				}),
			),
			cel.Overload("@has_int_list_int", []*cel.Type{cel.IntType, cel.ListType(cel.IntType)}, cel.BoolType,
				cel.BinaryBinding(func(event, flags ref.Val) ref.Val {
					list, ok := flags.(traits.Lister)
					if !ok {
						return types.NewErr("has: invalid flags list")
					}

					size, ok := list.Size().(types.Int)
					if !ok {
						return types.NewErr("has: invalid flags list size")
					}

					vals := make([]ref.Val, 0, int(size))
					for i := range size {
						vals = append(vals, list.Get(i))
					}

					return hasOp(event, vals)
				}),
			),
		),

		// Example: pathBase(file) in ["go.mod", "go.sum"].
		stringFunc("pathBase", "path_base", filepath.Base),
		// Example: pathDir(file).contains("/testdata").
		stringFunc("pathDir", "path_dir", filepath.Dir),
		// Example: pathExt(file) in [".yaml", ".yml"].
		stringFunc("pathExt", "path_ext", filepath.Ext),
		// Example: firstLine(content).startsWith("<?xml").
		stringFunc("firstLine", "first_line", firstLine),
		// Example: shebang(content) in ["sh", "bash"].
		stringFunc("shebang", "shebang", Shebang),

		// `yamlPath` reads a YAML file and returns the value at a YAML path,
		// or null when the file, the path or the value cannot be read.
		// Example: yamlPath(file, "$.kind") == "RuleSet".
		cel.Function("yamlPath",
			cel.Overload("yaml_path", []*cel.Type{cel.StringType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(func(file, path ref.Val) ref.Val {
					f, ok := file.Value().(string)
					if !ok {
						return types.NewErr("yamlPath: invalid file path")
					}

					p, ok := path.Value().(string)
					if !ok {
						return types.NewErr("yamlPath: invalid yaml path")
					}

					return yamlPathValue(f, p)
				}),
			),
		),
	}

	for name, op := range fsOps {
		opts = append(opts, cel.Constant("fs."+name, types.IntType, types.Int(op)))
	}

	return opts
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

// stringFunc declares a CEL function from string to string.
func stringFunc(name, overload string, fn func(string) string) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(overload, []*cel.Type{cel.StringType}, cel.StringType,
			cel.UnaryBinding(func(v ref.Val) ref.Val {
				s, ok := v.Value().(string)
				if !ok {
					return types.NewErr("%s: invalid string value", name)
				}

				return types.String(fn(s))
			}),
		),
	)
}

// hasOp reports whether event has any of flags.
func hasOp(event ref.Val, flags []ref.Val) ref.Val {
	e, err := toOp(event)
	if err != nil {
		return err
	}

	var mask fsnotify.Op
	for _, f := range flags {
		op, err := toOp(f)
		if err != nil {
			return err
		}

		mask |= op
	}

	return types.Bool(e.Has(mask))
}

func toOp(v ref.Val) (fsnotify.Op, ref.Val) {
	i, ok := v.Value().(int64)
	if !ok {
		return 0, types.NewErr("has: invalid operation %v", v)
	}

	if i < 0 || i > math.MaxUint32 {
		return 0, types.NewErr("has: operation %d out of range", i)
	}

	return fsnotify.Op(i), nil
}

func yamlPathValue(file, expr string) ref.Val {
	log := slog.With(slog.String("file", file), slog.String("yamlPath", expr))

	content, err := os.ReadFile(file) //nolint:gosec // G304: Reading the rule's own input.
	if err != nil {
		log.Debug("read yaml file, returning null", slog.Any("error", err))

		return types.NullValue
	}

	path, err := yaml.PathString(expr)
	if err != nil {
		log.Debug("invalid yaml path, returning null", slog.Any("error", err))

		return types.NullValue
	}

	var value any

	err = path.Read(strings.NewReader(string(content)), &value)
	if err != nil {
		log.Debug("read yaml path, returning null", slog.Any("error", err))

		return types.NullValue
	}

	return ToValue(value)
}

//nolint:ireturn // Following CEL's function signature.
func hasVarArgMacro(meh cel.MacroExprFactory, target ast.Expr, args []ast.Expr) (ast.Expr, *cel.Error) {
	switch len(args) {
	case 0:
		return nil, meh.NewError(target.ID(), "has() requires at least one argument")
	case 1:
		return meh.NewCall("@has", target, args[0]), nil
	default:
		return meh.NewCall("@has", target, meh.NewList(args...)), nil
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")

	return strings.TrimSuffix(line, "\r")
}

// Shebang returns the interpreter named by a "#!" first line of content,
// without its directory. For "#!/usr/bin/env NAME", it returns NAME.
func Shebang(content string) string {
	line := firstLine(content)
	if !strings.HasPrefix(line, "#!") {
		return ""
	}

	fields := strings.Fields(line[2:])
	if len(fields) == 0 {
		return ""
	}

	interp := filepath.Base(fields[0])
	if interp != "env" {
		return interp
	}

	for _, f := range fields[1:] {
		if !strings.HasPrefix(f, "-") {
			return filepath.Base(f)
		}
	}

	return ""
}

// ToValue converts a decoded YAML value to a CEL value. Values CEL cannot
// represent become null.
//
//nolint:ireturn // Following CEL's function signature.
func ToValue(v any) ref.Val {
	val := types.DefaultTypeAdapter.NativeToValue(v)
	if types.IsError(val) {
		return types.NullValue
	}

	return val
}
