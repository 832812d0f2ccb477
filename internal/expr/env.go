package expr

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// Result is the shape an override must produce.
type Result int

const (
	// AnyResult accepts whatever the expression yields.
	AnyResult Result = iota
	BoolResult
	StringResult
)

func (r Result) String() string {
	switch r {
	case BoolResult:
		return "bool"
	case StringResult:
		return "string"
	default:
		return "any"
	}
}

func (r Result) accepts(t *cel.Type) bool {
	switch r {
	case BoolResult:
		return t.IsExactType(cel.BoolType) || t.IsExactType(cel.DynType)
	case StringResult:
		return t.IsExactType(cel.StringType) || t.IsExactType(cel.DynType)
	default:
		return true
	}
}

// Environment compiles override expressions. The activation carries:
//
//	page    - the rendered context (kind, id, taxonomy, locale, blogId, pageNumber, query)
//	site    - site identity (name, description)
//	subject - what the override decides about (title, excerpt)
//	value   - the built-in default result
//
// Besides the CEL standard library, lookup(map, key) returns null for absent
// keys and runes(s) counts characters rather than bytes.
type Environment struct {
	env *cel.Env
}

var activationMaps = []string{"page", "site", "subject"}

func NewEnvironment() (*Environment, error) {
	opts := make([]cel.EnvOption, 0, len(activationMaps)+4)
	for _, name := range activationMaps {
		opts = append(opts, cel.Variable(name, cel.MapType(cel.StringType, cel.DynType)))
	}
	opts = append(opts,
		cel.Variable("value", cel.DynType),
		cel.Function("lookup",
			cel.Overload("lookup_map_string",
				[]*cel.Type{cel.MapType(cel.StringType, cel.DynType), cel.StringType},
				cel.DynType,
				cel.BinaryBinding(lookup),
			),
		),
		cel.Function("runes",
			cel.Overload("runes_string",
				[]*cel.Type{cel.StringType},
				cel.IntType,
				cel.UnaryBinding(runeCount),
			),
		),
		cel.HomogeneousAggregateLiterals(),
	)
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("expr: build environment: %w", err)
	}
	return &Environment{env: env}, nil
}

// Program is a compiled expression bound to the result it must produce.
type Program struct {
	source  string
	program cel.Program
	result  Result
}

// Compile type-checks expression against result. Expressions whose type is
// only known at runtime are checked again by Eval.
func (e *Environment) Compile(expression string, result Result) (Program, error) {
	source := strings.TrimSpace(expression)
	if source == "" {
		return Program{}, fmt.Errorf("expr: expression required")
	}
	ast, issues := e.env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return Program{}, fmt.Errorf("expr: compile %q: %w", source, issues.Err())
	}
	if out := ast.OutputType(); !result.accepts(out) {
		return Program{}, fmt.Errorf("expr: %q yields %s, want %s", source, cel.FormatCELType(out), result)
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return Program{}, fmt.Errorf("expr: program %q: %w", source, err)
	}
	return Program{source: source, program: program, result: result}, nil
}

// Source is the trimmed expression, for logging.
func (p Program) Source() string { return p.source }

// Eval runs the program and returns the native Go value.
func (p Program) Eval(vars map[string]any) (any, error) {
	if p.program == nil {
		return nil, fmt.Errorf("expr: program not initialized")
	}
	val, _, err := p.program.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("expr: eval %q: %w", p.source, err)
	}
	out := val.Value()
	switch p.result {
	case BoolResult:
		if _, ok := out.(bool); !ok {
			return nil, fmt.Errorf("expr: %q yielded %T, want bool", p.source, out)
		}
	case StringResult:
		if _, ok := out.(string); !ok {
			return nil, fmt.Errorf("expr: %q yielded %T, want string", p.source, out)
		}
	}
	return out, nil
}

func lookup(container ref.Val, key ref.Val) ref.Val {
	mapper, ok := container.(traits.Mapper)
	if !ok {
		return types.NewErr("expr: lookup needs a map")
	}
	if value, found := mapper.Find(key); found && value != nil {
		return value
	}
	return types.NullValue
}

func runeCount(arg ref.Val) ref.Val {
	s, ok := arg.(types.String)
	if !ok {
		return types.MaybeNoSuchOverloadErr(arg)
	}
	return types.Int(utf8.RuneCountInString(string(s)))
}
