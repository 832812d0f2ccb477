package expr

import (
	"fmt"
	"strings"

	"github.com/l0p7/seometa/internal/templates"
)

// HybridEvaluator can evaluate both CEL expressions and Go templates.
// It automatically detects the type based on the presence of {{ in the expression.
type HybridEvaluator struct {
	celEnv   *Environment
	renderer *templates.Renderer
}

// NewHybridEvaluator creates an evaluator that supports both CEL and templates.
func NewHybridEvaluator(renderer *templates.Renderer) (*HybridEvaluator, error) {
	celEnv, err := NewEnvironment()
	if err != nil {
		return nil, fmt.Errorf("hybrid: create CEL environment: %w", err)
	}
	if renderer == nil {
		renderer = templates.NewRenderer(nil)
	}
	return &HybridEvaluator{
		celEnv:   celEnv,
		renderer: renderer,
	}, nil
}

// Expression is a compiled override ready for repeated evaluation.
type Expression struct {
	source   string
	template *templates.Template
	program  Program
}

// Compile prepares expression once so per-request evaluation does not parse.
// result constrains CEL programs; templates always render strings.
func (h *HybridEvaluator) Compile(name, expression string, result Result) (Expression, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return Expression{}, fmt.Errorf("hybrid: %s: expression required", name)
	}
	if strings.Contains(trimmed, "{{") {
		tmpl, err := h.renderer.CompileInline(name, trimmed)
		if err != nil {
			return Expression{}, fmt.Errorf("hybrid: compile template: %w", err)
		}
		return Expression{source: trimmed, template: tmpl}, nil
	}
	prog, err := h.celEnv.Compile(trimmed, result)
	if err != nil {
		return Expression{}, fmt.Errorf("hybrid: compile CEL: %w", err)
	}
	return Expression{source: trimmed, program: prog}, nil
}

// Evaluate compiles and executes expression in one step.
func (h *HybridEvaluator) Evaluate(expression string, data map[string]any) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return "", nil
	}
	compiled, err := h.Compile("inline", expression, AnyResult)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(data)
}

// Source returns the original expression for logging.
func (e Expression) Source() string { return e.source }

// IsTemplate reports whether the expression renders through text/template.
func (e Expression) IsTemplate() bool { return e.template != nil }

// Evaluate runs the expression against the activation. Templates always yield
// strings; CEL programs yield their native value.
func (e Expression) Evaluate(data map[string]any) (any, error) {
	if e.template != nil {
		result, err := e.template.Render(data)
		if err != nil {
			return "", fmt.Errorf("hybrid: render template: %w", err)
		}
		return result, nil
	}
	result, err := e.program.Eval(data)
	if err != nil {
		return nil, fmt.Errorf("hybrid: evaluate CEL: %w", err)
	}
	return result, nil
}
