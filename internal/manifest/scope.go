package manifest

import (
	"fmt"
	"maps"

	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Functions available to manifest expressions.
var functions = map[string]function.Function{
	"concat":  stdlib.ConcatFunc,
	"format":  stdlib.FormatFunc,
	"join":    stdlib.JoinFunc,
	"lower":   stdlib.LowerFunc,
	"replace": stdlib.ReplaceFunc,
	"upper":   stdlib.UpperFunc,
}

// Evaluation scope for one build target.
type Scope struct {
	ctx *hcl.EvalContext
}

// Creates the scope for target platform p built with tc on host.
//
// Expressions see:
//
//	platform.os, platform.arch, platform.variant, platform.id, platform.slug
//	toolchain.target, toolchain.env
//	host.os, host.arch, host.id
func NewScope(p platform.Platform, tc platform.Toolchain, host platform.Platform) *Scope {
	env := cty.MapValEmpty(cty.String)
	if len(tc.Env) > 0 {
		vals := make(map[string]cty.Value, len(tc.Env))
		for k, v := range tc.Env {
			vals[k] = cty.StringVal(v)
		}
		env = cty.MapVal(vals)
	}

	return &Scope{ctx: &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"platform": cty.ObjectVal(map[string]cty.Value{
				"os":      cty.StringVal(p.OS),
				"arch":    cty.StringVal(p.Architecture),
				"variant": cty.StringVal(p.Variant),
				"id":      cty.StringVal(p.String()),
				"slug":    cty.StringVal(p.Slug()),
			}),
			"toolchain": cty.ObjectVal(map[string]cty.Value{
				"target": cty.StringVal(tc.Target),
				"env":    env,
			}),
			"host": cty.ObjectVal(map[string]cty.Value{
				"os":   cty.StringVal(host.OS),
				"arch": cty.StringVal(host.Architecture),
				"id":   cty.StringVal(host.String()),
			}),
		},
		Functions: maps.Clone(functions),
	}}
}

// Evaluates a list-of-strings expression.
func (s *Scope) evalList(expr hcl.Expression) ([]string, error) {
	val, diags := expr.Value(s.ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrEval, diags)
	}
	if val.IsNull() {
		return nil, fmt.Errorf("%w: %s: value is null", ErrEval, expr.Range())
	}

	val, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEval, expr.Range(), err)
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("%w: %s: value is not known", ErrEval, expr.Range())
	}

	out := make([]string, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.IsNull() {
			return nil, fmt.Errorf("%w: %s: list contains null", ErrEval, expr.Range())
		}
		out = append(out, v.AsString())
	}
	return out, nil
}

// Evaluates a string expression.
func (s *Scope) evalString(expr hcl.Expression) (string, error) {
	val, diags := expr.Value(s.ctx)
	if diags.HasErrors() {
		return "", fmt.Errorf("%w: %w", ErrEval, diags)
	}
	val, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrEval, expr.Range(), err)
	}
	if val.IsNull() || !val.IsKnown() {
		return "", fmt.Errorf("%w: %s: value is null", ErrEval, expr.Range())
	}
	return val.AsString(), nil
}
