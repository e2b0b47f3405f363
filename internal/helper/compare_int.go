package helper

import (
	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/param"
	"go.wazuh.dev/engine/internal/registry"
)

type intCompareFn func(left, right int64) bool

// buildIntCompare implements the int_* comparison family: read
// targetField as int, read the single operand (literal or
// reference) as int, succeed iff compare(left, right) holds. VALUE
// operands must parse as base-10 integers at build time.
func buildIntCompare(helperName string, compare intCompareFn) registry.Builder {
	return func(def registry.Definition) (*expr.Node, error) {
		params, err := parseArgs(helperName, def.TargetField, def.RawArgs, 1, 0)
		if err != nil {
			return nil, err
		}
		operand := params[0]
		var literal int64
		if operand.Kind == param.Value {
			v, ok := parseIntLiteral(operand.Raw)
			if !ok {
				return nil, buildError(helperName, def.TargetField, "operand %q is not a base-10 integer", operand.Raw)
			}
			literal = v
		}

		tr := newTraces(helperName, def.TargetField, def.RawArgs)
		target := def.TargetField

		return expr.Term(tr.name, func(doc *event.Document) expr.Result {
			left, ok := doc.GetInt64(target)
			if !ok {
				return tr.failTarget(doc)
			}
			var right int64
			if operand.Kind == param.Reference {
				right, ok = doc.GetInt64(operand.Path)
				if !ok {
					return tr.failParam(doc)
				}
			} else {
				right = literal
			}
			if compare(left, right) {
				return tr.ok(doc)
			}
			return tr.fail(doc, "comparison false")
		}), nil
	}
}

func registerIntCompare(r *registry.Registry) {
	r.MustRegister("int_equal", buildIntCompare("int_equal", func(l, rr int64) bool { return l == rr }))
	r.MustRegister("int_not_equal", buildIntCompare("int_not_equal", func(l, rr int64) bool { return l != rr }))
	r.MustRegister("int_greater", buildIntCompare("int_greater", func(l, rr int64) bool { return l > rr }))
	r.MustRegister("int_greater_or_equal", buildIntCompare("int_greater_or_equal", func(l, rr int64) bool { return l >= rr }))
	r.MustRegister("int_less", buildIntCompare("int_less", func(l, rr int64) bool { return l < rr }))
	r.MustRegister("int_less_or_equal", buildIntCompare("int_less_or_equal", func(l, rr int64) bool { return l <= rr }))
}
