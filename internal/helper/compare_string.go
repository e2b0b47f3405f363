package helper

import (
	"strings"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/registry"
)

type stringCompareFn func(left, right string) bool

// buildStringCompare implements the string_* comparison family.
// Ordering is pure byte-lexicographic; numeric-looking strings get no
// special treatment.
func buildStringCompare(helperName string, compare stringCompareFn) registry.Builder {
	return func(def registry.Definition) (*expr.Node, error) {
		params, err := parseArgs(helperName, def.TargetField, def.RawArgs, 1, 0)
		if err != nil {
			return nil, err
		}
		operand := params[0]
		tr := newTraces(helperName, def.TargetField, def.RawArgs)
		target := def.TargetField

		return expr.Term(tr.name, func(doc *event.Document) expr.Result {
			left, ok := doc.GetString(target)
			if !ok {
				return tr.failTarget(doc)
			}
			right, ok := resolveString(doc, operand)
			if !ok {
				return tr.failParam(doc)
			}
			if compare(left, right) {
				return tr.ok(doc)
			}
			return tr.fail(doc, "comparison false")
		}), nil
	}
}

func registerStringCompare(r *registry.Registry) {
	r.MustRegister("string_equal", buildStringCompare("string_equal", func(l, rr string) bool { return l == rr }))
	r.MustRegister("string_not_equal", buildStringCompare("string_not_equal", func(l, rr string) bool { return l != rr }))
	r.MustRegister("string_greater", buildStringCompare("string_greater", func(l, rr string) bool { return l > rr }))
	r.MustRegister("string_greater_or_equal", buildStringCompare("string_greater_or_equal", func(l, rr string) bool { return l >= rr }))
	r.MustRegister("string_less", buildStringCompare("string_less", func(l, rr string) bool { return l < rr }))
	r.MustRegister("string_less_or_equal", buildStringCompare("string_less_or_equal", func(l, rr string) bool { return l <= rr }))
	r.MustRegister("starts_with", buildStringCompare("starts_with", strings.HasPrefix))
	r.MustRegister("contains", buildStringCompare("contains", func(l, rr string) bool {
		if rr == "" {
			return false
		}
		return strings.Contains(l, rr)
	}))
}
