package helper

import (
	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/param"
	"go.wazuh.dev/engine/internal/registry"
)

// buildArrayContains implements array_contains/v1/v2/...:
// arity >= 1, fails if target missing or not array, else succeeds if
// any parameter equals any array element. REFERENCE parameters read
// their current event value; a REFERENCE that resolves to nothing is
// silently skipped rather than failing the whole helper.
func buildArrayContains(helperName string) registry.Builder {
	return func(def registry.Definition) (*expr.Node, error) {
		params, err := parseArgs(helperName, def.TargetField, def.RawArgs, -1, 1)
		if err != nil {
			return nil, err
		}
		tr := newTraces(helperName, def.TargetField, def.RawArgs)
		target := def.TargetField

		return expr.Term(tr.name, func(doc *event.Document) expr.Result {
			elements, ok := doc.GetArray(target)
			if !ok {
				return tr.failTarget(doc)
			}
			for _, p := range params {
				var want string
				if p.Kind == param.Reference {
					v, ok := doc.GetString(p.Path)
					if !ok {
						continue
					}
					want = v
				} else {
					want = p.Raw
				}
				for _, el := range elements {
					if el.String() == want {
						return tr.ok(doc)
					}
				}
			}
			return tr.fail(doc, "no parameter matched an array element")
		}), nil
	}
}

func registerArray(r *registry.Registry) {
	for _, name := range []string{"array_contains", "array_contains/v1", "array_contains/v2"} {
		r.MustRegister(name, buildArrayContains(name))
	}
}
