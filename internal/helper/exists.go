package helper

import (
	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/registry"
)

// buildExists implements exists/not_exists: arity 0.
func buildExists(helperName string, want bool) registry.Builder {
	return func(def registry.Definition) (*expr.Node, error) {
		if _, err := parseArgs(helperName, def.TargetField, def.RawArgs, 0, 0); err != nil {
			return nil, err
		}
		tr := newTraces(helperName, def.TargetField, def.RawArgs)
		target := def.TargetField
		return expr.Term(tr.name, func(doc *event.Document) expr.Result {
			if doc.Exists(target) == want {
				return tr.ok(doc)
			}
			return tr.fail(doc, "existence mismatch")
		}), nil
	}
}

func registerExists(r *registry.Registry) {
	r.MustRegister("exists", buildExists("exists", true))
	r.MustRegister("not_exists", buildExists("not_exists", false))
}
