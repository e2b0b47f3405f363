package helper

import (
	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/param"
	"go.wazuh.dev/engine/internal/registry"
)

// parseFn is one HLP parser's pure transform: given the resolved input
// string and the helper's remaining config args (already parsed,
// arg 0 excluded), return the typed value to write at targetField, or
// ok=false if the input doesn't parse.
type parseFn func(input string, configArgs []param.Parameter, doc *event.Document) (value any, ok bool)

// buildParseHelper implements the shape every parse_* helper shares:
// arg 0 is the input (VALUE or $ref to a string field), the
// rest is parser-specific config; on success the parsed value is
// written to targetField and the event is otherwise untouched on
// failure.
func buildParseHelper(helperName string, exact, min int, fn parseFn) registry.Builder {
	return func(def registry.Definition) (*expr.Node, error) {
		params, err := parseArgs(helperName, def.TargetField, def.RawArgs, exact, min)
		if err != nil {
			return nil, err
		}
		if len(params) == 0 {
			return nil, buildError(helperName, def.TargetField, "missing input argument")
		}
		input := params[0]
		configArgs := params[1:]

		tr := newTraces(helperName, def.TargetField, def.RawArgs)
		target := def.TargetField

		return expr.Term(tr.name, func(doc *event.Document) expr.Result {
			raw, ok := resolveString(doc, input)
			if !ok {
				return tr.failParam(doc)
			}
			value, ok := fn(raw, configArgs, doc)
			if !ok {
				return tr.fail(doc, "parse failed")
			}
			if err := doc.SetObject(target, value); err != nil {
				return tr.fail(doc, "write failed")
			}
			return tr.ok(doc)
		}), nil
	}
}

// configValue resolves a config parameter (literal or reference) to a
// string, falling back to def if a reference is missing.
func configValue(doc *event.Document, p param.Parameter, def string) string {
	v, ok := resolveString(doc, p)
	if !ok {
		return def
	}
	return v
}
