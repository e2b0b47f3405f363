package helper

import (
	"regexp"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/param"
	"go.wazuh.dev/engine/internal/registry"
)

// buildRegexMatch implements regex_match/regex_not_match: arity 1,
// literal-only operand, compiled once at build time. Matching is
// partial (unanchored).
func buildRegexMatch(helperName string, wantMatch bool) registry.Builder {
	return func(def registry.Definition) (*expr.Node, error) {
		params, err := parseArgs(helperName, def.TargetField, def.RawArgs, 1, 0)
		if err != nil {
			return nil, err
		}
		if err := requireKind(helperName, def.TargetField, params, 0, param.Value); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(params[0].Raw)
		if err != nil {
			return nil, buildError(helperName, def.TargetField, "invalid regex %q: %s", params[0].Raw, err)
		}

		tr := newTraces(helperName, def.TargetField, def.RawArgs)
		target := def.TargetField

		return expr.Term(tr.name, func(doc *event.Document) expr.Result {
			value, ok := doc.GetString(target)
			if !ok {
				return tr.failTarget(doc)
			}
			matched := re.MatchString(value)
			if matched == wantMatch {
				return tr.ok(doc)
			}
			return tr.fail(doc, "regex outcome mismatch")
		}), nil
	}
}

func registerRegex(r *registry.Registry) {
	r.MustRegister("regex_match", buildRegexMatch("regex_match", true))
	r.MustRegister("regex_not_match", buildRegexMatch("regex_not_match", false))
}
