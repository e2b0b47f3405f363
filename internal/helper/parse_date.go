package helper

import (
	"strings"
	"time"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/param"
	"go.wazuh.dev/engine/internal/registry"
)

// strftimeToGoLayout translates the common strftime directives used by
// asset authors into a Go reference-time layout. Unknown directives
// pass through unchanged, so a caller who already wrote a Go layout
// keeps working.
func strftimeToGoLayout(format string) string {
	replacer := strings.NewReplacer(
		"%Y", "2006",
		"%y", "06",
		"%m", "01",
		"%d", "02",
		"%H", "15",
		"%M", "04",
		"%S", "05",
		"%z", "-0700",
		"%Z", "MST",
		"%T", "15:04:05",
		"%F", "2006-01-02",
		"%b", "Jan",
		"%B", "January",
		"%a", "Mon",
		"%A", "Monday",
	)
	return replacer.Replace(format)
}

// registerDateParser wires parse_date: arity 2 or 3
// (input, format[, timezone]). On success writes an RFC 3339 timestamp
// string, normalizing whatever input format the asset author declared.
func registerDateParser(r *registry.Registry) {
	const helperName = "parse_date"
	build := buildParseHelper(helperName, -1, 2, func(input string, configArgs []param.Parameter, doc *event.Document) (any, bool) {
		if len(configArgs) == 0 {
			return nil, false
		}
		format := configValue(doc, configArgs[0], "")
		if format == "" {
			return nil, false
		}
		layout := strftimeToGoLayout(format)

		loc := time.UTC
		if len(configArgs) > 1 {
			tzName := configValue(doc, configArgs[1], "")
			if tzName != "" {
				l, err := time.LoadLocation(tzName)
				if err != nil {
					return nil, false
				}
				loc = l
			}
		}

		t, err := time.ParseInLocation(layout, input, loc)
		if err != nil {
			return nil, false
		}
		return t.UTC().Format(time.RFC3339), true
	})
	r.MustRegister(helperName, func(def registry.Definition) (*expr.Node, error) {
		if len(def.RawArgs) > 3 {
			return nil, buildError(helperName, def.TargetField, "expected at most 3 argument(s), got %d", len(def.RawArgs))
		}
		return build(def)
	})
}
