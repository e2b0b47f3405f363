package helper

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/param"
	"go.wazuh.dev/engine/internal/registry"
)

// registerURIParser wires parse_uri: arity 1. Writes an object with
// the parsed URI's components rather than an opaque blob.
func registerURIParser(r *registry.Registry) {
	const helperName = "parse_uri"
	r.MustRegister(helperName, buildParseHelper(helperName, 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		u, err := url.Parse(input)
		if err != nil || u.Scheme == "" {
			return nil, false
		}
		return map[string]any{
			"scheme":   u.Scheme,
			"host":     u.Hostname(),
			"port":     u.Port(),
			"path":     u.Path,
			"query":    u.RawQuery,
			"fragment": u.Fragment,
			"userinfo": u.User.String(),
		}, true
	}))
}

var fqdnPattern = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// registerFQDNParser wires parse_fqdn: arity 1. Validates
// and lowercases a fully-qualified domain name.
func registerFQDNParser(r *registry.Registry) {
	const helperName = "parse_fqdn"
	r.MustRegister(helperName, buildParseHelper(helperName, 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		name := strings.TrimSuffix(input, ".")
		if !fqdnPattern.MatchString(name) {
			return nil, false
		}
		return strings.ToLower(name), true
	}))
}

var userAgentBrowserPattern = regexp.MustCompile(`(Chrome|Firefox|Safari|Edge|MSIE|OPR)/([0-9.]+)`)
var userAgentOSPattern = regexp.MustCompile(`\(([^)]+)\)`)

// registerUserAgentParser wires parse_useragent: arity 1. Extracts a
// best-effort browser name/version and OS token without pulling in a
// full UA database.
func registerUserAgentParser(r *registry.Registry) {
	const helperName = "parse_useragent"
	r.MustRegister(helperName, buildParseHelper(helperName, 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		if strings.TrimSpace(input) == "" {
			return nil, false
		}
		result := map[string]any{"original": input}
		if m := userAgentBrowserPattern.FindStringSubmatch(input); m != nil {
			result["browser"] = m[1]
			result["version"] = m[2]
		}
		if m := userAgentOSPattern.FindStringSubmatch(input); m != nil {
			result["os"] = strings.TrimSpace(strings.SplitN(m[1], ";", 2)[0])
		}
		return result, true
	}))
}

// registerFileParser wires parse_file: arity 1. Splits a
// filesystem path into directory, base name, and extension.
func registerFileParser(r *registry.Registry) {
	const helperName = "parse_file"
	r.MustRegister(helperName, buildParseHelper(helperName, 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		if input == "" {
			return nil, false
		}
		base := path.Base(input)
		ext := path.Ext(base)
		name := strings.TrimSuffix(base, ext)
		return map[string]any{
			"path": input,
			"dir":  path.Dir(input),
			"name": name,
			"ext":  strings.TrimPrefix(ext, "."),
		}, true
	}))
}

// registerQuotedParser wires parse_quoted: arity 1-3
// (input[, quote-char[, escape-char]]). Strips matching outer quotes
// and unescapes the escape character.
func registerQuotedParser(r *registry.Registry) {
	const helperName = "parse_quoted"
	build := buildParseHelper(helperName, -1, 1, func(input string, configArgs []param.Parameter, doc *event.Document) (any, bool) {
		quote := byte('"')
		if len(configArgs) > 0 {
			if v := configValue(doc, configArgs[0], `"`); len(v) == 1 {
				quote = v[0]
			}
		}
		escape := byte('\\')
		if len(configArgs) > 1 {
			if v := configValue(doc, configArgs[1], `\`); len(v) == 1 {
				escape = v[0]
			}
		}
		if len(input) < 2 || input[0] != quote || input[len(input)-1] != quote {
			return nil, false
		}
		body := input[1 : len(input)-1]
		var b strings.Builder
		for i := 0; i < len(body); i++ {
			if body[i] == escape && i+1 < len(body) {
				i++
			}
			b.WriteByte(body[i])
		}
		return b.String(), true
	})
	r.MustRegister(helperName, func(def registry.Definition) (*expr.Node, error) {
		if len(def.RawArgs) > 3 {
			return nil, buildError(helperName, def.TargetField, "expected at most 3 argument(s), got %d", len(def.RawArgs))
		}
		return build(def)
	})
}

// registerBetweenParser wires parse_between: arity 3
// (input, start, end). Extracts the substring between the first
// occurrence of start and the following occurrence of end.
func registerBetweenParser(r *registry.Registry) {
	const helperName = "parse_between"
	r.MustRegister(helperName, buildParseHelper(helperName, 3, 0, func(input string, configArgs []param.Parameter, doc *event.Document) (any, bool) {
		start := configValue(doc, configArgs[0], "")
		end := configValue(doc, configArgs[1], "")
		if start == "" || end == "" {
			return nil, false
		}
		startIdx := strings.Index(input, start)
		if startIdx < 0 {
			return nil, false
		}
		rest := input[startIdx+len(start):]
		endIdx := strings.Index(rest, end)
		if endIdx < 0 {
			return nil, false
		}
		return rest[:endIdx], true
	}))
}

// registerKeyValueParser wires parse_key_value: exactly 5
// args (input, pair-separator, kv-separator, quote-char, escape-char).
// The escape-char argument is required but not used: values are only
// trimmed of the quote character at both ends.
func registerKeyValueParser(r *registry.Registry) {
	const helperName = "parse_key_value"
	r.MustRegister(helperName, buildParseHelper(helperName, 5, 0, func(input string, configArgs []param.Parameter, doc *event.Document) (any, bool) {
		pairSep := configValue(doc, configArgs[0], ",")
		kvSep := configValue(doc, configArgs[1], "=")
		quote := configValue(doc, configArgs[2], `"`)
		if pairSep == "" || kvSep == "" {
			return nil, false
		}
		result := map[string]any{}
		for _, pair := range strings.Split(input, pairSep) {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			kv := strings.SplitN(pair, kvSep, 2)
			if len(kv) != 2 {
				return nil, false
			}
			key := strings.TrimSpace(kv[0])
			val := strings.TrimSpace(kv[1])
			if quote != "" {
				val = strings.Trim(val, quote)
			}
			result[key] = val
		}
		if len(result) == 0 {
			return nil, false
		}
		return result, true
	}))
}
