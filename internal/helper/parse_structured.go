package helper

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/param"
	"go.wazuh.dev/engine/internal/registry"
)

// registerJSONParser wires parse_json: arity 1. Decodes
// the input into a generic value (object, array, or scalar) and
// writes it at targetField as-is.
func registerJSONParser(r *registry.Registry) {
	const helperName = "parse_json"
	r.MustRegister(helperName, buildParseHelper(helperName, 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		var v any
		if err := json.Unmarshal([]byte(input), &v); err != nil {
			return nil, false
		}
		return v, true
	}))
}

// registerXMLParser wires parse_xml: arity 1-2 (input[, tag]). The
// optional second argument is accepted but not used: the first element
// of the input is always the one decoded. Walks encoding/xml's token
// stream directly into a generic map.
func registerXMLParser(r *registry.Registry) {
	const helperName = "parse_xml"
	build := buildParseHelper(helperName, -1, 1, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		dec := xml.NewDecoder(strings.NewReader(input))
		node, err := xmlToMap(dec)
		if err != nil {
			return nil, false
		}
		return node, true
	})
	r.MustRegister(helperName, func(def registry.Definition) (*expr.Node, error) {
		if len(def.RawArgs) > 2 {
			return nil, buildError(helperName, def.TargetField, "expected at most 2 argument(s), got %d", len(def.RawArgs))
		}
		return build(def)
	})
}

// xmlToMap recursively decodes the next element from dec into a
// map[string]any, folding attributes under "@attr" keys and character
// data under "#text".
func xmlToMap(dec *xml.Decoder) (map[string]any, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		return decodeElement(dec, start)
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (map[string]any, error) {
	node := map[string]any{}
	for _, attr := range start.Attr {
		node["@"+attr.Name.Local] = attr.Value
	}
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			if existing, ok := node[t.Name.Local]; ok {
				switch v := existing.(type) {
				case []any:
					node[t.Name.Local] = append(v, child)
				default:
					node[t.Name.Local] = []any{v, child}
				}
			} else {
				node[t.Name.Local] = child
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if s := strings.TrimSpace(text.String()); s != "" {
				node["#text"] = s
			}
			return node, nil
		}
	}
	if s := strings.TrimSpace(text.String()); s != "" {
		node["#text"] = s
	}
	return node, nil
}

// registerCSVParser wires parse_csv: arity >= 3 (input,
// column name, column name, ...). Parses a single CSV record and maps
// columns positionally onto the declared names.
func registerCSVParser(r *registry.Registry) {
	const helperName = "parse_csv"
	r.MustRegister(helperName, buildParseHelper(helperName, -1, 3, func(input string, configArgs []param.Parameter, doc *event.Document) (any, bool) {
		reader := csv.NewReader(strings.NewReader(input))
		record, err := reader.Read()
		if err != nil {
			return nil, false
		}
		if len(record) != len(configArgs) {
			return nil, false
		}
		result := map[string]any{}
		for i, col := range configArgs {
			name := configValue(doc, col, "")
			if name == "" {
				return nil, false
			}
			result[name] = record[i]
		}
		return result, true
	}))
}
