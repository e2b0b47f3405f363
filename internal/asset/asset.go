// Package asset implements the asset compiler: parse one asset
// document (decoder, rule, output, or filter) into an Asset
// whose Expr field is the single expr.Node a policy composer stitches
// into a graph.
package asset

import (
	"fmt"
	"strings"

	"go.wazuh.dev/engine/internal/enginerr"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/registry"
	"gopkg.in/yaml.v3"
)

// Type enumerates the four asset kinds.
type Type string

const (
	Decoder Type = "decoder"
	Rule    Type = "rule"
	Output  Type = "output"
	Filter  Type = "filter"
)

// FieldHelper is one `target: helper(args...)` entry from a check
// clause or a stage. It unmarshals from a single-key YAML mapping so
// document order is preserved; sibling order decides trace output and
// Or short-circuiting, and a Go map would lose it.
type FieldHelper struct {
	Target string
	Raw    string
}

// UnmarshalYAML decodes a single-key mapping node ("/field:
// helper_call(...)") into Target/Raw.
func (f *FieldHelper) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("asset: expected a single-key mapping, got %v", node.Kind)
	}
	f.Target = node.Content[0].Value
	f.Raw = node.Content[1].Value
	return nil
}

// Stage is one named pipeline step of an asset's stage list ("map",
// "parse", "normalize", …).
type Stage struct {
	Name    string        `yaml:"name"`
	Entries []FieldHelper `yaml:"entries"`
}

// Document is the raw YAML shape of one asset.
type Document struct {
	Name    string        `yaml:"name"`
	Type    Type          `yaml:"type"`
	Parents []string      `yaml:"parents"`
	Check   []FieldHelper `yaml:"check"`
	Stages  []Stage       `yaml:"stages"`
	// Targets names the asset nodes a filter gates; empty for
	// non-filter assets.
	Targets []string `yaml:"targets"`
}

// Parse decodes one asset document from YAML bytes.
func Parse(raw []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("asset: parse: %w", err)
	}
	if doc.Name == "" {
		return Document{}, fmt.Errorf("asset: document has no name")
	}
	switch doc.Type {
	case Decoder, Rule, Output, Filter:
	default:
		return Document{}, fmt.Errorf("asset %q: unknown type %q", doc.Name, doc.Type)
	}
	return doc, nil
}

// Asset is the compiled form of a Document: Expr is the single
// expression the policy composer treats as this asset's contribution
// to the graph. For Decoder/Rule/Output it is
// Implication(Check, Stages); for Filter it is just Check, wired as a
// gate by the composer.
type Asset struct {
	Name    string
	Type    Type
	Parents []string
	Targets []string
	Expr    *expr.Node
}

// Compile builds one Asset from doc, resolving every check/stage
// helper call against reg. Argument validation lives in the builders
// themselves; this package only does the parsing and tree assembly
// around them.
func Compile(reg *registry.Registry, doc Document) (*Asset, error) {
	checkNode, err := buildCheck(reg, doc.Name, doc.Check)
	if err != nil {
		return nil, err
	}

	a := &Asset{Name: doc.Name, Type: doc.Type, Parents: doc.Parents, Targets: doc.Targets}

	if doc.Type == Filter {
		if checkNode == nil {
			checkNode = expr.And(doc.Name + ".check")
		}
		a.Expr = checkNode
		return a, nil
	}

	if checkNode == nil {
		checkNode = expr.And(doc.Name + ".check")
	}
	stagesNode, err := buildStages(reg, doc.Name, doc.Stages)
	if err != nil {
		return nil, err
	}
	a.Expr = expr.Implication(doc.Name, checkNode, stagesNode)
	return a, nil
}

// buildCheck assembles an asset's check clauses into an And over term
// helpers. A document with no check clauses yields nil; the caller
// substitutes a vacuously-true And.
func buildCheck(reg *registry.Registry, assetName string, fields []FieldHelper) (*expr.Node, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	children := make([]*expr.Node, 0, len(fields))
	for _, f := range fields {
		node, err := buildTerm(reg, assetName, f)
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}
	return expr.And(assetName+".check", children...), nil
}

// buildStages expands each stage into a Chain over its entries, and
// the stage list itself into a Chain over stages.
func buildStages(reg *registry.Registry, assetName string, stages []Stage) (*expr.Node, error) {
	stageNodes := make([]*expr.Node, 0, len(stages))
	for _, s := range stages {
		entryNodes := make([]*expr.Node, 0, len(s.Entries))
		for _, f := range s.Entries {
			node, err := buildTerm(reg, assetName, f)
			if err != nil {
				return nil, err
			}
			entryNodes = append(entryNodes, node)
		}
		stageNodes = append(stageNodes, expr.Chain(assetName+"."+s.Name, entryNodes...))
	}
	return expr.Chain(assetName+".stages", stageNodes...), nil
}

// buildTerm resolves one `target: helper(args...)` entry against reg.
func buildTerm(reg *registry.Registry, assetName string, f FieldHelper) (*expr.Node, error) {
	helperName, args, err := parseHelperCall(f.Raw)
	if err != nil {
		return nil, &enginerr.BuildError{Helper: f.Raw, Target: f.Target, Reason: err.Error()}
	}
	builder, err := reg.Lookup(helperName)
	if err != nil {
		return nil, &enginerr.CompilerError{Asset: assetName, Reason: err.Error()}
	}
	node, err := builder(registry.Definition{TargetField: f.Target, HelperName: helperName, RawArgs: args})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// parseHelperCall splits "helper_name(arg1, arg2)" into its name and
// argument list. Arguments are split on top-level commas only; each
// argument is trimmed of surrounding whitespace and of one pair of
// matching outer single or double quotes before it reaches the
// parameter parser.
func parseHelperCall(raw string) (name string, args []string, err error) {
	raw = strings.TrimSpace(raw)
	open := strings.IndexByte(raw, '(')
	if open < 0 || !strings.HasSuffix(raw, ")") {
		return "", nil, fmt.Errorf("malformed helper call %q: expected name(args)", raw)
	}
	name = strings.TrimSpace(raw[:open])
	if name == "" {
		return "", nil, fmt.Errorf("malformed helper call %q: empty helper name", raw)
	}
	inner := raw[open+1 : len(raw)-1]
	if strings.TrimSpace(inner) == "" {
		return name, nil, nil
	}
	args = splitTopLevel(inner)
	for i, a := range args {
		args[i] = strings.TrimSpace(a)
	}
	return name, args, nil
}

// splitTopLevel splits s on commas that aren't inside a quoted
// substring, so arguments like string_equal("a,b") keep their comma.
func splitTopLevel(s string) []string {
	var parts []string
	var b strings.Builder
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			b.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
			b.WriteByte(c)
		case c == ',':
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	parts = append(parts, b.String())
	return unquoteAll(parts)
}

func unquoteAll(parts []string) []string {
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) >= 2 && (p[0] == '\'' || p[0] == '"') && p[len(p)-1] == p[0] {
			p = p[1 : len(p)-1]
		}
		parts[i] = p
	}
	return parts
}
