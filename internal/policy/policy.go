// Package policy implements the policy composer: given a policy
// document enumerating assets by type, assemble one composed
// expr.Node per policy by stitching decoder/rule/output DAGs together
// and wiring filters in as Implication gates.
package policy

import (
	"go.wazuh.dev/engine/internal/asset"
	"go.wazuh.dev/engine/internal/enginerr"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/registry"
)

// Document groups a policy's assets by type, in document order. Order
// is load-bearing: siblings evaluate in the order they were declared.
type Document struct {
	Name     string
	Decoders []asset.Document
	Rules    []asset.Document
	Outputs  []asset.Document
	Filters  []asset.Document
}

// Policy is the composed result: Root is the single Chain a router
// evaluates against an event.
type Policy struct {
	Name   string
	Root   *expr.Node
	Assets map[string]*asset.Asset
}

// Compose builds a Policy from doc: compile every asset, resolve
// filter targets, assemble the decoder cascade, rule broadcast, and
// output broadcast, and chain them under one root.
func Compose(reg *registry.Registry, doc Document) (*Policy, error) {
	decoders, err := compileAll(reg, doc.Decoders)
	if err != nil {
		return nil, err
	}
	rules, err := compileAll(reg, doc.Rules)
	if err != nil {
		return nil, err
	}
	outputs, err := compileAll(reg, doc.Outputs)
	if err != nil {
		return nil, err
	}
	filters, err := compileAll(reg, doc.Filters)
	if err != nil {
		return nil, err
	}

	assetNames := map[string]bool{}
	for _, l := range [][]*asset.Asset{decoders, rules, outputs} {
		for _, a := range l {
			assetNames[a.Name] = true
		}
	}

	filtersOf, err := resolveFilterTargets(doc.Name, filters, assetNames)
	if err != nil {
		return nil, err
	}

	decoderGraph, err := buildCascade(doc.Name, "decodersInput", decoders, filtersOf, expr.Or)
	if err != nil {
		return nil, err
	}
	ruleGraph, err := buildCascade(doc.Name, "rulesInput", rules, filtersOf, expr.Broadcast)
	if err != nil {
		return nil, err
	}
	outputGraph := buildFlatBroadcast(doc.Name, "outputsInput", outputs, filtersOf)

	var children []*expr.Node
	if decoderGraph != nil {
		children = append(children, decoderGraph)
	}
	if ruleGraph != nil {
		children = append(children, ruleGraph)
	}
	if outputGraph != nil {
		children = append(children, outputGraph)
	}

	all := map[string]*asset.Asset{}
	for _, l := range [][]*asset.Asset{decoders, rules, outputs, filters} {
		for _, a := range l {
			all[a.Name] = a
		}
	}

	return &Policy{
		Name:   doc.Name,
		Root:   expr.Chain(doc.Name+".policyRoot", children...),
		Assets: all,
	}, nil
}

func compileAll(reg *registry.Registry, docs []asset.Document) ([]*asset.Asset, error) {
	out := make([]*asset.Asset, 0, len(docs))
	for _, d := range docs {
		a, err := asset.Compile(reg, d)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// resolveFilterTargets validates each filter's target list against
// the known asset names of the policy. A filter with zero valid
// targets is a CompilerError; invalid individual targets are dropped
// rather than failing the whole filter.
func resolveFilterTargets(policyName string, filters []*asset.Asset, known map[string]bool) (map[string][]*asset.Asset, error) {
	filtersOf := map[string][]*asset.Asset{}
	for _, f := range filters {
		var valid []string
		for _, t := range f.Targets {
			if known[t] {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			return nil, &enginerr.CompilerError{Policy: policyName, Asset: f.Name, Reason: "filter has no valid targets"}
		}
		for _, t := range valid {
			filtersOf[t] = append(filtersOf[t], f)
		}
	}
	return filtersOf, nil
}

// buildCascade assembles the decoder or rule DAG:
// a flat root combinator (Or for decoders, Broadcast for rules) over
// every parentless asset, each wrapped recursively so a child subtree
// is only reached when its ancestor's check succeeds.
func buildCascade(policyName, rootName string, assets []*asset.Asset, filtersOf map[string][]*asset.Asset, combinator func(string, ...*expr.Node) *expr.Node) (*expr.Node, error) {
	if len(assets) == 0 {
		return nil, nil
	}

	byName := make(map[string]*asset.Asset, len(assets))
	for _, a := range assets {
		byName[a.Name] = a
	}
	childrenOf := map[string][]*asset.Asset{}
	var roots []*asset.Asset
	for _, a := range assets {
		if len(a.Parents) == 0 {
			roots = append(roots, a)
			continue
		}
		for _, p := range a.Parents {
			if _, ok := byName[p]; !ok {
				return nil, &enginerr.CompilerError{Policy: policyName, Asset: a.Name, Reason: "orphan: parent " + p + " not found"}
			}
			childrenOf[p] = append(childrenOf[p], a)
		}
	}

	cache := map[string]*expr.Node{}
	var wrap func(a *asset.Asset) *expr.Node
	wrap = func(a *asset.Asset) *expr.Node {
		if n, ok := cache[a.Name]; ok {
			return n
		}
		nodeName := a.Name + "Node"
		childWraps := make([]*expr.Node, 0, len(childrenOf[a.Name]))
		for _, c := range childrenOf[a.Name] {
			childWraps = append(childWraps, wrap(c))
		}
		consequent := combinator(nodeName+".children", childWraps...)
		if gates := filtersOf[a.Name]; len(gates) > 0 {
			consequent = combinator(nodeName+".children", expr.Implication(nodeName+".gate", filterGate(nodeName, gates), consequent))
		}
		n := expr.Implication(nodeName, a.Expr, consequent)
		cache[a.Name] = n
		return n
	}

	rootWraps := make([]*expr.Node, 0, len(roots))
	for _, r := range roots {
		rootWraps = append(rootWraps, wrap(r))
	}
	return combinator(rootName, rootWraps...), nil
}

// buildFlatBroadcast composes output assets as a flat Broadcast;
// outputs do not nest via parents, but a filter may still gate an
// individual output.
func buildFlatBroadcast(policyName, rootName string, outputs []*asset.Asset, filtersOf map[string][]*asset.Asset) *expr.Node {
	if len(outputs) == 0 {
		return nil
	}
	children := make([]*expr.Node, 0, len(outputs))
	for _, o := range outputs {
		n := o.Expr
		if gates := filtersOf[o.Name]; len(gates) > 0 {
			n = expr.Implication(o.Name+"Node", filterGate(o.Name+"Node", gates), o.Expr)
		}
		children = append(children, n)
	}
	return expr.Broadcast(rootName, children...)
}

// filterGate combines every filter gating one target into a single
// expression: the filter itself if there is exactly one, or an And
// over all of them if several filters target the same node.
func filterGate(nodeName string, gates []*asset.Asset) *expr.Node {
	if len(gates) == 1 {
		return gates[0].Expr
	}
	exprs := make([]*expr.Node, len(gates))
	for i, g := range gates {
		exprs[i] = g.Expr
	}
	return expr.And(nodeName+".filters", exprs...)
}
