// Package expr implements the expression algebra: a tagged tree of
// six variants evaluated depth-first over a single *event.Document
// threaded through the whole tree.
package expr

import (
	"strings"
	"sync/atomic"

	"go.wazuh.dev/engine/internal/event"
)

// tracingEnabled gates whether Chain/Broadcast/And/Or/Implication
// nodes build aggregate trace strings. Traces are opt-in; leaf Terms
// format their (success, failure…) strings once at build time
// regardless (see internal/helper), so this flag only controls the
// cost of combining them up the tree.
var tracingEnabled atomic.Bool

// SetTracing enables or disables trace-string aggregation for every
// subsequent Eval call in the process.
func SetTracing(enabled bool) { tracingEnabled.Store(enabled) }

// TracingEnabled reports the current tracing setting.
func TracingEnabled() bool { return tracingEnabled.Load() }

const tracingDisabledMarker = ""

// Kind identifies an expression node's variant.
type Kind int

const (
	KindTerm Kind = iota
	KindAnd
	KindOr
	KindChain
	KindBroadcast
	KindImplication
)

func (k Kind) String() string {
	switch k {
	case KindTerm:
		return "Term"
	case KindAnd:
		return "And"
	case KindOr:
		return "Or"
	case KindChain:
		return "Chain"
	case KindBroadcast:
		return "Broadcast"
	case KindImplication:
		return "Implication"
	default:
		return "Unknown"
	}
}

// Op is the leaf operation a Term wraps. It may mutate doc. When
// tracing is disabled the combining evaluators skip trace-string
// allocation on the hot path.
type Op func(doc *event.Document) Result

// Result is the outcome of evaluating any node against an event.
// Event is always the same reference passed in; both success and
// failure carry the possibly mutated document.
type Result struct {
	OK    bool
	Event *event.Document
	Trace string
}

func ok(doc *event.Document, trace string) Result {
	return Result{OK: true, Event: doc, Trace: trace}
}

func fail(doc *event.Document, trace string) Result {
	return Result{OK: false, Event: doc, Trace: trace}
}

// Node is the expression tree. Exactly one of the variant-specific
// fields is meaningful, selected by Kind. Nodes are immutable and
// reference-counted by ordinary Go pointer sharing: the same *Node may
// be a child of many parents (e.g. a filter Term shared across
// decoders), so callers must never mutate a Node after construction.
type Node struct {
	Kind Kind
	Name string

	// KindTerm
	op Op

	// KindAnd, KindOr, KindChain, KindBroadcast
	children []*Node

	// KindImplication
	antecedent *Node
	consequent *Node
}

// Term builds a leaf node. name must be non-empty.
func Term(name string, op Op) *Node {
	mustName(name)
	return &Node{Kind: KindTerm, Name: name, op: op}
}

// And builds a short-circuit-on-failure node.
func And(name string, children ...*Node) *Node {
	mustName(name)
	return &Node{Kind: KindAnd, Name: name, children: children}
}

// Or builds a short-circuit-on-success node.
func Or(name string, children ...*Node) *Node {
	mustName(name)
	return &Node{Kind: KindOr, Name: name, children: children}
}

// Chain builds an unconditional-success sequencing node.
func Chain(name string, children ...*Node) *Node {
	mustName(name)
	return &Node{Kind: KindChain, Name: name, children: children}
}

// Broadcast builds an unconditional-success node whose children are
// logically independent. The evaluator runs them sequentially: leaf
// terms mutate one shared document, and parallel evaluation would
// need the helpers to write disjoint pointer-path subtrees, which
// they do not guarantee.
func Broadcast(name string, children ...*Node) *Node {
	mustName(name)
	return &Node{Kind: KindBroadcast, Name: name, children: children}
}

// Implication builds a two-operand node whose overall success equals
// the antecedent's success regardless of the consequent's outcome.
func Implication(name string, antecedent, consequent *Node) *Node {
	mustName(name)
	if antecedent == nil || consequent == nil {
		panic("expr: Implication requires both antecedent and consequent")
	}
	return &Node{Kind: KindImplication, Name: name, antecedent: antecedent, consequent: consequent}
}

func mustName(name string) {
	if name == "" {
		panic("expr: node name must be non-empty")
	}
}

// Children returns a node's operands (nil for Term).
func (n *Node) Children() []*Node {
	switch n.Kind {
	case KindImplication:
		return []*Node{n.antecedent, n.consequent}
	default:
		return n.children
	}
}

// Eval evaluates the tree rooted at n against doc: And short-circuits
// on the first failure, Or on the first success, Chain and Broadcast
// run every child and always succeed, and Implication's outcome is
// its antecedent's.
func Eval(n *Node, doc *event.Document) Result {
	switch n.Kind {
	case KindTerm:
		return n.op(doc)

	case KindAnd:
		if len(n.children) == 0 {
			return ok(doc, n.Name+": vacuous success")
		}
		var last Result
		for _, c := range n.children {
			last = Eval(c, doc)
			if !last.OK {
				return fail(doc, traceNode(n, last.Trace))
			}
		}
		return ok(doc, traceNode(n, last.Trace))

	case KindOr:
		if len(n.children) == 0 {
			return fail(doc, n.Name+": vacuous failure")
		}
		var last Result
		for _, c := range n.children {
			last = Eval(c, doc)
			if last.OK {
				return ok(doc, traceNode(n, last.Trace))
			}
		}
		return fail(doc, traceNode(n, last.Trace))

	case KindChain:
		var traces []string
		for _, c := range n.children {
			r := Eval(c, doc)
			traces = append(traces, r.Trace)
		}
		return ok(doc, traceTree(n, traces))

	case KindBroadcast:
		var traces []string
		for _, c := range n.children {
			r := Eval(c, doc)
			traces = append(traces, r.Trace)
		}
		return ok(doc, traceTree(n, traces))

	case KindImplication:
		ant := Eval(n.antecedent, doc)
		if !ant.OK {
			return fail(doc, traceNode(n, ant.Trace))
		}
		cons := Eval(n.consequent, doc)
		return ok(doc, traceNode(n, ant.Trace+" -> "+cons.Trace))

	default:
		return fail(doc, "unknown node kind")
	}
}

func traceNode(n *Node, child string) string {
	if !tracingEnabled.Load() {
		return tracingDisabledMarker
	}
	return n.Name + "{" + child + "}"
}

func traceTree(n *Node, children []string) string {
	if !tracingEnabled.Load() {
		return tracingDisabledMarker
	}
	var b strings.Builder
	b.WriteString(n.Name)
	b.WriteByte('(')
	for i, c := range children {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
	}
	b.WriteByte(')')
	return b.String()
}
