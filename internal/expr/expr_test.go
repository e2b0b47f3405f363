package expr

import (
	"testing"

	"go.wazuh.dev/engine/internal/event"
)

func alwaysOp(result bool) Op {
	return func(doc *event.Document) Result {
		if result {
			return Result{OK: true, Event: doc, Trace: "ok"}
		}
		return Result{OK: false, Event: doc, Trace: "fail"}
	}
}

func countingOp(calls *int, result bool) Op {
	return func(doc *event.Document) Result {
		*calls++
		return alwaysOp(result)(doc)
	}
}

func TestTermPreservesEventIdentity(t *testing.T) {
	doc := event.Empty()
	n := Term("t", alwaysOp(true))
	r := Eval(n, doc)
	if r.Event != doc {
		t.Fatalf("expected same *Document reference")
	}
}

func TestOrShortCircuits(t *testing.T) {
	var aCalls, bCalls, cCalls int
	n := Or("o",
		Term("a", countingOp(&aCalls, true)),
		Term("b", countingOp(&bCalls, true)),
		Term("c", countingOp(&cCalls, true)),
	)
	r := Eval(n, event.Empty())
	if !r.OK {
		t.Fatal("expected success")
	}
	if aCalls != 1 || bCalls != 0 || cCalls != 0 {
		t.Fatalf("expected only first child evaluated, got a=%d b=%d c=%d", aCalls, bCalls, cCalls)
	}
}

func TestAndShortCircuits(t *testing.T) {
	var aCalls, bCalls, cCalls int
	n := And("a",
		Term("a", countingOp(&aCalls, true)),
		Term("b", countingOp(&bCalls, false)),
		Term("c", countingOp(&cCalls, true)),
	)
	r := Eval(n, event.Empty())
	if r.OK {
		t.Fatal("expected failure")
	}
	if aCalls != 1 || bCalls != 1 || cCalls != 0 {
		t.Fatalf("expected short-circuit after second child, got a=%d b=%d c=%d", aCalls, bCalls, cCalls)
	}
}

func TestChainAlwaysSucceeds(t *testing.T) {
	n := Chain("c",
		Term("a", alwaysOp(false)),
		Term("b", alwaysOp(false)),
	)
	r := Eval(n, event.Empty())
	if !r.OK {
		t.Fatal("Chain must report ok=true regardless of children")
	}
}

func TestChainEvaluatesAllChildren(t *testing.T) {
	var aCalls, bCalls int
	n := Chain("c",
		Term("a", countingOp(&aCalls, false)),
		Term("b", countingOp(&bCalls, false)),
	)
	Eval(n, event.Empty())
	if aCalls != 1 || bCalls != 1 {
		t.Fatalf("expected both children evaluated, got a=%d b=%d", aCalls, bCalls)
	}
}

func TestImplicationOKBitFollowsAntecedent(t *testing.T) {
	cases := []struct {
		antecedent bool
		consequent bool
		want       bool
	}{
		{true, true, true},
		{true, false, true},
		{false, true, false},
		{false, false, false},
	}
	for _, c := range cases {
		n := Implication("i", Term("a", alwaysOp(c.antecedent)), Term("b", alwaysOp(c.consequent)))
		r := Eval(n, event.Empty())
		if r.OK != c.want {
			t.Fatalf("antecedent=%v consequent=%v: got ok=%v want=%v", c.antecedent, c.consequent, r.OK, c.want)
		}
	}
}

func TestImplicationSkipsConsequentOnFailure(t *testing.T) {
	var consCalls int
	n := Implication("i", Term("a", alwaysOp(false)), Term("b", countingOp(&consCalls, true)))
	Eval(n, event.Empty())
	if consCalls != 0 {
		t.Fatalf("consequent must not run when antecedent fails, got %d calls", consCalls)
	}
}

func TestBroadcastEvaluatesAllChildrenUnconditionally(t *testing.T) {
	var aCalls, bCalls int
	n := Broadcast("b",
		Term("a", countingOp(&aCalls, false)),
		Term("b", countingOp(&bCalls, true)),
	)
	r := Eval(n, event.Empty())
	if !r.OK {
		t.Fatal("Broadcast must report ok=true")
	}
	if aCalls != 1 || bCalls != 1 {
		t.Fatalf("expected both children evaluated, got a=%d b=%d", aCalls, bCalls)
	}
}

func TestNodeNameMustBeNonEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on empty node name")
		}
	}()
	Term("", alwaysOp(true))
}

func TestTracingToggle(t *testing.T) {
	orig := TracingEnabled()
	defer SetTracing(orig)

	SetTracing(false)
	n := Chain("root", Term("a", alwaysOp(true)))
	r := Eval(n, event.Empty())
	if r.Trace != "" {
		t.Fatalf("expected empty trace when tracing disabled, got %q", r.Trace)
	}

	SetTracing(true)
	r = Eval(n, event.Empty())
	if r.Trace == "" {
		t.Fatal("expected non-empty trace when tracing enabled")
	}
}
