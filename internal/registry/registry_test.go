package registry

import (
	"testing"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
)

func dummyBuilder(def Definition) (*expr.Node, error) {
	return expr.Term("dummy", func(doc *event.Document) expr.Result {
		return expr.Result{OK: true, Event: doc}
	}), nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	if err := r.Register("exists", dummyBuilder); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Lookup("exists"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDuplicateRegistrationFails(t *testing.T) {
	r := New()
	_ = r.Register("exists", dummyBuilder)
	if err := r.Register("exists", dummyBuilder); err == nil {
		t.Fatal("expected AlreadyRegistered error")
	}
}

func TestLookupMissingFails(t *testing.T) {
	r := New()
	if _, err := r.Lookup("missing"); err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestClearRemovesBuilders(t *testing.T) {
	r := New()
	_ = r.Register("exists", dummyBuilder)
	r.Clear()
	if _, err := r.Lookup("exists"); err == nil {
		t.Fatal("expected NotFound after Clear")
	}
}
