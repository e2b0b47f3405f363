// Package helper implements the leaf operations assets are built
// from. Each helper is a registry.Builder that extracts a
// (targetField, helperName, rawArgs) triple, parses its parameters
// (internal/param), enforces arity and parameter kind, and returns an
// expr.Term whose Op closes over whatever the build step resolved
// (compiled regex, parsed literal, opened socket path, …).
package helper

import (
	"fmt"
	"strings"

	"go.wazuh.dev/engine/internal/enginerr"
	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/param"
)

// traceName formats the trace-friendly node name:
// helper.<helperName>[<targetField>, <arg1>, …].
func traceName(helperName, targetField string, rawArgs []string) string {
	var b strings.Builder
	b.WriteString("helper.")
	b.WriteString(helperName)
	b.WriteByte('[')
	b.WriteString(targetField)
	for _, a := range rawArgs {
		b.WriteString(", ")
		b.WriteString(a)
	}
	b.WriteByte(']')
	return b.String()
}

// buildError is a convenience constructor mirroring *enginerr.BuildError.
func buildError(helperName, targetField, reason string, args ...any) error {
	return &enginerr.BuildError{
		Helper: helperName,
		Target: targetField,
		Reason: fmt.Sprintf(reason, args...),
	}
}

// parseArgs parses a helper's raw argument strings and enforces arity.
// exact < 0 means "at least min" (arity ">= min"); exact >= 0 means
// "exactly exact" args, and min is ignored.
func parseArgs(helperName, targetField string, rawArgs []string, exact, min int) ([]param.Parameter, error) {
	if exact >= 0 && len(rawArgs) != exact {
		return nil, buildError(helperName, targetField, "expected %d argument(s), got %d", exact, len(rawArgs))
	}
	if exact < 0 && len(rawArgs) < min {
		return nil, buildError(helperName, targetField, "expected at least %d argument(s), got %d", min, len(rawArgs))
	}
	params, err := param.ParseAll(rawArgs)
	if err != nil {
		return nil, buildError(helperName, targetField, "%s", err)
	}
	return params, nil
}

// requireKind enforces that params[idx] has the given kind.
func requireKind(helperName, targetField string, params []param.Parameter, idx int, kind param.Kind) error {
	if params[idx].Kind != kind {
		return buildError(helperName, targetField, "argument %d must be %s", idx, kind)
	}
	return nil
}

// traces bundles the three trace-variant strings a Term formats once
// at build time: success, target-not-found, and
// parameter-not-found. Helpers with additional failure modes (regex
// mismatch, wrong type, …) extend this with their own constant
// strings built alongside it.
type traces struct {
	name              string
	success           string
	targetNotFound    string
	parameterNotFound string
}

func newTraces(helperName, targetField string, rawArgs []string) traces {
	name := traceName(helperName, targetField, rawArgs)
	return traces{
		name:              name,
		success:           name + ": success",
		targetNotFound:    name + ": target not found",
		parameterNotFound: name + ": parameter not found",
	}
}

func (t traces) ok(doc *event.Document) expr.Result {
	return expr.Result{OK: true, Event: doc, Trace: t.success}
}

func (t traces) failTarget(doc *event.Document) expr.Result {
	return expr.Result{OK: false, Event: doc, Trace: t.targetNotFound}
}

func (t traces) failParam(doc *event.Document) expr.Result {
	return expr.Result{OK: false, Event: doc, Trace: t.parameterNotFound}
}

func (t traces) fail(doc *event.Document, reason string) expr.Result {
	return expr.Result{OK: false, Event: doc, Trace: t.name + ": " + reason}
}

// resolveString reads a REFERENCE parameter's current string value
// from doc, or the VALUE literal itself. ok is false if a REFERENCE
// resolves to nothing.
func resolveString(doc *event.Document, p param.Parameter) (string, bool) {
	if p.Kind == param.Value {
		return p.Raw, true
	}
	return doc.GetString(p.Path)
}

// resolveInt is the integer analogue of resolveString, supporting
// VALUE literals parsed as base-10 integers at call time (build-time
// parsing is done once by callers that only ever see a VALUE operand).
func resolveInt(doc *event.Document, p param.Parameter) (int64, bool) {
	if p.Kind == param.Reference {
		return doc.GetInt64(p.Path)
	}
	return parseIntLiteral(p.Raw)
}

func parseIntLiteral(raw string) (int64, bool) {
	var v int64
	_, err := fmt.Sscanf(raw, "%d", &v)
	if err != nil {
		return 0, false
	}
	// Sscanf silently accepts a numeric prefix ("12abc" -> 12); reject
	// anything that doesn't round-trip exactly.
	if fmt.Sprintf("%d", v) != strings.TrimPrefix(raw, "+") {
		return 0, false
	}
	return v, true
}
