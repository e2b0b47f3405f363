// Package enginerr defines the typed error kinds the core reports at
// build and load time. Runtime evaluation outcomes (EvalFailure,
// IoFailure) are carried as Result values, never as these error types;
// see internal/expr.Result.
package enginerr

import "fmt"

// BuildError reports malformed helper arguments: wrong arity, wrong
// parameter kind (VALUE vs REFERENCE), an unparsable literal, or an
// invalid regex/CIDR/format at build time. Fatal for the asset that
// declared it.
type BuildError struct {
	Helper string
	Target string
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build error: helper %q on %q: %s", e.Helper, e.Target, e.Reason)
}

// CompilerError reports a policy-composition failure: an orphan
// decoder parent, an unresolved filter target, or a reference to an
// asset absent from the policy document. Fatal for the policy load.
type CompilerError struct {
	Policy string
	Asset  string
	Reason string
}

func (e *CompilerError) Error() string {
	if e.Asset == "" {
		return fmt.Sprintf("compiler error: policy %q: %s", e.Policy, e.Reason)
	}
	return fmt.Sprintf("compiler error: policy %q, asset %q: %s", e.Policy, e.Asset, e.Reason)
}

// NotFound reports a lookup miss against the builder registry or a
// named route. Fatal for the calling operation, not for the process.
type NotFound struct {
	Kind string
	Name string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// AlreadyRegistered reports a duplicate builder registration.
type AlreadyRegistered struct {
	Name string
}

func (e *AlreadyRegistered) Error() string {
	return fmt.Sprintf("helper %q already registered", e.Name)
}

// QueueFlood reports that a push exhausted its retry budget and the
// event was appended to the flood file and dropped. It is not fatal:
// callers log it and move on.
type QueueFlood struct {
	FloodFile string
}

func (e *QueueFlood) Error() string {
	return fmt.Sprintf("queue flood: retry budget exhausted, spilled to %q", e.FloodFile)
}
