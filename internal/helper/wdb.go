package helper

import (
	"strings"
	"time"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/registry"
)

// wdbCallTimeout bounds the blocking socket call wdb_update makes
// against the WDBClient collaborator.
const wdbCallTimeout = 1000 * time.Millisecond

// registerWDB wires wdb_update: resolve the request string, call the
// collaborator socket, and write true/false to targetField depending
// on whether the reply begins with "ok". The Term itself succeeds
// regardless of the verdict written; it fails only when the request
// reference does not resolve, the collaborator is not configured, the
// socket call errors or times out, or the write to targetField fails.
func registerWDB(r *registry.Registry) {
	const helperName = "wdb_update"
	r.MustRegister(helperName, func(def registry.Definition) (*expr.Node, error) {
		params, err := parseArgs(helperName, def.TargetField, def.RawArgs, 1, 0)
		if err != nil {
			return nil, err
		}
		reqParam := params[0]
		tr := newTraces(helperName, def.TargetField, def.RawArgs)
		target := def.TargetField

		return expr.Term(tr.name, func(doc *event.Document) expr.Result {
			request, ok := resolveString(doc, reqParam)
			if !ok {
				return tr.failParam(doc)
			}
			if collaborators.wdb == nil {
				return tr.fail(doc, "wdb collaborator not configured")
			}
			reply, err := collaborators.wdb.Query(request, wdbCallTimeout)
			if err != nil {
				return tr.fail(doc, "wdb io error: "+err.Error())
			}
			verdict := strings.HasPrefix(reply, "ok")
			if err := doc.SetBool(target, verdict); err != nil {
				return tr.fail(doc, "write failed")
			}
			return tr.ok(doc)
		}), nil
	})
}
