package helper

import (
	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/param"
	"go.wazuh.dev/engine/internal/registry"
)

// dbNameOf resolves the first argument of a kvdb_* helper: either a
// VALUE literal naming the database or a $ref to a string field that
// names it.
func dbNameOf(doc *event.Document, p param.Parameter) (string, bool) {
	return resolveString(doc, p)
}

// registerKVDB wires kvdb_get, kvdb_match, kvdb_delete against the
// KVDBStore collaborator installed by Configure. Absent a configured
// collaborator, the builders still succeed (the asset compiles) but
// every evaluation fails with a "kvdb collaborator not configured"
// trace; collaborator errors
// are per-call, never fatal to compilation.
func registerKVDB(r *registry.Registry) {
	r.MustRegister("kvdb_get", buildKVDBGet)
	r.MustRegister("kvdb_match", buildKVDBMatch)
	r.MustRegister("kvdb_delete", buildKVDBDelete)
}

func buildKVDBGet(def registry.Definition) (*expr.Node, error) {
	const helperName = "kvdb_get"
	params, err := parseArgs(helperName, def.TargetField, def.RawArgs, 2, 0)
	if err != nil {
		return nil, err
	}
	dbParam, keyParam := params[0], params[1]
	tr := newTraces(helperName, def.TargetField, def.RawArgs)
	target := def.TargetField

	return expr.Term(tr.name, func(doc *event.Document) expr.Result {
		db, ok := dbNameOf(doc, dbParam)
		if !ok {
			return tr.failParam(doc)
		}
		key, ok := resolveString(doc, keyParam)
		if !ok {
			return tr.failParam(doc)
		}
		if collaborators.kvdb == nil {
			return tr.fail(doc, "kvdb collaborator not configured")
		}
		value, found, err := collaborators.kvdb.Get(db, key)
		if err != nil {
			return tr.fail(doc, "kvdb io error: "+err.Error())
		}
		if !found {
			return tr.fail(doc, "key not found")
		}
		if err := doc.SetString(target, value); err != nil {
			return tr.fail(doc, "write failed")
		}
		return tr.ok(doc)
	}), nil
}

func buildKVDBMatch(def registry.Definition) (*expr.Node, error) {
	const helperName = "kvdb_match"
	params, err := parseArgs(helperName, def.TargetField, def.RawArgs, 1, 0)
	if err != nil {
		return nil, err
	}
	dbParam := params[0]
	tr := newTraces(helperName, def.TargetField, def.RawArgs)
	target := def.TargetField

	return expr.Term(tr.name, func(doc *event.Document) expr.Result {
		db, ok := dbNameOf(doc, dbParam)
		if !ok {
			return tr.failParam(doc)
		}
		pattern, ok := doc.GetString(target)
		if !ok {
			return tr.failTarget(doc)
		}
		if collaborators.kvdb == nil {
			return tr.fail(doc, "kvdb collaborator not configured")
		}
		matches, found, err := collaborators.kvdb.Match(db, pattern)
		if err != nil {
			return tr.fail(doc, "kvdb io error: "+err.Error())
		}
		if !found || len(matches) == 0 {
			return tr.fail(doc, "no match")
		}
		return tr.ok(doc)
	}), nil
}

func buildKVDBDelete(def registry.Definition) (*expr.Node, error) {
	const helperName = "kvdb_delete"
	params, err := parseArgs(helperName, def.TargetField, def.RawArgs, 2, 0)
	if err != nil {
		return nil, err
	}
	dbParam, keyParam := params[0], params[1]
	tr := newTraces(helperName, def.TargetField, def.RawArgs)

	return expr.Term(tr.name, func(doc *event.Document) expr.Result {
		db, ok := dbNameOf(doc, dbParam)
		if !ok {
			return tr.failParam(doc)
		}
		key, ok := resolveString(doc, keyParam)
		if !ok {
			return tr.failParam(doc)
		}
		if collaborators.kvdb == nil {
			return tr.fail(doc, "kvdb collaborator not configured")
		}
		deleted, err := collaborators.kvdb.Delete(db, key)
		if err != nil {
			return tr.fail(doc, "kvdb io error: "+err.Error())
		}
		if !deleted {
			return tr.fail(doc, "key not found")
		}
		return tr.ok(doc)
	}), nil
}
