package helper

import (
	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/registry"
)

// typePredicate reports whether the value at target has the type the
// helper tests for. Callers distinguish "not found" from "wrong type"
// so the two produce different failure traces.
type typePredicate func(doc *event.Document, target string) bool

// buildTypeTest implements the is_*/is_not_* family: arity 0.
func buildTypeTest(helperName string, predicate typePredicate, want bool) registry.Builder {
	return func(def registry.Definition) (*expr.Node, error) {
		if _, err := parseArgs(helperName, def.TargetField, def.RawArgs, 0, 0); err != nil {
			return nil, err
		}
		tr := newTraces(helperName, def.TargetField, def.RawArgs)
		target := def.TargetField

		return expr.Term(tr.name, func(doc *event.Document) expr.Result {
			if !doc.Exists(target) {
				return tr.failTarget(doc)
			}
			if predicate(doc, target) == want {
				return tr.ok(doc)
			}
			return tr.fail(doc, "wrong type")
		}), nil
	}
}

func registerTypeTests(r *registry.Registry) {
	register := func(name string, predicate typePredicate, want bool) {
		r.MustRegister(name, buildTypeTest(name, predicate, want))
	}

	isNumber := func(doc *event.Document, t string) bool { return doc.IsNumber(t) }
	register("is_number", isNumber, true)
	register("is_not_number", isNumber, false)

	isString := func(doc *event.Document, t string) bool { return doc.IsString(t) }
	register("is_string", isString, true)
	register("is_not_string", isString, false)

	isBoolean := func(doc *event.Document, t string) bool { return doc.IsBool(t) }
	register("is_boolean", isBoolean, true)
	register("is_not_boolean", isBoolean, false)

	isArray := func(doc *event.Document, t string) bool { return doc.IsArray(t) }
	register("is_array", isArray, true)
	register("is_not_array", isArray, false)

	isObject := func(doc *event.Document, t string) bool { return doc.IsObject(t) }
	register("is_object", isObject, true)
	register("is_not_object", isObject, false)

	isNull := func(doc *event.Document, t string) bool { return doc.IsNull(t) }
	register("is_null", isNull, true)
	register("is_not_null", isNull, false)

	isTrue := func(doc *event.Document, t string) bool {
		v, ok := doc.GetBool(t)
		return ok && v
	}
	register("is_true", isTrue, true)

	isFalse := func(doc *event.Document, t string) bool {
		v, ok := doc.GetBool(t)
		return ok && !v
	}
	register("is_false", isFalse, true)
}
