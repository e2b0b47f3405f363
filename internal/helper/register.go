package helper

import "go.wazuh.dev/engine/internal/registry"

// RegisterAll registers every helper builder the engine ships into r.
// Call once at startup, after any Configure call the kvdb_*/wdb_update
// builders need; registration is immutable afterward.
func RegisterAll(r *registry.Registry) {
	registerIntCompare(r)
	registerStringCompare(r)
	registerRegex(r)
	buildIPCIDRMatch(r)
	registerExists(r)
	registerArray(r)
	registerTypeTests(r)
	registerScalarParsers(r)
	registerDateParser(r)
	registerJSONParser(r)
	registerXMLParser(r)
	registerCSVParser(r)
	registerURIParser(r)
	registerFQDNParser(r)
	registerUserAgentParser(r)
	registerFileParser(r)
	registerQuotedParser(r)
	registerBetweenParser(r)
	registerKeyValueParser(r)
	registerKVDB(r)
	registerWDB(r)
}
