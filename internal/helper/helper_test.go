package helper_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/helper"
	"go.wazuh.dev/engine/internal/registry"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	helper.RegisterAll(reg)
	return reg
}

func build(t *testing.T, reg *registry.Registry, target, name string, args ...string) *expr.Node {
	t.Helper()
	builder, err := reg.Lookup(name)
	require.NoError(t, err)
	node, err := builder(registry.Definition{TargetField: target, HelperName: name, RawArgs: args})
	require.NoError(t, err)
	return node
}

func TestIntGreaterDirectValue(t *testing.T) {
	reg := newRegistry(t)
	node := build(t, reg, "/f", "int_greater", "10")

	r := expr.Eval(node, event.New([]byte(`{"f":12}`)))
	require.True(t, r.OK)

	r = expr.Eval(node, event.New([]byte(`{"f":9}`)))
	require.False(t, r.OK)
}

func TestIntCompareNonIntegerLiteralIsBuildError(t *testing.T) {
	reg := newRegistry(t)
	builder, err := reg.Lookup("int_equal")
	require.NoError(t, err)
	_, err = builder(registry.Definition{TargetField: "/f", HelperName: "int_equal", RawArgs: []string{"twelve"}})
	require.Error(t, err)
}

func TestIntCompareMissingTarget(t *testing.T) {
	reg := newRegistry(t)
	node := build(t, reg, "/f", "int_less", "5")
	r := expr.Eval(node, event.New([]byte(`{}`)))
	require.False(t, r.OK)
	require.Contains(t, r.Trace, "target not found")
}

func TestStringLessOrEqualReference(t *testing.T) {
	reg := newRegistry(t)
	node := build(t, reg, "/a/f", "string_less_or_equal", "$b.f")

	r := expr.Eval(node, event.New([]byte(`{"a":{"f":"value1"},"b":{"f":"value2"}}`)))
	require.True(t, r.OK)

	r = expr.Eval(node, event.New([]byte(`{"a":{"f":"value2"},"b":{"f":"value1"}}`)))
	require.False(t, r.OK)
}

func TestStringCompareMissingReferenceParameter(t *testing.T) {
	reg := newRegistry(t)
	node := build(t, reg, "/a", "string_equal", "$missing")
	r := expr.Eval(node, event.New([]byte(`{"a":"x"}`)))
	require.False(t, r.OK)
	require.Contains(t, r.Trace, "parameter not found")
}

func TestStringOrderingIsByteLexicographic(t *testing.T) {
	reg := newRegistry(t)
	// "10" > "9" numerically but "10" < "9" byte-wise.
	node := build(t, reg, "/f", "string_less", "9")
	r := expr.Eval(node, event.New([]byte(`{"f":"10"}`)))
	require.True(t, r.OK)
}

func TestContainsEmptyOperandFails(t *testing.T) {
	reg := newRegistry(t)
	node := build(t, reg, "/f", "contains", "")
	r := expr.Eval(node, event.New([]byte(`{"f":"anything"}`)))
	require.False(t, r.OK)
}

func TestStartsWith(t *testing.T) {
	reg := newRegistry(t)
	node := build(t, reg, "/f", "starts_with", "val")
	require.True(t, expr.Eval(node, event.New([]byte(`{"f":"value"}`))).OK)
	require.False(t, expr.Eval(node, event.New([]byte(`{"f":"x value"}`))).OK)
}

func TestRegexMatch(t *testing.T) {
	reg := newRegistry(t)
	node := build(t, reg, "/field", "regex_match", "^regex_test")

	require.True(t, expr.Eval(node, event.New([]byte(`{"field":"regex_test 123"}`))).OK)
	require.False(t, expr.Eval(node, event.New([]byte(`{"field":"x regex_test"}`))).OK)
}

func TestRegexInvalidPatternIsBuildError(t *testing.T) {
	reg := newRegistry(t)
	builder, err := reg.Lookup("regex_match")
	require.NoError(t, err)
	_, err = builder(registry.Definition{TargetField: "/f", HelperName: "regex_match", RawArgs: []string{"("}})
	require.Error(t, err)
}

func TestIPCIDRMatch(t *testing.T) {
	reg := newRegistry(t)

	tests := []struct {
		name    string
		network string
		mask    string
		ip      string
		want    bool
	}{
		{"prefix length inside", "192.168.1.0", "24", "192.168.1.42", true},
		{"prefix length outside", "192.168.1.0", "24", "192.168.2.1", false},
		{"dotted quad inside", "10.0.0.0", "255.0.0.0", "10.200.3.4", true},
		{"dotted quad outside", "10.0.0.0", "255.0.0.0", "11.0.0.1", false},
		{"zero prefix matches all", "0.0.0.0", "0", "203.0.113.9", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			node := build(t, reg, "/ip", "ip_cidr_match", tc.network, tc.mask)
			r := expr.Eval(node, event.New([]byte(`{"ip":"`+tc.ip+`"}`)))
			require.Equal(t, tc.want, r.OK)
		})
	}
}

func TestIPCIDRMatchBadNetworkIsBuildError(t *testing.T) {
	reg := newRegistry(t)
	builder, err := reg.Lookup("ip_cidr_match")
	require.NoError(t, err)
	_, err = builder(registry.Definition{TargetField: "/ip", HelperName: "ip_cidr_match", RawArgs: []string{"not-an-ip", "24"}})
	require.Error(t, err)
}

func TestExistsAndNotExists(t *testing.T) {
	reg := newRegistry(t)
	doc := event.New([]byte(`{"present":1}`))

	require.True(t, expr.Eval(build(t, reg, "/present", "exists"), doc).OK)
	require.False(t, expr.Eval(build(t, reg, "/absent", "exists"), doc).OK)
	require.True(t, expr.Eval(build(t, reg, "/absent", "not_exists"), doc).OK)
	require.False(t, expr.Eval(build(t, reg, "/present", "not_exists"), doc).OK)
}

func TestArrayContains(t *testing.T) {
	reg := newRegistry(t)
	doc := event.New([]byte(`{"tags":["a","b","c"],"pick":"b"}`))

	require.True(t, expr.Eval(build(t, reg, "/tags", "array_contains", "z", "b"), doc).OK)
	require.False(t, expr.Eval(build(t, reg, "/tags", "array_contains", "z"), doc).OK)

	// A reference parameter reads the current event value.
	require.True(t, expr.Eval(build(t, reg, "/tags", "array_contains", "$pick"), doc).OK)

	// A missing reference is skipped, not a failure, as long as another
	// parameter matches.
	require.True(t, expr.Eval(build(t, reg, "/tags", "array_contains", "$absent", "c"), doc).OK)

	// Target not an array.
	require.False(t, expr.Eval(build(t, reg, "/pick", "array_contains", "b"), doc).OK)
}

func TestTypeTestsDistinguishMissingFromWrongType(t *testing.T) {
	reg := newRegistry(t)
	node := build(t, reg, "/f", "is_number")

	missing := expr.Eval(node, event.New([]byte(`{}`)))
	require.False(t, missing.OK)
	require.Contains(t, missing.Trace, "target not found")

	wrongType := expr.Eval(node, event.New([]byte(`{"f":"str"}`)))
	require.False(t, wrongType.OK)
	require.Contains(t, wrongType.Trace, "wrong type")

	require.True(t, expr.Eval(node, event.New([]byte(`{"f":3.5}`))).OK)
}

func TestTypeTests(t *testing.T) {
	reg := newRegistry(t)
	doc := event.New([]byte(`{"s":"x","n":1,"b":true,"bf":false,"a":[1],"o":{"k":1},"z":null}`))

	tests := []struct {
		helperName string
		target     string
		want       bool
	}{
		{"is_string", "/s", true},
		{"is_not_string", "/n", true},
		{"is_number", "/n", true},
		{"is_not_number", "/s", true},
		{"is_boolean", "/b", true},
		{"is_not_boolean", "/s", true},
		{"is_array", "/a", true},
		{"is_not_array", "/o", true},
		{"is_object", "/o", true},
		{"is_not_object", "/a", true},
		{"is_null", "/z", true},
		{"is_not_null", "/s", true},
		{"is_true", "/b", true},
		{"is_true", "/bf", false},
		{"is_false", "/bf", true},
		{"is_false", "/b", false},
	}
	for _, tc := range tests {
		t.Run(tc.helperName+tc.target, func(t *testing.T) {
			r := expr.Eval(build(t, reg, tc.target, tc.helperName), doc)
			require.Equal(t, tc.want, r.OK)
		})
	}
}

func TestParseLongMinInt64(t *testing.T) {
	reg := newRegistry(t)
	node := build(t, reg, "/field", "parse_long", "-9223372036854775808")

	doc := event.New([]byte(`{"field":"test"}`))
	r := expr.Eval(node, doc)
	require.True(t, r.OK)

	v, ok := doc.GetInt64("/field")
	require.True(t, ok)
	require.Equal(t, int64(-9223372036854775808), v)
}

func TestParseBool(t *testing.T) {
	reg := newRegistry(t)
	doc := event.New([]byte(`{"in":"TRUE"}`))
	r := expr.Eval(build(t, reg, "/out", "parse_bool", "$in"), doc)
	require.True(t, r.OK)
	v, ok := doc.GetBool("/out")
	require.True(t, ok)
	require.True(t, v)

	r = expr.Eval(build(t, reg, "/out", "parse_bool", "yes"), doc)
	require.False(t, r.OK)
}

func TestParseFailureLeavesEventUntouched(t *testing.T) {
	reg := newRegistry(t)
	doc := event.New([]byte(`{"in":"not a number"}`))
	r := expr.Eval(build(t, reg, "/out", "parse_long", "$in"), doc)
	require.False(t, r.OK)
	require.False(t, doc.Exists("/out"))
}

func TestParseJSON(t *testing.T) {
	reg := newRegistry(t)
	doc := event.New([]byte(`{"in":"{\"k\":1}"}`))
	r := expr.Eval(build(t, reg, "/out", "parse_json", "$in"), doc)
	require.True(t, r.OK)
	v, ok := doc.GetInt64("/out/k")
	require.True(t, ok)
	require.Equal(t, int64(1), v)
}

func TestParseDate(t *testing.T) {
	reg := newRegistry(t)
	doc := event.New([]byte(`{"ts":"2026-01-02 15:04:05"}`))
	r := expr.Eval(build(t, reg, "/out", "parse_date", "$ts", "%F %T"), doc)
	require.True(t, r.OK)
	v, ok := doc.GetString("/out")
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, v)
	require.NoError(t, err)
	require.Equal(t, 2026, parsed.Year())
}

func TestParseCSV(t *testing.T) {
	reg := newRegistry(t)
	doc := event.New([]byte(`{"row":"alice,admin,active"}`))
	r := expr.Eval(build(t, reg, "/out", "parse_csv", "$row", "user", "role", "state"), doc)
	require.True(t, r.OK)
	v, ok := doc.GetString("/out/role")
	require.True(t, ok)
	require.Equal(t, "admin", v)

	// Column-count mismatch fails.
	r = expr.Eval(build(t, reg, "/out2", "parse_csv", "$row", "user", "role"), doc)
	require.False(t, r.OK)
}

func TestParseKeyValue(t *testing.T) {
	reg := newRegistry(t)
	doc := event.New([]byte(`{"kv":"user=alice, role=\"admin\""}`))
	r := expr.Eval(build(t, reg, "/out", "parse_key_value", "$kv", ",", "=", `"`, `\`), doc)
	require.True(t, r.OK)
	user, ok := doc.GetString("/out/user")
	require.True(t, ok)
	require.Equal(t, "alice", user)
	role, ok := doc.GetString("/out/role")
	require.True(t, ok)
	require.Equal(t, "admin", role)
}

func TestParseQuoted(t *testing.T) {
	reg := newRegistry(t)

	doc := event.New([]byte(`{"in":"\"hello \\\" world\""}`))
	r := expr.Eval(build(t, reg, "/out", "parse_quoted", "$in"), doc)
	require.True(t, r.OK)
	v, ok := doc.GetString("/out")
	require.True(t, ok)
	require.Equal(t, `hello " world`, v)

	// Custom quote character.
	doc = event.New([]byte(`{"in":"'quoted'"}`))
	r = expr.Eval(build(t, reg, "/out", "parse_quoted", "$in", "'"), doc)
	require.True(t, r.OK)
	v, ok = doc.GetString("/out")
	require.True(t, ok)
	require.Equal(t, "quoted", v)

	// Unquoted input fails.
	doc = event.New([]byte(`{"in":"bare"}`))
	require.False(t, expr.Eval(build(t, reg, "/out", "parse_quoted", "$in"), doc).OK)
}

func TestParseBetween(t *testing.T) {
	reg := newRegistry(t)
	doc := event.New([]byte(`{"in":"before [payload] after"}`))
	r := expr.Eval(build(t, reg, "/out", "parse_between", "$in", "[", "]"), doc)
	require.True(t, r.OK)
	v, ok := doc.GetString("/out")
	require.True(t, ok)
	require.Equal(t, "payload", v)
}

func TestParseArityErrors(t *testing.T) {
	reg := newRegistry(t)
	tests := []struct {
		helperName string
		args       []string
	}{
		{"parse_long", nil},
		{"parse_long", []string{"1", "2"}},
		{"parse_date", []string{"$in"}},
		{"parse_between", []string{"$in", "["}},
		{"parse_key_value", []string{"$in", ",", "="}},
		{"parse_csv", []string{"$in", "only-one-column"}},
		{"exists", []string{"unexpected"}},
		{"int_equal", nil},
	}
	for _, tc := range tests {
		t.Run(tc.helperName, func(t *testing.T) {
			builder, err := reg.Lookup(tc.helperName)
			require.NoError(t, err)
			_, err = builder(registry.Definition{TargetField: "/f", HelperName: tc.helperName, RawArgs: tc.args})
			require.Error(t, err)
		})
	}
}

type fakeWDB struct {
	reply string
	seen  string
}

func (f *fakeWDB) Query(query string, _ time.Duration) (string, error) {
	f.seen = query
	return f.reply, nil
}

func TestWDBUpdateRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{"ok with payload", "ok {\"status\":1}", true},
		{"not ok", "NotOk", false},
		{"ok with trailing space", "ok ", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wdb := &fakeWDB{reply: tc.reply}
			helper.Configure(nil, wdb)
			reg := newRegistry(t)

			node := build(t, reg, "/wdb/result", "wdb_update", "$wdb.query_parameters")
			doc := event.New([]byte(`{"wdb":{"query_parameters":"agent 007 syscheck"}}`))
			r := expr.Eval(node, doc)

			// The Term succeeds regardless of the verdict written.
			require.True(t, r.OK)
			require.Equal(t, "agent 007 syscheck", wdb.seen)

			v, ok := doc.GetBool("/wdb/result")
			require.True(t, ok)
			require.Equal(t, tc.want, v)
		})
	}
}

func TestWDBUpdateMissingReference(t *testing.T) {
	helper.Configure(nil, &fakeWDB{reply: "ok"})
	reg := newRegistry(t)
	node := build(t, reg, "/out", "wdb_update", "$absent")
	r := expr.Eval(node, event.New([]byte(`{}`)))
	require.False(t, r.OK)
	require.Contains(t, r.Trace, "parameter not found")
}

type fakeKVDB struct {
	data map[string]map[string]string
}

func (f *fakeKVDB) Get(db, key string) (string, bool, error) {
	v, ok := f.data[db][key]
	return v, ok, nil
}

func (f *fakeKVDB) Match(db, pattern string) ([]string, bool, error) {
	var keys []string
	for k := range f.data[db] {
		keys = append(keys, k)
	}
	return keys, len(keys) > 0, nil
}

func (f *fakeKVDB) Delete(db, key string) (bool, error) {
	if _, ok := f.data[db][key]; !ok {
		return false, nil
	}
	delete(f.data[db], key)
	return true, nil
}

func TestKVDBGet(t *testing.T) {
	helper.Configure(&fakeKVDB{data: map[string]map[string]string{
		"agents": {"007": "james"},
	}}, nil)
	reg := newRegistry(t)

	doc := event.New([]byte(`{"key":"007"}`))
	r := expr.Eval(build(t, reg, "/out", "kvdb_get", "agents", "$key"), doc)
	require.True(t, r.OK)
	v, ok := doc.GetString("/out")
	require.True(t, ok)
	require.Equal(t, "james", v)

	r = expr.Eval(build(t, reg, "/out2", "kvdb_get", "agents", "missing"), doc)
	require.False(t, r.OK)
}

func TestTraceNameFormat(t *testing.T) {
	reg := newRegistry(t)
	node := build(t, reg, "/f", "int_greater", "10")
	require.Equal(t, "helper.int_greater[/f, 10]", node.Name)
}
