// Package event implements the mutable JSON document threaded through
// expression evaluation. It is the
// only package that imports a concrete JSON library; everything above
// it talks to a *Document by pointer path so the backend stays
// swappable.
package event

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Document is a mutable JSON document. The router hands the same
// *Document through an entire expression-tree evaluation; helpers that
// mutate it observe each other's prior writes in program order. A
// Document is never shared across workers once handed off.
//
// id is a process-local correlation handle, not part of the JSON body:
// it exists so a router worker can name an in-flight event in logs and
// trace archive rows without serializing the whole document.
type Document struct {
	mu  sync.Mutex
	raw []byte
	id  string
}

// New creates a Document from raw JSON bytes. Invalid JSON is accepted
// as-is; accessors simply report missing/wrong-type for malformed
// input rather than failing construction, so the transport boundary
// can log and skip instead of rejecting.
func New(raw []byte) *Document {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	return &Document{raw: append([]byte(nil), raw...), id: uuid.New().String()}
}

// ID returns the document's process-local correlation ID, stable for
// the lifetime of the Document.
func (d *Document) ID() string {
	return d.id
}

// Empty creates an empty object document.
func Empty() *Document {
	return New([]byte("{}"))
}

// Bytes returns a snapshot of the current raw JSON.
func (d *Document) Bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(d.raw))
	copy(out, d.raw)
	return out
}

// PointerToPath translates a JSON-pointer-style path ("/a/b/c") into a
// gjson/sjson dot path ("a.b.c"), escaping path-metacharacters gjson
// treats specially. An empty or "/"-only path yields "" (document
// root).
func PointerToPath(pointer string) string {
	if pointer == "" || pointer == "/" {
		return ""
	}
	pointer = strings.TrimPrefix(pointer, "/")
	segments := strings.Split(pointer, "/")
	for i, seg := range segments {
		seg = strings.ReplaceAll(seg, "~1", "/")
		seg = strings.ReplaceAll(seg, "~0", "~")
		seg = escapeGJSON(seg)
		segments[i] = seg
	}
	return strings.Join(segments, ".")
}

func escapeGJSON(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch r {
		case '.', '*', '?', '|', '#', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *Document) result(pointer string) gjson.Result {
	d.mu.Lock()
	raw := d.raw
	d.mu.Unlock()
	return gjson.GetBytes(raw, PointerToPath(pointer))
}

// Exists reports whether pointer resolves to any value, including null.
func (d *Document) Exists(pointer string) bool {
	return d.result(pointer).Exists()
}

// GetString reads a string value. ok is false if missing or not a string.
func (d *Document) GetString(pointer string) (string, bool) {
	r := d.result(pointer)
	if !r.Exists() || r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

// GetInt reads an int value truncated to int. ok is false if missing
// or not numeric.
func (d *Document) GetInt(pointer string) (int, bool) {
	v, ok := d.GetInt64(pointer)
	return int(v), ok
}

// GetInt64 reads an integral numeric value.
func (d *Document) GetInt64(pointer string) (int64, bool) {
	r := d.result(pointer)
	if !r.Exists() || r.Type != gjson.Number {
		return 0, false
	}
	return r.Int(), true
}

// GetDouble reads a floating-point numeric value.
func (d *Document) GetDouble(pointer string) (float64, bool) {
	r := d.result(pointer)
	if !r.Exists() || r.Type != gjson.Number {
		return 0, false
	}
	return r.Float(), true
}

// GetBool reads a boolean value.
func (d *Document) GetBool(pointer string) (bool, bool) {
	r := d.result(pointer)
	if !r.Exists() || r.Type != gjson.True && r.Type != gjson.False {
		return false, false
	}
	return r.Bool(), true
}

// GetArray reads an array value as a slice of raw gjson results.
func (d *Document) GetArray(pointer string) ([]gjson.Result, bool) {
	r := d.result(pointer)
	if !r.Exists() || !r.IsArray() {
		return nil, false
	}
	return r.Array(), true
}

// GetObject reads an object value as a map of raw gjson results.
func (d *Document) GetObject(pointer string) (map[string]gjson.Result, bool) {
	r := d.result(pointer)
	if !r.Exists() || !r.IsObject() {
		return nil, false
	}
	return r.Map(), true
}

// GetAny reads any value, decoded into a generic Go value (string,
// float64, bool, nil, []interface{}, map[string]interface{}).
func (d *Document) GetAny(pointer string) (any, bool) {
	r := d.result(pointer)
	if !r.Exists() {
		return nil, false
	}
	return r.Value(), true
}

// IsString, IsNumber, IsBool, IsArray, IsObject, IsNull are
// existence-aware type predicates; all report false for a missing
// path.
func (d *Document) IsString(pointer string) bool {
	r := d.result(pointer)
	return r.Exists() && r.Type == gjson.String
}

func (d *Document) IsNumber(pointer string) bool {
	r := d.result(pointer)
	return r.Exists() && r.Type == gjson.Number
}

func (d *Document) IsBool(pointer string) bool {
	r := d.result(pointer)
	return r.Exists() && (r.Type == gjson.True || r.Type == gjson.False)
}

func (d *Document) IsArray(pointer string) bool {
	r := d.result(pointer)
	return r.Exists() && r.IsArray()
}

func (d *Document) IsObject(pointer string) bool {
	r := d.result(pointer)
	return r.Exists() && r.IsObject()
}

func (d *Document) IsNull(pointer string) bool {
	r := d.result(pointer)
	return r.Exists() && r.Type == gjson.Null
}

// set applies an sjson mutation under the document lock.
func (d *Document) set(pointer string, fn func([]byte, string) ([]byte, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	out, err := fn(d.raw, PointerToPath(pointer))
	if err != nil {
		return fmt.Errorf("event: set %q: %w", pointer, err)
	}
	d.raw = out
	return nil
}

// SetString writes a string value at pointer, creating intermediate
// objects as needed.
func (d *Document) SetString(pointer, value string) error {
	return d.set(pointer, func(raw []byte, path string) ([]byte, error) {
		return sjson.SetBytes(raw, path, value)
	})
}

// SetBool writes a boolean value at pointer.
func (d *Document) SetBool(pointer string, value bool) error {
	return d.set(pointer, func(raw []byte, path string) ([]byte, error) {
		return sjson.SetBytes(raw, path, value)
	})
}

// SetInt writes an integer value at pointer.
func (d *Document) SetInt(pointer string, value int64) error {
	return d.set(pointer, func(raw []byte, path string) ([]byte, error) {
		return sjson.SetBytes(raw, path, value)
	})
}

// SetDouble writes a floating-point value at pointer.
func (d *Document) SetDouble(pointer string, value float64) error {
	return d.set(pointer, func(raw []byte, path string) ([]byte, error) {
		return sjson.SetBytes(raw, path, value)
	})
}

// SetObject writes an arbitrary JSON-marshalable value (object, array,
// or scalar) at pointer.
func (d *Document) SetObject(pointer string, value any) error {
	return d.set(pointer, func(raw []byte, path string) ([]byte, error) {
		return sjson.SetBytes(raw, path, value)
	})
}
