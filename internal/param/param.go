// Package param parses raw helper arguments into a VALUE literal or a
// REFERENCE to an event pointer path.
package param

import (
	"fmt"
	"strings"
)

// Kind distinguishes a literal argument from one that dereferences the
// event document.
type Kind int

const (
	Value Kind = iota
	Reference
)

func (k Kind) String() string {
	if k == Reference {
		return "REFERENCE"
	}
	return "VALUE"
}

// Parameter is an immutable parsed helper argument.
type Parameter struct {
	Kind Kind
	Raw  string // original token, "$"-prefixed for references
	Path string // pointer path, set only for Kind == Reference
}

// Parse parses one raw argument token into a Parameter. A token
// beginning with "$" is a REFERENCE; its remainder is translated from
// dot-separated source syntax ("a.b") to a JSON pointer path ("/a/b").
// Any other token is a VALUE carrying the raw string verbatim; no
// quoting or unquoting happens at this layer.
func Parse(raw string) (Parameter, error) {
	if !strings.HasPrefix(raw, "$") {
		return Parameter{Kind: Value, Raw: raw}, nil
	}

	remainder := raw[1:]
	if remainder == "" {
		return Parameter{}, fmt.Errorf("invalid reference %q: empty remainder", raw)
	}
	path, err := ToPointerPath(remainder)
	if err != nil {
		return Parameter{}, fmt.Errorf("invalid reference %q: %w", raw, err)
	}
	return Parameter{Kind: Reference, Raw: raw, Path: path}, nil
}

// ParseAll parses a list of raw argument tokens in order, stopping at
// the first error.
func ParseAll(raws []string) ([]Parameter, error) {
	params := make([]Parameter, 0, len(raws))
	for _, r := range raws {
		p, err := Parse(r)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// ToPointerPath translates a "."-separated reference remainder (the
// source language's sub-key separator) into a JSON pointer path,
// escaping "~" in a segment as "~0" and "/" as "~1" per RFC 6901.
// Fails if any segment is empty.
func ToPointerPath(remainder string) (string, error) {
	segments := strings.Split(remainder, ".")
	var b strings.Builder
	for _, seg := range segments {
		if seg == "" {
			return "", fmt.Errorf("empty path segment")
		}
		b.WriteByte('/')
		b.WriteString(escapePointerSegment(seg))
	}
	return b.String(), nil
}

func escapePointerSegment(seg string) string {
	if !strings.ContainsAny(seg, "/~") {
		return seg
	}
	seg = strings.ReplaceAll(seg, "~", "~0")
	seg = strings.ReplaceAll(seg, "/", "~1")
	return seg
}
