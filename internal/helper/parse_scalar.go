package helper

import (
	"encoding/base64"
	"net"
	"strconv"
	"strings"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/param"
	"go.wazuh.dev/engine/internal/registry"
)

// registerScalarParsers wires the fixed-format parsers that take no
// configuration beyond the input: parse_bool,
// parse_byte, parse_long, parse_float, parse_binary, parse_ip.
func registerScalarParsers(r *registry.Registry) {
	register := func(name string, exact, min int, fn parseFn) {
		r.MustRegister(name, buildParseHelper(name, exact, min, fn))
	}

	register("parse_bool", 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		switch strings.ToLower(input) {
		case "true":
			return true, true
		case "false":
			return false, true
		default:
			return nil, false
		}
	})

	register("parse_byte", 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		v, err := strconv.ParseInt(input, 10, 16)
		if err != nil || v < 0 || v > 255 {
			return nil, false
		}
		return v, true
	})

	register("parse_long", 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		v, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return nil, false
		}
		return v, true
	})

	register("parse_float", 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		v, err := strconv.ParseFloat(input, 64)
		if err != nil {
			return nil, false
		}
		return v, true
	})

	register("parse_binary", 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		decoded, err := base64.StdEncoding.DecodeString(input)
		if err != nil {
			return nil, false
		}
		return base64.StdEncoding.EncodeToString(decoded), true
	})

	register("parse_ip", 1, 0, func(input string, _ []param.Parameter, _ *event.Document) (any, bool) {
		ip := net.ParseIP(input)
		if ip == nil {
			return nil, false
		}
		return ip.String(), true
	})
}
