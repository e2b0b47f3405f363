package helper

import (
	"encoding/binary"
	"errors"
	"net"
	"strconv"
	"strings"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/param"
	"go.wazuh.dev/engine/internal/registry"
)

var errInvalidMask = errors.New("invalid mask")

// buildIPCIDRMatch implements ip_cidr_match: arity 2 (network, mask),
// mask accepted as a prefix length or dotted-quad. The range is
// computed on uint32 values: lower = network & mask, upper = lower | ^mask.
func buildIPCIDRMatch(r *registry.Registry) {
	const helperName = "ip_cidr_match"
	build := func(def registry.Definition) (*expr.Node, error) {
		params, err := parseArgs(helperName, def.TargetField, def.RawArgs, 2, 0)
		if err != nil {
			return nil, err
		}

		network := params[0]
		maskParam := params[1]

		var networkLiteral net.IP
		var maskLiteral uint32
		var haveLiterals bool
		if network.Kind == param.Value && maskParam.Kind == param.Value {
			networkLiteral = net.ParseIP(network.Raw).To4()
			if networkLiteral == nil {
				return nil, buildError(helperName, def.TargetField, "invalid network address %q", network.Raw)
			}
			m, err := parseMask(maskParam.Raw)
			if err != nil {
				return nil, buildError(helperName, def.TargetField, "invalid mask %q: %s", maskParam.Raw, err)
			}
			maskLiteral = m
			haveLiterals = true
		}

		tr := newTraces(helperName, def.TargetField, def.RawArgs)
		target := def.TargetField

		return expr.Term(tr.name, func(doc *event.Document) expr.Result {
			ipStr, ok := doc.GetString(target)
			if !ok {
				return tr.failTarget(doc)
			}
			ip := net.ParseIP(ipStr).To4()
			if ip == nil {
				return tr.fail(doc, "target is not an IPv4 address")
			}

			var netIP net.IP
			var mask uint32
			if haveLiterals {
				netIP, mask = networkLiteral, maskLiteral
			} else {
				netStr, ok := resolveString(doc, network)
				if !ok {
					return tr.failParam(doc)
				}
				netIP = net.ParseIP(netStr).To4()
				if netIP == nil {
					return tr.fail(doc, "network parameter is not an IPv4 address")
				}
				maskStr, ok := resolveString(doc, maskParam)
				if !ok {
					return tr.failParam(doc)
				}
				m, err := parseMask(maskStr)
				if err != nil {
					return tr.fail(doc, "invalid mask parameter")
				}
				mask = m
			}

			ipInt := binary.BigEndian.Uint32(ip)
			netInt := binary.BigEndian.Uint32(netIP)
			lower := netInt & mask
			upper := lower | ^mask
			if ipInt >= lower && ipInt <= upper {
				return tr.ok(doc)
			}
			return tr.fail(doc, "address outside CIDR range")
		}), nil
	}
	r.MustRegister(helperName, build)
}

// parseMask accepts either a prefix length ("24") or a dotted-quad
// mask ("255.255.255.0") and returns the mask as a big-endian uint32.
func parseMask(raw string) (uint32, error) {
	if !strings.Contains(raw, ".") {
		prefix, err := strconv.Atoi(raw)
		if err != nil || prefix < 0 || prefix > 32 {
			return 0, errInvalidMask
		}
		if prefix == 0 {
			return 0, nil
		}
		return ^uint32(0) << (32 - uint(prefix)), nil
	}
	ip := net.ParseIP(raw).To4()
	if ip == nil {
		return 0, errInvalidMask
	}
	return binary.BigEndian.Uint32(ip), nil
}
