package txparse

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// trialOffsets are the candidate byte offsets, relative to the end of an
// op-code match, where a fixed-width amount field has been observed across
// gateway payload versions. They are tried in order and the first plausible
// value wins. This is a heuristic, not a protocol guarantee; a structured
// per-venue message decoder would replace it.
var trialOffsets = []int{4, 8, 12, 16, 20}

// maxPlausibleRaw caps the raw fixed-point value accepted by the offset
// trial. Values at or above 2^53 lose precision in float64 and are treated
// as garbage reads.
const maxPlausibleRaw = uint64(1) << 53

// DecodePayload converts an opaque payload string into raw bytes. Gateways
// deliver payloads as std/url-safe base64 or as 0x-prefixed hex; anything
// unrecognized decodes to nil.
func DecodePayload(s string) []byte {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		raw, err := hexutil.Decode(strings.ToLower(s))
		if err != nil {
			return nil
		}
		return raw
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if raw, err := enc.DecodeString(s); err == nil {
			return raw
		}
	}
	return nil
}

// AmountAfterOpcode scans raw for the big-endian encoding of opcode and, on a
// match, tries each candidate offset after the op-code for a big-endian
// uint64 amount. The first non-zero, non-overflowing value is returned.
// Every op-code occurrence is scanned before giving up.
func AmountAfterOpcode(raw []byte, opcode uint32) (uint64, bool) {
	if len(raw) < 4 {
		return 0, false
	}
	var pat [4]byte
	binary.BigEndian.PutUint32(pat[:], opcode)

	for from := 0; from <= len(raw)-4; {
		i := bytes.Index(raw[from:], pat[:])
		if i < 0 {
			return 0, false
		}
		base := from + i + 4
		for _, off := range trialOffsets {
			at := base + off
			if at+8 > len(raw) {
				break
			}
			v := binary.BigEndian.Uint64(raw[at : at+8])
			if v != 0 && v < maxPlausibleRaw {
				return v, true
			}
		}
		from += i + 1
	}
	return 0, false
}

// ScaleAmount converts a raw fixed-point value to a float using the given
// decimal precision.
func ScaleAmount(raw uint64, decimals int) float64 {
	if decimals <= 0 {
		return float64(raw)
	}
	return float64(raw) / math.Pow10(decimals)
}
