package txparse

import "github.com/tonmev/tonmev/internal/domain"

// SwapAmount extracts the raw swap amount for the given op-code from a
// transaction. Outbound-message payloads are scanned first; the transaction's
// own payload is the secondary scan. Both use the same offset-trial decode.
func SwapAmount(tx domain.Transaction, opcode uint32) (uint64, bool) {
	for _, msg := range tx.OutMessages {
		if raw := DecodePayload(msg.Payload); raw != nil {
			if v, ok := AmountAfterOpcode(raw, opcode); ok {
				return v, true
			}
		}
	}
	if raw := DecodePayload(tx.Payload); raw != nil {
		if v, ok := AmountAfterOpcode(raw, opcode); ok {
			return v, true
		}
	}
	return 0, false
}
