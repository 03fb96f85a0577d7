// Package txparse normalizes raw mempool packets into candidate transactions
// and decodes swap parameters out of their opaque payloads. The upstream
// gateway schema is not strictly versioned, so both halves of the package are
// deliberately permissive: extraction degrades to an empty result and
// decoding is an ordered-trial heuristic rather than a structured decoder.
package txparse

import "github.com/tonmev/tonmev/internal/domain"

// shapeMatcher recognizes one wire shape of a packet. Matchers are tried in a
// fixed order and the first match wins.
type shapeMatcher struct {
	name  string
	match func(p *domain.MempoolPacket) ([]domain.Transaction, bool)
}

var matchers = []shapeMatcher{
	{"pre-extracted", matchPreExtracted},
	{"transactions", matchNamedList("transactions")},
	{"messages", matchNamedList("messages")},
	{"bare-list", matchBareList},
	{"externalMessages", matchNamedList("externalMessages")},
}

// Extract returns the packet's candidate transactions, trying each known wire
// shape in order. The result is memoized onto the packet so repeated calls
// are free. Malformed payloads never fail; they produce an empty slice.
func Extract(p *domain.MempoolPacket) []domain.Transaction {
	if p == nil {
		return nil
	}
	for _, m := range matchers {
		if txs, ok := m.match(p); ok {
			p.Transactions = txs
			return txs
		}
	}
	return nil
}

func matchPreExtracted(p *domain.MempoolPacket) ([]domain.Transaction, bool) {
	if p.Transactions != nil {
		return p.Transactions, true
	}
	return nil, false
}

func matchNamedList(field string) func(p *domain.MempoolPacket) ([]domain.Transaction, bool) {
	return func(p *domain.MempoolPacket) ([]domain.Transaction, bool) {
		m, ok := p.Data.(map[string]any)
		if !ok {
			return nil, false
		}
		list, ok := m[field].([]any)
		if !ok {
			return nil, false
		}
		return coerceList(list), true
	}
}

func matchBareList(p *domain.MempoolPacket) ([]domain.Transaction, bool) {
	list, ok := p.Data.([]any)
	if !ok {
		return nil, false
	}
	return coerceList(list), true
}

func coerceList(list []any) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(list))
	for _, el := range list {
		switch v := el.(type) {
		case domain.Transaction:
			out = append(out, v)
		case map[string]any:
			out = append(out, coerceTx(v))
		}
	}
	return out
}

// coerceTx maps a loosely-typed JSON object onto a Transaction, accepting the
// field aliases seen across gateway versions.
func coerceTx(m map[string]any) domain.Transaction {
	tx := domain.Transaction{
		Hash:    str(m, "hash", "id", "tx_hash"),
		Account: str(m, "account", "address", "destination", "to"),
		Source:  str(m, "source", "from"),
		Payload: str(m, "payload", "body", "data", "boc"),
	}
	for _, key := range []string{"out_msgs", "out_messages", "outMessages"} {
		list, ok := m[key].([]any)
		if !ok {
			continue
		}
		for _, el := range list {
			mm, ok := el.(map[string]any)
			if !ok {
				continue
			}
			tx.OutMessages = append(tx.OutMessages, domain.Message{
				Destination: str(mm, "destination", "to", "address"),
				Payload:     str(mm, "payload", "body", "data"),
			})
		}
		break
	}
	return tx
}

func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
