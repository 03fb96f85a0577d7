package domain

import "time"

// MempoolPacket is one unit of pending-transaction data delivered by the
// mempool gateway. A packet is created once per inbound network event and is
// immutable afterwards, except for the lazily populated Transactions field
// which the extractor sets once to memoize its result.
type MempoolPacket struct {
	ID           string        `json:"id"`
	Timestamp    int64         `json:"timestamp"` // ms since epoch, ingestion time
	Data         any           `json:"data"`      // decoded JSON payload, shape not guaranteed
	Transactions []Transaction `json:"transactions,omitempty"`
}

// Time returns the packet timestamp as a time.Time.
func (p *MempoolPacket) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Transaction is a candidate pending transaction pulled out of a packet.
// There is no canonical upstream schema; each strategy applies its own
// pattern matching against the address fields and the opaque payload.
type Transaction struct {
	Hash        string    `json:"hash"`
	Account     string    `json:"account"` // destination contract address
	Source      string    `json:"source"`
	Payload     string    `json:"payload"` // base64 or 0x-hex encoded body
	OutMessages []Message `json:"out_msgs,omitempty"`
}

// Message is an outbound message attached to a pending transaction.
type Message struct {
	Destination string `json:"destination"`
	Payload     string `json:"payload"`
}
