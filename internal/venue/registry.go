// Package venue holds the static registry of DEX contracts the scanner knows
// how to classify. Each venue is identified by its router/vault address and
// its swap operation code; per-pair instrument metadata drives payload
// decoding and gas estimation.
package venue

import "strings"

// Instrument describes one tradable pair on a venue.
type Instrument struct {
	Pair       string // e.g. "TON/USDT"
	Address    string // pool / vault contract
	PoolID     string
	TokenID    string
	Decimals   int
	SwapOpcode uint32 // per-instrument override; 0 means use the venue opcode
}

// Venue is a decentralized exchange identified by contract address and swap
// operation code.
type Venue struct {
	Name         string
	Contract     string
	SwapOpcode   uint32
	GasSurcharge float64 // TON, added on top of the base gas cost
	Instruments  map[string]Instrument
}

// OpcodeFor returns the swap op-code to match for the given pair.
func (v Venue) OpcodeFor(pair string) uint32 {
	if inst, ok := v.Instruments[pair]; ok && inst.SwapOpcode != 0 {
		return inst.SwapOpcode
	}
	return v.SwapOpcode
}

// Registry is an immutable lookup table of known venues. Build it once at
// startup; all methods are read-only and safe for concurrent use.
type Registry struct {
	venues  []Venue
	byAddr  map[string]*Venue
	byOp    map[uint32]*Venue
	ordered []string
}

// NewRegistry builds a Registry from the given venues, preserving order.
func NewRegistry(venues []Venue) *Registry {
	r := &Registry{
		venues: venues,
		byAddr: make(map[string]*Venue),
		byOp:   make(map[uint32]*Venue),
	}
	for i := range r.venues {
		v := &r.venues[i]
		r.byAddr[normalizeAddr(v.Contract)] = v
		r.byOp[v.SwapOpcode] = v
		for _, inst := range v.Instruments {
			if inst.Address != "" {
				r.byAddr[normalizeAddr(inst.Address)] = v
			}
		}
		r.ordered = append(r.ordered, v.Name)
	}
	return r
}

// Default returns the built-in registry of TON DEXes. Swap op-codes follow
// the venues' published contract ABIs: STON.fi router swap is 0x25938561,
// DeDust v2 vault swap is 0xea06185d.
func Default() *Registry {
	return NewRegistry([]Venue{
		{
			Name:         "DeDust",
			Contract:     "EQDa4VOnTYlLvDJ0gZjNYm5PXfSmmtL6Vs6A_CZEtXCNICq_",
			SwapOpcode:   0xea06185d,
			GasSurcharge: 0.012,
			Instruments: map[string]Instrument{
				"TON/USDT": {
					Pair:     "TON/USDT",
					Address:  "EQA-X_yo3fzzbDbJ_0bzFWKqtRuZFIRa1sJsveZJ1YpViO3r",
					PoolID:   "dedust:ton-usdt",
					Decimals: 9,
				},
				"TON/USDC": {
					Pair:     "TON/USDC",
					Address:  "EQB8nT6ZhJqkvSJSzqPZEnCeaGUgGGcaBJQcRvMYCEAtDzx2",
					PoolID:   "dedust:ton-usdc",
					Decimals: 9,
				},
			},
		},
		{
			Name:         "STON.fi",
			Contract:     "EQB3ncyBUTjZUA5EnFKR5_EnOMI9V1tTEAAPaiU71gc4TiUt",
			SwapOpcode:   0x25938561,
			GasSurcharge: 0.015,
			Instruments: map[string]Instrument{
				"TON/USDT": {
					Pair:     "TON/USDT",
					Address:  "EQD8TJ8xEWB1SpnRE4d89YO3jl0W0EiBnNS4IBaHaUmdfizE",
					PoolID:   "stonfi:ton-usdt",
					Decimals: 9,
				},
				"TON/USDC": {
					Pair:     "TON/USDC",
					Address:  "EQCGScrZe1xbyWqWDvdI6mzP-GAcAWFv6ZXuaJOuSqemxku4",
					PoolID:   "stonfi:ton-usdc",
					Decimals: 9,
				},
			},
		},
	})
}

// ByAddress returns the venue owning the given contract address, matching
// either the router/vault or any known pool address.
func (r *Registry) ByAddress(addr string) (Venue, bool) {
	v, ok := r.byAddr[normalizeAddr(addr)]
	if !ok {
		return Venue{}, false
	}
	return *v, true
}

// ByOpcode returns the venue whose swap op-code matches.
func (r *Registry) ByOpcode(op uint32) (Venue, bool) {
	v, ok := r.byOp[op]
	if !ok {
		return Venue{}, false
	}
	return *v, true
}

// Get returns a venue by name.
func (r *Registry) Get(name string) (Venue, bool) {
	for i := range r.venues {
		if r.venues[i].Name == name {
			return r.venues[i], true
		}
	}
	return Venue{}, false
}

// Names returns all venue names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Venues returns a copy of all registered venues in registration order.
func (r *Registry) Venues() []Venue {
	out := make([]Venue, len(r.venues))
	copy(out, r.venues)
	return out
}

func normalizeAddr(addr string) string {
	return strings.TrimSpace(addr)
}
