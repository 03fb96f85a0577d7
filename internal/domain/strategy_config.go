package domain

import "time"

// StrategyConfig holds the runtime tuning of a single strategy. Configs are
// treated as immutable values: Merge builds a new config and the owner swaps
// it wholesale, so concurrent readers never observe a half-updated struct.
type StrategyConfig struct {
	Enabled       bool           `json:"enabled"`
	MinConfidence float64        `json:"min_confidence"` // 0..1
	MinProfit     float64        `json:"min_profit"`     // TON
	Params        map[string]any `json:"params,omitempty"`
}

// ConfigPatch is a partial strategy config update. Known top-level fields are
// merged by name; everything else lands in Params.
type ConfigPatch map[string]any

// Merge returns a copy of c with the patch applied. Field ranges are not
// validated here; callers that need hard invariants must check them before
// applying the patch.
func (c StrategyConfig) Merge(patch ConfigPatch) StrategyConfig {
	out := c
	out.Params = make(map[string]any, len(c.Params)+len(patch))
	for k, v := range c.Params {
		out.Params[k] = v
	}

	for k, v := range patch {
		switch k {
		case "enabled":
			if b, ok := v.(bool); ok {
				out.Enabled = b
			}
		case "min_confidence":
			if f, ok := toFloat(v); ok {
				out.MinConfidence = f
			}
		case "min_profit", "min_profit_estimate":
			if f, ok := toFloat(v); ok {
				out.MinProfit = f
			}
		default:
			out.Params[k] = v
		}
	}
	return out
}

// Param returns a numeric parameter, falling back to def when the key is
// absent or not a number. JSON-decoded patches deliver numbers as float64.
func (c StrategyConfig) Param(key string, def float64) float64 {
	if v, ok := c.Params[key]; ok {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return def
}

// StringParam returns a string parameter with a default.
func (c StrategyConfig) StringParam(key, def string) string {
	if v, ok := c.Params[key].(string); ok && v != "" {
		return v
	}
	return def
}

// StringsParam returns a string-list parameter with a default. Both []string
// and JSON-decoded []any are accepted.
func (c StrategyConfig) StringsParam(key string, def []string) []string {
	switch v := c.Params[key].(type) {
	case []string:
		if len(v) > 0 {
			return v
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// StrategyConfigRecord is the persisted form of a strategy config, keyed by
// strategy name.
type StrategyConfigRecord struct {
	Name      string         `json:"name"`
	Config    StrategyConfig `json:"config"`
	UpdatedAt time.Time      `json:"updated_at"`
}
