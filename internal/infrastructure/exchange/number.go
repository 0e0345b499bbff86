package exchange

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float accepts a JSON number or a numeric string, since exchanges quote
// prices as strings. null decodes to 0.
type Float float64

func (f *Float) UnmarshalJSON(b []byte) error {
	b = BytesTrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("parse %q: %w", s, err)
		}
		// ParseFloat 接受 "NaN"/"Inf"，这些值无法再编码成 JSON
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("parse %q: not a finite number", s)
		}
		*f = Float(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = Float(n)
	return nil
}

func (f Float) Float64() float64 { return float64(f) }

// CheckQuote rejects quotes that cannot be stored: negative or non-finite
// bid, ask or volume.
func CheckQuote(bid, ask, volume float64) error {
	for _, v := range [...]struct {
		name string
		val  float64
	}{{"bid", bid}, {"ask", ask}, {"volume", volume}} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%s is not finite", v.name)
		}
		if v.val < 0 {
			return fmt.Errorf("%s is negative: %v", v.name, v.val)
		}
	}
	return nil
}
