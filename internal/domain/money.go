package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"tokoagen/backend/internal/format"
)

// Money is a whole-rupiah amount that decodes from either a JSON number or a
// localized string such as "Rp 1.500.000".
type Money int64

func (m Money) Int64() int64 { return int64(m) }

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(m))
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		n, err := format.ParseAmount(raw)
		if err != nil {
			return err
		}
		*m = Money(n)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("amount must be a number or string: %w", err)
	}
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return fmt.Errorf("amount %s out of range", data)
	}
	*m = Money(int64(f))
	return nil
}
