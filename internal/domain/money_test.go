package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyDecodesNumbersAndStrings(t *testing.T) {
	var req struct {
		Amount Money `json:"amount"`
		Fee    Money `json:"fee"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"Rp 1.500.000","fee":2500}`), &req))
	assert.Equal(t, Money(1500000), req.Amount)
	assert.Equal(t, Money(2500), req.Fee)
}

func TestMoneyRejectsOutOfRange(t *testing.T) {
	for _, raw := range []string{`1e19`, `-1e19`, `9223372036854775808`, `"9223372036854775808"`} {
		var m Money
		assert.Error(t, json.Unmarshal([]byte(raw), &m), raw)
	}
}
