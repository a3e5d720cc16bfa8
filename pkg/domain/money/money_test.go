package money_test

import (
	"encoding/json"
	"testing"

	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected money.Amount
		wantErr  bool
	}{
		{"whole number", "40", 4000, false},
		{"two decimals", "40.00", 4000, false},
		{"one decimal", "0.5", 50, false},
		{"smallest unit", "0.01", 1, false},
		{"trailing zero beyond scale", "10.990", 1099, false},
		{"surrounding spaces", " 12.34 ", 1234, false},
		{"three decimals", "10.999", 0, true},
		{"zero", "0", 0, true},
		{"zero with decimals", "0.00", 0, true},
		{"negative", "-5.00", 0, true},
		{"explicit plus", "+5.00", 0, true},
		{"exponent", "1e3", 0, true},
		{"empty", "", 0, true},
		{"letters", "ten", 0, true},
		{"overflow", "99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := money.Parse(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, money.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAmount_String(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("40.00", money.FromCents(4000).String())
	assert.Equal("0.05", money.FromCents(5).String())
	assert.Equal("0.00", money.FromCents(0).String())
	assert.Equal("1234.56", money.MustParse("1234.56").String())
}

func TestAmount_JSON(t *testing.T) {
	require := require.New(t)

	out, err := json.Marshal(struct {
		Amount money.Amount `json:"amount"`
	}{money.FromCents(6000)})
	require.NoError(err)
	require.JSONEq(`{"amount":"60.00"}`, string(out))

	var in struct {
		Balance money.Amount `json:"balance"`
	}
	require.NoError(json.Unmarshal([]byte(`{"balance":"0.00"}`), &in))
	require.Equal(money.Amount(0), in.Balance)
	require.NoError(json.Unmarshal([]byte(`{"balance":"12.30"}`), &in))
	require.Equal(money.Amount(1230), in.Balance)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { money.MustParse("1.234") })
}
