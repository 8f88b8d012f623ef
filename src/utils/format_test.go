package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func Test_FormatPrice(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{"0.00001234", "$0.00001234"},
		{"0.5", "$0.500000"},
		{"2.5", "$2.5000"},
		{"101.456", "$101.46"},
		{"43251.5", "$43,251.5"},
		{"1234567.891", "$1,234,567.89"},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(decimal.RequireFromString(tt.price)))
		})
	}
}
