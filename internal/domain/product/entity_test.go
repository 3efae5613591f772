package product_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/production-backend/internal/domain/product"
)

func TestValidQuantity(t *testing.T) {
	tests := []struct {
		name  string
		unit  product.Unit
		qty   float64
		valid bool
	}{
		{"whole pieces ok", product.UnitPiece, 3, true},
		{"fractional pieces rejected", product.UnitPiece, 2.5, false},
		{"zero rejected", product.UnitPiece, 0, false},
		{"negative rejected", product.UnitPiece, -1, false},
		{"whole boxes ok", product.UnitBox, 10, true},
		{"fractional boxes rejected", product.UnitBox, 1.25, false},
		{"whole kg ok", product.UnitKg, 2, true},
		{"half kg ok", product.UnitKg, 2.5, true},
		{"quarter kg rejected", product.UnitKg, 2.25, false},
		{"negative kg rejected", product.UnitKg, -0.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := product.Product{Unit: tt.unit}
			assert.Equal(t, tt.valid, p.ValidQuantity(tt.qty))
		})
	}
}

func TestIsWeightBased(t *testing.T) {
	assert.True(t, (&product.Product{Unit: product.UnitKg}).IsWeightBased())
	assert.False(t, (&product.Product{Unit: product.UnitPiece}).IsWeightBased())
	assert.False(t, (&product.Product{Unit: product.UnitBox}).IsWeightBased())
}
