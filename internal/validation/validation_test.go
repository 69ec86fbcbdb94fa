package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	Product  string `json:"product" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

type cart struct {
	Items []line          `json:"items" validate:"required,min=1,dive"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
	Note  string          `json:"note" validate:"omitempty,max=5"`
}

func TestValidator_Valid(t *testing.T) {
	v := New()

	errs := v.Struct(cart{
		Items: []line{{Product: "p1", Quantity: 2}},
		Price: decimal.NewFromFloat(1.5),
	})
	assert.Nil(t, errs)
}

func TestValidator_ReportsJSONFieldPaths(t *testing.T) {
	v := New()

	errs := v.Struct(cart{
		Items: []line{{Product: "p1", Quantity: 1}, {Product: "", Quantity: 0}},
		Price: decimal.NewFromInt(-1),
		Note:  "too long",
	})
	require.Len(t, errs, 4)

	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "is required", fields["items[1].product"])
	assert.Equal(t, "must be greater than or equal to 1", fields["items[1].quantity"])
	assert.Equal(t, "must be greater than or equal to 0", fields["price"])
	assert.Equal(t, "must be at most 5 characters", fields["note"])
}

func TestValidator_EmptySlice(t *testing.T) {
	v := New()

	errs := v.Struct(cart{Items: []line{}})
	require.Len(t, errs, 1)
	assert.Equal(t, "items", errs[0].Field)
	assert.Equal(t, "must contain at least 1 item(s)", errs[0].Message)
}
