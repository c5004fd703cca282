package remote

import (
	"encoding/json"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalOrderSubmission_Golden(t *testing.T) {
	sub := &domain.OrderSubmission{
		ID: "ignored-in-body",
		Items: []domain.OrderLine{
			{ProductID: "P1", ProductName: "Laptop", UnitPrice: decimal.RequireFromString("14999.99"), Quantity: 2},
			{ProductID: "P2", ProductName: "Mouse", UnitPrice: decimal.RequireFromString("19.99"), Quantity: 1, ImageURL: "images/mouse.png"},
		},
		ShippingAddress: domain.ShippingAddress{
			Street:      "1 Main St",
			City:        "Paris",
			State:       "IDF",
			ZipCode:     "75001",
			PhoneNumber: "0102030405",
		},
		PaymentMethod: domain.PaymentMethodCard,
		TotalAmount:   decimal.RequireFromString("30019.97"),
	}

	data, err := MarshalOrderSubmission(sub)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "order_payload", data)
}

func TestWireTime_Layouts(t *testing.T) {
	cases := map[string]int{
		`"2024-03-04T05:06:07Z"`:        7,
		`"2024-03-04T05:06:07.1234567"`: 7,
		`"2024-03-04T05:06:07"`:         7,
		`"2024-03-04T07:06:07+02:00"`:   7,
	}
	for in, sec := range cases {
		var wt wireTime
		require.NoError(t, json.Unmarshal([]byte(in), &wt), in)
		assert.Equal(t, sec, wt.Second(), in)
		assert.Equal(t, 5, wt.Hour(), in)
	}

	var wt wireTime
	assert.NoError(t, json.Unmarshal([]byte(`null`), &wt))
	assert.True(t, wt.IsZero())
	assert.NoError(t, json.Unmarshal([]byte(`"yesterday"`), &wt))
	assert.True(t, wt.IsZero())
}

func TestWireStatus(t *testing.T) {
	var s wireStatus
	require.NoError(t, json.Unmarshal([]byte(`"Shipped"`), &s))
	assert.Equal(t, wireStatus(domain.OrderStatusShipped), s)

	require.NoError(t, json.Unmarshal([]byte(`4`), &s))
	assert.Equal(t, wireStatus(domain.OrderStatusCancelled), s)

	require.NoError(t, json.Unmarshal([]byte(`9`), &s))
	assert.Equal(t, wireStatus("9"), s)

	assert.Error(t, json.Unmarshal([]byte(`{}`), &s))
}

func TestCartDTO_ItemWithoutProductIDUsesLineID(t *testing.T) {
	var dto cartDTO
	require.NoError(t, json.Unmarshal([]byte(`{"id":"C1","items":[
		{"id":"P1","name":"Laptop","price":14999.99,"quantity":1},
		{"id":"P2","name":"Mouse","price":19.99,"quantity":2}
	]}`), &dto))

	snap := dto.toDomain()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "P1", snap.Items[0].ProductID)
	assert.Equal(t, "P2", snap.Items[1].ProductID)
	assert.Equal(t, "P2", snap.Items[1].ID)
}
