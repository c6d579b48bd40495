package store

import (
	"context"
	"testing"

	"bakehouse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWithItemsAssignsSequentialOrderNo(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p := seedProduct(t, st, "Rye Loaf", nil)
	u := &model.User{Name: "Sam", Email: "sam@example.com"}
	require.NoError(t, st.Users.db.Create(u).Error)

	mk := func(reqID string) *model.Order {
		o := &model.Order{
			RequestID: reqID, UserID: u.ID, Status: model.StatusPending,
			Fulfillment:  model.FulfillmentCollection,
			CustomerName: u.Name, CustomerEmail: u.Email,
			Subtotal: 700, Total: 700,
		}
		items := []model.OrderItem{{
			ProductID: p.ID, ProductName: p.Name,
			Quantity: 2, UnitPrice: 350, TotalPrice: 700, Available: true,
		}}
		require.NoError(t, st.Orders.CreateWithItems(ctx, o, items))
		return o
	}

	first := mk("req-1")
	second := mk("req-2")

	assert.Equal(t, "BK-000001", first.OrderNo)
	assert.Equal(t, "BK-000002", second.OrderNo)

	loaded, err := st.Orders.FindByIDWithItems(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, int64(700), loaded.Items[0].TotalPrice)

	byReq, err := st.Orders.FindByRequestID(ctx, "req-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, byReq.ID)
}

func TestCreateWithItemsRejectsEmptyCart(t *testing.T) {
	st := newTestStore(t)
	err := st.Orders.CreateWithItems(context.Background(), &model.Order{RequestID: "x"}, nil)
	assert.Error(t, err)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p := seedProduct(t, st, "Tart", nil)
	u := &model.User{Name: "Jo", Email: "jo@example.com"}
	require.NoError(t, st.Users.db.Create(u).Error)

	o := &model.Order{
		RequestID: "req-s", UserID: u.ID, Status: model.StatusPending,
		Fulfillment:  model.FulfillmentCollection,
		CustomerName: u.Name, CustomerEmail: u.Email,
	}
	require.NoError(t, st.Orders.CreateWithItems(ctx, o, []model.OrderItem{{
		ProductID: p.ID, ProductName: p.Name, Quantity: 1, UnitPrice: 400, TotalPrice: 400, Available: true,
	}}))

	require.NoError(t, st.Orders.UpdateStatus(ctx, o.ID, model.StatusReady))
	got, err := st.Orders.FindByIDWithItems(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, got.Status)

	assert.ErrorIs(t, st.Orders.UpdateStatus(ctx, 9999, model.StatusReady), ErrNotFound)
}
