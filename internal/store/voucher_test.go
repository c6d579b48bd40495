package store

import (
	"context"
	"testing"
	"time"

	"bakehouse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedVoucher(t *testing.T, st *Store, v *model.Voucher) *model.Voucher {
	t.Helper()
	require.NoError(t, st.Vouchers.db.Create(v).Error)
	return v
}

func TestValidateVoucher(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name     string
		voucher  *model.Voucher
		subtotal int64
		discount int64
		wantErr  error
	}{
		{
			name:    "nil voucher",
			voucher: nil,
			wantErr: ErrVoucherNotFound,
		},
		{
			name:    "inactive",
			voucher: &model.Voucher{Type: model.VoucherPercentage, Value: 10, Active: false},
			wantErr: ErrVoucherInactive,
		},
		{
			name: "not started",
			voucher: &model.Voucher{
				Type: model.VoucherPercentage, Value: 10, Active: true, StartsAt: &future,
			},
			wantErr: ErrVoucherNotYet,
		},
		{
			name: "expired",
			voucher: &model.Voucher{
				Type: model.VoucherPercentage, Value: 10, Active: true, ExpiresAt: &past,
			},
			wantErr: ErrVoucherExpired,
		},
		{
			name: "below minimum order",
			voucher: &model.Voucher{
				Type: model.VoucherPercentage, Value: 10, MinOrderValue: 1000, Active: true,
			},
			subtotal: 999,
			wantErr:  ErrVoucherMinOrder,
		},
		{
			name: "percentage",
			voucher: &model.Voucher{
				Type: model.VoucherPercentage, Value: 10, MinOrderValue: 1000, Active: true,
			},
			subtotal: 2000,
			discount: 200,
		},
		{
			name: "percentage truncates to minor unit",
			voucher: &model.Voucher{
				Type: model.VoucherPercentage, Value: 15, Active: true,
			},
			subtotal: 333,
			discount: 49, // 333 * 15 / 100 = 49.95
		},
		{
			name: "fixed amount",
			voucher: &model.Voucher{
				Type: model.VoucherFixedAmount, Value: 500, Active: true,
			},
			subtotal: 2000,
			discount: 500,
		},
		{
			name: "fixed amount capped at subtotal",
			voucher: &model.Voucher{
				Type: model.VoucherFixedAmount, Value: 5000, Active: true,
			},
			subtotal: 2000,
			discount: 2000,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			discount, err := ValidateVoucher(tc.voucher, tc.subtotal, now)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.discount, discount)
		})
	}
}

func TestFindByCode(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedVoucher(t, st, &model.Voucher{Code: "SAVE10", Type: model.VoucherPercentage, Value: 10, Active: true})

	v, err := st.Vouchers.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", v.Code)

	_, err = st.Vouchers.FindByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestIncrementUsageEnforcesGlobalCap(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	v := seedVoucher(t, st, &model.Voucher{
		Code: "CAPPED", Type: model.VoucherFixedAmount, Value: 100,
		MaxUses: int64p(2), Active: true,
	})

	for i := 0; i < 2; i++ {
		_, err := st.Vouchers.IncrementUsage(ctx, v.ID)
		require.NoError(t, err)
	}

	_, err := st.Vouchers.IncrementUsage(ctx, v.ID)
	assert.ErrorIs(t, err, ErrUsageLimitReached)

	got, err := st.Vouchers.FindByCode(ctx, "CAPPED")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.CurrentUses, "cap overshoot must never be persisted")
}

func TestIncrementUsageUnlimited(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	v := seedVoucher(t, st, &model.Voucher{
		Code: "OPEN", Type: model.VoucherPercentage, Value: 5, Active: true,
	})

	for i := 0; i < 5; i++ {
		got, err := st.Vouchers.IncrementUsage(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), got.CurrentUses)
	}
}

func TestDecrementUsageRollback(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	v := seedVoucher(t, st, &model.Voucher{
		Code: "ROLL", Type: model.VoucherPercentage, Value: 5, MaxUses: int64p(1), Active: true,
	})

	_, err := st.Vouchers.IncrementUsage(ctx, v.ID)
	require.NoError(t, err)

	got, err := st.Vouchers.DecrementUsage(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.CurrentUses)

	// The slot freed by rollback is reservable again.
	_, err = st.Vouchers.IncrementUsage(ctx, v.ID)
	require.NoError(t, err)
}

func TestCountCustomerUses(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	v := seedVoucher(t, st, &model.Voucher{Code: "PERCUST", Type: model.VoucherPercentage, Value: 5, Active: true})

	u := &model.User{Name: "Pat", Email: "pat@example.com", Role: model.RoleCustomer}
	require.NoError(t, st.Users.db.Create(u).Error)

	mkOrder := func(status model.OrderStatus, reqID string) {
		require.NoError(t, st.Orders.db.Create(&model.Order{
			RequestID: reqID, UserID: u.ID, VoucherID: &v.ID,
			Status: status, Fulfillment: model.FulfillmentCollection,
			CustomerName: u.Name, CustomerEmail: u.Email,
		}).Error)
	}
	mkOrder(model.StatusPending, "r1")
	mkOrder(model.StatusFulfilled, "r2")
	mkOrder(model.StatusCancelled, "r3")
	mkOrder(model.StatusRefunded, "r4")

	n, err := st.Vouchers.CountCustomerUses(ctx, u.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "cancelled and refunded orders release their use")
}
