package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bakehouse/internal/model"

	"gorm.io/gorm"
)

// Voucher validation rejections, surfaced to the customer verbatim.
var (
	ErrVoucherNotFound = errors.New("voucher code not found")
	ErrVoucherInactive = errors.New("voucher is not active")
	ErrVoucherNotYet   = errors.New("voucher is not valid yet")
	ErrVoucherExpired  = errors.New("voucher has expired")
	ErrVoucherMinOrder = errors.New("order total is below the voucher minimum")
)

// VoucherLedger owns voucher usage counters. The global cap is enforced by
// the conditional increment; the per-customer cap is a separate count read
// done by the coordinator before reserving (see CountCustomerUses).
type VoucherLedger struct {
	db *gorm.DB
}

// FindByCode is an exact lookup; callers uppercase the input first.
func (l *VoucherLedger) FindByCode(ctx context.Context, code string) (*model.Voucher, error) {
	var v model.Voucher
	err := l.db.WithContext(ctx).Where("code = ?", code).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("find voucher: %w", err)
	}
	return &v, nil
}

// ValidateVoucher checks a voucher against an order subtotal and computes the
// discount in minor units. Pure: no I/O, no mutation.
func ValidateVoucher(v *model.Voucher, subtotal int64, now time.Time) (int64, error) {
	if v == nil {
		return 0, ErrVoucherNotFound
	}
	if !v.Active {
		return 0, ErrVoucherInactive
	}
	if v.StartsAt != nil && now.Before(*v.StartsAt) {
		return 0, ErrVoucherNotYet
	}
	if v.ExpiresAt != nil && now.After(*v.ExpiresAt) {
		return 0, ErrVoucherExpired
	}
	if subtotal < v.MinOrderValue {
		return 0, ErrVoucherMinOrder
	}

	switch v.Type {
	case model.VoucherFixedAmount:
		if v.Value > subtotal {
			return subtotal, nil // never discount past the order itself
		}
		return v.Value, nil
	case model.VoucherPercentage:
		return subtotal * v.Value / 100, nil
	default:
		return 0, fmt.Errorf("unknown voucher type %q", v.Type)
	}
}

// IncrementUsage reserves one use, only while under the global cap:
//
//	UPDATE vouchers SET current_uses = current_uses + 1
//	WHERE id = ? AND (max_uses IS NULL OR current_uses < max_uses)
//
// Zero rows affected with an existing voucher means the cap was reached,
// possibly by a concurrent checkout since validation.
func (l *VoucherLedger) IncrementUsage(ctx context.Context, voucherID uint) (*model.Voucher, error) {
	res := l.db.WithContext(ctx).Model(&model.Voucher{}).
		Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", voucherID).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("increment voucher usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := l.db.WithContext(ctx).Model(&model.Voucher{}).Where("id = ?", voucherID).Count(&count).Error; err == nil && count == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrUsageLimitReached
	}
	return l.reload(ctx, voucherID)
}

// DecrementUsage unconditionally releases one use. Rollback only; the floor
// guard just keeps a double rollback from driving the counter negative.
func (l *VoucherLedger) DecrementUsage(ctx context.Context, voucherID uint) (*model.Voucher, error) {
	res := l.db.WithContext(ctx).Model(&model.Voucher{}).
		Where("id = ? AND current_uses > 0", voucherID).
		UpdateColumn("current_uses", gorm.Expr("current_uses - 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("decrement voucher usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return l.reload(ctx, voucherID)
}

// CountCustomerUses counts this customer's live orders referencing the
// voucher. Cancelled and refunded orders release their use.
func (l *VoucherLedger) CountCustomerUses(ctx context.Context, userID, voucherID uint) (int64, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&model.Order{}).
		Where("user_id = ? AND voucher_id = ? AND status NOT IN ?",
			userID, voucherID, []model.OrderStatus{model.StatusCancelled, model.StatusRefunded}).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count voucher uses: %w", err)
	}
	return n, nil
}

func (l *VoucherLedger) reload(ctx context.Context, voucherID uint) (*model.Voucher, error) {
	var v model.Voucher
	if err := l.db.WithContext(ctx).First(&v, voucherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reload voucher: %w", err)
	}
	return &v, nil
}
