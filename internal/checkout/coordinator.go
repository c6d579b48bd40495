// Package checkout implements the order placement and fulfillment engine:
// the create-order saga, pricing, and the order status machine.
//
// There is no multi-statement transaction spanning stock, voucher usage and
// the order insert. Each reservation is a forward step with an explicit
// inverse; the coordinator accumulates inverses as the happy path progresses
// and replays them on any later failure, including a panic.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"bakehouse/internal/model"
	"bakehouse/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LineItem is one requested cart line.
type LineItem struct {
	ProductID uint  `json:"product_id"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderInput is a checkout submission. UserID is the authenticated
// session user when present; otherwise the customer is resolved by email,
// creating a guest account if needed.
type CreateOrderInput struct {
	UserID *uint

	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	Fulfillment   model.FulfillmentMethod
	PaymentMethod string
	Items         []LineItem
	VoucherCode   string
	BakeSaleID    *uint

	BillingAddress  string
	ShippingAddress string
	Notes           string

	CaptchaToken string
}

// CreateOrderResult identifies the persisted order.
type CreateOrderResult struct {
	OrderID   uint   `json:"order_id"`
	OrderNo   string `json:"order_no"`
	RequestID string `json:"request_id"`
}

// Coordinator orchestrates order creation and status transitions against the
// store and the external collaborators.
type Coordinator struct {
	store    *store.Store
	verifier CaptchaVerifier // nil disables the anti-automation check
	notifier Notifier
	cache    CacheInvalidator
	log      *zap.Logger

	deliveryFee int64
}

func NewCoordinator(st *store.Store, verifier CaptchaVerifier, notifier Notifier, cache CacheInvalidator, log *zap.Logger, deliveryFee int64) *Coordinator {
	return &Coordinator{
		store:       st,
		verifier:    verifier,
		notifier:    notifier,
		cache:       cache,
		log:         log,
		deliveryFee: deliveryFee,
	}
}

// undoStep is the recorded inverse of an applied reservation.
type undoStep struct {
	label string
	fn    func(ctx context.Context) error
}

// CreateOrder runs the checkout saga:
//
//	validate -> captcha -> resolve user -> price & feasibility (read-only)
//	-> reserve stock -> reserve voucher -> snapshot collection details
//	-> persist order + items -> invalidate caches.
//
// Any failure after the first reservation replays the recorded inverses
// before returning. Expected failures come back as *Rejection; anything
// unexpected is logged and collapsed to a generic rejection.
func (c *Coordinator) CreateOrder(ctx context.Context, in CreateOrderInput) (res CreateOrderResult, err error) {
	var undos []undoStep
	committed := false
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("checkout panic",
				zap.Any("panic", r),
				zap.String("email", in.CustomerEmail),
				zap.Int("items", len(in.Items)))
			err = errCreateFailed
		}
		if !committed && len(undos) > 0 {
			// Rollback must run even when the request context is gone.
			c.rollback(context.WithoutCancel(ctx), undos)
		}
	}()

	if rej := validateInput(in); rej != nil {
		return res, rej
	}

	// 1. Anti-automation. Skipped entirely when no verifier is configured.
	if c.verifier != nil {
		if verr := c.verifier.Verify(ctx, in.CaptchaToken); verr != nil {
			return res, reject(CodeCaptchaFailed, "Verification failed, please try again")
		}
	}

	// 2. Resolve the customer.
	user, err := c.resolveUser(ctx, in)
	if err != nil {
		c.logFailure("resolve_user", in, err)
		return res, errCreateFailed
	}

	// 3. Price the cart and check feasibility without mutating anything.
	lines, required, rej, err := c.priceAndCheck(ctx, in.Items)
	if rej != nil {
		return res, rej
	}
	if err != nil {
		c.logFailure("price_items", in, err)
		return res, errCreateFailed
	}
	sub := subtotal(lines)

	// 4. Delivery fee.
	var fee int64
	if in.Fulfillment == model.FulfillmentDelivery {
		fee = c.deliveryFee
	}
	beforeDiscount := sub + fee

	// 5. Voucher validation, including the per-customer cap. The cap check
	// here and the reservation below are separate statements; that window is
	// an accepted race, unlike the global cap.
	var voucher *model.Voucher
	var discount int64
	if in.VoucherCode != "" {
		voucher, discount, rej, err = c.validateVoucher(ctx, in.VoucherCode, beforeDiscount, user.ID)
		if rej != nil {
			return res, rej
		}
		if err != nil {
			c.logFailure("validate_voucher", in, err)
			return res, errCreateFailed
		}
	}

	// 6. Reserve stock, recording an inverse per applied decrement.
	for _, r := range required {
		r := r
		if _, derr := c.store.Inventory.DecrementStock(ctx, r.productID, r.quantity); derr != nil {
			if errors.Is(derr, store.ErrInsufficientStock) || errors.Is(derr, store.ErrNotFound) {
				return res, reject(CodeInsufficientStock, "Insufficient stock for %s", r.name)
			}
			c.logFailure("reserve_stock", in, derr)
			return res, errCreateFailed
		}
		undos = append(undos, undoStep{
			label: fmt.Sprintf("stock product=%d qty=%d", r.productID, r.quantity),
			fn: func(ctx context.Context) error {
				_, ierr := c.store.Inventory.IncrementStock(ctx, r.productID, r.quantity)
				return ierr
			},
		})
	}

	// 7. Reserve the voucher use. A concurrent checkout may have taken the
	// last slot since validation; surface the same message as the check.
	if voucher != nil {
		if _, verr := c.store.Vouchers.IncrementUsage(ctx, voucher.ID); verr != nil {
			if errors.Is(verr, store.ErrUsageLimitReached) || errors.Is(verr, store.ErrNotFound) {
				return res, reject(CodeVoucherLimit, "Voucher %s is no longer available", voucher.Code)
			}
			c.logFailure("reserve_voucher", in, verr)
			return res, errCreateFailed
		}
		voucherID := voucher.ID
		undos = append(undos, undoStep{
			label: fmt.Sprintf("voucher id=%d", voucherID),
			fn: func(ctx context.Context) error {
				_, derr := c.store.Vouchers.DecrementUsage(ctx, voucherID)
				return derr
			},
		})
	}

	// 8. Freeze collection details.
	order := c.buildOrder(ctx, in, user, sub, fee, discount, voucher)

	// 9. Persist order + items atomically.
	items := buildItems(lines)
	if perr := c.store.Orders.CreateWithItems(ctx, order, items); perr != nil {
		c.logFailure("persist_order", in, perr)
		return res, errCreateFailed
	}
	committed = true

	// 10. Read freshness only; never fails the order.
	c.invalidate(ctx, TagOrders, TagDashboard, TagProducts)

	c.log.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_no", order.OrderNo),
		zap.String("email", user.Email),
		zap.Int("items", len(items)),
		zap.Int64("total", order.Total))

	c.notifyAsync(user.Email, "order-confirmation", map[string]string{
		"order_no": order.OrderNo,
		"name":     order.CustomerName,
	})

	return CreateOrderResult{OrderID: order.ID, OrderNo: order.OrderNo, RequestID: order.RequestID}, nil
}

// requiredStock is the aggregate tracked-stock demand for one product across
// all cart lines.
type requiredStock struct {
	productID uint
	name      string
	quantity  int
}

// priceAndCheck resolves products and variants, prices every line, and
// aggregates tracked-stock demand. Read-only: rejections here leave no trace.
func (c *Coordinator) priceAndCheck(ctx context.Context, items []LineItem) ([]PricedLine, []requiredStock, *Rejection, error) {
	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	products, err := c.store.Inventory.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	variants, err := c.store.Inventory.ActiveVariantsForProducts(ctx, ids)
	if err != nil {
		return nil, nil, nil, err
	}

	lines := make([]PricedLine, 0, len(items))
	demand := make(map[uint]int)
	orderOfDemand := make([]uint, 0, len(ids))

	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, nil, reject(CodeProductNotFound, "Product not found"), nil
		}
		if !p.Active {
			return nil, nil, reject(CodeProductInactive, "%s is not available", p.Name), nil
		}

		var variant *model.ProductVariant
		if it.VariantID != nil {
			for i := range variants[p.ID] {
				if variants[p.ID][i].ID == *it.VariantID {
					variant = &variants[p.ID][i]
					break
				}
			}
			if variant == nil {
				return nil, nil, reject(CodeVariantUnavail, "Variant not available for %s", p.Name), nil
			}
		}

		lines = append(lines, priceLine(p, variant, it.Quantity))

		if p.Tracked() {
			if _, ok := demand[p.ID]; !ok {
				orderOfDemand = append(orderOfDemand, p.ID)
			}
			demand[p.ID] += it.Quantity
		}
	}

	// Aggregate feasibility: the same product across several lines must fit
	// within current stock. The reservation step re-checks atomically; this
	// pass just fails fast before any mutation.
	required := make([]requiredStock, 0, len(demand))
	for _, id := range orderOfDemand {
		p := products[id]
		if int64(demand[id]) > *p.StockQuantity {
			return nil, nil, reject(CodeInsufficientStock, "Insufficient stock for %s", p.Name), nil
		}
		required = append(required, requiredStock{productID: id, name: p.Name, quantity: demand[id]})
	}

	return lines, required, nil, nil
}

func (c *Coordinator) validateVoucher(ctx context.Context, code string, beforeDiscount int64, userID uint) (*model.Voucher, int64, *Rejection, error) {
	v, err := c.store.Vouchers.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, store.ErrVoucherNotFound) {
			return nil, 0, reject(CodeVoucherInvalid, "Invalid voucher code"), nil
		}
		return nil, 0, nil, err
	}

	discount, verr := store.ValidateVoucher(v, beforeDiscount, time.Now())
	if verr != nil {
		return nil, 0, reject(CodeVoucherInvalid, "%s", capitalize(verr.Error())), nil
	}

	if v.MaxUsesPerCustomer != nil {
		uses, cerr := c.store.Vouchers.CountCustomerUses(ctx, userID, v.ID)
		if cerr != nil {
			return nil, 0, nil, cerr
		}
		if uses >= *v.MaxUsesPerCustomer {
			return nil, 0, reject(CodeVoucherLimit, "Voucher %s is no longer available", v.Code), nil
		}
	}

	return v, discount, nil, nil
}

// resolveUser prefers the session user, then an existing account by email,
// then a fresh guest account.
func (c *Coordinator) resolveUser(ctx context.Context, in CreateOrderInput) (*model.User, error) {
	if in.UserID != nil {
		u, err := c.store.Users.FindByID(ctx, *in.UserID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		// Stale session id falls through to email resolution.
	}
	u, err := c.store.Users.FindByEmail(ctx, in.CustomerEmail)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return c.store.Users.CreateGuest(ctx, in.CustomerName, in.CustomerEmail, in.CustomerPhone)
}

// buildOrder assembles the order row, snapshotting bake sale collection
// details so later edits to the location never rewrite order history.
func (c *Coordinator) buildOrder(ctx context.Context, in CreateOrderInput, user *model.User, sub, fee, discount int64, voucher *model.Voucher) *model.Order {
	order := &model.Order{
		RequestID:       uuid.New().String(),
		UserID:          user.ID,
		BakeSaleID:      in.BakeSaleID,
		Status:          model.StatusPending,
		Fulfillment:     in.Fulfillment,
		PaymentMethod:   in.PaymentMethod,
		Subtotal:        sub,
		DeliveryFee:     fee,
		VoucherDiscount: discount,
		Total:           orderTotal(sub, fee, discount),
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		BillingAddress:  in.BillingAddress,
		ShippingAddress: in.ShippingAddress,
		Notes:           in.Notes,
	}
	if voucher != nil {
		order.VoucherID = &voucher.ID
	}

	var sale *model.BakeSale
	var err error
	if in.BakeSaleID != nil {
		sale, err = c.store.BakeSales.FindByIDWithLocation(ctx, *in.BakeSaleID)
	} else if in.Fulfillment == model.FulfillmentCollection {
		sale, err = c.store.BakeSales.FindUpcoming(ctx, time.Now())
	}
	if err != nil || sale == nil {
		// No session to snapshot; collection details stay empty.
		return order
	}
	order.BakeSaleID = &sale.ID
	startsAt := sale.StartsAt
	order.CollectionAt = &startsAt
	if sale.Location != nil {
		order.CollectionLocation = sale.Location.Name
		order.CollectionAddress = sale.Location.Address
	}
	return order
}

func buildItems(lines []PricedLine) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		item := model.OrderItem{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.LineTotal,
			Available:   true,
		}
		if l.Variant != nil {
			variantID := l.Variant.ID
			item.VariantID = &variantID
			item.VariantName = l.Variant.Name
		}
		items = append(items, item)
	}
	return items
}

// rollback replays recorded inverses. Best effort: a failed inverse is
// logged and skipped, never retried.
func (c *Coordinator) rollback(ctx context.Context, undos []undoStep) {
	for i := len(undos) - 1; i >= 0; i-- {
		if err := undos[i].fn(ctx); err != nil {
			c.log.Error("rollback step failed",
				zap.String("step", undos[i].label),
				zap.Error(err))
		}
	}
}

func (c *Coordinator) invalidate(ctx context.Context, tags ...string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, tags...); err != nil {
		c.log.Warn("cache invalidation failed", zap.Strings("tags", tags), zap.Error(err))
	}
}

func (c *Coordinator) notifyAsync(to, template string, vars map[string]string) {
	if c.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.notifier.Send(ctx, to, template, vars); err != nil {
			c.log.Warn("notification failed",
				zap.String("template", template),
				zap.String("to", to),
				zap.Error(err))
		}
	}()
}

func (c *Coordinator) logFailure(action string, in CreateOrderInput, err error) {
	c.log.Error("checkout failed",
		zap.String("action", action),
		zap.String("email", in.CustomerEmail),
		zap.Int("items", len(in.Items)),
		zap.Error(err))
}

func validateInput(in CreateOrderInput) *Rejection {
	if strings.TrimSpace(in.CustomerName) == "" {
		return reject(CodeValidation, "Name is required")
	}
	if _, err := mail.ParseAddress(in.CustomerEmail); err != nil {
		return reject(CodeValidation, "A valid email address is required")
	}
	if in.Fulfillment != model.FulfillmentCollection && in.Fulfillment != model.FulfillmentDelivery {
		return reject(CodeValidation, "Fulfillment must be collection or delivery")
	}
	if len(in.Items) == 0 {
		return reject(CodeValidation, "Order must contain at least one item")
	}
	for _, it := range in.Items {
		if it.ProductID == 0 {
			return reject(CodeValidation, "Item product id is required")
		}
		if it.Quantity < 1 {
			return reject(CodeValidation, "Item quantity must be at least 1")
		}
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
