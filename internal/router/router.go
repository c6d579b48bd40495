package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bakehouse/internal/cache"
	"bakehouse/internal/checkout"
	"bakehouse/internal/config"
	"bakehouse/internal/middleware"
	"bakehouse/internal/model"
	"bakehouse/internal/store"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const productListCacheKey = "products:list"

// Deps is everything the HTTP layer needs.
type Deps struct {
	DB          *gorm.DB
	Store       *store.Store
	Coordinator *checkout.Coordinator
	Redis       *rd.Client
	Cache       *cache.Tags
	Log         *zap.Logger
	Cfg         config.AppConfig
}

// Setup registers all HTTP routes.
func Setup(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	// Storefront
	r.GET("/api/products", listProducts(d))
	r.POST("/api/checkout",
		middleware.RedisRateLimit(d.Redis, d.Cfg.CheckoutRateLimit, d.Cfg.CheckoutRateWindow),
		createOrder(d))
	r.GET("/api/checkout/result/:request_id", getResult(d))

	// Back office, guarded by the admin token.
	admin := r.Group("/api/admin", requireAdminToken(d.Cfg.AdminToken))
	admin.POST("/products", createProduct(d))
	admin.POST("/products/:id/variants", createVariant(d))
	admin.POST("/vouchers", createVoucher(d))
	admin.POST("/bake_sales", createBakeSale(d))
	admin.PATCH("/orders/:id/status", updateOrderStatus(d))
}

// requireAdminToken is demo-grade protection for the back-office endpoints.
func requireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "invalid admin token"})
			return
		}
		c.Next()
	}
}

type productView struct {
	model.Product
	Variants []model.ProductVariant `json:"variants"`
}

// listProducts serves the active catalog, cached in Redis under the products
// tag so checkout and catalog writes can invalidate it.
func listProducts(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if b, ok, err := d.Cache.GetJSON(ctx, productListCacheKey); err == nil && ok {
			c.Data(http.StatusOK, "application/json", b)
			return
		}

		var products []model.Product
		if err := d.DB.WithContext(ctx).Where("active = ?", true).Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		ids := make([]uint, 0, len(products))
		for _, p := range products {
			ids = append(ids, p.ID)
		}
		variants := map[uint][]model.ProductVariant{}
		if len(ids) > 0 {
			var err error
			variants, err = d.Store.Inventory.ActiveVariantsForProducts(ctx, ids)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
				return
			}
		}

		views := make([]productView, 0, len(products))
		for _, p := range products {
			views = append(views, productView{Product: p, Variants: variants[p.ID]})
		}

		payload, err := json.Marshal(gin.H{"code": 0, "data": views})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if err := d.Cache.SetJSON(ctx, productListCacheKey, payload, d.Cfg.ProductCacheTTL, checkout.TagProducts); err != nil {
			d.Log.Warn("product cache set failed", zap.Error(err))
		}
		c.Data(http.StatusOK, "application/json", payload)
	}
}

type checkoutRequest struct {
	CustomerName  string              `json:"customer_name" binding:"required"`
	CustomerEmail string              `json:"customer_email" binding:"required,email"`
	CustomerPhone string              `json:"customer_phone"`
	Fulfillment   string              `json:"fulfillment" binding:"required,oneof=collection delivery"`
	PaymentMethod string              `json:"payment_method"`
	Items         []checkout.LineItem `json:"items" binding:"required,min=1"`
	VoucherCode   string              `json:"voucher_code"`
	BakeSaleID    *uint               `json:"bake_sale_id"`

	BillingAddress  string `json:"billing_address"`
	ShippingAddress string `json:"shipping_address"`
	Notes           string `json:"notes"`
	CaptchaToken    string `json:"captcha_token"`
}

// createOrder maps the HTTP submission onto the checkout saga.
func createOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		in := checkout.CreateOrderInput{
			CustomerName:    req.CustomerName,
			CustomerEmail:   req.CustomerEmail,
			CustomerPhone:   req.CustomerPhone,
			Fulfillment:     model.FulfillmentMethod(req.Fulfillment),
			PaymentMethod:   req.PaymentMethod,
			Items:           req.Items,
			VoucherCode:     req.VoucherCode,
			BakeSaleID:      req.BakeSaleID,
			BillingAddress:  req.BillingAddress,
			ShippingAddress: req.ShippingAddress,
			Notes:           req.Notes,
			CaptchaToken:    req.CaptchaToken,
		}
		// Session user, when the auth layer in front of us resolved one.
		if v := c.GetHeader("X-User-ID"); v != "" {
			if id, err := strconv.ParseUint(v, 10, 32); err == nil {
				uid := uint(id)
				in.UserID = &uid
			}
		}

		res, err := d.Coordinator.CreateOrder(c.Request.Context(), in)
		if err != nil {
			status, msg := rejectionToHTTP(err)
			c.JSON(status, gin.H{"code": status, "msg": msg})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": res})
	}
}

// getResult looks the created order up by checkout request id.
func getResult(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.Param("request_id")
		order, err := d.Store.Orders.FindByRequestID(c.Request.Context(), reqID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "request_id not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": order})
	}
}

// updateOrderStatus drives one state-machine transition. The acting staff
// member is identified by email; the coordinator enforces the role gate.
func updateOrderStatus(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid order id"})
			return
		}

		var req struct {
			Status     string `json:"status" binding:"required"`
			ActorEmail string `json:"actor_email" binding:"required,email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		actor, err := d.Store.Users.FindByEmail(c.Request.Context(), req.ActorEmail)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "Unauthorized"})
			return
		}

		if err := d.Coordinator.UpdateOrderStatus(c.Request.Context(), actor, uint(id), model.OrderStatus(req.Status)); err != nil {
			status, msg := rejectionToHTTP(err)
			c.JSON(status, gin.H{"code": status, "msg": msg})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "status updated"})
	}
}

// createProduct seeds a catalog entry.
func createProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name          string `json:"name" binding:"required"`
			Description   string `json:"description"`
			BasePrice     int64  `json:"base_price" binding:"required,min=1"`
			StockQuantity *int64 `json:"stock_quantity"` // omit for untracked
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		if req.StockQuantity != nil && *req.StockQuantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "stock_quantity must be >= 0"})
			return
		}
		p := &model.Product{
			Name:          req.Name,
			Description:   req.Description,
			BasePrice:     req.BasePrice,
			Active:        true,
			StockQuantity: req.StockQuantity,
		}
		if err := d.DB.WithContext(c.Request.Context()).Create(p).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		invalidateTags(c, d, checkout.TagProducts)
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": p})
	}
}

func createVariant(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid product id"})
			return
		}
		var req struct {
			Name            string `json:"name" binding:"required"`
			PriceAdjustment int64  `json:"price_adjustment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		var p model.Product
		if err := d.DB.WithContext(c.Request.Context()).First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		v := &model.ProductVariant{
			ProductID:       p.ID,
			Name:            req.Name,
			PriceAdjustment: req.PriceAdjustment,
			Active:          true,
		}
		if err := d.DB.WithContext(c.Request.Context()).Create(v).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		invalidateTags(c, d, checkout.TagProducts)
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": v})
	}
}

func createVoucher(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Code               string `json:"code" binding:"required"`
			Type               string `json:"type" binding:"required,oneof=percentage fixed_amount"`
			Value              int64  `json:"value" binding:"required,min=1"`
			MinOrderValue      int64  `json:"min_order_value"`
			MaxUses            *int64 `json:"max_uses"`
			MaxUsesPerCustomer *int64 `json:"max_uses_per_customer"`
			StartsAt           string `json:"starts_at"`
			ExpiresAt          string `json:"expires_at"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		v := &model.Voucher{
			Code:               req.Code,
			Type:               model.VoucherType(req.Type),
			Value:              req.Value,
			MinOrderValue:      req.MinOrderValue,
			MaxUses:            req.MaxUses,
			MaxUsesPerCustomer: req.MaxUsesPerCustomer,
			Active:             true,
		}
		if req.StartsAt != "" {
			t, err := time.Parse(time.RFC3339, req.StartsAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "starts_at must be RFC3339"})
				return
			}
			v.StartsAt = &t
		}
		if req.ExpiresAt != "" {
			t, err := time.Parse(time.RFC3339, req.ExpiresAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "expires_at must be RFC3339"})
				return
			}
			v.ExpiresAt = &t
		}
		if err := d.DB.WithContext(c.Request.Context()).Create(v).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": v})
	}
}

func createBakeSale(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title           string `json:"title" binding:"required"`
			StartsAt        string `json:"starts_at" binding:"required"`
			EndsAt          string `json:"ends_at" binding:"required"`
			LocationName    string `json:"location_name"`
			LocationAddress string `json:"location_address"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		starts, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "starts_at must be RFC3339"})
			return
		}
		ends, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "ends_at must be RFC3339"})
			return
		}
		if !ends.After(starts) {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "ends_at must be after starts_at"})
			return
		}

		sale := &model.BakeSale{Title: req.Title, StartsAt: starts, EndsAt: ends}
		err = d.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if req.LocationName != "" {
				loc := &model.Location{Name: req.LocationName, Address: req.LocationAddress}
				if err := tx.Create(loc).Error; err != nil {
					return err
				}
				sale.LocationID = &loc.ID
				sale.Location = loc
			}
			return tx.Create(sale).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": sale})
	}
}

func invalidateTags(c *gin.Context, d Deps, tags ...string) {
	if err := d.Cache.Invalidate(c.Request.Context(), tags...); err != nil {
		d.Log.Warn("cache invalidation failed", zap.Strings("tags", tags), zap.Error(err))
	}
}

// rejectionToHTTP maps coordinator rejections onto status codes, keeping the
// customer-facing message as-is.
func rejectionToHTTP(err error) (int, string) {
	var rej *checkout.Rejection
	if !errors.As(err, &rej) {
		return http.StatusInternalServerError, "Failed to process request"
	}
	switch rej.Code {
	case checkout.CodeUnauthorized:
		return http.StatusUnauthorized, rej.Message
	case checkout.CodeProductNotFound, checkout.CodeOrderNotFound:
		return http.StatusNotFound, rej.Message
	case checkout.CodeInternal:
		return http.StatusInternalServerError, rej.Message
	default:
		return http.StatusBadRequest, rej.Message
	}
}
