package checkout

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bakehouse/internal/model"
	"bakehouse/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testLogger() *zap.Logger { return zap.NewNop() }

const testDeliveryFee = 500

type sentMail struct {
	To       string
	Template string
	Vars     map[string]string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	ch   chan sentMail
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan sentMail, 16)}
}

func (f *fakeNotifier) Send(_ context.Context, to, template string, vars map[string]string) error {
	m := sentMail{To: to, Template: template, Vars: vars}
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	f.ch <- m
	return nil
}

// waitForMail blocks until the notifier delivers something; notifications
// are fired on their own goroutine.
func waitForMail(t *testing.T, f *fakeNotifier) sentMail {
	t.Helper()
	select {
	case m := <-f.ch:
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for notification")
		return sentMail{}
	}
}

type fakeCache struct {
	mu   sync.Mutex
	tags []string
}

func (f *fakeCache) Invalidate(_ context.Context, tags ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, tags...)
	return nil
}

func (f *fakeCache) invalidated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tags...)
}

type fakeVerifier struct {
	err    error
	tokens []string
}

func (f *fakeVerifier) Verify(_ context.Context, token string) error {
	f.tokens = append(f.tokens, token)
	return f.err
}

type testEnv struct {
	co       *Coordinator
	st       *store.Store
	db       *gorm.DB
	notifier *fakeNotifier
	cache    *fakeCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, store.Migrate(db))

	st := store.New(db)
	notifier := newFakeNotifier()
	cacheTags := &fakeCache{}
	co := NewCoordinator(st, nil, notifier, cacheTags, testLogger(), testDeliveryFee)
	return &testEnv{co: co, st: st, db: db, notifier: notifier, cache: cacheTags}
}

func (e *testEnv) seedProduct(t *testing.T, name string, price int64, stock *int64) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, BasePrice: price, Active: true, StockQuantity: stock}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) seedVariant(t *testing.T, productID uint, name string, adjustment int64, active bool) *model.ProductVariant {
	t.Helper()
	v := &model.ProductVariant{ProductID: productID, Name: name, PriceAdjustment: adjustment, Active: active}
	require.NoError(t, e.db.Create(v).Error)
	return v
}

func (e *testEnv) seedVoucher(t *testing.T, v *model.Voucher) *model.Voucher {
	t.Helper()
	require.NoError(t, e.db.Create(v).Error)
	return v
}

func (e *testEnv) seedUser(t *testing.T, name, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: email, Role: role}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) stockOf(t *testing.T, productID uint) *int64 {
	t.Helper()
	var p model.Product
	require.NoError(t, e.db.First(&p, productID).Error)
	return p.StockQuantity
}

func (e *testEnv) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Order{}).Count(&n).Error)
	return n
}

func int64p(v int64) *int64 { return &v }

func timeInFuture(hours int) time.Time {
	return time.Now().Add(time.Duration(hours) * time.Hour)
}

func collectionInput(email string, items ...LineItem) CreateOrderInput {
	return CreateOrderInput{
		CustomerName:  "Test Customer",
		CustomerEmail: email,
		Fulfillment:   model.FulfillmentCollection,
		PaymentMethod: "cash",
		Items:         items,
	}
}

func rejection(t *testing.T, err error) *Rejection {
	t.Helper()
	require.Error(t, err)
	rej, ok := err.(*Rejection)
	require.True(t, ok, "expected *Rejection, got %T: %v", err, err)
	return rej
}
