package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []model.CheckoutEvent
}

func (p *fakePublisher) PublishCheckoutEvent(event model.CheckoutEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// memoryCache is an in-process stand-in for the Redis cache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	gets    int
	hits    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]interface{})}
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	*(dst.(*model.RatingSummary)) = *(v.(*model.RatingSummary))
	return true, nil
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary := *(v.(*model.RatingSummary))
	c.entries[key] = &summary
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

type testEnv struct {
	db        *gorm.DB
	events    *fakePublisher
	cache     *memoryCache
	auth      AuthService
	products  ProductService
	carts     CartService
	checkouts CheckoutService
	feedback  FeedbackService
	reports   ReportService
}

func setupServices(t *testing.T, opts CheckoutOptions) *testEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	employeeRepo := repository.NewEmployeeRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	checkoutRepo := repository.NewCheckoutRepository(testDB)
	feedbackRepo := repository.NewFeedbackRepository(testDB)

	files := storage.NewLocalStorage(t.TempDir(), "/uploads")
	events := &fakePublisher{}
	cache := newMemoryCache()

	env := &testEnv{db: testDB, events: events, cache: cache}
	env.auth = NewAuthService(userRepo, employeeRepo, nil, "test-session-secret", time.Hour)
	env.products = NewProductService(productRepo)
	env.carts = NewCartService(cartRepo, productRepo)
	env.checkouts = NewCheckoutService(checkoutRepo, productRepo, env.carts, files, events, opts)
	env.feedback = NewFeedbackService(feedbackRepo, checkoutRepo, userRepo, env.checkouts, cache)
	env.reports = NewReportService(checkoutRepo, files)
	return env
}

func strictOptions() CheckoutOptions {
	return CheckoutOptions{StrictTransitions: true}
}

func (e *testEnv) createUser(t *testing.T, name, email string) *model.User {
	user := &model.User{Name: name, Email: email, PasswordHash: "hash"}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createProduct(t *testing.T, name string, price float64) *model.Product {
	product := &model.Product{Name: name, Price: price, Quantity: 100, Status: model.ProductStatusActive}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

func (e *testEnv) createCheckout(t *testing.T, userID uint, status model.CheckoutStatus, items ...model.CheckoutItem) *model.Checkout {
	checkout := &model.Checkout{
		UserID:      userID,
		Address:     "1 Main St",
		Email:       "buyer@example.com",
		PhoneNumber: "555-0100",
		Status:      status,
		Items:       items,
	}
	require.NoError(t, e.db.Create(checkout).Error)
	return checkout
}

func shopper(user *model.User) Identity {
	return Identity{ID: user.ID, Name: user.Name, Email: user.Email, Kind: util.KindUser}
}

func employee(id uint) Identity {
	return Identity{ID: id, Name: "staff@example.com", Email: "staff@example.com", Kind: util.KindEmployee}
}

func intPtr(v int) *int {
	return &v
}
