package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/wellnest/backend/internal/domain/cart"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/identity"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared"
)

// MockOrderRepository is a testify mock of order.Repository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByGatewayReference(ctx context.Context, provider order.PaymentProvider, reference string) (*order.Order, error) {
	args := m.Called(ctx, provider, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) FindPendingOnline(ctx context.Context, q order.PendingQuery) ([]order.Order, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) ExistsByNumber(ctx context.Context, orderNumber string) (bool, error) {
	args := m.Called(ctx, orderNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

// MockProductRepository is a testify mock of catalog.ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]catalog.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, lines []catalog.StockDecrement) error {
	return m.Called(ctx, lines).Error(0)
}

func (m *MockProductRepository) RestoreStock(ctx context.Context, lines []catalog.StockDecrement) error {
	return m.Called(ctx, lines).Error(0)
}

// MockCouponRepository is a testify mock of catalog.CouponRepository.
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) FindByCode(ctx context.Context, code string) (*catalog.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Coupon), args.Error(1)
}

func (m *MockCouponRepository) Save(ctx context.Context, coupon *catalog.Coupon) error {
	return m.Called(ctx, coupon).Error(0)
}

// MockUserRepository is a testify mock of identity.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockGateway is a testify mock of payment.Gateway that also verifies webhooks.
type MockGateway struct {
	mock.Mock
	provider order.PaymentProvider
}

// NewMockGateway creates a mock gateway for provider.
func NewMockGateway(provider order.PaymentProvider) *MockGateway {
	return &MockGateway{provider: provider}
}

func (m *MockGateway) Provider() order.PaymentProvider {
	return m.provider
}

func (m *MockGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

func (m *MockGateway) FetchStatus(ctx context.Context, query payment.StatusQuery) (*payment.StatusResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.StatusResult), args.Error(1)
}

func (m *MockGateway) ParseWebhook(body []byte, signature string) (*payment.WebhookEvent, error) {
	args := m.Called(body, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookEvent), args.Error(1)
}

// InlineTx runs transaction bodies directly and counts them.
type InlineTx struct {
	mu    sync.Mutex
	Calls int
}

func (tx *InlineTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.mu.Lock()
	tx.Calls++
	tx.mu.Unlock()
	return fn(ctx)
}

// MemoryCartStore keeps carts in a map.
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*cart.Cart
	opts  []cart.Option
}

// NewMemoryCartStore creates an empty store. opts are applied to loaded carts.
func NewMemoryCartStore(opts ...cart.Option) *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[uuid.UUID]*cart.Cart), opts: opts}
}

func (s *MemoryCartStore) Load(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.Hydrate(s.carts[userID], s.opts...), nil
}

// Save mirrors the redis store: an empty cart without a coupon is deleted.
func (s *MemoryCartStore) Save(_ context.Context, userID uuid.UUID, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.IsEmpty() && c.CouponCode == "" {
		delete(s.carts, userID)
		return nil
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	s.carts[userID] = &cp
	return nil
}

func (s *MemoryCartStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}

// Has reports whether a cart is stored for userID.
func (s *MemoryCartStore) Has(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.carts[userID]
	return ok
}

var (
	_ order.Repository          = (*MockOrderRepository)(nil)
	_ catalog.ProductRepository = (*MockProductRepository)(nil)
	_ catalog.CouponRepository  = (*MockCouponRepository)(nil)
	_ identity.UserRepository   = (*MockUserRepository)(nil)
	_ payment.Gateway           = (*MockGateway)(nil)
	_ payment.WebhookVerifier   = (*MockGateway)(nil)
	_ shared.TxManager          = (*InlineTx)(nil)
	_ cart.Store                = (*MemoryCartStore)(nil)
)
