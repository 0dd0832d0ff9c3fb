package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/noloji/payments-service/internal/domain/audit"
	"github.com/noloji/payments-service/internal/domain/billing"
	"github.com/noloji/payments-service/internal/domain/customer"
	"github.com/noloji/payments-service/internal/domain/payment"
	"github.com/noloji/payments-service/internal/platform/daraja"
)

// MockTransactionRepository mocks payment.Repository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) InsertPending(ctx context.Context, tx *payment.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*payment.Transaction, error) {
	args := m.Called(ctx, checkoutRequestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateTerminal(ctx context.Context, checkoutRequestID string, update payment.TerminalUpdate) (bool, error) {
	args := m.Called(ctx, checkoutRequestID, update)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) LinkBillingPayment(ctx context.Context, id uuid.UUID, billingPaymentID uuid.UUID) error {
	args := m.Called(ctx, id, billingPaymentID)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*payment.Transaction, error) {
	args := m.Called(ctx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) GetStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*payment.Transaction, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) WithTx(tx pgx.Tx) payment.Repository {
	return m
}

// MockCustomerRepository mocks customer.Repository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

// MockBillingRepository mocks billing.Repository
type MockBillingRepository struct {
	mock.Mock
}

func (m *MockBillingRepository) Create(ctx context.Context, p *billing.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockBillingRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockBillingRepository) WithTx(tx pgx.Tx) billing.Repository {
	return m
}

// MockAuditRepository mocks audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, record *audit.CallbackRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepository) GetByCheckoutID(ctx context.Context, checkoutRequestID string) ([]*audit.CallbackRecord, error) {
	args := m.Called(ctx, checkoutRequestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.CallbackRecord), args.Error(1)
}

// MockDarajaGateway mocks DarajaGateway
type MockDarajaGateway struct {
	mock.Mock
}

func (m *MockDarajaGateway) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockDarajaGateway) Environment() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockDarajaGateway) InitiateSTKPush(ctx context.Context, phoneNumber string, amount int64, accountReference, description string) (*daraja.STKPushResponse, error) {
	args := m.Called(ctx, phoneNumber, amount, accountReference, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*daraja.STKPushResponse), args.Error(1)
}

func (m *MockDarajaGateway) QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*daraja.STKQueryResponse, error) {
	args := m.Called(ctx, checkoutRequestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*daraja.STKQueryResponse), args.Error(1)
}

// MockBillingService mocks BillingService
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) RecordPayment(ctx context.Context, tx *payment.Transaction, result *daraja.CallbackResult) (*billing.Payment, error) {
	args := m.Called(ctx, tx, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

// fakeTxRunner runs the transactional function inline, or fails the
// transaction outright when err is set
type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// MockPublisher mocks producers.MessagePublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
