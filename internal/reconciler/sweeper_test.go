package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/noloji/payments-service/internal/domain/payment"
	"github.com/noloji/payments-service/internal/platform/daraja"
)

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

func newTestSweeper(t *testing.T, txRepo *MockTransactionRepository, gateway *MockDarajaGateway) *Sweeper {
	t.Helper()
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	return &Sweeper{
		txRepo:     txRepo,
		gateway:    gateway,
		pool:       pool,
		logger:     slog.New(slog.NewTextHandler(os.Stdout, nil)),
		interval:   time.Minute,
		pendingAge: 5 * time.Minute,
		batchSize:  50,
		now:        time.Now,
	}
}

func stalePending(checkoutRequestID string) *payment.Transaction {
	return &payment.Transaction{
		ID:                uuid.New(),
		CheckoutRequestID: checkoutRequestID,
		Status:            payment.StatusPending,
		CreatedAt:         time.Now().Add(-10 * time.Minute),
	}
}

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves transactions with live terminal results", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		gateway := new(MockDarajaGateway)

		gateway.On("Configured").Return(true)
		txRepo.On("GetStalePending", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*payment.Transaction{stalePending("ws_CO_1"), stalePending("ws_CO_2")}, nil)

		gateway.On("QuerySTKStatus", ctx, "ws_CO_1").Return(&daraja.STKQueryResponse{
			ResponseCode: "0",
			ResultCode:   "0",
			ResultDesc:   "The service request is processed successfully.",
		}, nil)
		gateway.On("QuerySTKStatus", ctx, "ws_CO_2").Return(&daraja.STKQueryResponse{
			ResponseCode: "0",
			ResultCode:   "1032",
			ResultDesc:   "Request cancelled by user",
		}, nil)

		txRepo.On("UpdateTerminal", ctx, "ws_CO_1", mock.MatchedBy(func(u payment.TerminalUpdate) bool {
			return u.ResultCode == 0 && u.Status() == payment.StatusCompleted
		})).Return(true, nil)
		txRepo.On("UpdateTerminal", ctx, "ws_CO_2", mock.MatchedBy(func(u payment.TerminalUpdate) bool {
			return u.ResultCode == 1032 && u.Status() == payment.StatusFailed
		})).Return(true, nil)

		sweeper := newTestSweeper(t, txRepo, gateway)
		err := sweeper.Sweep(ctx)

		require.NoError(t, err)
		txRepo.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("still in flight rows stay pending", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		gateway := new(MockDarajaGateway)

		gateway.On("Configured").Return(true)
		txRepo.On("GetStalePending", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*payment.Transaction{stalePending("ws_CO_3")}, nil)
		gateway.On("QuerySTKStatus", ctx, "ws_CO_3").
			Return(&daraja.STKQueryResponse{ResponseCode: "0"}, nil)

		sweeper := newTestSweeper(t, txRepo, gateway)
		err := sweeper.Sweep(ctx)

		require.NoError(t, err)
		txRepo.AssertNotCalled(t, "UpdateTerminal", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("query failure leaves row for next sweep", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		gateway := new(MockDarajaGateway)

		gateway.On("Configured").Return(true)
		txRepo.On("GetStalePending", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*payment.Transaction{stalePending("ws_CO_4")}, nil)
		gateway.On("QuerySTKStatus", ctx, "ws_CO_4").Return(nil, errors.New("connection refused"))

		sweeper := newTestSweeper(t, txRepo, gateway)
		err := sweeper.Sweep(ctx)

		require.NoError(t, err)
		txRepo.AssertNotCalled(t, "UpdateTerminal", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("callback winning the race is benign", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		gateway := new(MockDarajaGateway)

		gateway.On("Configured").Return(true)
		txRepo.On("GetStalePending", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*payment.Transaction{stalePending("ws_CO_5")}, nil)
		gateway.On("QuerySTKStatus", ctx, "ws_CO_5").Return(&daraja.STKQueryResponse{
			ResponseCode: "0",
			ResultCode:   "0",
			ResultDesc:   "The service request is processed successfully.",
		}, nil)
		txRepo.On("UpdateTerminal", ctx, "ws_CO_5", mock.Anything).Return(false, nil)

		sweeper := newTestSweeper(t, txRepo, gateway)
		err := sweeper.Sweep(ctx)

		require.NoError(t, err)
		txRepo.AssertExpectations(t)
	})

	t.Run("unconfigured provider skips the sweep", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		gateway := new(MockDarajaGateway)

		gateway.On("Configured").Return(false)

		sweeper := newTestSweeper(t, txRepo, gateway)
		err := sweeper.Sweep(ctx)

		require.NoError(t, err)
		txRepo.AssertNotCalled(t, "GetStalePending", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("load failure is returned", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		gateway := new(MockDarajaGateway)

		gateway.On("Configured").Return(true)
		loadErr := errors.New("db down")
		txRepo.On("GetStalePending", ctx, mock.AnythingOfType("time.Time"), 50).Return(nil, loadErr)

		sweeper := newTestSweeper(t, txRepo, gateway)
		err := sweeper.Sweep(ctx)

		assert.ErrorIs(t, err, loadErr)
	})
}
