// Package reconciler closes the loop on STK pushes whose callback never
// arrived. Pending transactions past a configured age are re-queried against
// the provider and, when the provider reports a terminal result, resolved
// through the same guarded update the callback path uses. Rows the provider
// still reports in flight stay pending for the next sweep.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/noloji/payments-service/internal/api/service"
	"github.com/noloji/payments-service/internal/config"
	"github.com/noloji/payments-service/internal/domain/payment"
	"github.com/panjf2000/ants/v2"
)

// Sweeper periodically reconciles stale pending transactions against the
// provider. Billing is never invoked from here: the status query carries no
// receipt, so money movement is only ever confirmed through the callback.
type Sweeper struct {
	txRepo     payment.Repository
	gateway    service.DarajaGateway
	pool       *ants.Pool
	logger     *slog.Logger
	interval   time.Duration
	pendingAge time.Duration
	batchSize  int
	now        func() time.Time
}

// NewSweeper creates a sweeper backed by a worker pool for concurrent
// provider queries
func NewSweeper(cfg *config.ReconcilerConfig, logger *slog.Logger, txRepo payment.Repository, gateway service.DarajaGateway) (*Sweeper, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciler worker pool: %w", err)
	}

	return &Sweeper{
		txRepo:     txRepo,
		gateway:    gateway,
		pool:       pool,
		logger:     logger,
		interval:   cfg.SweepInterval,
		pendingAge: cfg.PendingAge,
		batchSize:  cfg.BatchSize,
		now:        time.Now,
	}, nil
}

// Start runs sweeps until the context is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting reconciliation sweeper",
		"sweep_interval", s.interval.String(),
		"pending_age", s.pendingAge.String(),
		"batch_size", s.batchSize,
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("Reconciliation sweep failed", "error", err)
			}
		}
	}
}

// Stop releases the worker pool
func (s *Sweeper) Stop() {
	s.pool.Release()
}

// Sweep runs a single reconciliation pass: load stale pending transactions
// and resolve each against the provider on the worker pool. It returns once
// every submitted transaction has been handled.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if !s.gateway.Configured() {
		s.logger.Debug("Provider not configured, skipping sweep")
		return nil
	}

	cutoff := s.now().Add(-s.pendingAge)
	stale, err := s.txRepo.GetStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to load stale pending transactions: %w", err)
	}

	if len(stale) == 0 {
		s.logger.Debug("No stale pending transactions found.")
		return nil
	}

	s.logger.Info("Reconciling stale pending transactions", "count", len(stale))

	var wg sync.WaitGroup
	for _, tx := range stale {
		tx := tx
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			s.reconcile(ctx, tx)
		}); err != nil {
			wg.Done()
			s.logger.Error("Failed to submit transaction to reconciler pool",
				"checkout_request_id", tx.CheckoutRequestID,
				"error", err,
			)
		}
	}
	wg.Wait()

	return nil
}

// reconcile queries the provider for one transaction and applies a terminal
// result through the guarded update
func (s *Sweeper) reconcile(ctx context.Context, tx *payment.Transaction) {
	resp, err := s.gateway.QuerySTKStatus(ctx, tx.CheckoutRequestID)
	if err != nil {
		s.logger.Warn("Provider status query failed during sweep",
			"checkout_request_id", tx.CheckoutRequestID,
			"error", err,
		)
		return
	}

	code, ok := resp.TerminalResultCode()
	if !ok {
		s.logger.Debug("Transaction still in flight at provider",
			"checkout_request_id", tx.CheckoutRequestID,
		)
		return
	}

	update := payment.TerminalUpdate{
		ResultCode:        code,
		ResultDescription: resp.ResultDesc,
		CompletedAt:       s.now(),
	}

	transitioned, err := s.txRepo.UpdateTerminal(ctx, tx.CheckoutRequestID, update)
	if err != nil {
		s.logger.Error("Failed to apply reconciled terminal state",
			"checkout_request_id", tx.CheckoutRequestID,
			"result_code", code,
			"error", err,
		)
		return
	}

	if !transitioned {
		// A callback won the race between the batch load and the update.
		s.logger.Info("Transaction already resolved by callback",
			"checkout_request_id", tx.CheckoutRequestID,
		)
		return
	}

	s.logger.Info("Reconciled stale transaction",
		"checkout_request_id", tx.CheckoutRequestID,
		"result_code", code,
		"status", string(update.Status()),
	)
}
