package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/models"
	"vpn-rent-bot/internal/notify"
	"vpn-rent-bot/internal/payments"
)

// OrderExecutor fulfills a confirmed order
type OrderExecutor interface {
	Execute(ctx context.Context, order models.Order)
}

// PaymentWaiter polls payment providers in the background. At most one wait
// is live per user: starting a new one cancels the previous, so a restarted
// checkout never races an older fulfillment.
type PaymentWaiter struct {
	executor OrderExecutor
	notifier notify.Notifier
	logger   *logrus.Logger
	timeout  time.Duration
	interval time.Duration

	mu    sync.Mutex
	waits map[int64]*waitHandle
}

type waitHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPaymentWaiter creates a new payment waiter
func NewPaymentWaiter(
	executor OrderExecutor,
	notifier notify.Notifier,
	timeout, interval time.Duration,
	logger *logrus.Logger,
) *PaymentWaiter {
	return &PaymentWaiter{
		executor: executor,
		notifier: notifier,
		logger:   logger,
		timeout:  timeout,
		interval: interval,
		waits:    make(map[int64]*waitHandle),
	}
}

// StartWait begins waiting for the payment to complete, superseding any
// wait already running for the same user.
func (w *PaymentWaiter) StartWait(userID int64, order models.Order, paymentID string, checker payments.StatusChecker) {
	w.mu.Lock()
	if prev, ok := w.waits[userID]; ok {
		prev.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	handle := &waitHandle{cancel: cancel, done: make(chan struct{})}
	w.waits[userID] = handle
	w.mu.Unlock()

	go w.poll(ctx, handle, userID, order, paymentID, checker)
}

// poll checks the payment status every interval until it is paid,
// the timeout elapses or a newer wait cancels this one.
func (w *PaymentWaiter) poll(ctx context.Context, handle *waitHandle, userID int64, order models.Order, paymentID string, checker payments.StatusChecker) {
	defer close(handle.done)
	defer handle.cancel()
	defer w.remove(userID, handle)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				w.logger.Infof("Payment %s expired (timeout)", paymentID)
			} else {
				w.logger.Debugf("Payment wait for %s superseded", paymentID)
			}
			return
		case <-ticker.C:
			paid, err := checker.IsPaid(ctx, paymentID)
			if err != nil {
				w.logger.Warnf("Payment status check for %s failed: %v", paymentID, err)
				continue
			}
			if !paid {
				continue
			}

			if err := w.notifier.Send(userID, "✅ Payment received"); err != nil {
				w.logger.Warnf("Failed to confirm payment to user %d: %v", userID, err)
			}
			// The payment is confirmed; fulfillment must not die with the
			// wait. Detach it from the timeout and any superseding cancel.
			w.executor.Execute(context.WithoutCancel(ctx), order)
			return
		}
	}
}

// remove forgets the handle unless a newer wait already replaced it
func (w *PaymentWaiter) remove(userID int64, handle *waitHandle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.waits[userID] == handle {
		delete(w.waits, userID)
	}
}
