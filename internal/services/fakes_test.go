package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/models"
	"vpn-rent-bot/internal/storage"
)

var errTransient = errors.New("provider unavailable")

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testStorage(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.Open(":memory:", testLogger())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	return store
}

// fakeNotifier records deliveries and optionally fails them all
type fakeNotifier struct {
	mu     sync.Mutex
	texts  []string
	photos int
	fail   bool
}

func (n *fakeNotifier) Send(userID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("blocked by user")
	}
	n.texts = append(n.texts, text)
	return nil
}

func (n *fakeNotifier) SendPhoto(userID int64, photo []byte, caption string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("blocked by user")
	}
	n.photos++
	return nil
}

func (n *fakeNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.texts) + n.photos
}

// fakeChecker reports a fixed payment status
type fakeChecker struct {
	mu   sync.Mutex
	paid bool
	err  error
}

func (c *fakeChecker) IsPaid(ctx context.Context, paymentID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paid, c.err
}

func (c *fakeChecker) setPaid(paid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paid = paid
}

// fakeExecutor records fulfilled orders
type fakeExecutor struct {
	mu     sync.Mutex
	orders []models.Order
	done   chan models.Order
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{done: make(chan models.Order, 8)}
}

func (e *fakeExecutor) Execute(ctx context.Context, order models.Order) {
	e.mu.Lock()
	e.orders = append(e.orders, order)
	e.mu.Unlock()
	e.done <- order
}

func (e *fakeExecutor) executed() []models.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Order, len(e.orders))
	copy(out, e.orders)
	return out
}
