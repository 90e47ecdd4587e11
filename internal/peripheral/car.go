package peripheral

import (
	"context"
	"sync"
	"time"

	domain "github.com/oshokin/device-core/internal/domain/peripheral"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/repository/snapshot"
)

// Car controls the smart car.
type Car struct {
	// prefix is the car topic root.
	prefix string
	// repo receives readiness reports.
	repo snapshot.Repository
	// now stamps readiness reports.
	now func() time.Time
	// mu guards publisher.
	mu sync.RWMutex
	// publisher is the broker link, nil until attached.
	publisher Publisher
}

// NewCar returns a controller for topic root prefix.
func NewCar(prefix string, repo snapshot.Repository) *Car {
	return &Car{prefix: prefix, repo: repo, now: time.Now}
}

// Attach sets the broker link.
func (c *Car) Attach(publisher Publisher) {
	c.mu.Lock()
	c.publisher = publisher
	c.mu.Unlock()
}

// Move sends a drive command.
func (c *Car) Move(ctx context.Context, move domain.CarMove) error {
	c.mu.RLock()
	p := c.publisher
	c.mu.RUnlock()

	if p == nil {
		return ErrNotReady
	}

	logger.InfoKV(ctx, "sending car command", "command", string(move))

	return p.Publish(ctx, c.prefix+"/cmd", string(move))
}

// Status returns the readiness report and whether it is still fresh.
func (c *Car) Status(ctx context.Context) (domain.CarStatus, bool) {
	status := c.repo.Load(ctx).Car

	return status, status.Fresh(c.now())
}

// Subscriptions implements Handler.
func (c *Car) Subscriptions() []string {
	return []string{c.prefix + "/sensor/+"}
}

// OnConnect implements Handler.
func (c *Car) OnConnect(_ context.Context, publisher Publisher) {
	c.Attach(publisher)
}

// HandleMessage implements Handler.
func (c *Car) HandleMessage(ctx context.Context, topic, payload string) {
	if topic != c.prefix+"/sensor/light" {
		return
	}

	ready := domain.ParseCarReadiness(payload)
	stamp := c.now()

	c.repo.Update(ctx, func(s *domain.Snapshot) {
		s.Car = domain.CarStatus{Ready: ready, UpdatedAt: stamp}
	})

	logger.DebugKV(ctx, "car status", "ready", ready)
}
