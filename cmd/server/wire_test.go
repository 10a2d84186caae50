package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditfanout "kycgate/internal/audit/fanout"
	auditmodels "kycgate/internal/audit/models"
)

// closablePublisher fails once its producer has been closed.
type closablePublisher struct {
	mu        sync.Mutex
	closed    bool
	published []auditmodels.Attempt
}

func (p *closablePublisher) Publish(_ context.Context, attempts ...auditmodels.Attempt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("producer closed")
	}
	p.published = append(p.published, attempts...)
	return nil
}

func (p *closablePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *closablePublisher) snapshot() []auditmodels.Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]auditmodels.Attempt(nil), p.published...)
}

func newTestApp(pub *closablePublisher) *app {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return &app{
		log:     log,
		fanout:  auditfanout.New(pub, auditfanout.WithLogger(log), auditfanout.WithFlushInterval(time.Hour)),
		closers: []func() error{pub.Close},
	}
}

func TestAttemptsEnqueuedAfterSignalAreFlushed(t *testing.T) {
	pub := &closablePublisher{}
	a := newTestApp(pub)

	signal, stop := context.WithCancel(context.Background())
	a.start(signal)
	stop()

	// An in-flight request finishing during graceful shutdown.
	a.fanout.Enqueue(auditmodels.Attempt{ID: "late", Type: auditmodels.AttemptVerify})
	a.drain()

	published := pub.snapshot()
	require.Len(t, published, 1)
	assert.Equal(t, "late", published[0].ID)
}

func TestCloseDrainsBeforeReleasingProducer(t *testing.T) {
	pub := &closablePublisher{}
	a := newTestApp(pub)

	a.start(context.Background())
	a.fanout.Enqueue(auditmodels.Attempt{ID: "pending", Type: auditmodels.AttemptSearch})
	a.close()

	assert.Len(t, pub.snapshot(), 1)
	assert.Nil(t, a.closers)
}
