package telegrampool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botpanel/telegram-bot-service/internal/store"
)

type fakeLister struct {
	mu   sync.Mutex
	bots []store.Bot
	err  error
}

func (l *fakeLister) ListActiveBots(ctx context.Context) ([]store.Bot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]store.Bot(nil), l.bots...), l.err
}

func (l *fakeLister) set(bots ...store.Bot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bots = bots
}

func TestReconcileStartsAndStops(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(dialer, &fakeStates{})
	lister := &fakeLister{}
	r := NewReconciler(nil, m, lister, 0)

	lister.set(pollingBot("b1"), pollingBot("b2"))
	r.Reconcile(context.Background())
	assert.True(t, m.HasLive("b1"))
	assert.True(t, m.HasLive("b2"))

	// b2 deactivated in the dashboard, b3 newly activated.
	lister.set(pollingBot("b1"), pollingBot("b3"))
	r.Reconcile(context.Background())
	assert.True(t, m.HasLive("b1"))
	assert.False(t, m.HasLive("b2"))
	assert.True(t, m.HasLive("b3"))
	assert.False(t, dialer.conn("b2").Running())

	// Empty desired set drains the whole pool.
	lister.set()
	r.Reconcile(context.Background())
	assert.Zero(t, m.Size())
}

func TestReconcileKeepsLiveConnections(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(dialer, &fakeStates{})
	lister := &fakeLister{}
	r := NewReconciler(nil, m, lister, 0)

	lister.set(pollingBot("b1"))
	r.Reconcile(context.Background())
	first := dialer.conn("b1")

	r.Reconcile(context.Background())
	assert.Same(t, first, dialer.conn("b1"))
	assert.True(t, first.Running())
}

func TestReconcileListFailure(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(dialer, &fakeStates{})
	lister := &fakeLister{}
	r := NewReconciler(nil, m, lister, 0)

	lister.set(pollingBot("b1"))
	r.Reconcile(context.Background())
	require.True(t, m.HasLive("b1"))

	// A store outage must not tear down running bots.
	lister.err = errors.New("connection refused")
	r.Reconcile(context.Background())
	assert.True(t, m.HasLive("b1"))
}

func TestReconcileToleratesBadBots(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(dialer, &fakeStates{})
	lister := &fakeLister{}
	r := NewReconciler(nil, m, lister, 0)

	bad := pollingBot("bad")
	bad.TokenEncrypted = "garbage"
	lister.set(bad, pollingBot("b1"))
	r.Reconcile(context.Background())

	// The broken credential does not prevent the healthy bot from starting.
	assert.False(t, m.HasLive("bad"))
	assert.True(t, m.HasLive("b1"))
}

func TestReconcileSkippedDuringShutdown(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(dialer, &fakeStates{})
	lister := &fakeLister{}
	r := NewReconciler(nil, m, lister, 0)

	lister.set(pollingBot("b1"))
	r.Reconcile(context.Background())
	require.True(t, m.HasLive("b1"))

	r.Shutdown()
	assert.Zero(t, m.Size())

	// Ticks racing the teardown must not resurrect connections.
	r.Reconcile(context.Background())
	assert.Zero(t, m.Size())
}
