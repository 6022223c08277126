package mqtt

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwise/tagwise/internal/conf"
	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/observability/metrics"
)

// fakeToken completes immediately with err, or never when hang is set.
type fakeToken struct {
	paho.Token
	err  error
	done chan struct{}
}

func newFakeToken(err error, hang bool) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	if !hang {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }
func (t *fakeToken) Wait() bool            { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

type published struct {
	topic    string
	retained bool
	payload  string
}

type fakePaho struct {
	paho.Client

	mu          sync.Mutex
	opts        *paho.ClientOptions
	connected   bool
	connectErr  error
	publishErr  error
	hangPublish bool
	messages    []published
}

func (f *fakePaho) Connect() paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = f.connectErr == nil
	return newFakeToken(f.connectErr, false)
}

func (f *fakePaho) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakePaho) Publish(topic string, _ byte, retained bool, payload any) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr == nil && !f.hangPublish {
		f.messages = append(f.messages, published{topic: topic, retained: retained, payload: fmt.Sprint(payload)})
	}
	return newFakeToken(f.publishErr, f.hangPublish)
}

func newTestClient(t *testing.T, fake *fakePaho) (*client, *metrics.MQTTMetrics) {
	t.Helper()
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Broker = "tcp://broker.test:1883"
	cfg.ClientID = "tagwise-test"
	cfg.Topic = "tagwise/passes"
	cfg.Retain = true
	cfg.PublishTimeout = 100 * time.Millisecond

	c, err := newClient(cfg, m)
	require.NoError(t, err)
	c.resolve = func(context.Context, string) error { return nil }
	c.newPaho = func(opts *paho.ClientOptions) paho.Client {
		fake.opts = opts
		return fake
	}
	return c, m
}

func TestConnectAndPublish(t *testing.T) {
	fake := &fakePaho{}
	c, m := newTestClient(t, fake)

	require.NoError(t, c.Connect(t.Context()))
	assert.True(t, c.IsConnected())
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ConnectionStatus), 0)
	assert.Equal(t, "tagwise-test", fake.opts.ClientID)

	require.NoError(t, c.Publish(t.Context(), "", `{"run_id":"r1"}`))
	require.NoError(t, c.Publish(t.Context(), "custom/topic", "x"))

	require.Len(t, fake.messages, 2)
	assert.Equal(t, published{topic: "tagwise/passes", retained: true, payload: `{"run_id":"r1"}`}, fake.messages[0])
	assert.Equal(t, "custom/topic", fake.messages[1].topic)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.MessagesDelivered), 0)

	c.Disconnect()
	assert.False(t, c.IsConnected())
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.ConnectionStatus), 0)
}

func TestPublishWhileDisconnected(t *testing.T) {
	c, m := newTestClient(t, &fakePaho{})

	err := c.Publish(t.Context(), "", "payload")
	require.ErrorIs(t, err, ErrNotConnected)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Errors), 0)
}

func TestConnectFailure(t *testing.T) {
	brokerErr := fmt.Errorf("connection refused")
	c, m := newTestClient(t, &fakePaho{connectErr: brokerErr})

	err := c.Connect(t.Context())
	require.ErrorIs(t, err, brokerErr)
	assert.False(t, c.IsConnected())
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Errors), 0)
}

func TestConnectCooldown(t *testing.T) {
	c, _ := newTestClient(t, &fakePaho{connectErr: fmt.Errorf("refused")})

	require.Error(t, c.Connect(t.Context()))
	err := c.Connect(t.Context())
	require.ErrorIs(t, err, ErrConnectCooldown)
}

func TestConnectResolveFailure(t *testing.T) {
	c, _ := newTestClient(t, &fakePaho{})
	dnsErr := fmt.Errorf("no such host")
	c.resolve = func(context.Context, string) error { return dnsErr }

	err := c.Connect(t.Context())
	require.ErrorIs(t, err, dnsErr)
}

func TestPublishTimeoutAndCancel(t *testing.T) {
	fake := &fakePaho{}
	c, _ := newTestClient(t, fake)
	require.NoError(t, c.Connect(t.Context()))
	fake.hangPublish = true

	err := c.Publish(t.Context(), "", "slow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err = c.Publish(ctx, "", "cancelled")
	require.ErrorIs(t, err, context.Canceled)
}

func TestPublishBrokerError(t *testing.T) {
	fake := &fakePaho{}
	c, _ := newTestClient(t, fake)
	require.NoError(t, c.Connect(t.Context()))

	fake.publishErr = fmt.Errorf("not authorized")
	err := c.Publish(t.Context(), "", "x")
	require.ErrorIs(t, err, fake.publishErr)
}

func TestNewClientRequiresBroker(t *testing.T) {
	_, err := NewClient(DefaultConfig(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(conf.MQTTSettings{
		Broker: "tcp://localhost:1883",
		Topic:  "t",
	}, "lab-1")
	assert.Equal(t, "lab-1", cfg.ClientID)
	assert.Equal(t, "t", cfg.Topic)
	assert.Equal(t, DefaultConfig().PublishTimeout, cfg.PublishTimeout)

	cfg = ConfigFromSettings(conf.MQTTSettings{Broker: "tcp://x:1", ClientID: "explicit"}, "lab-1")
	assert.Equal(t, "explicit", cfg.ClientID)
}
