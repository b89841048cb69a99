package kafka

import (
	"bytes"
	"errors"
	"testing"
	"time"

	applogger "RiskScreen/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerConfig(t *testing.T) {
	_, err := newProducerConfig()
	assert.ErrorContains(t, err, "brokers")

	_, err = newProducerConfig(WithBrokers([]string{"b:9092"}), WithRequiredAcks(2))
	assert.ErrorContains(t, err, "required acks")

	cfg, err := newProducerConfig(
		WithBrokers([]string{"b:9092"}),
		WithBatchSize(0),
		WithCompression(""),
		WithTimeouts(0, 3*time.Second),
	)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, "gzip", cfg.Compression)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.NotNil(t, cfg.Logger)
}

func TestAsyncProducerReportsDeliveryFailures(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProducer(
		WithBrokers([]string{"b:9092"}),
		WithAsync(true),
		WithProducerLogger(applogger.NewWriter(&buf, "debug")),
	)
	require.NoError(t, err)
	defer p.Close()

	require.True(t, p.Async())
	require.NotNil(t, p.writer.Completion)

	before := testutil.ToFloat64(producerMsgsTotal.WithLabelValues("risk.alerts", "async_error"))
	p.writer.Completion([]kafka.Message{{Topic: "risk.alerts"}, {Topic: "risk.alerts"}}, errors.New("leader not available"))
	p.writer.Completion([]kafka.Message{{Topic: "risk.alerts"}}, nil)

	after := testutil.ToFloat64(producerMsgsTotal.WithLabelValues("risk.alerts", "async_error"))
	assert.Equal(t, 2.0, after-before)
	assert.Contains(t, buf.String(), "leader not available")
}

func TestSyncProducerHasNoCompletion(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"b:9092"}))
	require.NoError(t, err)
	defer p.Close()
	assert.False(t, p.Async())
	assert.Nil(t, p.writer.Completion)
}

func TestEncode(t *testing.T) {
	b, err := encode([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), b)

	b, err = encode(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(b))

	_, err = encode(func() {})
	assert.Error(t, err)
}
