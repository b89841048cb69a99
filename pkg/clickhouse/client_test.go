package clickhouse

import (
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestBuildOptions(t *testing.T) {
	cfg := ClientConfig{Port: 9000, Database: "default"}
	for _, opt := range []ClientOption{
		WithHost("ch.internal"),
		WithPort(0),
		WithDatabase("risk"),
		WithCredentials("reader", "secret"),
		WithTimeouts(2*time.Second, 0),
		WithMaxExecutionTime(90 * time.Second),
	} {
		opt(&cfg)
	}

	o := buildOptions(cfg)
	assert.Equal(t, []string{"ch.internal:9000"}, o.Addr)
	assert.Equal(t, "risk", o.Auth.Database)
	assert.Equal(t, "reader", o.Auth.Username)
	assert.Equal(t, clickhouse.Native, o.Protocol)
	assert.Equal(t, 2*time.Second, o.DialTimeout)
	assert.Equal(t, 90, o.Settings["max_execution_time"])

	WithHTTP(true)(&cfg)
	assert.Equal(t, clickhouse.HTTP, buildOptions(cfg).Protocol)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithDatabase("risk"))
	assert.EqualError(t, err, "host is required")
}
