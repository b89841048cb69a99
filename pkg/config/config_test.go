package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xlsxConfig = `
environment: test
panel:
  source: xlsx
  path: data/risk.xlsx
  headers:
    cfo: "CFO"
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(xlsxConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.Equal(t, 5*time.Minute, c.Cache.TTL)
	assert.Equal(t, "panel.updated", c.Kafka.Consumer.Topic)
	assert.Equal(t, "risk.alerts", c.Kafka.AlertsTopic)
	assert.Equal(t, 2, c.Alerts.MinStreak)
	assert.Equal(t, "CFO", c.Panel.Headers["cfo"])
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no environment", "panel: {source: xlsx, path: a.xlsx}", "environment"},
		{"no source", "environment: test", "panel.source is required"},
		{"unknown source", "environment: test\npanel: {source: csv}", "must be"},
		{"xlsx without path", "environment: test\npanel: {source: xlsx}", "panel.path"},
		{"clickhouse without host", "environment: test\npanel: {source: clickhouse}", "clickhouse.host"},
		{"kafka without brokers", "environment: test\npanel: {source: xlsx, path: a}\nkafka: {enabled: true}", "kafka.brokers"},
		{"redis without addr", "environment: test\npanel: {source: xlsx, path: a}\nredis: {enabled: true}", "redis.addr"},
		{"streak out of range", "environment: test\npanel: {source: xlsx, path: a}\nalerts: {min_streak: 4}", "min_streak"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	_, err := Parse([]byte("environment: test\npanel: {source: clickhouse}\nclickhouse: {host: ch, database: risk}"))
	assert.NoError(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PANEL_SOURCE":    "clickhouse",
		"REDIS_ADDR":      "redis:6379",
		"KAFKA_BROKERS":   "k1:9092,k2:9092",
		"CLICKHOUSE_HOST": "ch",
		"LOG_LEVEL":       "debug",
	}
	var c Config
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, SourceClickHouse, c.Panel.Source)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "ch", c.ClickHouse.Host)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(xlsxConfig), 0o600))
	t.Setenv("PANEL_PATH", "/srv/risk.xlsx")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/risk.xlsx", c.Panel.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
