package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 0.35, cfg.Triage.RejectionThreshold)
	assert.Equal(t, 20, cfg.Triage.MinBodyLength)
	assert.Equal(t, 0.82, cfg.Similarity.Threshold)
	assert.Equal(t, 5, cfg.Similarity.TopK)
	assert.Equal(t, 40, cfg.Priority.UrgencyWeights["urgent"])
	assert.Equal(t, 48*time.Hour, cfg.Priority.AgeStep)
	assert.Equal(t, SinkLog, cfg.Notifications.Sink)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Notifications.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SIMILARITY_TOP_K", "9")
	t.Setenv("NOTIFY_SINK", "Kafka")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 9, cfg.Similarity.TopK)
	assert.Equal(t, SinkKafka, cfg.Notifications.Sink)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}

func TestLoadTaxonomyDefault(t *testing.T) {
	tax, err := LoadTaxonomy("")
	require.NoError(t, err)
	assert.Equal(t, "Municipal Corporation", tax.GenericDepartment)
	assert.Len(t, tax.Categories, 10)
	assert.Contains(t, tax.Departments, "Electricity Board")
}

func TestParseTaxonomyRejectsUnknownDepartment(t *testing.T) {
	_, err := ParseTaxonomy([]byte(`
generic_department: City
departments: [City]
categories:
  - name: Utilities
    weight: 10
    default_department: Water Board
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Water Board")
}

func TestParseTaxonomyRejectsDuplicateCategory(t *testing.T) {
	_, err := ParseTaxonomy([]byte(`
generic_department: City
categories:
  - name: Other
  - name: other
`))
	require.Error(t, err)
}
