package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ZENODO_BASE_URL", "")
	t.Setenv("ZENODO_COMMUNITY", "")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "")

	cfg := load()

	assert.Equal(t, DefaultBaseURL, cfg.Zenodo.BaseURL)
	assert.Equal(t, DefaultSandboxURL, cfg.Zenodo.SandboxURL)
	assert.Equal(t, DefaultCommunity, cfg.Zenodo.Community)
	assert.Equal(t, 100, cfg.Zenodo.PageSize)
	assert.Equal(t, time.Duration(0), cfg.HTTP.Timeout())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ZENODO_BASE_URL", "http://localhost:5000/api/")
	t.Setenv("ZENODO_COMMUNITY", "reactome")
	t.Setenv("ZENODO_PAGE_SIZE", "25")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "30")
	t.Setenv("S3_ENDPOINT", "minio.local:9000")

	cfg := load()

	assert.Equal(t, "http://localhost:5000/api", cfg.Zenodo.BaseURL)
	assert.Equal(t, "reactome", cfg.Zenodo.Community)
	assert.Equal(t, 25, cfg.Zenodo.PageSize)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout())
	assert.Equal(t, "minio.local:9000", cfg.Storage.Endpoint)
}

func TestAPIBase(t *testing.T) {
	z := ZenodoConfig{BaseURL: DefaultBaseURL, SandboxURL: DefaultSandboxURL}

	assert.Equal(t, DefaultBaseURL, z.APIBase(false))
	assert.Equal(t, DefaultSandboxURL, z.APIBase(true))
}
