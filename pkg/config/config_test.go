package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  driver: postgres
  host: db
  port: 5432
  username: app
  password: secret
  database: foodapp
payment:
  timeout: 3s
notification:
  channels: [log]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "order-service", cfg.Server.Name)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, "usd", cfg.Payment.Currency)
	assert.Equal(t, 5, cfg.Notification.MaxAttempts)
	assert.Equal(t, []string{"log"}, cfg.Notification.Channels)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FOODAPP_DATABASE_HOST", "override-host")
	t.Setenv("FOODAPP_HTTP_PORT", "9090")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "override-host", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	cfg.Database.Driver = "oracle"
	cfg.Notification.Channels = []string{"email", "pigeon"}
	err = cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), `database.driver "oracle"`)
	assert.Contains(t, err.Error(), "email channel requires")
	assert.Contains(t, err.Error(), `unknown notification channel "pigeon"`)
}

func TestDSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "h", Port: 5432, Username: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", pg.DSN())

	my := DatabaseConfig{Driver: "mysql", Host: "h", Port: 3306, Username: "u", Password: "p", Database: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local", my.DSN())
}
