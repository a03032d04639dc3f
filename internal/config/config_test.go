package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Port:             "8480",
		Env:              "development",
		JWTSecret:        "development-secret",
		StorageBackend:   BackendMemory,
		FreeCalls:        5,
		ResetCodeTTLMins: 15,
	}
}

func TestValidateAcceptsDevelopmentDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	c := validConfig()
	c.Port = ""
	assert.Error(t, c.Validate())

	c = validConfig()
	c.JWTSecret = ""
	assert.Error(t, c.Validate())

	c = validConfig()
	c.StorageBackend = "punchcards"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.FreeCalls = -1
	assert.Error(t, c.Validate())

	c = validConfig()
	c.ResetCodeTTLMins = 0
	assert.Error(t, c.Validate())
}

func TestValidateProductionStrictness(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.StorageBackend = BackendSQLite
	c.JWTSecret = "your-secret-key-change-in-production"
	assert.Error(t, c.Validate(), "default secret rejected in production")

	c.JWTSecret = "short"
	assert.Error(t, c.Validate(), "short secret rejected in production")

	c.JWTSecret = "a-very-long-production-secret-with-32-plus-chars"
	assert.NoError(t, c.Validate())

	c.StorageBackend = BackendMemory
	assert.Error(t, c.Validate(), "memory backend rejected in production")

	c.StorageBackend = BackendPostgres
	c.DBPassword = "password"
	assert.Error(t, c.Validate(), "default DB password rejected in production")

	c.DBPassword = "sufficiently-strong"
	assert.NoError(t, c.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	c := validConfig()
	c.DBHost = "db.internal"
	c.DBPort = "5432"
	c.DBUser = "pulse"
	c.DBPassword = "hunter2"
	c.DBName = "pulse"
	c.DBSSLMode = "require"

	assert.Equal(t,
		"host=db.internal port=5432 user=pulse password=hunter2 dbname=pulse sslmode=require",
		c.DatabaseDSN())
}
