package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/muchasmas/scholarship-api/pkg/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db", Port: 5432, User: "app", Password: "s3cret pass", Name: "scholarships", SSLMode: "disable",
		AppName: "scholarship-api", StatementTimeout: 2500 * time.Millisecond,
	}

	dsn := DSN(cfg)
	assert.Contains(t, dsn, "host=db port=5432 user=app")
	assert.Contains(t, dsn, "password='s3cret pass'")
	assert.Contains(t, dsn, "application_name=scholarship-api")
	assert.Contains(t, dsn, "options='-c statement_timeout=2500'")
}

func TestDSNQuotesEmptyAndSpecialValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "app", Password: `it's`, Name: "db", SSLMode: "require"})
	assert.Contains(t, dsn, `password='it\'s'`)
	assert.NotContains(t, dsn, "statement_timeout")

	dsn = DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "app", Name: "db", SSLMode: "disable"})
	assert.Contains(t, dsn, "password=''")
}

func TestRedactedHidesPassword(t *testing.T) {
	got := Redacted(config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "secret", Name: "scholarships"})
	assert.Equal(t, "postgres://app@db:5432/scholarships", got)
}
