// Package database opens the PostgreSQL pool that backs every repository.
package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/muchasmas/scholarship-api/pkg/config"
)

const (
	connMaxLifetime = time.Hour
	connMaxIdleTime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// DSN renders a lib/pq key/value connection string. Values are quoted so
// passwords with spaces survive.
func DSN(cfg config.DatabaseConfig) string {
	pairs := []string{
		"host=" + quote(cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + quote(cfg.User),
		"password=" + quote(cfg.Password),
		"dbname=" + quote(cfg.Name),
		"sslmode=" + quote(cfg.SSLMode),
	}
	if cfg.AppName != "" {
		pairs = append(pairs, "application_name="+quote(cfg.AppName))
	}
	if cfg.StatementTimeout > 0 {
		pairs = append(pairs, fmt.Sprintf("options='-c statement_timeout=%d'", cfg.StatementTimeout.Milliseconds()))
	}
	return strings.Join(pairs, " ")
}

func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Redacted returns a URL form of the connection target without the password,
// suitable for logs.
func Redacted(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(cfg.User),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	return u.String()
}

// NewPostgres opens and pings the pool. The caller owns Close.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", Redacted(cfg), err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", Redacted(cfg), err)
	}
	return db, nil
}
