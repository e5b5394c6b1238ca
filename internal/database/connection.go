/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package database creates the pgx connection pool the hybrid store
// runs on
package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pgedge-hybrid-search/internal/config"
	"pgedge-hybrid-search/internal/logging"
)

const applicationName = "pgEdge Hybrid Search"

// Connect builds a connection pool from the database configuration and
// verifies it with a ping
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database %s:%d/%s: %w",
			cfg.Host, cfg.Port, cfg.Database, err)
	}

	logging.Debug("database connected",
		"host", cfg.Host, "port", cfg.Port, "database", cfg.Database,
		"max_conns", poolConfig.MaxConns,
		"duration_ms", time.Since(start).Milliseconds())
	return pool, nil
}

// buildPoolConfig parses the connection string and applies the pool
// settings from configuration
func buildPoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	connStr, err := addApplicationName(cfg.ConnString(), applicationName)
	if err != nil {
		return nil, fmt.Errorf("unable to build connection string: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	if cfg.PoolMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.PoolMaxConns)
	}
	if cfg.PoolMinConns > 0 {
		poolConfig.MinConns = int32(cfg.PoolMinConns)
	}
	if cfg.PoolMaxConnIdleTime != "" {
		idleTime, err := time.ParseDuration(cfg.PoolMaxConnIdleTime)
		if err != nil {
			return nil, fmt.Errorf("invalid pool_max_conn_idle_time: %w", err)
		}
		poolConfig.MaxConnIdleTime = idleTime
	}
	return poolConfig, nil
}

// addApplicationName adds the application_name parameter to a
// connection string unless the caller already set one
func addApplicationName(connStr, appName string) (string, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return "", fmt.Errorf("invalid connection string: %w", err)
	}

	query := u.Query()
	if query.Get("application_name") == "" {
		query.Set("application_name", appName)
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}
