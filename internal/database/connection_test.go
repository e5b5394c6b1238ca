/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"strings"
	"testing"
	"time"

	"pgedge-hybrid-search/internal/config"
)

func TestAddApplicationName(t *testing.T) {
	tests := []struct {
		name     string
		connStr  string
		expected string
	}{
		{
			name:     "adds when absent",
			connStr:  "postgres://user@localhost:5432/app?sslmode=prefer",
			expected: "application_name=pgEdge+Hybrid+Search",
		},
		{
			name:     "keeps caller value",
			connStr:  "postgres://localhost/app?application_name=custom",
			expected: "application_name=custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := addApplicationName(tt.connStr, applicationName)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(got, tt.expected) {
				t.Errorf("expected %q in %q", tt.expected, got)
			}
		})
	}
}

func TestBuildPoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:                "localhost",
		Port:                5432,
		Database:            "app",
		User:                "search",
		SSLMode:             "disable",
		PoolMaxConns:        8,
		PoolMinConns:        2,
		PoolMaxConnIdleTime: "5m",
	}

	poolConfig, err := buildPoolConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poolConfig.MaxConns != 8 || poolConfig.MinConns != 2 {
		t.Errorf("pool sizes not applied: %d/%d", poolConfig.MaxConns, poolConfig.MinConns)
	}
	if poolConfig.MaxConnIdleTime != 5*time.Minute {
		t.Errorf("idle time not applied: %v", poolConfig.MaxConnIdleTime)
	}
	if poolConfig.ConnConfig.Database != "app" || poolConfig.ConnConfig.User != "search" {
		t.Errorf("connection settings not applied: %q/%q",
			poolConfig.ConnConfig.Database, poolConfig.ConnConfig.User)
	}
}

func TestBuildPoolConfigInvalidIdleTime(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:                "localhost",
		Port:                5432,
		Database:            "app",
		PoolMaxConnIdleTime: "soon",
	}

	_, err := buildPoolConfig(cfg)
	if err == nil || !strings.Contains(err.Error(), "pool_max_conn_idle_time") {
		t.Fatalf("expected idle-time error, got %v", err)
	}
}
