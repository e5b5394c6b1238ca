/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package textsearch

import (
	"strings"
	"testing"
)

func TestNativeSetupSQL(t *testing.T) {
	n := NewNative()
	stmts := n.SetupSQL("embeddings", "content", "english")

	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[0], "ADD COLUMN IF NOT EXISTS content_tsv tsvector") {
		t.Errorf("expected generated tsvector column, got %q", stmts[0])
	}
	if !strings.Contains(stmts[0], "to_tsvector('english'") {
		t.Errorf("expected language baked into column expression, got %q", stmts[0])
	}
	if !strings.Contains(stmts[1], "USING GIN (content_tsv)") {
		t.Errorf("expected GIN index, got %q", stmts[1])
	}
	for _, stmt := range stmts {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("expected idempotent DDL, got %q", stmt)
		}
	}
}

func TestNativeSearchCTE(t *testing.T) {
	n := NewNative()
	cte := n.SearchCTE("embeddings", "content", "english", "")

	if !strings.HasPrefix(cte, "fts_scores AS (") {
		t.Errorf("expected CTE under alias fts_scores, got %q", cte)
	}
	for _, fragment := range []string{
		"ROW_NUMBER() OVER (ORDER BY ts_rank_cd(content_tsv, plainto_tsquery('english', @query_text)) DESC) AS fts_rank",
		"ts_rank_cd(content_tsv, plainto_tsquery('english', @query_text)) AS fts_score",
		"WHERE content_tsv @@ plainto_tsquery('english', @query_text)",
		"FROM embeddings",
	} {
		if !strings.Contains(cte, fragment) {
			t.Errorf("expected CTE to contain %q, got:\n%s", fragment, cte)
		}
	}
}

func TestNativeSearchCTECustomParam(t *testing.T) {
	n := NewNative()
	cte := n.SearchCTE("docs", "body", "simple", "@q")

	if strings.Contains(cte, "@query_text") {
		t.Errorf("expected custom parameter only, got:\n%s", cte)
	}
	if !strings.Contains(cte, "plainto_tsquery('simple', @q)") {
		t.Errorf("expected custom parameter bound, got:\n%s", cte)
	}
}

func TestNativeColumns(t *testing.T) {
	n := NewNative()
	if n.CTEAlias() != "fts_scores" || n.RankColumn() != "fts_rank" || n.ScoreColumn() != "fts_score" {
		t.Errorf("unexpected column names: %s/%s/%s", n.CTEAlias(), n.RankColumn(), n.ScoreColumn())
	}
	if len(n.RequiredExtensions()) != 0 {
		t.Errorf("native strategy should need no extensions, got %v", n.RequiredExtensions())
	}
}

func TestNativeNormalizedScoreExpression(t *testing.T) {
	n := NewNative()
	got := n.NormalizedScoreExpression("f.fts_score")
	expected := "(f.fts_score / (1 + f.fts_score))"
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestBM25SetupSQL(t *testing.T) {
	b := NewBM25()
	stmts := b.SetupSQL("embeddings", "content", "english")

	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if stmts[0] != "CREATE EXTENSION IF NOT EXISTS pg_search" {
		t.Errorf("expected extension DDL first, got %q", stmts[0])
	}
	if !strings.Contains(stmts[1], "USING bm25 (id, content)") {
		t.Errorf("expected bm25 index, got %q", stmts[1])
	}
	if !strings.Contains(stmts[1], "WITH (key_field='id')") {
		t.Errorf("expected key_field option, got %q", stmts[1])
	}
}

func TestBM25SearchCTE(t *testing.T) {
	b := NewBM25()
	cte := b.SearchCTE("embeddings", "content", "english", "")

	if !strings.HasPrefix(cte, "bm25_scores AS (") {
		t.Errorf("expected CTE under alias bm25_scores, got %q", cte)
	}
	for _, fragment := range []string{
		"paradedb.score(id) AS bm25_score",
		"WHERE content @@@ @query_text",
	} {
		if !strings.Contains(cte, fragment) {
			t.Errorf("expected CTE to contain %q, got:\n%s", fragment, cte)
		}
	}
}

func TestBM25RequiredExtensions(t *testing.T) {
	b := NewBM25()
	exts := b.RequiredExtensions()
	if len(exts) != 1 || exts[0] != "pg_search" {
		t.Errorf("expected [pg_search], got %v", exts)
	}
}

func TestStrategyNames(t *testing.T) {
	if NewNative().Name() != "native" {
		t.Errorf("unexpected native strategy name %q", NewNative().Name())
	}
	if NewBM25().Name() != "bm25" {
		t.Errorf("unexpected bm25 strategy name %q", NewBM25().Name())
	}
}
