package search

import (
	"testing"

	"github.com/deicod/ermsearch/orm/runtime"
	testkit "github.com/deicod/ermsearch/testing"
)

func TestBuilderExecutesThroughDB(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	db := sandbox.DB()

	b := build(t, "Company", map[string]any{"developers_name_eq": "Ernie", "sort": "name"})
	const from = `SELECT "companies".* FROM "companies" LEFT OUTER JOIN "developers" ON "developers"."company_id" = "companies"."id" WHERE "developers"."name" = $1`

	sandbox.ExpectCount(`SELECT COUNT(*) FROM "companies" LEFT OUTER JOIN "developers" ON "developers"."company_id" = "companies"."id" WHERE "developers"."name" = $1`, 2, "Ernie")
	sandbox.ExpectRows(from+` ORDER BY "companies"."name" ASC`, []string{"id", "name"},
		[][]any{{int64(1), "Acme"}, {int64(2), "Initech"}}, "Ernie")
	sandbox.ExpectRows(from+` ORDER BY "companies"."name" ASC LIMIT 1`, []string{"id"}, [][]any{{int64(1)}}, "Ernie")

	ctx := sandbox.Context()
	n, err := b.Count(ctx, db)
	if err != nil || n != 2 {
		t.Fatalf("count: %d, %v", n, err)
	}
	rows, err := b.All(ctx, db)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	var names []string
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if len(names) != 2 || names[0] != "Acme" {
		t.Fatalf("unexpected rows: %v", names)
	}
	var id int64
	if err := b.First(ctx, db).Scan(&id); err != nil || id != 1 {
		t.Fatalf("first: %d, %v", id, err)
	}
	sandbox.ExpectationsWereMet(t)

	queries := sandbox.Queries()
	wantOps := []runtime.QueryOperation{runtime.OperationCount, runtime.OperationSelect, runtime.OperationFirst}
	if len(queries) != len(wantOps) {
		t.Fatalf("expected %d logged queries, got %d", len(wantOps), len(queries))
	}
	for i, q := range queries {
		if q.Operation != wantOps[i] || q.CorrelationID != b.ID() || q.Table != "companies" {
			t.Fatalf("unexpected query %d: %+v", i, q)
		}
	}
}

func TestBuilderExecuteRejectsDeepJoins(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	b := build(t, "Company", map[string]any{
		"developers_company_developers_company_developers_company_name_eq": "x",
	})
	if _, err := b.Count(sandbox.Context(), sandbox.DB()); !IsJoinDepthExceeded(err) {
		t.Fatalf("expected join depth error from count, got %v", err)
	}
	if _, err := b.All(sandbox.Context(), sandbox.DB()); !IsJoinDepthExceeded(err) {
		t.Fatalf("expected join depth error from all, got %v", err)
	}
	if err := b.First(sandbox.Context(), sandbox.DB()).Scan(); !IsJoinDepthExceeded(err) {
		t.Fatalf("expected join depth error from first, got %v", err)
	}
	sandbox.ExpectationsWereMet(t)
}
