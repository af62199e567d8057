package search

import (
	"errors"
	"testing"

	"github.com/deicod/ermsearch/orm/dsl"
	"github.com/deicod/ermsearch/orm/runtime"
	testkit "github.com/deicod/ermsearch/testing"
)

func TestSort(t *testing.T) {
	tests := []struct {
		name   string
		entity string
		sort   string
		sql    string
	}{
		{"column default direction", "Company", "name", `SELECT "companies".* FROM "companies" ORDER BY "companies"."name" ASC`},
		{"column descending", "Company", "name.desc", `SELECT "companies".* FROM "companies" ORDER BY "companies"."name" DESC`},
		{"association column", "Company", "developers_name.asc",
			`SELECT "companies".* FROM "companies" LEFT OUTER JOIN "developers" ON "developers"."company_id" = "companies"."id" ORDER BY "developers"."name" ASC`},
		{"named sort", "Developer", "salary_and_name.desc",
			`SELECT "developers".* FROM "developers" ORDER BY "developers"."salary" DESC, "developers"."name" DESC`},
		{"and columns", "Company", "name_and_created_at.DESC",
			`SELECT "companies".* FROM "companies" ORDER BY "companies"."name" DESC, "companies"."created_at" DESC`},
		{"blank", "Company", " ", `SELECT "companies".* FROM "companies"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := build(t, tt.entity, map[string]any{"sort": tt.sort})
			assertSQL(t, b, tt.sql)
		})
	}
}

func TestSortErrors(t *testing.T) {
	reg := testkit.Registry(t)
	_, err := For(reg, "Company", map[string]any{"sort": "name.sideways"})
	if !errors.Is(err, ErrInvalidSort) {
		t.Fatalf("expected invalid sort, got %v", err)
	}

	_, err = For(reg, "Company", map[string]any{"sort": "nmae.asc"})
	var uerr *UnknownAttributeError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected unknown attribute, got %v", err)
	}
	if uerr.Key != "sort=nmae" || len(uerr.Suggestions) == 0 || uerr.Suggestions[0] != "name" {
		t.Fatalf("unexpected error: %+v", uerr)
	}

	_, err = For(reg, "Company", map[string]any{"sort": "updated_at"})
	if !IsUnknownAttribute(err) {
		t.Fatalf("unsearchable columns must not sort, got %v", err)
	}
}

func TestSortKeyOption(t *testing.T) {
	b := build(t, "Company", map[string]any{"order": "name.desc"}, WithSortKey("order"))
	assertSQL(t, b, `SELECT "companies".* FROM "companies" ORDER BY "companies"."name" DESC`)
	if v, _ := b.Get("order"); v != "name.desc" {
		t.Fatalf("unexpected stored sort: %v", v)
	}
}

func TestSearchMethods(t *testing.T) {
	b := build(t, "Company", map[string]any{"backwards_name": "olleh"})
	assertSQL(t, b, `SELECT "companies".* FROM "companies" WHERE "companies"."name" = $1`, "hello")

	b = build(t, "Company", map[string]any{"backwards_name": ""})
	assertSQL(t, b, `SELECT "companies".* FROM "companies"`)

	b = build(t, "Company", map[string]any{
		"with_slackers_by_name_and_salary_range": []any{"Peter", "10000", "100000"},
	})
	assertSQL(t, b,
		`SELECT "companies".* FROM "companies" INNER JOIN "developers" AS "slackers" ON "slackers"."company_id" = "companies"."id" AND "slackers"."slacker" = $1 `+
			`WHERE "slackers"."name" = $2 AND "slackers"."salary" BETWEEN $3 AND $4`,
		true, "Peter", int64(10000), int64(100000))
	if v, _ := b.Get("with_slackers_by_name_and_salary_range"); len(v.([]any)) != 3 {
		t.Fatalf("unexpected stored value: %#v", v)
	}

	b = build(t, "Company", map[string]any{
		"with_slackers_by_name_and_salary_range(1s)": "Peter",
		"with_slackers_by_name_and_salary_range(2i)": "10000",
		"with_slackers_by_name_and_salary_range(3i)": "100000",
	}, WithContext(dsl.Context{"user": "admin"}))
	if v, _ := b.Get("with_slackers_by_name_and_salary_range"); len(v.([]any)) != 3 {
		t.Fatalf("unexpected stored value: %#v", v)
	}
}

func TestSearchMethodErrors(t *testing.T) {
	reg := testkit.Registry(t)
	_, err := For(reg, "Company", map[string]any{"with_slackers_by_name_and_salary_range": []any{"Peter", "1"}})
	var aerr *MethodArgumentError
	if !errors.As(err, &aerr) || aerr.Want != 3 || aerr.Got != 2 {
		t.Fatalf("expected argument error, got %v", err)
	}

	custom, err := runtime.RegistryFromSpecs(runtime.EntitySpec{
		Name:   "Widget",
		Fields: []runtime.FieldSpec{{Name: "name", Type: dsl.TypeText}},
		Methods: []runtime.SearchMethod{{
			Name: "broken",
			Func: func(runtime.Relation, ...any) (any, error) { return "not a relation", nil },
		}},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	_, err = For(custom, "Widget", map[string]any{"broken": "x"})
	var rerr *InvalidMethodReturnError
	if !errors.As(err, &rerr) || rerr.Method != "broken" || rerr.Got != "string" {
		t.Fatalf("expected invalid return, got %v", err)
	}
	if !errors.Is(err, ErrInvalidMethodReturn) {
		t.Fatalf("expected ErrInvalidMethodReturn")
	}
}
