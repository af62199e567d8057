package testkit

import (
	"fmt"
	stdtesting "testing"

	sq "github.com/Masterminds/squirrel"

	"github.com/deicod/ermsearch/orm/dsl"
	"github.com/deicod/ermsearch/orm/runtime"
)

func userIn(users ...string) func(dsl.Context) bool {
	return func(ctx dsl.Context) bool {
		current := ctx.String("user")
		for _, u := range users {
			if current == u {
				return true
			}
		}
		return false
	}
}

type Company struct{ dsl.Schema }

func (Company) Fields() []dsl.Field {
	return []dsl.Field{
		dsl.Serial("id").Primary(),
		dsl.String("name"),
		dsl.Timestamp("created_at"),
		dsl.Timestamp("updated_at"),
	}
}

func (Company) Edges() []dsl.Edge {
	return []dsl.Edge{
		dsl.ToMany("developers", "Developer"),
		dsl.ToMany("slackers", "Developer").Where("slacker", true),
		dsl.ToMany("notes", "Note").As("notable"),
		dsl.Through("developer_notes", "developers", "notes"),
		dsl.ToMany("data_types", "DataType"),
	}
}

func (Company) Policies() []dsl.Rule {
	return []dsl.Rule{
		dsl.Unsearchable("updated_at").When(userIn("", "blocked")),
		dsl.UnsearchableAssoc("notes").When(userIn("", "blocked")),
	}
}

func (Company) SearchMethods() []runtime.SearchMethod {
	visible := func(ctx dsl.Context) bool { return ctx.String("user") != "blocked" }
	backwards := func(rel runtime.Relation, args ...any) (any, error) {
		name, _ := args[0].(string)
		return rel.Where(sq.Eq{runtime.Column("companies", "name"): reverse(name)}), nil
	}
	return []runtime.SearchMethod{
		{Name: "backwards_name", Types: []dsl.FieldType{dsl.TypeString}, Condition: visible, Func: backwards},
		{Name: "backwards_name_as_string", Types: []dsl.FieldType{dsl.TypeString}, Condition: visible, Func: backwards},
		{
			Name:  "with_slackers_by_name_and_salary_range",
			Types: []dsl.FieldType{dsl.TypeString, dsl.TypeInteger, dsl.TypeInteger},
			Splat: true,
			Func: func(rel runtime.Relation, args ...any) (any, error) {
				if len(args) != 3 {
					return nil, fmt.Errorf("expected 3 arguments, got %d", len(args))
				}
				return rel.Join(runtime.Join{
					Kind:  runtime.JoinInner,
					Table: "developers",
					Alias: "slackers",
					On: []sq.Sqlizer{
						runtime.ColumnsEqual(runtime.Column("slackers", "company_id"), runtime.Column("companies", "id")),
						sq.Eq{runtime.Column("slackers", "slacker"): true},
					},
				}).
					Where(sq.Eq{runtime.Column("slackers", "name"): args[0]}).
					Where(sq.Expr(runtime.Column("slackers", "salary")+" BETWEEN ? AND ?", args[1], args[2])), nil
			},
		},
	}
}

type Developer struct{ dsl.Schema }

func (Developer) Fields() []dsl.Field {
	return []dsl.Field{
		dsl.Serial("id").Primary(),
		dsl.Integer("company_id").Optional(),
		dsl.String("name"),
		dsl.Integer("salary"),
		dsl.Boolean("slacker"),
	}
}

func (Developer) Edges() []dsl.Edge {
	return []dsl.Edge{
		dsl.ToOne("company", "Company"),
		dsl.ManyToMany("projects", "Project"),
		dsl.ToMany("notes", "Note").As("notable"),
	}
}

func (Developer) Policies() []dsl.Rule {
	return []dsl.Rule{
		dsl.Searchable("name", "salary").When(userIn("", "privileged")),
		dsl.SearchableAssoc("notes", "projects", "company").When(userIn("", "privileged")),
	}
}

func (Developer) SortMethods() []runtime.SortMethod {
	return []runtime.SortMethod{{
		Name: "salary_and_name",
		Func: func(rel runtime.Relation, dir runtime.SortDirection) runtime.Relation {
			return rel.
				Order(runtime.Column("developers", "salary"), dir).
				Order(runtime.Column("developers", "name"), dir)
		},
	}}
}

type Project struct{ dsl.Schema }

func (Project) Fields() []dsl.Field {
	return []dsl.Field{
		dsl.Serial("id").Primary(),
		dsl.String("name"),
		dsl.Float("estimated_hours"),
	}
}

func (Project) Edges() []dsl.Edge {
	return []dsl.Edge{
		dsl.ManyToMany("developers", "Developer"),
		dsl.ToMany("notes", "Note").As("notable"),
	}
}

type Note struct{ dsl.Schema }

func (Note) Fields() []dsl.Field {
	return []dsl.Field{
		dsl.Serial("id").Primary(),
		dsl.Integer("notable_id"),
		dsl.String("notable_type"),
		dsl.Text("note"),
	}
}

func (Note) Edges() []dsl.Edge {
	return []dsl.Edge{dsl.Polymorphic("notable")}
}

// DataType carries one column of every supported type.
type DataType struct{ dsl.Schema }

func (DataType) Fields() []dsl.Field {
	return []dsl.Field{
		dsl.Serial("id").Primary(),
		dsl.Integer("company_id"),
		dsl.String("str"),
		dsl.Text("txt"),
		dsl.Integer("int"),
		dsl.Float("flt"),
		dsl.Decimal("dec", 10, 2),
		dsl.Timestamp("dtm"),
		dsl.TimestampTZ("tms"),
		dsl.Time("tim"),
		dsl.Date("dat"),
		dsl.Bytes("bin"),
		dsl.Bool("bln"),
	}
}

func (DataType) Edges() []dsl.Edge {
	return []dsl.Edge{dsl.ToOne("company", "Company")}
}

// Definitions lists the fixture schemas.
func Definitions() []dsl.Definition {
	return []dsl.Definition{Company{}, Developer{}, Project{}, Note{}, DataType{}}
}

// Registry builds the fixture registry, failing the test on error.
func Registry(tb stdtesting.TB) runtime.Registry {
	tb.Helper()
	reg, err := runtime.NewRegistry(Definitions()...)
	if err != nil {
		tb.Fatalf("fixture registry: %v", err)
	}
	return reg
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
