package runtime

import (
	"strings"
	"testing"

	"github.com/deicod/ermsearch/orm/dsl"
)

type Author struct{ dsl.Schema }

func (Author) Fields() []dsl.Field {
	return []dsl.Field{dsl.BigSerial("id").Primary(), dsl.String("name")}
}

func (Author) Edges() []dsl.Edge {
	return []dsl.Edge{
		dsl.ToMany("posts", "BlogPost"),
		dsl.ManyToMany("groups", "Group"),
		dsl.ToMany("comments", "Comment").As("commentable"),
		dsl.Through("post_tags", "posts", "tags"),
	}
}

func (Author) SortMethods() []SortMethod {
	return []SortMethod{{Name: "newest", Func: func(rel Relation, dir SortDirection) Relation {
		return rel.Order(Column("authors", "id"), dir)
	}}}
}

type BlogPost struct{ dsl.Schema }

func (BlogPost) Table() string { return "posts" }

func (BlogPost) Fields() []dsl.Field {
	return []dsl.Field{dsl.BigSerial("id").Primary(), dsl.Text("body").ColumnName("content")}
}

func (BlogPost) Edges() []dsl.Edge {
	return []dsl.Edge{
		dsl.ToOne("author", "Author"),
		dsl.ManyToMany("tags", "Tag").ThroughTable("post_taggings").JoinColumns("post", "tag"),
	}
}

type Group struct{ dsl.Schema }

func (Group) Fields() []dsl.Field { return []dsl.Field{dsl.Serial("id").Primary()} }

type Tag struct{ dsl.Schema }

func (Tag) Fields() []dsl.Field { return []dsl.Field{dsl.Serial("id").Primary(), dsl.String("label")} }

type Comment struct{ dsl.Schema }

func (Comment) Fields() []dsl.Field { return []dsl.Field{dsl.Serial("id").Primary()} }

func (Comment) Edges() []dsl.Edge { return []dsl.Edge{dsl.Polymorphic("commentable")} }

func TestNewRegistryDefaults(t *testing.T) {
	reg, err := NewRegistry(Author{}, BlogPost{}, Group{}, Tag{}, Comment{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if got := strings.Join(reg.Names(), ","); got != "Author,BlogPost,Comment,Group,Tag" {
		t.Fatalf("unexpected names: %s", got)
	}

	author, _ := reg.Entity("Author")
	if author.Table != "authors" || author.PrimaryKey != "id" {
		t.Fatalf("unexpected author defaults: %s %s", author.Table, author.PrimaryKey)
	}
	if _, ok := author.Sort("newest"); !ok {
		t.Fatalf("expected sort method")
	}

	tests := []struct {
		entity, edge string
		check        func(EdgeSpec) bool
	}{
		{"Author", "posts", func(e EdgeSpec) bool { return e.Column == "author_id" }},
		{"Author", "groups", func(e EdgeSpec) bool {
			return e.Through == "authors_groups" && e.JoinColumn == "author_id" && e.TargetJoin == "group_id"
		}},
		{"Author", "comments", func(e EdgeSpec) bool { return e.Column == "commentable_id" && e.TypeColumn == "commentable_type" }},
		{"Author", "post_tags", func(e EdgeSpec) bool { return e.IsThrough() && e.Target == "Tag" }},
		{"BlogPost", "author", func(e EdgeSpec) bool { return e.Column == "author_id" }},
		{"BlogPost", "tags", func(e EdgeSpec) bool {
			return e.Through == "post_taggings" && e.JoinColumn == "post" && e.TargetJoin == "tag"
		}},
		{"Comment", "commentable", func(e EdgeSpec) bool {
			return e.Polymorphic && e.Column == "commentable_id" && e.TypeColumn == "commentable_type"
		}},
	}
	for _, tt := range tests {
		spec, _ := reg.Entity(tt.entity)
		edge, ok := spec.Edge(tt.edge)
		if !ok || !tt.check(edge) {
			t.Fatalf("%s.%s: unexpected edge %+v", tt.entity, tt.edge, edge)
		}
	}

	post, _ := reg.Entity("BlogPost")
	if post.Table != "posts" {
		t.Fatalf("expected table override, got %s", post.Table)
	}
	if body, _ := post.Field("body"); body.Column != "content" {
		t.Fatalf("expected column override, got %s", body.Column)
	}
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name  string
		specs []EntitySpec
		want  string
	}{
		{"unknown target", []EntitySpec{{Name: "A", Edges: []EdgeSpec{{Name: "b", Kind: dsl.EdgeToOne, Target: "B"}}}}, "unknown entity"},
		{"duplicate", []EntitySpec{{Name: "A"}, {Name: "A"}}, "registered twice"},
		{"polymorphic to many", []EntitySpec{{Name: "A", Edges: []EdgeSpec{{Name: "p", Kind: dsl.EdgeToMany, Polymorphic: true}}}}, "must be to-one"},
		{"unknown via", []EntitySpec{{Name: "A", Edges: []EdgeSpec{{Name: "t", Kind: dsl.EdgeToMany, Via: "nope"}}}}, "unknown edge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RegistryFromSpecs(tt.specs...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNaming(t *testing.T) {
	tests := map[string]string{
		"DataType": "data_types",
		"Company":  "companies",
		"Person":   "people",
		"Address":  "addresses",
		"Box":      "boxes",
		"Day":      "days",
		"HTTPLog":  "http_logs",
	}
	for in, want := range tests {
		if got := TableName(in); got != want {
			t.Fatalf("TableName(%s): expected %s, got %s", in, want, got)
		}
	}
	if got := JoinTableName("projects", "developers"); got != "developers_projects" {
		t.Fatalf("unexpected join table: %s", got)
	}
	if got := ForeignKey("DataType"); got != "data_type_id" {
		t.Fatalf("unexpected foreign key: %s", got)
	}
}
