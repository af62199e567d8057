package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deicod/ermsearch/orm/dsl"
)

const schemaYAML = `
entities:
  - name: Company
    fields:
      - {name: id, type: serial, primary: true}
      - {name: name, type: varchar}
      - {name: updated_at, type: timestamp}
    edges:
      - {name: developers, kind: o2m, target: Developer}
      - {name: slackers, kind: o2m, target: Developer, where: {slacker: true}}
      - {name: developer_notes, via: developers, source: notes}
    policies:
      - kind: attr_unsearchable
        names: [updated_at]
        when: {key: user, in: ["", blocked]}
  - name: Developer
    fields:
      - {name: id, type: serial, primary: true}
      - {name: name, type: varchar}
      - {name: company_id, type: integer}
    edges:
      - {name: company, kind: o2o, target: Company}
      - {name: notes, kind: o2m, target: Note, as: notable}
  - name: Note
    table: remarks
    fields:
      - {name: id, type: serial, primary: true}
      - {name: note, type: text}
    edges:
      - {name: notable, polymorphic: true}
`

func TestLoadSchema(t *testing.T) {
	reg, err := LoadSchema(strings.NewReader(schemaYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	company, ok := reg.Entity("Company")
	if !ok {
		t.Fatalf("expected Company")
	}
	slackers, _ := company.Edge("slackers")
	if slackers.Column != "company_id" || slackers.Scope["slacker"] != true {
		t.Fatalf("unexpected slackers edge: %+v", slackers)
	}
	through, _ := company.Edge("developer_notes")
	if through.Target != "Note" || through.Kind != dsl.EdgeToMany {
		t.Fatalf("unexpected through edge: %+v", through)
	}
	if len(company.Rules) != 1 {
		t.Fatalf("expected one rule, got %d", len(company.Rules))
	}
	rule := company.Rules[0]
	if !rule.Applies(dsl.Context{"user": "blocked"}) || !rule.Applies(nil) || rule.Applies(dsl.Context{"user": "admin"}) {
		t.Fatalf("unexpected rule condition")
	}
	note, _ := reg.Entity("Note")
	if note.Table != "remarks" {
		t.Fatalf("expected table override, got %s", note.Table)
	}
	notable, _ := note.Edge("notable")
	if !notable.Polymorphic || notable.Kind != dsl.EdgeToOne || notable.TypeColumn != "notable_type" {
		t.Fatalf("unexpected polymorphic edge: %+v", notable)
	}
}

func TestLoadSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "entities:\n  - name: A\n    colour: red\n", "colour"},
		{"unknown type", "entities:\n  - name: A\n    fields:\n      - {name: x, type: geometry}\n", "unknown type"},
		{"missing kind", "entities:\n  - name: A\n    edges:\n      - {name: b, target: A}\n", "no kind"},
		{"bad policy", "entities:\n  - name: A\n    policies:\n      - {kind: maybe, names: [x]}\n", "unknown policy kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSchema(strings.NewReader(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, []byte(schemaYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg, err := LoadSchemaFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(reg.Names()) != 3 {
		t.Fatalf("unexpected entities: %v", reg.Names())
	}
	if _, err := LoadSchemaFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
