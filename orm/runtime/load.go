package runtime

import (
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/deicod/ermsearch/orm/dsl"
)

type schemaDocument struct {
	Entities []entityDocument `yaml:"entities"`
}

type entityDocument struct {
	Name       string           `yaml:"name"`
	Table      string           `yaml:"table"`
	PrimaryKey string           `yaml:"primary_key"`
	Fields     []fieldDocument  `yaml:"fields"`
	Edges      []edgeDocument   `yaml:"edges"`
	Policies   []policyDocument `yaml:"policies"`
}

type fieldDocument struct {
	Name     string `yaml:"name"`
	Column   string `yaml:"column"`
	Type     string `yaml:"type"`
	Primary  bool   `yaml:"primary"`
	Nullable bool   `yaml:"nullable"`
}

type edgeDocument struct {
	Name        string         `yaml:"name"`
	Kind        string         `yaml:"kind"`
	Target      string         `yaml:"target"`
	Column      string         `yaml:"column"`
	Through     string         `yaml:"through"`
	JoinColumn  string         `yaml:"join_column"`
	TargetJoin  string         `yaml:"target_join_column"`
	Polymorphic bool           `yaml:"polymorphic"`
	As          string         `yaml:"as"`
	Via         string         `yaml:"via"`
	Source      string         `yaml:"source"`
	Where       map[string]any `yaml:"where"`
}

type policyDocument struct {
	Kind  string             `yaml:"kind"`
	Names []string           `yaml:"names"`
	When  *conditionDocument `yaml:"when"`
}

type conditionDocument struct {
	Key string   `yaml:"key"`
	In  []string `yaml:"in"`
}

var knownFieldTypes = []dsl.FieldType{
	dsl.TypeText, dsl.TypeVarChar, dsl.TypeChar, dsl.TypeUUID, dsl.TypeBoolean,
	dsl.TypeSmallInt, dsl.TypeInteger, dsl.TypeBigInt, dsl.TypeSerial, dsl.TypeBigSerial,
	dsl.TypeDecimal, dsl.TypeNumeric, dsl.TypeMoney, dsl.TypeReal, dsl.TypeDoublePrecision,
	dsl.TypeBytea, dsl.TypeDate, dsl.TypeTime, dsl.TypeTimestamp, dsl.TypeTimestampTZ,
}

// LoadSchemaFile reads a YAML schema description from path.
func LoadSchemaFile(path string) (Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Registry{}, err
	}
	defer f.Close()
	reg, err := LoadSchema(f)
	if err != nil {
		return Registry{}, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// LoadSchema decodes a YAML schema description into a registry. Search and sort methods cannot
// be expressed in YAML; register Go definitions for those.
func LoadSchema(r io.Reader) (Registry, error) {
	var doc schemaDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return Registry{}, fmt.Errorf("decode schema: %w", err)
	}
	specs := make([]EntitySpec, 0, len(doc.Entities))
	for _, entity := range doc.Entities {
		spec, err := entity.spec()
		if err != nil {
			return Registry{}, err
		}
		specs = append(specs, spec)
	}
	return RegistryFromSpecs(specs...)
}

func (d entityDocument) spec() (EntitySpec, error) {
	spec := EntitySpec{Name: d.Name, Table: d.Table, PrimaryKey: d.PrimaryKey}
	for _, f := range d.Fields {
		typ := dsl.FieldType(f.Type)
		if !slices.Contains(knownFieldTypes, typ) {
			return EntitySpec{}, fmt.Errorf("entity %s: field %s has unknown type %q", d.Name, f.Name, f.Type)
		}
		spec.Fields = append(spec.Fields, FieldSpec{
			Name:     f.Name,
			Column:   f.Column,
			Type:     typ,
			Primary:  f.Primary,
			Nullable: f.Nullable,
		})
	}
	for _, e := range d.Edges {
		kind := dsl.EdgeKind(e.Kind)
		switch {
		case e.Via != "":
			kind = dsl.EdgeToMany
		case e.Polymorphic:
			kind = dsl.EdgeToOne
		case kind == "":
			return EntitySpec{}, fmt.Errorf("entity %s: edge %s has no kind", d.Name, e.Name)
		}
		spec.Edges = append(spec.Edges, EdgeSpec{
			Name:        e.Name,
			Kind:        kind,
			Target:      e.Target,
			Column:      e.Column,
			Through:     e.Through,
			JoinColumn:  e.JoinColumn,
			TargetJoin:  e.TargetJoin,
			Polymorphic: e.Polymorphic,
			As:          e.As,
			Via:         e.Via,
			Source:      e.Source,
			Scope:       e.Where,
		})
	}
	for _, p := range d.Policies {
		rule := dsl.Rule{Kind: dsl.RuleKind(p.Kind), Names: p.Names}
		switch rule.Kind {
		case dsl.RuleSearchable, dsl.RuleUnsearchable, dsl.RuleAssocSearchable, dsl.RuleAssocUnsearchable:
		default:
			return EntitySpec{}, fmt.Errorf("entity %s: unknown policy kind %q", d.Name, p.Kind)
		}
		if p.When != nil {
			cond := *p.When
			rule = rule.When(func(ctx dsl.Context) bool {
				return slices.Contains(cond.In, ctx.String(cond.Key))
			})
		}
		spec.Rules = append(spec.Rules, rule)
	}
	return spec, nil
}
