package search

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/apd/v3"
)

// Operator is the comparison a predicate renders into SQL.
type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpMatches        Operator = "matches"
	OpNotMatches     Operator = "not_matches"
	OpGreaterThan    Operator = "gt"
	OpLessThan       Operator = "lt"
	OpGreaterOrEqual Operator = "gte"
	OpLessOrEqual    Operator = "lte"
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
	OpIsNull         Operator = "is_null"
	OpIsNotNull      Operator = "is_not_null"
	OpIsTrue         Operator = "is_true"
	OpIsFalse        Operator = "is_false"
	OpIsPresent      Operator = "is_present"
	OpIsBlank        Operator = "is_blank"
	OpBetween        Operator = "between"
)

// Compound marks predicates derived from a base predicate for list input.
type Compound string

const (
	CompoundNone Compound = ""
	CompoundAny  Compound = "any"
	CompoundAll  Compound = "all"
)

// ConditionFunc renders a condition for a qualified column reference. args holds the formatted
// value, expanded when the predicate splats its parameters.
type ConditionFunc func(column string, typ TypeTag, args ...any) (sq.Sqlizer, error)

// Where is a named predicate.
type Where struct {
	Name      string
	Aliases   []string
	Types     TypeSet
	Operator  Operator
	Cast      TypeTag
	Formatter func(any) any
	Validator func(any) bool
	Condition ConditionFunc
	Splat     bool

	// SkipCompounds suppresses the derived <name>_any and <name>_all predicates.
	SkipCompounds bool

	Compound Compound
	Base     string
}

// Allows reports whether the predicate may be applied to columns of type tag.
func (w Where) Allows(tag TypeTag) bool { return w.Types.Has(tag) }

// Validate reports whether the cast value is worth filtering on.
func (w Where) Validate(value any) bool {
	if w.Validator == nil {
		return Present(value)
	}
	return w.Validator(value)
}

// Format converts a cast value into the operator's parameter.
func (w Where) Format(value any) any {
	if w.Formatter == nil {
		return value
	}
	return w.Formatter(value)
}

// Apply renders the condition for one column.
func (w Where) Apply(column string, typ TypeTag, value any) (sq.Sqlizer, error) {
	formatted := w.Format(value)
	if w.Compound != CompoundNone {
		return w.applyCompound(column, typ, formatted)
	}
	return w.render(column, typ, formatted)
}

func (w Where) render(column string, typ TypeTag, formatted any) (sq.Sqlizer, error) {
	args := []any{formatted}
	if w.Splat {
		args = listOf(formatted)
	}
	for i, arg := range args {
		args[i] = bindValue(arg)
	}
	if w.Condition != nil {
		return w.Condition(column, typ, args...)
	}
	return w.Operator.Condition(column, typ, args...)
}

func (w Where) applyCompound(column string, typ TypeTag, formatted any) (sq.Sqlizer, error) {
	values := listOf(formatted)
	conds := make([]sq.Sqlizer, 0, len(values))
	for _, v := range values {
		cond, err := w.render(column, typ, v)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	if w.Compound == CompoundAll {
		return sq.And(conds), nil
	}
	return sq.Or(conds), nil
}

// Condition renders the operator against column with the given arguments.
func (op Operator) Condition(column string, typ TypeTag, args ...any) (sq.Sqlizer, error) {
	first := func() any {
		if len(args) == 0 {
			return nil
		}
		return args[0]
	}
	switch op {
	case OpEquals:
		return sq.Eq{column: first()}, nil
	case OpNotEquals:
		return sq.NotEq{column: first()}, nil
	case OpMatches:
		return sq.ILike{column: first()}, nil
	case OpNotMatches:
		return sq.NotILike{column: first()}, nil
	case OpGreaterThan:
		return sq.Gt{column: first()}, nil
	case OpLessThan:
		return sq.Lt{column: first()}, nil
	case OpGreaterOrEqual:
		return sq.GtOrEq{column: first()}, nil
	case OpLessOrEqual:
		return sq.LtOrEq{column: first()}, nil
	case OpIn:
		return sq.Eq{column: listOf(first())}, nil
	case OpNotIn:
		return sq.NotEq{column: listOf(first())}, nil
	case OpIsNull:
		return sq.Eq{column: nil}, nil
	case OpIsNotNull:
		return sq.NotEq{column: nil}, nil
	case OpIsTrue:
		return sq.Eq{column: true}, nil
	case OpIsFalse:
		return sq.Eq{column: false}, nil
	case OpIsPresent:
		if Strings.Has(typ) {
			return sq.And{sq.NotEq{column: nil}, sq.NotEq{column: ""}}, nil
		}
		return sq.NotEq{column: nil}, nil
	case OpIsBlank:
		if Strings.Has(typ) {
			return sq.Or{sq.Eq{column: nil}, sq.Eq{column: ""}}, nil
		}
		return sq.Eq{column: nil}, nil
	case OpBetween:
		if len(args) != 2 {
			return nil, fmt.Errorf("search: between needs 2 values, got %d", len(args))
		}
		return sq.Expr(column+" BETWEEN ? AND ?", args[0], args[1]), nil
	default:
		return nil, fmt.Errorf("search: unsupported operator %q", op)
	}
}

// bindValue converts cast values into driver friendly parameters.
func bindValue(v any) any {
	switch val := v.(type) {
	case *apd.Decimal:
		if val == nil {
			return nil
		}
		return val.String()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = bindValue(item)
		}
		return out
	default:
		return v
	}
}

// listOf returns v as a []any, wrapping scalars in a single element list.
func listOf(v any) []any {
	if v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		return list
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]any); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8
}

// Present is the default validator. Nil, whitespace-only strings, empty collections and nil
// decimals are blank; false is a legitimate value and therefore present.
func Present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return true
	case string:
		return strings.TrimSpace(val) != ""
	case *apd.Decimal:
		return val != nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikeFormatter escapes LIKE wildcards in the value and wraps it with prefix and suffix.
func LikeFormatter(prefix, suffix string) func(any) any {
	return func(v any) any {
		if v == nil {
			return nil
		}
		return prefix + likeEscaper.Replace(fmt.Sprint(v)) + suffix
	}
}

func betweenValidator(v any) bool {
	list := listOf(v)
	return isList(v) && len(list) == 2 && Present(list[0]) && Present(list[1])
}

// Registry is an immutable set of predicates. Use With to derive an extended registry.
type Registry struct {
	defs     []Where
	byName   map[string]Where
	suffixes []string
}

// NewRegistry registers defs in order, deriving compound variants.
func NewRegistry(defs ...Where) (*Registry, error) {
	r := &Registry{byName: map[string]Where{}}
	for _, def := range defs {
		if err := r.add(def); err != nil {
			return nil, err
		}
	}
	r.index()
	return r, nil
}

// With returns a new registry holding the receiver's predicates plus defs.
func (r *Registry) With(defs ...Where) (*Registry, error) {
	all := make([]Where, 0, len(r.defs)+len(defs))
	all = append(all, r.defs...)
	all = append(all, defs...)
	return NewRegistry(all...)
}

func (r *Registry) add(def Where) error {
	if def.Name == "" {
		return fmt.Errorf("search: predicate without name")
	}
	if def.Types == 0 {
		def.Types = AllTypes
	}
	if def.Operator == "" {
		def.Operator = OpEquals
	}
	def.Compound = CompoundNone
	def.Base = ""

	entries := []Where{def}
	if !def.SkipCompounds {
		entries = append(entries, compoundOf(def, CompoundAny), compoundOf(def, CompoundAll))
	}
	for _, entry := range entries {
		for _, name := range append([]string{entry.Name}, entry.Aliases...) {
			if _, exists := r.byName[name]; exists {
				return &DuplicateNameError{Name: name}
			}
		}
		for _, name := range append([]string{entry.Name}, entry.Aliases...) {
			r.byName[name] = entry
		}
	}
	r.defs = append(r.defs, def)
	return nil
}

func compoundOf(base Where, compound Compound) Where {
	suffix := "_" + string(compound)
	aliases := make([]string, len(base.Aliases))
	for i, alias := range base.Aliases {
		aliases[i] = alias + suffix
	}
	elementOK := base.Validate
	out := base
	out.Name = base.Name + suffix
	out.Aliases = aliases
	out.Compound = compound
	out.Base = base.Name
	out.Formatter = func(v any) any {
		var kept []any
		for _, item := range listOf(v) {
			if elementOK(item) {
				kept = append(kept, base.Format(item))
			}
		}
		return kept
	}
	out.Validator = func(v any) bool {
		for _, item := range listOf(v) {
			if elementOK(item) {
				return true
			}
		}
		return false
	}
	return out
}

func (r *Registry) index() {
	r.suffixes = make([]string, 0, len(r.byName))
	for name := range r.byName {
		r.suffixes = append(r.suffixes, name)
	}
	sort.Slice(r.suffixes, func(i, j int) bool {
		if len(r.suffixes[i]) != len(r.suffixes[j]) {
			return len(r.suffixes[i]) > len(r.suffixes[j])
		}
		return r.suffixes[i] < r.suffixes[j]
	})
}

// Get returns the predicate registered under name or alias. Aliases resolve to their
// canonical predicate.
func (r *Registry) Get(name string) (Where, bool) {
	w, ok := r.byName[name]
	return w, ok
}

// Match is a predicate suffix found at the end of an attribute key.
type Match struct {
	Where Where
	// Attribute is the key with the predicate suffix removed.
	Attribute string
}

// Candidates returns every predicate whose name or alias ends key after an underscore,
// longest suffix first.
func (r *Registry) Candidates(key string) []Match {
	var out []Match
	for _, name := range r.suffixes {
		if len(key) <= len(name)+1 || !strings.HasSuffix(key, "_"+name) {
			continue
		}
		out = append(out, Match{
			Where:     r.byName[name],
			Attribute: key[:len(key)-len(name)-1],
		})
	}
	return out
}

// Lookup returns the longest predicate suffix of key.
func (r *Registry) Lookup(key string) (Match, bool) {
	for _, name := range r.suffixes {
		if len(key) > len(name)+1 && strings.HasSuffix(key, "_"+name) {
			return Match{Where: r.byName[name], Attribute: key[:len(key)-len(name)-1]}, true
		}
	}
	return Match{}, false
}

// Wheres lists the canonical predicates, compounds included, in registration order.
func (r *Registry) Wheres() []Where {
	out := make([]Where, 0, len(r.defs)*3)
	for _, def := range r.defs {
		out = append(out, r.byName[def.Name])
		if !def.SkipCompounds {
			out = append(out, r.byName[def.Name+"_any"], r.byName[def.Name+"_all"])
		}
	}
	return out
}
