package dsl

// Context carries caller supplied values, such as the current user, into policy conditions.
type Context map[string]any

// String returns the string value stored under key, or "" when absent.
func (c Context) String(key string) string {
	if c == nil {
		return ""
	}
	s, _ := c[key].(string)
	return s
}

type RuleKind string

const (
	RuleSearchable        RuleKind = "attr_searchable"
	RuleUnsearchable      RuleKind = "attr_unsearchable"
	RuleAssocSearchable   RuleKind = "assoc_searchable"
	RuleAssocUnsearchable RuleKind = "assoc_unsearchable"
)

// Rule restricts which attributes or associations of an entity may be searched.
// Allow-list rules win over deny-list rules of the same target kind when both apply.
type Rule struct {
	Kind      RuleKind
	Names     []string
	Condition func(Context) bool
}

func Searchable(names ...string) Rule   { return Rule{Kind: RuleSearchable, Names: names} }
func Unsearchable(names ...string) Rule { return Rule{Kind: RuleUnsearchable, Names: names} }
func SearchableAssoc(names ...string) Rule {
	return Rule{Kind: RuleAssocSearchable, Names: names}
}
func UnsearchableAssoc(names ...string) Rule {
	return Rule{Kind: RuleAssocUnsearchable, Names: names}
}

// When makes the rule conditional on the caller context.
func (r Rule) When(cond func(Context) bool) Rule { r.Condition = cond; return r }

// Applies reports whether the rule is active for ctx.
func (r Rule) Applies(ctx Context) bool {
	if r.Condition == nil {
		return true
	}
	return r.Condition(ctx)
}

// Association reports whether the rule targets associations rather than attributes.
func (r Rule) Association() bool {
	return r.Kind == RuleAssocSearchable || r.Kind == RuleAssocUnsearchable
}

// Allow reports whether the rule is an allow-list.
func (r Rule) Allow() bool {
	return r.Kind == RuleSearchable || r.Kind == RuleAssocSearchable
}
