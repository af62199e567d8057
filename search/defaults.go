package search

import "sync"

// DefaultWheres is the predicate set every registry starts from.
func DefaultWheres() []Where {
	ordered := Numbers | Dates | Times
	flag := func(name string, op Operator, types TypeSet) Where {
		return Where{
			Name:          name,
			Types:         types,
			Operator:      op,
			Cast:          TypeBoolean,
			Validator:     isTrue,
			SkipCompounds: true,
		}
	}
	return []Where{
		{Name: "equals", Aliases: []string{"eq"}, Operator: OpEquals},
		{Name: "does_not_equal", Aliases: []string{"ne", "not_eq", "noteq"}, Operator: OpNotEquals},
		{Name: "contains", Aliases: []string{"like", "matches"}, Types: Strings, Operator: OpMatches, Formatter: LikeFormatter("%", "%")},
		{Name: "does_not_contain", Aliases: []string{"nlike", "not_matches", "notmatches"}, Types: Strings, Operator: OpNotMatches, Formatter: LikeFormatter("%", "%")},
		{Name: "starts_with", Aliases: []string{"sw"}, Types: Strings, Operator: OpMatches, Formatter: LikeFormatter("", "%")},
		{Name: "does_not_start_with", Aliases: []string{"dnsw"}, Types: Strings, Operator: OpNotMatches, Formatter: LikeFormatter("", "%")},
		{Name: "ends_with", Aliases: []string{"ew"}, Types: Strings, Operator: OpMatches, Formatter: LikeFormatter("%", "")},
		{Name: "does_not_end_with", Aliases: []string{"dnew"}, Types: Strings, Operator: OpNotMatches, Formatter: LikeFormatter("%", "")},
		{Name: "greater_than", Aliases: []string{"gt"}, Types: ordered, Operator: OpGreaterThan},
		{Name: "less_than", Aliases: []string{"lt"}, Types: ordered, Operator: OpLessThan},
		{Name: "greater_than_or_equal_to", Aliases: []string{"gte", "gteq"}, Types: ordered, Operator: OpGreaterOrEqual},
		{Name: "less_than_or_equal_to", Aliases: []string{"lte", "lteq"}, Types: ordered, Operator: OpLessOrEqual},
		{Name: "in", Operator: OpIn, SkipCompounds: true},
		{Name: "not_in", Aliases: []string{"ni", "notin"}, Operator: OpNotIn, SkipCompounds: true},
		flag("is_true", OpIsTrue, Booleans),
		flag("is_false", OpIsFalse, Booleans),
		flag("is_present", OpIsPresent, AllTypes.Without(Booleans)),
		flag("is_blank", OpIsBlank, AllTypes.Without(Booleans)),
		flag("is_null", OpIsNull, AllTypes),
		flag("is_not_null", OpIsNotNull, AllTypes),
		{Name: "between", Types: ordered, Operator: OpBetween, Validator: betweenValidator, Splat: true},
	}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	reg, err := NewRegistry(DefaultWheres()...)
	if err != nil {
		panic(err)
	}
	return reg
})

// DefaultRegistry returns the shared registry built from DefaultWheres.
func DefaultRegistry() *Registry { return defaultRegistry() }
