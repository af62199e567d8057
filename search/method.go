package search

import (
	"fmt"

	"github.com/deicod/ermsearch/orm/runtime"
)

// applyMethod casts value with the method's type hints and replaces the relation with the
// method's result. Splat methods receive one argument per hint.
func (b *Builder) applyMethod(method runtime.SearchMethod, value any) error {
	args, stored, err := b.methodArgs(method, value)
	if err != nil {
		return err
	}
	b.values[method.Name] = stored
	if !Present(stored) {
		b.opts.logger.Debug("search method ignored", "search_id", b.id, "method", method.Name)
		return nil
	}
	out, err := method.Func(b.relation, args...)
	if err != nil {
		return fmt.Errorf("search: method %s: %w", method.Name, err)
	}
	rel, ok := out.(runtime.Relation)
	if !ok {
		return &InvalidMethodReturnError{Method: method.Name, Got: fmt.Sprintf("%T", out)}
	}
	b.relation = rel
	b.filters++
	return nil
}

func (b *Builder) methodArgs(method runtime.SearchMethod, value any) ([]any, any, error) {
	hint := func(i int) (TypeTag, bool) {
		if len(method.Types) == 0 {
			return "", false
		}
		if i >= len(method.Types) {
			i = len(method.Types) - 1
		}
		return TagFor(method.Types[i])
	}
	castArg := func(i int, v any) (any, error) {
		tag, ok := hint(i)
		if !ok {
			return v, nil
		}
		return b.caster.Cast(tag, v)
	}

	if !method.Splat {
		v, err := castArg(0, value)
		if err != nil {
			return nil, nil, err
		}
		return []any{v}, v, nil
	}

	items := listOf(value)
	if len(method.Types) > 1 && len(items) != len(method.Types) && Present(value) {
		return nil, nil, &MethodArgumentError{Method: method.Name, Want: len(method.Types), Got: len(items)}
	}
	args := make([]any, len(items))
	for i, item := range items {
		v, err := castArg(i, item)
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	return args, args, nil
}
