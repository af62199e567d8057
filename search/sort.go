package search

import (
	"fmt"
	"strings"

	"github.com/deicod/ermsearch/orm/runtime"
)

// applySort handles "<name>.<asc|desc>". Named sort methods win over columns; a name that is
// neither is split on "_and_" into columns ordered left to right.
func (b *Builder) applySort(value any) error {
	raw := ""
	if value != nil {
		raw = strings.TrimSpace(fmt.Sprint(value))
	}
	b.values[b.opts.sortKey] = raw
	if raw == "" {
		return nil
	}
	name, dir := raw, runtime.SortAsc
	if idx := strings.LastIndexByte(raw, '.'); idx >= 0 {
		parsed, ok := runtime.ParseSortDirection(raw[idx+1:])
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidSort, raw)
		}
		name, dir = raw[:idx], parsed
	}

	if method, ok := b.entity.Sort(name); ok {
		b.relation = method.Func(b.relation, dir)
		return nil
	}
	if col, ok, err := b.resolver.column(b.entity.Name, name, AllTypes, nil); err != nil {
		return err
	} else if ok {
		return b.orderBy([]Column{col}, dir)
	}

	parts := strings.Split(name, "_and_")
	if len(parts) > 1 {
		cols := make([]Column, 0, len(parts))
		for _, part := range parts {
			col, ok, err := b.resolver.column(b.entity.Name, part, AllTypes, nil)
			if err != nil {
				return err
			}
			if !ok {
				return b.sortError(part)
			}
			cols = append(cols, col)
		}
		return b.orderBy(cols, dir)
	}
	return b.sortError(name)
}

func (b *Builder) orderBy(cols []Column, dir runtime.SortDirection) error {
	for _, col := range cols {
		rel, node, err := b.graph.Join(b.relation, b.registry, col.Path)
		if err != nil {
			return err
		}
		b.relation = rel.Order(runtime.Column(node.Alias, col.Field.Column), dir)
	}
	return nil
}

func (b *Builder) sortError(name string) error {
	return &UnknownAttributeError{
		Entity:      b.entity.Name,
		Key:         b.opts.sortKey + "=" + name,
		Suggestions: closest(name, b.sortables()),
	}
}
