package runtime

import (
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// ParseSortDirection accepts "asc" or "desc" in any case.
func ParseSortDirection(s string) (SortDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return SortAsc, true
	case "desc":
		return SortDesc, true
	default:
		return "", false
	}
}

type Order struct {
	Column    string
	Direction SortDirection
}

type JoinKind string

const (
	JoinInner     JoinKind = "INNER JOIN"
	JoinLeftOuter JoinKind = "LEFT OUTER JOIN"
)

// Join is a single join clause. It renders as a squirrel Sqlizer so it can be handed to
// SelectBuilder.JoinClause directly.
type Join struct {
	Kind  JoinKind
	Table string
	Alias string
	On    []sq.Sqlizer
}

// Name is the identifier other clauses use to reference the joined table.
func (j Join) Name() string {
	if j.Alias != "" {
		return j.Alias
	}
	return j.Table
}

func (j Join) ToSql() (string, []any, error) {
	if len(j.On) == 0 {
		return "", nil, fmt.Errorf("runtime: join %s has no condition", j.Name())
	}
	kind := j.Kind
	if kind == "" {
		kind = JoinLeftOuter
	}
	var sb strings.Builder
	sb.WriteString(string(kind))
	sb.WriteByte(' ')
	sb.WriteString(Quote(j.Table))
	if j.Alias != "" && j.Alias != j.Table {
		sb.WriteString(" AS ")
		sb.WriteString(Quote(j.Alias))
	}
	sb.WriteString(" ON ")
	var args []any
	for i, cond := range j.On {
		sql, condArgs, err := cond.ToSql()
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(sql)
		args = append(args, condArgs...)
	}
	return sb.String(), args, nil
}

// Quote returns a sanitized SQL identifier.
func Quote(ident string) string { return pgx.Identifier{ident}.Sanitize() }

// Column returns a qualified, quoted column reference.
func Column(table, column string) string { return pgx.Identifier{table, column}.Sanitize() }

// ColumnsEqual compares two qualified columns, typically inside a join condition.
func ColumnsEqual(left, right string) sq.Sqlizer { return sq.Expr(left + " = " + right) }

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Relation is an immutable query description: every method returns a modified copy and leaves
// the receiver untouched.
type Relation struct {
	table    string
	key      string
	columns  []string
	joins    []Join
	wheres   []sq.Sqlizer
	orders   []Order
	limit    uint64
	offset   uint64
	distinct bool
}

// From starts an unrestricted relation over table keyed by "id".
func From(table string) Relation { return Relation{table: table, key: "id"} }

// For starts an unrestricted relation over the entity's table.
func For(spec EntitySpec) Relation {
	rel := From(spec.Table)
	if spec.PrimaryKey != "" {
		rel.key = spec.PrimaryKey
	}
	return rel
}

func (r Relation) Table() string { return r.table }

func (r Relation) Where(cond sq.Sqlizer) Relation {
	if cond == nil {
		return r
	}
	r.wheres = append(slices.Clip(r.wheres), cond)
	return r
}

// Join adds j unless a join with the same name is already present.
func (r Relation) Join(j Join) Relation {
	if r.HasJoin(j.Name()) {
		return r
	}
	r.joins = append(slices.Clip(r.joins), j)
	return r
}

func (r Relation) HasJoin(name string) bool {
	for _, j := range r.joins {
		if j.Name() == name {
			return true
		}
	}
	return false
}

func (r Relation) Order(column string, dir SortDirection) Relation {
	if dir == "" {
		dir = SortAsc
	}
	r.orders = append(slices.Clip(r.orders), Order{Column: column, Direction: dir})
	return r
}

// Unordered drops every ordering.
func (r Relation) Unordered() Relation {
	r.orders = nil
	return r
}

func (r Relation) Select(columns ...string) Relation {
	r.columns = slices.Clone(columns)
	return r
}

func (r Relation) Distinct() Relation {
	r.distinct = true
	return r
}

func (r Relation) Limit(n uint64) Relation {
	r.limit = n
	return r
}

func (r Relation) Offset(n uint64) Relation {
	r.offset = n
	return r
}

// Page limits the relation to the given 1-based page.
func (r Relation) Page(page, perPage uint64) Relation {
	if perPage == 0 {
		return r
	}
	if page < 1 {
		page = 1
	}
	return r.Limit(perPage).Offset((page - 1) * perPage)
}

func (r Relation) Joins() []Join                { return slices.Clone(r.joins) }
func (r Relation) Conditions() []sq.Sqlizer     { return slices.Clone(r.wheres) }
func (r Relation) Orders() []Order              { return slices.Clone(r.orders) }
func (r Relation) Pagination() (uint64, uint64) { return r.limit, r.offset }

func (r Relation) builder(columns ...string) (sq.SelectBuilder, error) {
	if r.table == "" {
		return sq.SelectBuilder{}, fmt.Errorf("runtime: relation has no table")
	}
	b := psql.Select(columns...).From(Quote(r.table))
	for _, j := range r.joins {
		b = b.JoinClause(j)
	}
	for _, cond := range r.wheres {
		b = b.Where(cond)
	}
	return b, nil
}

// ToSQL renders the SELECT statement with PostgreSQL placeholders.
func (r Relation) ToSQL() (string, []any, error) {
	columns := r.columns
	if len(columns) == 0 {
		columns = []string{Quote(r.table) + ".*"}
	}
	b, err := r.builder(columns...)
	if err != nil {
		return "", nil, err
	}
	if r.distinct {
		b = b.Distinct()
	}
	for _, order := range r.orders {
		b = b.OrderBy(order.Column + " " + string(order.Direction))
	}
	if r.limit > 0 {
		b = b.Limit(r.limit)
	}
	if r.offset > 0 {
		b = b.Offset(r.offset)
	}
	return b.ToSql()
}

// CountSQL renders a COUNT over the relation, ignoring ordering and pagination.
func (r Relation) CountSQL() (string, []any, error) {
	count := "COUNT(*)"
	if r.distinct {
		count = "COUNT(DISTINCT " + Column(r.table, r.key) + ")"
	}
	b, err := r.builder(count)
	if err != nil {
		return "", nil, err
	}
	return b.ToSql()
}
