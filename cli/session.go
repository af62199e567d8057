package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deicod/ermsearch/orm/dsl"
	"github.com/deicod/ermsearch/orm/runtime"
	"github.com/deicod/ermsearch/search"
)

// searchFlags are shared by the commands that build a search.
type searchFlags struct {
	schema  string
	entity  string
	context []string
}

type session struct {
	cfg      projectConfig
	schema   string
	registry runtime.Registry
	opts     []search.Option
}

func openSession(configPath string, flags searchFlags, logger *slog.Logger) (*session, error) {
	cfg, err := loadProjectConfig(configPath)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("config: unable to read %s: %v", configPath, err), err, "Fix the project file or pass --config.", exitUsage)
	}
	schema := flags.schema
	if schema == "" {
		schema = cfg.Schema
	}
	if schema == "" {
		return nil, usageError("schema: no schema file configured", "Pass --schema or set schema in "+defaultConfigFile+".")
	}
	s := &session{cfg: cfg, schema: schema}
	if err := s.reload(); err != nil {
		return nil, err
	}

	kind, err := cfg.JoinKind()
	if err != nil {
		return nil, wrapError("config: "+err.Error(), err, "Use join_kind: inner or join_kind: outer.", exitUsage)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, wrapError(fmt.Sprintf("config: invalid time zone %q", cfg.Search.TimeZone), err, "Use an IANA zone name such as Europe/Berlin.", exitUsage)
	}
	ctx := dsl.Context{}
	for k, v := range cfg.Search.Context {
		ctx[k] = v
	}
	for _, pair := range flags.context {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, usageError(fmt.Sprintf("context: expected key=value, got %q", pair), "")
		}
		ctx[k] = v
	}
	s.opts = []search.Option{
		search.WithJoinKind(kind),
		search.WithTimeZone(loc),
		search.WithContext(ctx),
		search.WithSortKey(cfg.Search.SortKey),
		search.WithLogger(logger),
	}
	return s, nil
}

func (s *session) reload() error {
	reg, err := runtime.LoadSchemaFile(s.schema)
	if err != nil {
		return wrapError(fmt.Sprintf("schema: %v", err), err, "Check the schema file for unknown keys or field types.", exitUsage)
	}
	s.registry = reg
	return nil
}

func (s *session) build(entity string, params map[string]any, extra ...search.Option) (*search.Builder, error) {
	if entity == "" {
		return nil, usageError("search: --entity is required", "Available entities: "+strings.Join(s.registry.Names(), ", "))
	}
	if _, ok := s.registry.Entity(entity); !ok {
		return nil, usageError(fmt.Sprintf("search: unknown entity %q", entity), "Available entities: "+strings.Join(s.registry.Names(), ", "))
	}
	opts := append(append([]search.Option(nil), s.opts...), extra...)
	b, err := search.For(s.registry, entity, params, opts...)
	if err != nil {
		var uerr *search.UnknownAttributeError
		if errors.As(err, &uerr) && len(uerr.Suggestions) == 0 {
			return nil, wrapError(err.Error(), err, "Run `ermsearch predicates` to list predicate names.", exitFailure)
		}
		return nil, wrapError(err.Error(), err, "", exitFailure)
	}
	return b, nil
}

// parseParams turns key=value arguments into search parameters. Repeated keys collect into a
// list.
func parseParams(args []string) (map[string]any, error) {
	params := map[string]any{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch prev := params[key].(type) {
		case nil:
			params[key] = value
		case []any:
			params[key] = append(prev, value)
		default:
			params[key] = []any{prev, value}
		}
	}
	return params, nil
}
