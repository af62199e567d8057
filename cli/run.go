package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/deicod/ermsearch/observability/logging"
	"github.com/deicod/ermsearch/observability/tracing"
	"github.com/deicod/ermsearch/orm/pg"
	"github.com/deicod/ermsearch/orm/runtime"
	"github.com/deicod/ermsearch/search"
)

const instrumentationName = "github.com/deicod/ermsearch"

func newRunCmd(configPath *string) *cobra.Command {
	var (
		flags     searchFlags
		page      uint64
		perPage   uint64
		countOnly bool
	)
	cmd := &cobra.Command{
		Use:   "run key=value...",
		Short: "Execute a search against the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args)
			if err != nil {
				return wrapError("run: "+err.Error(), err, "Pass parameters as key=value, e.g. name_contains=acme.", exitUsage)
			}
			logger := newLogger(cmd.ErrOrStderr())
			s, err := openSession(*configPath, flags, logger)
			if err != nil {
				return err
			}
			if s.cfg.Database.URL == "" {
				return usageError("run: database.url is not configured", "Set database.url in "+defaultConfigFile+" or export ERMSEARCH_DATABASE_URL.")
			}

			var extra []search.Option
			var pgOpts []pg.Option
			if opt := s.cfg.Database.Pool.Option(); opt != nil {
				pgOpts = append(pgOpts, opt)
			}
			observer := runtime.QueryObserver{}
			if s.cfg.Observability.QueryLogging {
				observer.Logger = logging.NewQueryLogger(logger)
			}
			if s.cfg.Observability.EmitSpans {
				tracer := tracing.NewOTelTracer(otel.GetTracerProvider(), instrumentationName)
				observer.Tracer = tracer
				pgOpts = append(pgOpts, pg.WithTracer(tracer))
				extra = append(extra, search.WithTracer(tracer))
			}

			b, err := s.build(flags.entity, params, extra...)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := pg.Connect(ctx, s.cfg.Database.URL, pgOpts...)
			if err != nil {
				return wrapError(fmt.Sprintf("run: unable to connect: %v", err), err, "Check database.url and that PostgreSQL is reachable.", exitFailure)
			}
			defer db.Close()
			db.UseObserver(observer)
			logVerbose(cmd, "search %s on %s", b.ID(), b.Entity().Name)

			out := cmd.OutOrStdout()
			count, err := b.Count(ctx, db)
			if err != nil {
				return wrapError(fmt.Sprintf("run: count failed: %v", err), err, "", exitFailure)
			}
			fmt.Fprintf(out, "count: %d\n", count)
			if countOnly || count == 0 {
				return nil
			}
			rel, err := b.Page(page, perPage)
			if err != nil {
				return wrapError(err.Error(), err, "", exitFailure)
			}
			rows, err := db.Select(b.Context(ctx), rel)
			if err != nil {
				return wrapError(fmt.Sprintf("run: select failed: %v", err), err, "", exitFailure)
			}
			return printRows(out, rows)
		},
	}
	cmd.Flags().StringVar(&flags.schema, "schema", "", "YAML entity schema (overrides the project file)")
	cmd.Flags().StringVarP(&flags.entity, "entity", "e", "", "Entity to search")
	cmd.Flags().StringArrayVar(&flags.context, "context", nil, "Policy context value as key=value (repeatable)")
	cmd.Flags().Uint64Var(&page, "page", 1, "Page number, starting at 1")
	cmd.Flags().Uint64Var(&perPage, "per-page", 25, "Rows per page")
	cmd.Flags().BoolVar(&countOnly, "count", false, "Only print the number of matching rows")
	return cmd
}

func printRows(out io.Writer, rows pgx.Rows) error {
	defer rows.Close()
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return wrapError(fmt.Sprintf("run: scan failed: %v", err), err, "", exitFailure)
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = fmt.Sprintf("%s=%v", fields[i].Name, v)
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
	}
	if err := rows.Err(); err != nil {
		return wrapError(fmt.Sprintf("run: %v", err), err, "", exitFailure)
	}
	return nil
}
