package cli

import (
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/deicod/ermsearch/search"
)

func newExplainCmd(configPath *string) *cobra.Command {
	var (
		flags     searchFlags
		watchMode bool
	)
	cmd := &cobra.Command{
		Use:   "explain key=value...",
		Short: "Print the SQL a set of search parameters renders to",
		Example: "  ermsearch explain --schema schema.yaml --entity Company name_contains=acme developers_salary_gt=5000\n" +
			"  ermsearch explain --entity Company --watch sort=name.desc",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args)
			if err != nil {
				return wrapError("explain: "+err.Error(), err, "Pass parameters as key=value, e.g. name_contains=acme.", exitUsage)
			}
			s, err := openSession(*configPath, flags, newLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			if watchMode {
				return runWatch(cmd, s, flags.entity, params)
			}
			return explain(cmd.OutOrStdout(), s, flags.entity, params)
		},
	}
	cmd.Flags().StringVar(&flags.schema, "schema", "", "YAML entity schema (overrides the project file)")
	cmd.Flags().StringVarP(&flags.entity, "entity", "e", "", "Entity to search")
	cmd.Flags().StringArrayVar(&flags.context, "context", nil, "Policy context value as key=value (repeatable)")
	cmd.Flags().BoolVar(&watchMode, "watch", false, "Re-render whenever the schema file changes")
	return cmd
}

func explain(out io.Writer, s *session, entity string, params map[string]any) error {
	b, err := s.build(entity, params)
	if err != nil {
		return err
	}
	return renderExplain(out, b)
}

func renderExplain(out io.Writer, b *search.Builder) error {
	sql, args, err := b.ToSQL()
	if err != nil {
		return wrapError(err.Error(), err, "", exitFailure)
	}
	fmt.Fprintf(out, "entity: %s\n", b.Entity().Name)
	values := b.Values()
	if len(values) > 0 {
		fmt.Fprintln(out, "params:")
		for _, key := range slices.Sorted(maps.Keys(values)) {
			fmt.Fprintf(out, "  %s = %v\n", key, values[key])
		}
	}
	fmt.Fprintf(out, "sql: %s\n", sql)
	if len(args) > 0 {
		fmt.Fprintln(out, "args:")
		for i, arg := range args {
			fmt.Fprintf(out, "  $%d = %v (%T)\n", i+1, arg, arg)
		}
	}
	if nodes := b.Graph().Nodes(); len(nodes) > 0 {
		fmt.Fprintln(out, "joins:")
		for _, node := range nodes {
			fmt.Fprintf(out, "  %s -> %s AS %s (depth %d)\n", node.Path(), node.Target.Table, node.Alias, node.Depth)
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, s *session, entity string, params map[string]any) error {
	out := cmd.OutOrStdout()
	if err := explain(out, s, entity, params); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "explain: %v\n", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return wrapError(fmt.Sprintf("explain: watch failed: %v", err), err, "Install inotify/fsevents support and retry.", exitFailure)
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory and filter by name.
	dir := filepath.Dir(s.schema)
	if err := watcher.Add(dir); err != nil {
		return wrapError(fmt.Sprintf("explain: unable to watch %s: %v", dir, err), err, "Ensure the schema directory exists before using --watch.", exitFailure)
	}
	logVerbose(cmd, "watching %s for schema changes", s.schema)

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event := <-watcher.Events:
			if !isSchemaEvent(event, s.schema) {
				continue
			}
			pending = true
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(200 * time.Millisecond)
		case err := <-watcher.Errors:
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "explain: watch error: %v\n", err)
			}
		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			if err := s.reload(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "explain: reload failed: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "---")
			if err := explain(out, s, entity, params); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "explain: %v\n", err)
			}
		}
	}
}

func isSchemaEvent(event fsnotify.Event, schema string) bool {
	if event.Name == "" || filepath.Clean(event.Name) != filepath.Clean(schema) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
