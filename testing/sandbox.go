package testkit

import (
	"context"
	"sync"
	stdtesting "testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/deicod/ermsearch/orm/pg"
	"github.com/deicod/ermsearch/orm/runtime"
)

type mockPool struct {
	pgxmock.PgxConnIface
}

func (m *mockPool) Close() {
	_ = m.PgxConnIface.Close(context.Background())
}

// Sandbox is a pg.DB over a pgxmock connection with QueryMatcherEqual semantics. Every query
// the DB runs is captured until a test installs its own observer.
type Sandbox struct {
	ctx    context.Context
	cancel context.CancelFunc
	mock   pgxmock.PgxConnIface
	db     *pg.DB

	mu      sync.Mutex
	queries []runtime.QueryLog
}

func NewPostgresSandbox(tb stdtesting.TB) *Sandbox {
	tb.Helper()

	mock, err := pgxmock.NewConn(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	if err != nil {
		tb.Fatalf("pgxmock.NewConn: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sandbox{ctx: ctx, cancel: cancel, mock: mock}
	s.db = &pg.DB{
		Pool: &mockPool{PgxConnIface: mock},
		Observer: runtime.QueryObserver{
			Correlator: runtime.ContextCorrelation,
			Logger:     runtime.QueryLoggerFunc(s.capture),
		},
	}
	tb.Cleanup(s.Close)
	return s
}

func (s *Sandbox) capture(_ context.Context, entry runtime.QueryLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, entry)
}

// Queries returns the captured query logs in execution order.
func (s *Sandbox) Queries() []runtime.QueryLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]runtime.QueryLog(nil), s.queries...)
}

// Context is cancelled when the test ends.
func (s *Sandbox) Context() context.Context { return s.ctx }

func (s *Sandbox) Mock() pgxmock.PgxConnIface { return s.mock }

func (s *Sandbox) DB() *pg.DB { return s.db }

// ExpectRows queues a query returning rows over columns.
func (s *Sandbox) ExpectRows(sql string, columns []string, rows [][]any, args ...any) {
	result := s.mock.NewRows(columns)
	for _, row := range rows {
		result.AddRow(row...)
	}
	expectation := s.mock.ExpectQuery(sql)
	if len(args) > 0 {
		expectation = expectation.WithArgs(args...)
	}
	expectation.WillReturnRows(result)
}

// ExpectCount queues a COUNT query returning n.
func (s *Sandbox) ExpectCount(sql string, n int64, args ...any) {
	s.ExpectRows(sql, []string{"count"}, [][]any{{n}}, args...)
}

func (s *Sandbox) Close() {
	s.cancel()
	_ = s.mock.Close(context.Background())
}

// ExpectationsWereMet fails tb if queued queries were not executed.
func (s *Sandbox) ExpectationsWereMet(tb stdtesting.TB) {
	tb.Helper()
	if err := s.mock.ExpectationsWereMet(); err != nil {
		tb.Fatalf("pgx expectations: %v", err)
	}
}
