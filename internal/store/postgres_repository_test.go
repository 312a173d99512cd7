package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/veilon/account-service/internal/domain"
)

// scanFunc adapts a function to the pgx.Row interface so tests can script the
// rows a transaction returns.
type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// fakeTx is a scripted pgx.Tx. Each QueryRow call consumes the next entry in
// rows; Commit and Rollback record whether the transaction was finalized.
type fakeTx struct {
	rows       []scanFunc
	queryRows  int
	committed  bool
	rolledBack bool
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if t.queryRows >= len(t.rows) {
		return scanFunc(func(...any) error { return errors.New("unexpected query") })
	}
	row := t.rows[t.queryRows]
	t.queryRows++
	return row
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not supported")
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not supported")
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (t *fakeTx) Conn() *pgx.Conn { return nil }

type fakeDB struct {
	tx *fakeTx
}

func (d *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) { return d.tx, nil }

func (d *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (d *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return scanFunc(func(...any) error { return errors.New("not supported") })
}

// accountScan fills the destinations of a scanAccount call from a.
func accountScan(a domain.Account) scanFunc {
	return func(dest ...any) error {
		*(dest[0].(*int64)) = a.ID
		*(dest[1].(*int64)) = a.UserID
		*(dest[2].(*int64)) = a.PlanID
		*(dest[3].(*decimal.Decimal)) = a.Balance
		*(dest[4].(**int)) = a.Phase
		*(dest[5].(*bool)) = a.IsEnabled
		*(dest[6].(*bool)) = a.InReview
		*(dest[7].(*bool)) = a.IsFunded
		*(dest[8].(**time.Time)) = a.FundedAt
		*(dest[9].(**time.Time)) = a.ClosedAt
		*(dest[10].(*string)) = a.Notes
		*(dest[11].(**time.Time)) = a.NotesUpdatedAt
		*(dest[12].(**int64)) = a.NotesUpdatedByUserID
		*(dest[13].(*time.Time)) = a.CreatedAt
		return nil
	}
}

func eventScan(id int64, occurredAt time.Time) scanFunc {
	return func(dest ...any) error {
		*(dest[0].(*int64)) = id
		*(dest[1].(*time.Time)) = occurredAt
		return nil
	}
}

func openAccount() domain.Account {
	phase := 1
	return domain.Account{
		ID:        1,
		UserID:    10,
		PlanID:    1,
		Balance:   decimal.RequireFromString("10000"),
		Phase:     &phase,
		IsEnabled: true,
		CreatedAt: time.Now(),
	}
}

func TestMutationRollsBackWhenLedgerWriteFails(t *testing.T) {
	account := openAccount()
	updated := account
	updated.Balance = decimal.RequireFromString("5000")

	tx := &fakeTx{rows: []scanFunc{
		accountScan(account), // SELECT ... FOR UPDATE
		accountScan(updated), // UPDATE ... RETURNING
		func(dest ...any) error { return errors.New("write failed") }, // ledger insert
	}}
	repo := &PostgresRepository{db: &fakeDB{tx: tx}}

	_, _, err := repo.SetBalance(context.Background(), account.ID, updated.Balance, domain.SystemActor())
	if err == nil {
		t.Fatalf("expected error when the ledger write fails")
	}
	if tx.committed {
		t.Fatalf("mutation must not commit when the ledger write fails")
	}
	if !tx.rolledBack {
		t.Fatalf("expected the transaction to be rolled back")
	}
}

func TestMutationCommitsWithLedgerEvent(t *testing.T) {
	account := openAccount()
	updated := account
	updated.Balance = decimal.RequireFromString("5000")
	occurredAt := time.Now()

	tx := &fakeTx{rows: []scanFunc{
		accountScan(account),
		accountScan(updated),
		eventScan(42, occurredAt),
	}}
	repo := &PostgresRepository{db: &fakeDB{tx: tx}}

	got, event, err := repo.SetBalance(context.Background(), account.ID, updated.Balance, domain.SystemActor())
	if err != nil {
		t.Fatalf("SetBalance returned error: %v", err)
	}
	if !tx.committed {
		t.Fatalf("expected the transaction to commit")
	}
	if tx.rolledBack {
		t.Fatalf("committed transaction must not roll back")
	}
	if got.Balance.String() != "5000" {
		t.Errorf("expected updated balance 5000, got %s", got.Balance.String())
	}
	if event.ID != 42 || event.EventType != domain.EventBalanceSet {
		t.Errorf("expected ledger event 42 of type %s, got %+v", domain.EventBalanceSet, event)
	}
	if !event.OccurredAt.Equal(occurredAt) {
		t.Errorf("expected occurred_at from the database, got %v", event.OccurredAt)
	}
}

func TestMutationGuardChecksLockedRow(t *testing.T) {
	account := openAccount()
	now := time.Now()
	account.ClosedAt = &now

	tx := &fakeTx{rows: []scanFunc{accountScan(account)}}
	repo := &PostgresRepository{db: &fakeDB{tx: tx}}

	_, _, err := repo.SetBalance(context.Background(), account.ID, decimal.RequireFromString("5000"), domain.SystemActor())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for closed account, got %v", err)
	}
	if tx.committed {
		t.Fatalf("guarded command must not commit")
	}
	if tx.queryRows != 1 {
		t.Fatalf("guarded command must stop after the locking read, ran %d statements", tx.queryRows)
	}
}

func TestMutationReportsMissingAccount(t *testing.T) {
	tx := &fakeTx{rows: []scanFunc{
		func(dest ...any) error { return pgx.ErrNoRows },
	}}
	repo := &PostgresRepository{db: &fakeDB{tx: tx}}

	_, _, err := repo.SetBalance(context.Background(), 404, decimal.RequireFromString("1"), domain.SystemActor())
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if tx.committed {
		t.Fatalf("missing account must not commit")
	}
}
