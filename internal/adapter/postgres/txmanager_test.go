package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/heartmarshall/inquiry-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inquiry-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

func eventCount(t *testing.T, pool *pgxpool.Pool, inquiryID uuid.UUID) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT count(*) FROM inquiry_events WHERE inquiry_id = $1`, inquiryID,
	).Scan(&n)
	if err != nil {
		t.Fatalf("eventCount query: %v", err)
	}
	return n
}

func insertEvent(ctx context.Context, q postgres.Querier, inquiryID uuid.UUID) error {
	_, err := q.Exec(ctx,
		`INSERT INTO inquiry_events (id, type, inquiry_id) VALUES ($1, 'inquiry.created', $2)`,
		uuid.New(), inquiryID,
	)
	return err
}

func TestRunInTx_Commit(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	inq := testhelper.SeedInquiry(t, pool, domain.ApprovalPending)

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return insertEvent(ctx, postgres.QuerierFromCtx(ctx, pool), inq.ID)
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}
	if got := eventCount(t, pool, inq.ID); got != 1 {
		t.Fatalf("expected 1 event after commit, got %d", got)
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	inq := testhelper.SeedInquiry(t, pool, domain.ApprovalPending)
	sentinel := errors.New("business logic error")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if err := insertEvent(ctx, postgres.QuerierFromCtx(ctx, pool), inq.ID); err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
	if got := eventCount(t, pool, inq.ID); got != 0 {
		t.Fatalf("expected rollback, found %d events", got)
	}
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	inq := testhelper.SeedInquiry(t, pool, domain.ApprovalPending)

	defer func() {
		if r := recover(); r != "test panic" {
			t.Fatalf("expected re-raised panic %q, got %v", "test panic", r)
		}
		if got := eventCount(t, pool, inq.ID); got != 0 {
			t.Fatalf("expected rollback after panic, found %d events", got)
		}
	}()

	_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if err := insertEvent(ctx, postgres.QuerierFromCtx(ctx, pool), inq.ID); err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		panic("test panic")
	})
}

func TestRunInTx_Mock(t *testing.T) {
	t.Parallel()

	t.Run("commit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatal(err)
		}
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO inquiry_events`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		tm := postgres.NewTxManager(mock)
		err = tm.RunInTx(context.Background(), func(ctx context.Context) error {
			if !postgres.InTx(ctx) {
				t.Error("expected ctx to carry the tx")
			}
			return insertEvent(ctx, postgres.QuerierFromCtx(ctx, mock), uuid.New())
		})
		if err != nil {
			t.Fatalf("RunInTx: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("nested joins outer", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatal(err)
		}
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		tm := postgres.NewTxManager(mock)
		sentinel := errors.New("inner failed")
		err = tm.RunInTx(context.Background(), func(ctx context.Context) error {
			return tm.RunInTx(ctx, func(context.Context) error { return sentinel })
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected sentinel, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("begin fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatal(err)
		}
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		tm := postgres.NewTxManager(mock)
		called := false
		err = tm.RunInTx(context.Background(), func(context.Context) error {
			called = true
			return nil
		})
		if err == nil || called {
			t.Fatalf("expected begin error without calling fn, err=%v called=%v", err, called)
		}
	})
}
