package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTransaction(t *testing.T) {
	fnErr := errors.New("function failed")
	driverErr := errors.New("driver failed")

	tests := []struct {
		name      string
		expect    func(mock sqlmock.Sqlmock)
		fn        TxFn
		wantErrIs []error
		wantMsg   string
	}{
		{
			name: "commits on success",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit()
			},
			fn: func(ctx context.Context, tx *sql.Tx) error { return nil },
		},
		{
			name: "rolls back and returns the function error unchanged",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn:        func(ctx context.Context, tx *sql.Tx) error { return ErrCardNotFound },
			wantErrIs: []error{ErrCardNotFound, ErrNotFound},
		},
		{
			name: "begin failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(driverErr)
			},
			fn:        func(ctx context.Context, tx *sql.Tx) error { return nil },
			wantErrIs: []error{ErrTransactionFailed, driverErr},
			wantMsg:   "failed to begin transaction",
		},
		{
			name: "commit failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(driverErr)
			},
			fn:        func(ctx context.Context, tx *sql.Tx) error { return nil },
			wantErrIs: []error{ErrTransactionFailed, driverErr},
			wantMsg:   "failed to commit transaction",
		},
		{
			name: "rollback failure keeps the original error",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback().WillReturnError(driverErr)
			},
			fn:        func(ctx context.Context, tx *sql.Tx) error { return fnErr },
			wantErrIs: []error{ErrTransactionFailed, fnErr},
			wantMsg:   "original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.expect(mock)

			err = RunInTransaction(context.Background(), db, tt.fn)
			if len(tt.wantErrIs) == 0 {
				assert.NoError(t, err)
			}
			for _, target := range tt.wantErrIs {
				assert.ErrorIs(t, err, target)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunInTransactionPanic(t *testing.T) {
	for _, rollbackErr := range []error{nil, errors.New("rollback failed")} {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(rollbackErr)

		assert.PanicsWithValue(t, "boom", func() {
			_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
				panic("boom")
			})
		})

		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	}
}
