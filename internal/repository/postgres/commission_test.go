package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommissionRepository_Credit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepository(mock)
	ctx := context.Background()

	event := domain.CommissionEvent{
		OrderID:       "order-1",
		BeneficiaryID: 10,
		SellerID:      10,
		Amount:        50,
		Hop:           0,
	}

	t.Run("New event credits cc and returns upline", func(t *testing.T) {
		next := int64(20)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO commission_events`).
			WithArgs("order-1", int64(10), int64(10), 50.0, 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectQuery(`UPDATE users SET cc = cc \+`).
			WithArgs(int64(10), 50.0).
			WillReturnRows(pgxmock.NewRows([]string{"referred_by"}).AddRow(&next))
		mock.ExpectCommit()

		got, applied, err := repo.Credit(ctx, event)
		require.NoError(t, err)
		assert.True(t, applied)
		require.NotNil(t, got)
		assert.Equal(t, int64(20), *got)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate event skips credit but still walks", func(t *testing.T) {
		var next *int64

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO commission_events`).
			WithArgs("order-1", int64(10), int64(10), 50.0, 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectQuery(`SELECT referred_by FROM users`).
			WithArgs(int64(10)).
			WillReturnRows(pgxmock.NewRows([]string{"referred_by"}).AddRow(next))
		mock.ExpectCommit()

		got, applied, err := repo.Credit(ctx, event)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Nil(t, got)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing beneficiary", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO commission_events`).
			WithArgs("order-1", int64(10), int64(10), 50.0, 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectQuery(`UPDATE users SET cc = cc \+`).
			WithArgs(int64(10), 50.0).
			WillReturnRows(pgxmock.NewRows([]string{"referred_by"}))
		mock.ExpectRollback()

		_, _, err := repo.Credit(ctx, event)
		assert.ErrorIs(t, err, ErrUserNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database error on insert", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO commission_events`).
			WithArgs("order-1", int64(10), int64(10), 50.0, 0).
			WillReturnError(errors.New("database error"))
		mock.ExpectRollback()

		_, _, err := repo.Credit(ctx, event)
		assert.Error(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCommissionRepository_PendingTasks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepository(mock)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "order_id", "status", "attempts", "last_error", "created_at", "updated_at"}).
			AddRow(int64(1), "order-1", domain.TaskStatusPending, 0, nil, now(), now()).
			AddRow(int64(2), "order-2", domain.TaskStatusPending, 1, nil, now(), now())

		mock.ExpectQuery(`SELECT id, order_id, status`).
			WithArgs(domain.TaskStatusPending, 10).
			WillReturnRows(rows)

		tasks, err := repo.PendingTasks(ctx, 10)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "order-1", tasks[0].OrderID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, order_id, status`).
			WithArgs(domain.TaskStatusPending, 10).
			WillReturnError(errors.New("database error"))

		_, err := repo.PendingTasks(ctx, 10)
		assert.Error(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCommissionRepository_MarkTask(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepository(mock)
	ctx := context.Background()

	t.Run("Done", func(t *testing.T) {
		mock.ExpectExec(`UPDATE commission_tasks`).
			WithArgs(int64(1), domain.TaskStatusDone).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.MarkTaskDone(ctx, 1)
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed with reason", func(t *testing.T) {
		mock.ExpectExec(`UPDATE commission_tasks`).
			WithArgs(int64(1), domain.TaskStatusFailed, "referral cycle").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.MarkTaskFailed(ctx, 1, "referral cycle")
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown task", func(t *testing.T) {
		mock.ExpectExec(`UPDATE commission_tasks`).
			WithArgs(int64(99), domain.TaskStatusDone).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.MarkTaskDone(ctx, 99)
		assert.ErrorIs(t, err, ErrTaskNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
