package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/marovi-edu/tuition-api/internal/models"
)

func newPaymentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPaymentRepositoryFindInstallment(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	due := time.Now().AddDate(0, 0, 7)
	rows := sqlmock.NewRows([]string{"id", "payment_plan_id", "installment_number", "amount", "due_date", "status", "voucher_url", "rejection_reason", "paid_at", "enrollment_id", "student_id"}).
		AddRow("inst-1", "plan-1", 1, 150.0, due, string(models.InstallmentStatusPending), nil, nil, nil, "enr-1", "stud-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT i.id, i.payment_plan_id")).
		WithArgs("inst-1").
		WillReturnRows(rows)

	detail, err := repo.FindInstallment(context.Background(), "inst-1")
	require.NoError(t, err)
	require.Equal(t, "inst-1", detail.ID)
	require.Equal(t, "enr-1", detail.EnrollmentID)
	require.Equal(t, "stud-1", detail.StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryFindInstallmentMissing(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT i.id, i.payment_plan_id")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindInstallment(context.Background(), "nope")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryAttachVoucher(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE installments SET voucher_url = $2, status = $3, rejection_reason = NULL")).
		WithArgs("inst-1", "/uploads/voucher.png", string(models.InstallmentStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AttachVoucher(context.Background(), "inst-1", "/uploads/voucher.png"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryReject(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	reason := "voucher ilegible"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE installments SET status = $2, rejection_reason = $3, voucher_url = NULL, paid_at = NULL")).
		WithArgs("inst-1", string(models.InstallmentStatusOverdue), reason).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Reject(context.Background(), "inst-1", models.InstallmentStatusOverdue, &reason))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositorySweepOverdue(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE installments SET status = $1")).
		WithArgs(string(models.InstallmentStatusOverdue), string(models.InstallmentStatusPending), now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.SweepOverdue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, int64(3), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryCountUnpaid(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM installments WHERE payment_plan_id = $1")).
		WithArgs("plan-1", string(models.InstallmentStatusPaid)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountUnpaid(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
