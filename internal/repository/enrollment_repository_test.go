package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/marovi-edu/tuition-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryExistsNonCancelled(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_offering_id = $2")).
		WithArgs("stud-1", "co-1", string(models.EnrollmentTypeCourse), string(models.EnrollmentStatusCancelled)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsNonCancelled(context.Background(), "stud-1", "co-1", models.EnrollmentTypeCourse)
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsNonCancelledEmpty(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND package_offering_id = $2")).
		WithArgs("stud-1", "po-1", string(models.EnrollmentTypePackage), string(models.EnrollmentStatusCancelled)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsNonCancelled(context.Background(), "stud-1", "po-1", models.EnrollmentTypePackage)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateWithPlan(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_plans")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO installments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	offeringID := "co-1"
	enrollment := &models.Enrollment{
		StudentID:        "stud-1",
		CourseOfferingID: &offeringID,
		EnrollmentType:   models.EnrollmentTypeCourse,
	}
	planID, installmentID, err := repo.CreateWithPlan(context.Background(), enrollment, 150, time.Now().AddDate(0, 0, 7))
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.ID)
	require.NotEmpty(t, planID)
	require.NotEmpty(t, installmentID)
	require.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateWithPlanRollsBack(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_plans")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	offeringID := "co-1"
	_, _, err := repo.CreateWithPlan(context.Background(), &models.Enrollment{
		StudentID:        "stud-1",
		CourseOfferingID: &offeringID,
		EnrollmentType:   models.EnrollmentTypeCourse,
	}, 150, time.Now())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUnpaidInstallments(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	rows := sqlmock.NewRows([]string{"plans", "unpaid"}).AddRow(1, 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(pp.id) AS plans")).
		WithArgs("enr-1", string(models.InstallmentStatusPaid)).
		WillReturnRows(rows)

	hasPlan, unpaid, err := repo.UnpaidInstallments(context.Background(), "enr-1")
	require.NoError(t, err)
	require.True(t, hasPlan)
	require.Equal(t, 2, unpaid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	adminID := "admin-1"
	acceptedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2")).
		WithArgs("enr-1", string(models.EnrollmentStatusAccepted), adminID, acceptedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusAccepted, &adminID, &acceptedAt)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryPackageCoversCourse(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN package_offering_courses poc ON poc.package_offering_id = e.package_offering_id")).
		WithArgs("stud-1", string(models.EnrollmentTypePackage), string(models.EnrollmentStatusCancelled), "co-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	covered, err := repo.PackageCoversCourse(context.Background(), "stud-1", "co-1")
	require.NoError(t, err)
	require.True(t, covered)
	require.NoError(t, mock.ExpectationsWereMet())
}
