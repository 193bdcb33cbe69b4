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

	"github.com/zus-pop/academix-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrollmentDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "course_id", "status", "grades", "created_at", "updated_at",
		"student_code", "student_name", "course_code", "subject_code", "subject_name", "semester_name",
	})
}

func TestEnrollmentRepositoryCreateInsertsSessions(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	sessions := 3

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i := 0; i < sessions; i++ {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	enrollment := &models.Enrollment{
		StudentID: "student-1",
		CourseID:  "course-1",
	}
	require.NoError(t, repo.Create(context.Background(), enrollment, sessions))
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.EnrollmentInProgress, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateRollsBackOnSessionFailure(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	enrollment := &models.Enrollment{StudentID: "student-1", CourseID: "course-1"}
	require.Error(t, repo.Create(context.Background(), enrollment, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	now := time.Now()
	rows := enrollmentDetailRows().
		AddRow("enr-1", "student-1", "course-1", "IN PROGRESS", []byte("[]"), now, now,
			"SE170001", "Alice Nguyen", "SE101-SP26", "SE101", "Intro to SE", "Spring 2026")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.id, e.student_id, e.course_id")).
		WithArgs("student-1", "IN PROGRESS").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("student-1", "IN PROGRESS").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{
		StudentID: "student-1",
		Status:    "IN PROGRESS",
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, enrollments, 1)
	require.Equal(t, "SE170001", enrollments[0].StudentCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateGradesMissingRow(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET grades")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateGrades(context.Background(), "missing", models.GradeEntries{}, models.EnrollmentInProgress)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteRemovesSessions(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendances WHERE enrollment_id")).
		WithArgs("enr-1").
		WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE id")).
		WithArgs("enr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "enr-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListForExportScopes(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	now := time.Now()
	courseID := "course-1"
	rows := enrollmentDetailRows().
		AddRow("enr-1", "student-1", courseID, "PASSED", []byte(`[{"type":"final","weight":1,"score":8}]`), now, now,
			"SE170001", "Alice Nguyen", "SE101-SP26", "SE101", "Intro to SE", "Spring 2026")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.id, e.student_id, e.course_id")).
		WithArgs("sem-1", courseID).
		WillReturnRows(rows)

	exported, err := repo.ListForExport(context.Background(), "sem-1", &courseID, nil)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	require.Equal(t, models.EnrollmentPassed, exported[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
