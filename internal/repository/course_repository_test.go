package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "code", "subject_id", "semester_id", "capacity", "created_at", "updated_at",
		"subject_code", "subject_name", "semester_name",
	})
}

func TestCourseRepositoryListBySubjectsOnlyActiveSemester(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	now := time.Now()
	rows := courseDetailRows().
		AddRow("course-1", "SE101-SP26", "subj-1", "sem-1", 30, now, now,
			"SE101", "Intro to SE", "Spring 2026")

	mock.ExpectQuery(regexp.QuoteMeta("sem.is_active = TRUE AND c.subject_id IN")).
		WithArgs("subj-1", "subj-2").
		WillReturnRows(rows)

	courses, err := repo.ListBySubjects(context.Background(), []string{"subj-1", "subj-2"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, "SE101-SP26", courses[0].Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListBySubjectsEmptyInput(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	courses, err := repo.ListBySubjects(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, courses)
	require.NoError(t, mock.ExpectationsWereMet())
}
