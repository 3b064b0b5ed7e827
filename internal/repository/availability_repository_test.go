package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func newAvailabilityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAvailabilityRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "faculty_id", "rule", "unavailable_slots", "created_at", "updated_at"}).
		AddRow("a1", "f1", "TEACHER_AVAILABILITY", "{Mon_1,Tue_1}", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, faculty_id, rule, unavailable_slots, created_at, updated_at FROM availability_constraints WHERE rule = $1")).
		WithArgs(models.AvailabilityRuleTeacherAvailability).
		WillReturnRows(rows)

	list, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "f1", list[0].FacultyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("INSERT INTO availability_constraints").
		WithArgs(sqlmock.AnyArg(), "f1", models.AvailabilityRuleTeacherAvailability, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Upsert(context.Background(), &models.AvailabilityConstraint{FacultyID: "f1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
