package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/medirank/medirank-api/internal/attachment"
	"github.com/medirank/medirank-api/internal/models"
)

var inspectionColumns = []string{
	"id", "inspection_date", "inspector_name", "inspector_email", "comments", "status",
	"items", "images", "inspector_selfie", "inspector_signature", "geo_location", "hospital", "created_at",
}

func setupMockGorm(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock, gdb
}

func TestPostgresInspection_Create(t *testing.T) {
	db, mock, gdb := setupMockGorm(t)
	defer db.Close()
	repo := NewPostgresInspectionRepository(gdb)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "inspections"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	in := &models.Inspection{InspectorName: "Asha", Status: "draft", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(context.Background(), in))
	_, err := uuid.Parse(in.ID)
	assert.NoError(t, err)
	assert.NotNil(t, in.Items)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInspection_FindByID(t *testing.T) {
	db, mock, gdb := setupMockGorm(t)
	defer db.Close()
	repo := NewPostgresInspectionRepository(gdb)

	id := uuid.NewString()
	created := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(inspectionColumns).AddRow(
		id, "2024-03-02", "Asha", "asha@example.com", "ok", "completed",
		`[{"item_number":1,"item_text":"Fire exit","response":"yes","location_action":"","action_date":"","photo":null,"doc":null}]`,
		`["https://b.s3.ap-south-1.amazonaws.com/k1.jpg"]`,
		`null`,
		`{"url":"https://b.s3.ap-south-1.amazonaws.com/sig.jpg","key":"sig.jpg","type":"image/png"}`,
		`{"lat":12.5,"lng":77.1}`,
		`{"name":"City","address":"Main","logo":null,"images":[]}`,
		created,
	)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "inspections" WHERE id = $1`)).WillReturnRows(rows)

	got, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "completed", got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Fire exit", got.Items[0].ItemText)
	assert.Equal(t, attachment.List{attachment.FromURL("https://b.s3.ap-south-1.amazonaws.com/k1.jpg")}, got.Images)
	assert.True(t, got.InspectorSelfie.IsZero())
	assert.Equal(t, "sig.jpg", got.InspectorSignature.Key)
	require.NotNil(t, got.GeoLocation)
	assert.Equal(t, 77.1, got.GeoLocation.Lng)
	require.NotNil(t, got.Hospital)
	assert.Equal(t, "City", got.Hospital.Name)
	assert.Equal(t, created, got.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInspection_FindByIDNotFound(t *testing.T) {
	db, mock, gdb := setupMockGorm(t)
	defer db.Close()
	repo := NewPostgresInspectionRepository(gdb)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "inspections"`)).
		WillReturnRows(sqlmock.NewRows(inspectionColumns))

	_, err := repo.FindByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	// malformed ids never reach the database
	_, err = repo.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInspection_CountByStatus(t *testing.T) {
	db, mock, gdb := setupMockGorm(t)
	defer db.Close()
	repo := NewPostgresInspectionRepository(gdb)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("draft", 3).
		AddRow(nil, 2).
		AddRow("completed", 1)
	mock.ExpectQuery(`GROUP BY`).WillReturnRows(rows)

	groups, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"draft": 3, "": 2, "completed": 1}, groups)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInspection_Delete(t *testing.T) {
	db, mock, gdb := setupMockGorm(t)
	defer db.Close()
	repo := NewPostgresInspectionRepository(gdb)

	id := uuid.NewString()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "inspections"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "inspections"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), id))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUser_FindByEmail(t *testing.T) {
	db, mock, gdb := setupMockGorm(t)
	defer db.Close()
	repo := NewPostgresUserRepository(gdb)

	id := uuid.NewString()
	rows := sqlmock.NewRows([]string{"id", "email", "password", "name", "created_at"}).
		AddRow(id, "a@b.c", "$2a$10$hash", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).WillReturnRows(rows)

	u, err := repo.FindByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "$2a$10$hash", u.PasswordHash)
	assert.Nil(t, u.Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormErr(t *testing.T) {
	assert.ErrorIs(t, gormErr("op", gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, gormErr("op", gorm.ErrDuplicatedKey), ErrDuplicate)
	assert.ErrorIs(t, gormErr("op", context.DeadlineExceeded), ErrUnavailable)

	err := gormErr("op", errors.New("syntax error"))
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "syntax error")
}
