package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/medirank/medirank-api/internal/attachment"
	"github.com/medirank/medirank-api/internal/models"
)

// inspectionRecord is the inspections table row. Nested values are kept as
// JSON columns so the row reads like the Mongo document.
type inspectionRecord struct {
	ID                 string         `gorm:"primaryKey;type:uuid"`
	InspectionDate     string         `gorm:"type:varchar(64)"`
	InspectorName      string         `gorm:"not null"`
	InspectorEmail     string         `gorm:"type:varchar(255)"`
	Comments           string         `gorm:"type:text"`
	Status             *string        `gorm:"type:varchar(64);index"`
	Items              datatypes.JSON `gorm:"type:jsonb"`
	Images             datatypes.JSON `gorm:"type:jsonb"`
	InspectorSelfie    datatypes.JSON `gorm:"type:jsonb"`
	InspectorSignature datatypes.JSON `gorm:"type:jsonb"`
	GeoLocation        datatypes.JSON `gorm:"type:jsonb"`
	Hospital           datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt          time.Time      `gorm:"index:idx_inspections_created_at,sort:desc"`
}

func (inspectionRecord) TableName() string {
	return "inspections"
}

func toRecord(in models.Inspection) (inspectionRecord, error) {
	rec := inspectionRecord{
		ID:             in.ID,
		InspectionDate: in.InspectionDate,
		InspectorName:  in.InspectorName,
		InspectorEmail: in.InspectorEmail,
		Comments:       in.Comments,
		CreatedAt:      in.CreatedAt,
	}
	if in.Status != "" {
		status := in.Status
		rec.Status = &status
	}

	cols := []struct {
		dst *datatypes.JSON
		src interface{}
	}{
		{&rec.Items, in.Items},
		{&rec.Images, in.Images},
		{&rec.InspectorSelfie, in.InspectorSelfie},
		{&rec.InspectorSignature, in.InspectorSignature},
		{&rec.GeoLocation, in.GeoLocation},
		{&rec.Hospital, in.Hospital},
	}
	for _, c := range cols {
		b, err := json.Marshal(c.src)
		if err != nil {
			return inspectionRecord{}, err
		}
		*c.dst = datatypes.JSON(b)
	}
	return rec, nil
}

func (rec inspectionRecord) model() (models.Inspection, error) {
	out := models.Inspection{
		ID:             rec.ID,
		InspectionDate: rec.InspectionDate,
		InspectorName:  rec.InspectorName,
		InspectorEmail: rec.InspectorEmail,
		Comments:       rec.Comments,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.Status != nil {
		out.Status = *rec.Status
	}

	var images attachment.List
	cols := []struct {
		src datatypes.JSON
		dst interface{}
	}{
		{rec.Items, &out.Items},
		{rec.Images, &images},
		{rec.InspectorSelfie, &out.InspectorSelfie},
		{rec.InspectorSignature, &out.InspectorSignature},
		{rec.GeoLocation, &out.GeoLocation},
		{rec.Hospital, &out.Hospital},
	}
	for _, c := range cols {
		if len(c.src) == 0 {
			continue
		}
		if err := json.Unmarshal(c.src, c.dst); err != nil {
			return models.Inspection{}, fmt.Errorf("decode inspection %s: %w", rec.ID, err)
		}
	}
	out.Images = images
	fillDefaults(&out)
	return out, nil
}

// PostgresInspectionRepository stores inspections in PostgreSQL through gorm.
type PostgresInspectionRepository struct {
	db *gorm.DB
}

func NewPostgresInspectionRepository(db *gorm.DB) *PostgresInspectionRepository {
	return &PostgresInspectionRepository{db: db}
}

// MigratePostgres creates or updates the users and inspections tables.
func MigratePostgres(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &inspectionRecord{})
}

func (r *PostgresInspectionRepository) Create(ctx context.Context, in *models.Inspection) error {
	fillDefaults(in)
	in.ID = uuid.NewString()
	rec, err := toRecord(*in)
	if err != nil {
		return fmt.Errorf("encode inspection: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		in.ID = ""
		return gormErr("insert inspection", err)
	}
	return nil
}

func (r *PostgresInspectionRepository) Replace(ctx context.Context, id string, in models.Inspection) (models.Inspection, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Inspection{}, ErrNotFound
	}
	fillDefaults(&in)
	rec, err := toRecord(in)
	if err != nil {
		return models.Inspection{}, fmt.Errorf("encode inspection: %w", err)
	}

	res := r.db.WithContext(ctx).
		Model(&inspectionRecord{}).
		Where("id = ?", id).
		Select("*").
		Omit("id", "created_at").
		Updates(&rec)
	if res.Error != nil {
		return models.Inspection{}, gormErr("replace inspection", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Inspection{}, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *PostgresInspectionRepository) FindByID(ctx context.Context, id string) (models.Inspection, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Inspection{}, ErrNotFound
	}
	var rec inspectionRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return models.Inspection{}, gormErr("find inspection", err)
	}
	return rec.model()
}

func (r *PostgresInspectionRepository) List(ctx context.Context, limit int) ([]models.Inspection, error) {
	var recs []inspectionRecord
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(clampLimit(limit)).
		Find(&recs).Error
	if err != nil {
		return nil, gormErr("list inspections", err)
	}

	out := make([]models.Inspection, 0, len(recs))
	for _, rec := range recs {
		m, err := rec.model()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *PostgresInspectionRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status *string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&inspectionRecord{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, gormErr("count statuses", err)
	}

	groups := make(map[string]int64, len(rows))
	for _, row := range rows {
		key := ""
		if row.Status != nil {
			key = *row.Status
		}
		groups[key] += row.Count
	}
	return groups, nil
}

func (r *PostgresInspectionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&inspectionRecord{}).Count(&n).Error; err != nil {
		return 0, gormErr("count inspections", err)
	}
	return n, nil
}

func (r *PostgresInspectionRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&inspectionRecord{})
	if res.Error != nil {
		return gormErr("delete inspection", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresUserRepository stores users in the users table.
type PostgresUserRepository struct {
	db *gorm.DB
}

func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *models.User) error {
	u.ID = uuid.NewString()
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		u.ID = ""
		return gormErr("insert user", err)
	}
	return nil
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return models.User{}, gormErr("find user", err)
	}
	return u, nil
}

// gormErr maps gorm and driver errors onto the package sentinels. The
// connection must be opened with TranslateError so unique violations surface
// as gorm.ErrDuplicatedKey.
func gormErr(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
