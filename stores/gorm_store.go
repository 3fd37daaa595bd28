package stores

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"wuyrush.io/valentine/common/logging"
	cst "wuyrush.io/valentine/constants"
	pe "wuyrush.io/valentine/errors"
	md "wuyrush.io/valentine/models"
)

// GormStore is an ExperienceStore implementation driven by SQLite through gorm.
type GormStore struct {
	DB *gorm.DB
}

type experienceRow struct {
	ID             int64             `gorm:"primaryKey;autoIncrement"`
	UniqueID       string            `gorm:"type:text;not null;uniqueIndex:idx_unique_id"`
	CreatorName    string            `gorm:"type:text;not null"`
	RecipientName  string            `gorm:"type:text;not null"`
	CreatorEmail   string            `gorm:"type:text"`
	PersonalMsg    string            `gorm:"column:personal_message;type:text;not null"`
	MemoryText     string            `gorm:"type:text"`
	QuestionText   string            `gorm:"type:text"`
	ColorPalette   string            `gorm:"type:text;not null"`
	BackgroundStyl string            `gorm:"column:background_style;type:text;not null"`
	FontStyle      string            `gorm:"type:text;not null"`
	TextEffect     string            `gorm:"type:text;not null"`
	TextAnimation  string            `gorm:"type:text;not null"`
	ParticleSystem string            `gorm:"type:text;not null;default:none"`
	SVGAnimation   string            `gorm:"column:svg_animation;type:text;not null;default:none"`
	VideoFilename  string            `gorm:"type:text"`
	CustomCSS      string            `gorm:"column:custom_css;type:text"`
	AccessPIN      string            `gorm:"column:access_pin;type:text;not null"`
	CreatorIP      string            `gorm:"column:creator_ip;type:text;index:idx_creator_ip"`
	CreatedAt      time.Time         `gorm:"not null"`
	ExpiresAt      time.Time         `gorm:"not null;index:idx_expires_at"`
	ViewCount      uint64            `gorm:"not null;default:0"`
	IsActive       bool              `gorm:"not null"`
	Metadata       datatypes.JSONMap `gorm:"type:text"`
}

func (experienceRow) TableName() string { return tableExperiences }

type viewRow struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	ExperienceID string    `gorm:"type:text;not null;index:idx_views_experience_id"`
	ViewerIP     string    `gorm:"column:viewer_ip;type:text"`
	ViewedAt     time.Time `gorm:"not null"`
	UserAgent    string    `gorm:"type:text"`
}

func (viewRow) TableName() string { return tableViews }

// NewGormStore opens (creating if needed) the SQLite database file at path and migrates its schema.
func NewGormStore(path string) (*GormStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	// concurrent requests write to the same file; let them wait on the lock instead of failing
	dsn := path + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&experienceRow{}, &viewRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) Insert(ctx context.Context, e *md.Experience) *pe.Err {
	const errMsg = "error saving experience"
	clog := logging.WithFuncName().WithField(cst.LogFieldUniqueID, e.UniqueID)
	row := toExperienceRow(e)
	if err := s.DB.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return pe.NewExisted(fmt.Sprintf("experience %s already exists", e.UniqueID)).WithCause(err)
		}
		clog.WithError(err).Error("error inserting experience row")
		return pe.NewDependencyFailure(errMsg).WithCause(err)
	}
	e.ID = row.ID
	return nil
}

func (s *GormStore) Exists(ctx context.Context, uniqueID string) (bool, *pe.Err) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&experienceRow{}).Where("unique_id = ?", uniqueID).Count(&n).Error; err != nil {
		logging.WithFuncName().WithField(cst.LogFieldUniqueID, uniqueID).WithError(err).
			Error("error checking experience existence")
		return false, pe.NewDependencyFailure("error checking experience existence").WithCause(err)
	}
	return n > 0, nil
}

func (s *GormStore) GetActive(ctx context.Context, uniqueID string, now time.Time) (*md.Experience, *pe.Err) {
	var row experienceRow
	err := s.DB.WithContext(ctx).
		Where("unique_id = ? AND is_active = ? AND expires_at > ?", uniqueID, true, now.UTC()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound(uniqueID)
		}
		logging.WithFuncName().WithField(cst.LogFieldUniqueID, uniqueID).WithError(err).
			Error("error getting experience")
		return nil, pe.NewDependencyFailure("error getting experience").WithCause(err)
	}
	return row.toModel(), nil
}

func (s *GormStore) RecordView(ctx context.Context, v *md.View) *pe.Err {
	clog := logging.WithFuncName().WithField(cst.LogFieldUniqueID, v.ExperienceID)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&experienceRow{}).
			Where("unique_id = ?", v.ExperienceID).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&viewRow{
			ExperienceID: v.ExperienceID,
			ViewerIP:     v.ViewerIP,
			ViewedAt:     v.ViewedAt.UTC(),
			UserAgent:    v.UserAgent,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNotFound(v.ExperienceID)
		}
		clog.WithError(err).Error("error recording experience view")
		return pe.NewDependencyFailure("error recording experience view").WithCause(err)
	}
	return nil
}

func (s *GormStore) CountCreatedSince(ctx context.Context, creatorIP string, since time.Time) (int, *pe.Err) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&experienceRow{}).
		Where("creator_ip = ? AND created_at > ?", creatorIP, since.UTC()).
		Count(&n).Error
	if err != nil {
		logging.WithFuncName().WithField(cst.LogFieldCreatorIP, creatorIP).WithError(err).
			Error("error counting experiences of creator")
		return 0, pe.NewDependencyFailure("error counting experiences of creator").WithCause(err)
	}
	return int(n), nil
}

func (s *GormStore) Ping(ctx context.Context) *pe.Err {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return pe.NewDependencyFailure("error getting database handle").WithCause(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return pe.NewDependencyFailure("database unreachable").WithCause(err)
	}
	return nil
}

func (s *GormStore) Close() *pe.Err {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return pe.NewDependencyFailure("error getting database handle").WithCause(err)
	}
	if err := sqlDB.Close(); err != nil {
		return pe.NewDependencyFailure("failed closing database").WithCause(err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toExperienceRow(e *md.Experience) *experienceRow {
	return &experienceRow{
		UniqueID:       e.UniqueID,
		CreatorName:    e.CreatorName,
		RecipientName:  e.RecipientName,
		CreatorEmail:   e.CreatorEmail,
		PersonalMsg:    e.Message,
		MemoryText:     e.MemoryText,
		QuestionText:   e.QuestionText,
		ColorPalette:   e.Theme.Palette,
		BackgroundStyl: e.Theme.Background,
		FontStyle:      e.Theme.Font,
		TextEffect:     e.Theme.Effect,
		TextAnimation:  e.Theme.Animation,
		ParticleSystem: e.Theme.Particles,
		SVGAnimation:   e.Theme.SVGAnimation,
		VideoFilename:  e.VideoFilename,
		CustomCSS:      e.CustomCSS,
		AccessPIN:      e.AccessPIN,
		CreatorIP:      e.CreatorIP,
		CreatedAt:      e.CreatedAt.UTC(),
		ExpiresAt:      e.ExpiresAt.UTC(),
		ViewCount:      e.ViewCount,
		IsActive:       e.Active,
		Metadata:       datatypes.JSONMap(e.Metadata),
	}
}

func (r *experienceRow) toModel() *md.Experience {
	meta := map[string]interface{}(r.Metadata)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return &md.Experience{
		ID:            r.ID,
		UniqueID:      r.UniqueID,
		CreatorName:   r.CreatorName,
		RecipientName: r.RecipientName,
		CreatorEmail:  r.CreatorEmail,
		Message:       r.PersonalMsg,
		MemoryText:    r.MemoryText,
		QuestionText:  r.QuestionText,
		CustomCSS:     r.CustomCSS,
		Theme: md.Theme{
			Palette:      r.ColorPalette,
			Background:   r.BackgroundStyl,
			Font:         r.FontStyle,
			Effect:       r.TextEffect,
			Animation:    r.TextAnimation,
			Particles:    r.ParticleSystem,
			SVGAnimation: r.SVGAnimation,
		},
		VideoFilename: r.VideoFilename,
		AccessPIN:     r.AccessPIN,
		CreatorIP:     r.CreatorIP,
		CreatedAt:     r.CreatedAt,
		ExpiresAt:     r.ExpiresAt,
		ViewCount:     r.ViewCount,
		Active:        r.IsActive,
		Metadata:      meta,
	}
}
