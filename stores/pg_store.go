package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-pg/pg/v9"
	"github.com/go-pg/pg/v9/orm"
	"wuyrush.io/valentine/common/logging"
	cst "wuyrush.io/valentine/constants"
	pe "wuyrush.io/valentine/errors"
	md "wuyrush.io/valentine/models"
)

// PgStore is an ExperienceStore implementation driven by PostgreSQL.
type PgStore struct {
	DB *pg.DB
}

type pgExperience struct {
	tableName struct{} `pg:"valentine_experiences,alias:experience"`

	ID              int64     `pg:"id,pk"`
	UniqueID        string    `pg:"unique_id,unique,notnull"`
	CreatorName     string    `pg:"creator_name,notnull"`
	RecipientName   string    `pg:"recipient_name,notnull"`
	CreatorEmail    string    `pg:"creator_email"`
	PersonalMessage string    `pg:"personal_message,notnull"`
	MemoryText      string    `pg:"memory_text"`
	QuestionText    string    `pg:"question_text"`
	ColorPalette    string    `pg:"color_palette,notnull"`
	BackgroundStyle string    `pg:"background_style,notnull"`
	FontStyle       string    `pg:"font_style,notnull"`
	TextEffect      string    `pg:"text_effect,notnull"`
	TextAnimation   string    `pg:"text_animation,notnull"`
	ParticleSystem  string    `pg:"particle_system,notnull,default:'none'"`
	SVGAnimation    string    `pg:"svg_animation,notnull,default:'none'"`
	VideoFilename   string    `pg:"video_filename"`
	CustomCSS       string    `pg:"custom_css"`
	AccessPIN       string    `pg:"access_pin,notnull"`
	CreatorIP       string    `pg:"creator_ip"`
	CreatedAt       time.Time `pg:"created_at,notnull"`
	ExpiresAt       time.Time `pg:"expires_at,notnull"`
	ViewCount       uint64    `pg:"view_count,notnull,use_zero"`
	IsActive        bool      `pg:"is_active,notnull,use_zero"`
	// stored as JSON text
	Metadata string `pg:"metadata,type:text"`
}

type pgView struct {
	tableName struct{} `pg:"experience_views,alias:view"`

	ID           int64     `pg:"id,pk"`
	ExperienceID string    `pg:"experience_id,notnull"`
	ViewerIP     string    `pg:"viewer_ip"`
	ViewedAt     time.Time `pg:"viewed_at,notnull"`
	UserAgent    string    `pg:"user_agent"`
}

var pgIndexes = []string{
	fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_expires_at ON %s (expires_at)", tableExperiences),
	fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_creator_ip ON %s (creator_ip)", tableExperiences),
	fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_views_experience_id ON %s (experience_id)", tableViews),
}

// NewPgStore sets up a connection pool against the PostgreSQL database at url. Connections are made lazily;
// call Ping then Migrate before serving.
func NewPgStore(url string) (*PgStore, error) {
	opt, err := pg.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	return &PgStore{DB: pg.Connect(opt)}, nil
}

// Migrate creates the schema if it does not exist yet.
func (s *PgStore) Migrate() error {
	for _, model := range []interface{}{(*pgExperience)(nil), (*pgView)(nil)} {
		if err := s.DB.Model(model).CreateTable(&orm.CreateTableOptions{IfNotExists: true}); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	for _, stmt := range pgIndexes {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func (s *PgStore) Insert(ctx context.Context, e *md.Experience) *pe.Err {
	const errMsg = "error saving experience"
	clog := logging.WithFuncName().WithField(cst.LogFieldUniqueID, e.UniqueID)
	row, err := toPgExperience(e)
	if err != nil {
		clog.WithError(err).Error("error marshalling experience metadata")
		return pe.NewServiceFailure(errMsg).WithCause(err)
	}
	if _, err := s.DB.ModelContext(ctx, row).Insert(); err != nil {
		if perr, ok := err.(pg.Error); ok && perr.IntegrityViolation() {
			return pe.NewExisted(fmt.Sprintf("experience %s already exists", e.UniqueID)).WithCause(err)
		}
		clog.WithError(err).Error("error inserting experience row")
		return pe.NewDependencyFailure(errMsg).WithCause(err)
	}
	e.ID = row.ID
	return nil
}

func (s *PgStore) Exists(ctx context.Context, uniqueID string) (bool, *pe.Err) {
	ok, err := s.DB.ModelContext(ctx, (*pgExperience)(nil)).Where("unique_id = ?", uniqueID).Exists()
	if err != nil {
		logging.WithFuncName().WithField(cst.LogFieldUniqueID, uniqueID).WithError(err).
			Error("error checking experience existence")
		return false, pe.NewDependencyFailure("error checking experience existence").WithCause(err)
	}
	return ok, nil
}

func (s *PgStore) GetActive(ctx context.Context, uniqueID string, now time.Time) (*md.Experience, *pe.Err) {
	clog := logging.WithFuncName().WithField(cst.LogFieldUniqueID, uniqueID)
	row := &pgExperience{}
	err := s.DB.ModelContext(ctx, row).
		Where("unique_id = ?", uniqueID).
		Where("is_active = TRUE").
		Where("expires_at > ?", now.UTC()).
		Select()
	if err != nil {
		if err == pg.ErrNoRows {
			return nil, errNotFound(uniqueID)
		}
		clog.WithError(err).Error("error getting experience")
		return nil, pe.NewDependencyFailure("error getting experience").WithCause(err)
	}
	e, err := row.toModel()
	if err != nil {
		clog.WithError(err).Error("error unmarshalling experience metadata")
		return nil, pe.NewServiceFailure("error getting experience").WithCause(err)
	}
	return e, nil
}

func (s *PgStore) RecordView(ctx context.Context, v *md.View) *pe.Err {
	clog := logging.WithFuncName().WithField(cst.LogFieldUniqueID, v.ExperienceID)
	err := s.DB.RunInTransaction(func(tx *pg.Tx) error {
		res, err := tx.ModelContext(ctx, (*pgExperience)(nil)).
			Set("view_count = view_count + 1").
			Where("unique_id = ?", v.ExperienceID).
			Update()
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return pg.ErrNoRows
		}
		_, err = tx.ModelContext(ctx, &pgView{
			ExperienceID: v.ExperienceID,
			ViewerIP:     v.ViewerIP,
			ViewedAt:     v.ViewedAt.UTC(),
			UserAgent:    v.UserAgent,
		}).Insert()
		return err
	})
	if err != nil {
		if err == pg.ErrNoRows {
			return errNotFound(v.ExperienceID)
		}
		clog.WithError(err).Error("error recording experience view")
		return pe.NewDependencyFailure("error recording experience view").WithCause(err)
	}
	return nil
}

func (s *PgStore) CountCreatedSince(ctx context.Context, creatorIP string, since time.Time) (int, *pe.Err) {
	n, err := s.DB.ModelContext(ctx, (*pgExperience)(nil)).
		Where("creator_ip = ?", creatorIP).
		Where("created_at > ?", since.UTC()).
		Count()
	if err != nil {
		logging.WithFuncName().WithField(cst.LogFieldCreatorIP, creatorIP).WithError(err).
			Error("error counting experiences of creator")
		return 0, pe.NewDependencyFailure("error counting experiences of creator").WithCause(err)
	}
	return n, nil
}

func (s *PgStore) Ping(ctx context.Context) *pe.Err {
	if _, err := s.DB.ExecContext(ctx, "SELECT 1"); err != nil {
		return pe.NewDependencyFailure("database unreachable").WithCause(err)
	}
	return nil
}

func (s *PgStore) Close() *pe.Err {
	if err := s.DB.Close(); err != nil {
		return pe.NewDependencyFailure("failed closing database").WithCause(err)
	}
	return nil
}

func toPgExperience(e *md.Experience) (*pgExperience, error) {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	mb, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return &pgExperience{
		UniqueID:        e.UniqueID,
		CreatorName:     e.CreatorName,
		RecipientName:   e.RecipientName,
		CreatorEmail:    e.CreatorEmail,
		PersonalMessage: e.Message,
		MemoryText:      e.MemoryText,
		QuestionText:    e.QuestionText,
		ColorPalette:    e.Theme.Palette,
		BackgroundStyle: e.Theme.Background,
		FontStyle:       e.Theme.Font,
		TextEffect:      e.Theme.Effect,
		TextAnimation:   e.Theme.Animation,
		ParticleSystem:  e.Theme.Particles,
		SVGAnimation:    e.Theme.SVGAnimation,
		VideoFilename:   e.VideoFilename,
		CustomCSS:       e.CustomCSS,
		AccessPIN:       e.AccessPIN,
		CreatorIP:       e.CreatorIP,
		CreatedAt:       e.CreatedAt.UTC(),
		ExpiresAt:       e.ExpiresAt.UTC(),
		ViewCount:       e.ViewCount,
		IsActive:        e.Active,
		Metadata:        string(mb),
	}, nil
}

func (r *pgExperience) toModel() (*md.Experience, error) {
	meta := map[string]interface{}{}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &meta); err != nil {
			return nil, err
		}
	}
	return &md.Experience{
		ID:            r.ID,
		UniqueID:      r.UniqueID,
		CreatorName:   r.CreatorName,
		RecipientName: r.RecipientName,
		CreatorEmail:  r.CreatorEmail,
		Message:       r.PersonalMessage,
		MemoryText:    r.MemoryText,
		QuestionText:  r.QuestionText,
		CustomCSS:     r.CustomCSS,
		Theme: md.Theme{
			Palette:      r.ColorPalette,
			Background:   r.BackgroundStyle,
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
	}, nil
}
