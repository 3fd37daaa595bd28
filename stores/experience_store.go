package stores

import (
	"context"
	"strings"
	"time"

	pe "wuyrush.io/valentine/errors"
	md "wuyrush.io/valentine/models"
)

const (
	tableExperiences = "valentine_experiences"
	tableViews       = "experience_views"
)

// ExperienceStore vends the interface to persist experiences and their view log in a relational database.
// All methods return *pe.Err carrying ErrCodeDependencyFailure when the database misbehaves.
type ExperienceStore interface {
	// Insert persists e and sets its internal ID. It returns an ErrCodeExisted error if e.UniqueID is taken
	Insert(ctx context.Context, e *md.Experience) *pe.Err
	// Exists reports whether any experience, visible or not, holds uniqueID
	Exists(ctx context.Context, uniqueID string) (bool, *pe.Err)
	// GetActive returns the experience only if it is active and unexpired at now; ErrCodeNotFound otherwise
	GetActive(ctx context.Context, uniqueID string, now time.Time) (*md.Experience, *pe.Err)
	// RecordView increments the experience's view count and appends v to the view log in one transaction
	RecordView(ctx context.Context, v *md.View) *pe.Err
	// CountCreatedSince counts experiences created by creatorIP after since
	CountCreatedSince(ctx context.Context, creatorIP string, since time.Time) (int, *pe.Err)
	Ping(ctx context.Context) *pe.Err
	Close() *pe.Err
}

// IsPostgresURL reports whether the database url points at PostgreSQL; everything else is taken as a
// SQLite file path.
func IsPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

func errNotFound(uniqueID string) *pe.Err {
	return pe.NewNotFound("experience " + uniqueID + " not found")
}
