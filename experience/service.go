// Package experience vends the lifecycle of valentine experiences: creation with id and PIN generation,
// PIN-gated access, view accounting and per-creator quota.
package experience

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"wuyrush.io/valentine/catalog"
	"wuyrush.io/valentine/common/logging"
	rt "wuyrush.io/valentine/common/retry"
	cst "wuyrush.io/valentine/constants"
	pe "wuyrush.io/valentine/errors"
	md "wuyrush.io/valentine/models"
	st "wuyrush.io/valentine/stores"
)

const (
	maxNameLen     = 100
	maxTextLen     = 5000
	maxCSSLen      = 20000
	maxEmailLen    = 254
	defaultIDTries = 10

	msgRateLimited = "Rate limit exceeded. Please try again tomorrow."
)

// Service implements the experience lifecycle on top of an ExperienceStore. The zero values of the
// optional fields are replaced by defaults in NewService.
type Service struct {
	Store   st.ExperienceStore
	Catalog *catalog.Catalog
	// Rand is the source of randomness of ids and PINs
	Rand io.Reader
	Now  func() time.Time
	// Retention is how long an experience stays retrievable after creation
	Retention   time.Duration
	QuotaPerIP  int
	QuotaWindow time.Duration
	// IDRetries bounds regeneration of unique ids upon collision
	IDRetries int64
}

func NewService(store st.ExperienceStore, cat *catalog.Catalog) *Service {
	return &Service{
		Store:       store,
		Catalog:     cat,
		Rand:        rand.Reader,
		Now:         time.Now,
		Retention:   time.Duration(cst.DefaultExperienceExpiryDay) * 24 * time.Hour,
		QuotaPerIP:  cst.DefaultMaxExperiencesPerIP,
		QuotaWindow: cst.DefaultQuotaWindow,
		IDRetries:   defaultIDTries,
	}
}

// Create validates draft, then persists it as a new experience under a freshly generated unique id.
// customPIN is used when it is a valid, non-weak PIN; otherwise a PIN is generated silently.
func (s *Service) Create(ctx context.Context, draft *md.Experience, creatorIP, customPIN string) (string, string, *pe.Err) {
	clog := logging.WithFuncName().WithField(cst.LogFieldCreatorIP, creatorIP)
	count, perr := s.CreatorQuota(ctx, creatorIP)
	if perr != nil {
		return "", "", perr
	}
	if count >= s.QuotaPerIP {
		clog.WithField("count", count).Warn("creator hit experience quota")
		return "", "", pe.NewRateLimited(msgRateLimited)
	}
	e, perr := s.prepare(draft)
	if perr != nil {
		return "", "", perr
	}
	customPIN = strings.TrimSpace(customPIN)
	pin := customPIN
	if !ValidCustomPIN(pin) {
		if customPIN != "" {
			clog.Info("custom PIN refused, generating one instead")
		}
		var err error
		if pin, err = GeneratePIN(s.Rand); err != nil {
			clog.WithError(err).Error("error generating PIN")
			return "", "", pe.NewServiceFailure("error generating PIN").WithCause(err)
		}
	}
	now := s.Now().UTC()
	e.AccessPIN = pin
	e.CreatorIP = creatorIP
	e.CreatedAt = now
	e.ExpiresAt = now.Add(s.Retention)
	e.Active = true
	e.ViewCount = 0

	insert := func() error {
		id, err := NewUniqueID(s.Rand)
		if err != nil {
			return pe.NewServiceFailure("error generating experience id").WithCause(err)
		}
		if ok, perr := s.Store.Exists(ctx, id); perr != nil {
			return perr
		} else if ok {
			return pe.NewExisted(fmt.Sprintf("experience id %s taken", id))
		}
		e.UniqueID = id
		// the id may still be taken between the check and the insert
		if perr := s.Store.Insert(ctx, e); perr != nil {
			return perr
		}
		return nil
	}
	if err := rt.RetryContext(ctx, insert, rt.WithMaxAttempts(s.IDRetries), rt.WithRetryOn(isExisted)); err != nil {
		var perr *pe.Err
		if !errors.As(err, &perr) {
			return "", "", pe.NewServiceFailure("error saving experience").WithCause(err)
		}
		if perr.Is(pe.ErrCodeExisted) {
			clog.WithError(perr).Error("ran out of unique experience ids")
			return "", "", pe.NewServiceFailure("error allocating experience id").WithCause(perr)
		}
		return "", "", perr
	}
	clog.WithField(cst.LogFieldUniqueID, e.UniqueID).Info("experience created")
	return e.UniqueID, e.AccessPIN, nil
}

// Get returns the experience if it is active and unexpired. Unknown, expired and inactive experiences
// all yield the same ErrCodeNotFound error.
func (s *Service) Get(ctx context.Context, uniqueID string) (*md.Experience, *pe.Err) {
	now := s.Now()
	e, perr := s.Store.GetActive(ctx, uniqueID, now)
	if perr != nil {
		return nil, perr
	}
	if !e.Visible(now) {
		logging.WithFuncName().WithField(cst.LogFieldUniqueID, uniqueID).Warn("store returned a hidden experience")
		return nil, pe.NewNotFound("experience " + uniqueID + " not found")
	}
	return e, nil
}

// Authorize checks pin against the experience. The experience is returned only when access is granted;
// the returned error is non-nil only upon storage failures.
func (s *Service) Authorize(ctx context.Context, uniqueID, pin string) (md.AccessResult, *md.Experience, *pe.Err) {
	e, perr := s.Get(ctx, uniqueID)
	if perr != nil {
		if perr.Is(pe.ErrCodeNotFound) {
			return md.AccessNotFound, nil, nil
		}
		return md.AccessNotFound, nil, perr
	}
	if pin == "" {
		return md.AccessPinRequired, nil, nil
	}
	if subtle.ConstantTimeCompare([]byte(pin), []byte(e.AccessPIN)) != 1 {
		logging.WithFuncName().WithField(cst.LogFieldUniqueID, uniqueID).Warn("invalid PIN attempt")
		return md.AccessInvalidPIN, nil, nil
	}
	return md.AccessGranted, e, nil
}

// RecordView counts one authorized view of the experience and logs it.
func (s *Service) RecordView(ctx context.Context, uniqueID, viewerIP, userAgent string) *pe.Err {
	return s.Store.RecordView(ctx, &md.View{
		ExperienceID: uniqueID,
		ViewerIP:     viewerIP,
		ViewedAt:     s.Now().UTC(),
		UserAgent:    userAgent,
	})
}

// CreatorQuota returns the number of experiences creatorIP created within the trailing quota window.
func (s *Service) CreatorQuota(ctx context.Context, creatorIP string) (int, *pe.Err) {
	return s.Store.CountCreatedSince(ctx, creatorIP, s.Now().Add(-s.QuotaWindow))
}

// prepare returns a trimmed, validated copy of draft with theme defaults filled in.
func (s *Service) prepare(draft *md.Experience) (*md.Experience, *pe.Err) {
	if draft == nil {
		return nil, pe.NewValidation("Missing experience")
	}
	e := *draft
	e.CreatorName = strings.TrimSpace(e.CreatorName)
	e.RecipientName = strings.TrimSpace(e.RecipientName)
	e.CreatorEmail = strings.TrimSpace(e.CreatorEmail)
	e.Message = strings.TrimSpace(e.Message)
	e.MemoryText = strings.TrimSpace(e.MemoryText)
	e.QuestionText = strings.TrimSpace(e.QuestionText)
	e.CustomCSS = strings.TrimSpace(e.CustomCSS)
	e.Theme.Palette = strings.TrimSpace(e.Theme.Palette)

	required := []struct{ field, val string }{
		{"creator_name", e.CreatorName},
		{"recipient_name", e.RecipientName},
		{"personal_message", e.Message},
		{"color_palette", e.Theme.Palette},
	}
	for _, r := range required {
		if r.val == "" {
			return nil, pe.NewValidation("Missing required field: " + r.field)
		}
	}
	limits := []struct {
		field string
		val   string
		max   int
	}{
		{"creator_name", e.CreatorName, maxNameLen},
		{"recipient_name", e.RecipientName, maxNameLen},
		{"creator_email", e.CreatorEmail, maxEmailLen},
		{"personal_message", e.Message, maxTextLen},
		{"memory_text", e.MemoryText, maxTextLen},
		{"question_text", e.QuestionText, maxTextLen},
		{"custom_css", e.CustomCSS, maxCSSLen},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.val) > l.max {
			return nil, pe.NewValidation(fmt.Sprintf("Field %s exceeds %d characters", l.field, l.max))
		}
	}
	if e.CreatorEmail != "" {
		// bare addresses only; display names would end up in RCPT TO
		addr, err := mail.ParseAddress(e.CreatorEmail)
		if err != nil {
			return nil, pe.NewValidation("Invalid creator_email").WithCause(err)
		}
		if addr.Name != "" || addr.Address != e.CreatorEmail {
			return nil, pe.NewValidation("Invalid creator_email")
		}
	}
	if e.QuestionText == "" {
		e.QuestionText = fmt.Sprintf("Will you be my Valentine, %s?", e.RecipientName)
	}
	e.Theme = s.Catalog.WithDefaults(e.Theme)
	if perr := s.Catalog.Validate(e.Theme); perr != nil {
		return nil, perr
	}
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	return &e, nil
}

func isExisted(err error) bool {
	var perr *pe.Err
	return errors.As(err, &perr) && perr.Is(pe.ErrCodeExisted)
}
