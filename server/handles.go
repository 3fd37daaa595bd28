package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"wuyrush.io/valentine/catalog"
	"wuyrush.io/valentine/common/logging"
	cst "wuyrush.io/valentine/constants"
	"wuyrush.io/valentine/email"
	"wuyrush.io/valentine/experience"
	pe "wuyrush.io/valentine/errors"
	md "wuyrush.io/valentine/models"
	st "wuyrush.io/valentine/stores"
)

const (
	sessionName     = "valentine"
	appVersion      = "1.0.0"
	metadataVersion = "1.0"

	msgCreated          = "Your Valentine's Day experience has been created successfully!"
	msgCreateFailed     = "Failed to create experience. Please try again."
	msgVideoTooLarge    = "File too large! Please upload a smaller video (max %d MB)"
	msgExperienceGone   = "This Valentine's experience doesn't exist or has expired 💔"
	msgExperienceFailed = "Error loading this Valentine's experience 💔"
	msgPageNotFound     = "Page not found, but love is everywhere! 💕"
	msgInvalidPIN       = "Invalid PIN. Please try again."
	msgTooManyAttempts  = "Too many wrong PINs. Please try again later."
)

var tmplFuncs = template.FuncMap{
	// catalog values are trusted
	"css": func(s string) template.CSS { return template.CSS(s) },
	// creator CSS must never close the style element it is rendered in
	"creatorCSS": func(s string) template.CSS {
		return template.CSS(strings.NewReplacer("<", `\3c `, ">", `\3e `).Replace(s))
	},
}

func mustParseTemplate(clog *logrus.Entry, name string) *template.Template {
	tmplPath := "templates/" + name
	tmpl, err := template.New(name).Funcs(tmplFuncs).ParseFS(assets, tmplPath)
	if err != nil {
		// fail early if err since this is critical path
		clog.WithError(err).WithField("templatePath", tmplPath).Fatal("html template not loaded")
	}
	return tmpl
}

func (s *valentineServer) HandleGetCreatePage() httprouter.Handle {
	clog := logging.WithFuncName().WithField("httpMethod", http.MethodGet)
	tmpl := mustParseTemplate(clog, "index.html")
	type View struct {
		Catalog        interface{}
		PaletteKeys    []string
		MaxUploadBytes int64
	}
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		execTemplateLog(tmpl, w, View{
			Catalog:        s.Catalog.Table(),
			PaletteKeys:    s.Catalog.PaletteKeys(),
			MaxUploadBytes: s.MaxReqBodySize,
		}, clog)
	}
}

type createResp struct {
	Success   bool   `json:"success"`
	UniqueID  string `json:"unique_id,omitempty"`
	AccessPIN string `json:"access_pin,omitempty"`
	URL       string `json:"url,omitempty"`
	Message   string `json:"message,omitempty"`
	Err       string `json:"error,omitempty"`
}

/*
	Quota is checked before the upload is stored so that rate limited creators cannot fill up file storage;
	the service checks it again when inserting. A stored upload is removed again if the experience cannot
	be created.
*/
func (s *valentineServer) HandleCreateExperience() httprouter.Handle {
	clog := logging.WithFuncName().WithField("httpMethod", http.MethodPost)
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := r.Context()
		ip := clientIP(r)
		rlog := clog.WithField(cst.LogFieldCreatorIP, ip)
		// limit request size and parse request form
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxReqBodySize)
		if err := parseCreateForm(r); err != nil {
			if isBodyTooLarge(err) {
				rlog.WithError(err).Warn("request oversized")
				writeJSON(w, http.StatusRequestEntityTooLarge, createResp{
					Err: fmt.Sprintf(msgVideoTooLarge, s.MaxReqBodySize>>20),
				}, rlog)
				return
			}
			rlog.WithError(err).Warn("error parsing form")
			writeJSON(w, http.StatusBadRequest, createResp{Err: "error parsing form"}, rlog)
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		count, perr := s.ES.CreatorQuota(ctx, ip)
		if perr != nil {
			s.writeCreateErr(w, perr, rlog)
			return
		}
		if count >= s.QuotaPerIP {
			rlog.WithField("count", count).Warn("creator hit experience quota")
			writeJSON(w, http.StatusTooManyRequests, createResp{Err: "Rate limit exceeded. Please try again tomorrow."}, rlog)
			return
		}

		draft := buildDraft(r)
		ref, perr := s.saveVideo(r, rlog)
		if perr != nil {
			s.writeCreateErr(w, perr, rlog)
			return
		}
		draft.VideoFilename = ref

		id, pin, perr := s.ES.Create(ctx, draft, ip, r.FormValue("custom_pin"))
		if perr != nil {
			if ref != "" {
				if derr := s.FS.Delete(ref); derr != nil {
					rlog.WithError(derr).WithField(cst.LogFieldFilename, ref).Error("error removing orphan upload")
				}
			}
			s.writeCreateErr(w, perr, rlog)
			return
		}
		link := s.experienceURL(r, id)
		if draft.CreatorEmail != "" && s.Mailer != nil {
			go s.sendConfirmation(draft, id, pin, link)
		}
		writeJSON(w, http.StatusOK, createResp{
			Success:   true,
			UniqueID:  id,
			AccessPIN: pin,
			URL:       link,
			Message:   msgCreated,
		}, rlog.WithField(cst.LogFieldUniqueID, id))
	}
}

// parseCreateForm accepts multipart forms, which may carry a video, as well as plain url encoded forms.
func parseCreateForm(r *http.Request) error {
	err := r.ParseMultipartForm(32 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func buildDraft(r *http.Request) *md.Experience {
	return &md.Experience{
		CreatorName:   r.FormValue("creator_name"),
		RecipientName: r.FormValue("recipient_name"),
		CreatorEmail:  r.FormValue("creator_email"),
		Message:       r.FormValue("personal_message"),
		MemoryText:    r.FormValue("memory_text"),
		QuestionText:  r.FormValue("question_text"),
		CustomCSS:     r.FormValue("custom_css"),
		Theme: md.Theme{
			Palette:      r.FormValue("color_palette"),
			Background:   r.FormValue("background_style"),
			Font:         r.FormValue("font_style"),
			Effect:       r.FormValue("text_effect"),
			Animation:    r.FormValue("text_animation"),
			Particles:    r.FormValue("particle_system"),
			SVGAnimation: r.FormValue("svg_animation"),
		},
		Metadata: map[string]interface{}{
			"user_agent":   r.UserAgent(),
			"created_from": "web_form",
			"version":      metadataVersion,
		},
	}
}

// saveVideo stores the optional uploaded video and returns its ref. Files without an accepted video
// extension are ignored.
func (s *valentineServer) saveVideo(r *http.Request, clog *logrus.Entry) (string, *pe.Err) {
	if r.MultipartForm == nil {
		return "", nil
	}
	fhs := r.MultipartForm.File["video_file"]
	if len(fhs) == 0 || fhs[0].Filename == "" {
		return "", nil
	}
	fh := fhs[0]
	flog := clog.WithField(cst.LogFieldFilename, fh.Filename)
	if !st.AllowedVideo(fh.Filename) {
		flog.Warn("ignoring upload with disallowed extension")
		return "", nil
	}
	f, err := fh.Open()
	if err != nil {
		flog.WithError(err).Error("error opening uploaded video")
		return "", pe.NewServiceFailure("error opening uploaded video").WithCause(err)
	}
	defer f.Close()
	ref := s.FS.Ref(fh.Filename)
	if perr := s.FS.Save(ref, f); perr != nil {
		flog.WithError(perr).Error("error saving uploaded video")
		return "", perr
	}
	flog.WithField("ref", ref).Info("video uploaded")
	return ref, nil
}

func (s *valentineServer) writeCreateErr(w http.ResponseWriter, perr *pe.Err, clog *logrus.Entry) {
	msg := perr.Error()
	if !perr.ClientFacing() {
		clog.WithField("trace", perr.Trace()).Error("error creating experience")
		msg = msgCreateFailed
	}
	writeJSON(w, perr.StatusCode(), createResp{Err: msg}, clog)
}

func (s *valentineServer) sendConfirmation(e *md.Experience, id, pin, link string) {
	clog := logging.WithFuncName().WithField(cst.LogFieldUniqueID, id)
	c := &email.Confirmation{
		CreatorName:   strings.TrimSpace(e.CreatorName),
		CreatorEmail:  strings.TrimSpace(e.CreatorEmail),
		RecipientName: strings.TrimSpace(e.RecipientName),
		URL:           link,
		PIN:           pin,
	}
	if stored, perr := s.ES.Get(context.Background(), id); perr == nil {
		c.ExpiresAt = stored.ExpiresAt.UTC().Format("January 2, 2006")
	}
	m, err := email.NewConfirmationMail(s.MailFrom, c)
	if err != nil {
		clog.WithError(err).Error("error composing confirmation mail")
		return
	}
	if err := s.Mailer.Send(m); err != nil {
		clog.WithError(err).Error("error sending confirmation mail")
		return
	}
	clog.Info("confirmation mail sent")
}

// HandleGetExperience serves the PIN entry page, or the experience itself when a PIN arrives via query
// string or session.
func (s *valentineServer) HandleGetExperience() httprouter.Handle {
	clog := logging.WithFuncName().WithField("httpMethod", http.MethodGet)
	pinTmpl := mustParseTemplate(clog, "pin_entry.html")
	expTmpl := mustParseTemplate(clog, "experience.html")
	errTmpl := mustParseTemplate(clog, "error.html")
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		ip := clientIP(r)
		rlog := clog.WithFields(logrus.Fields{cst.LogFieldUniqueID: id, cst.LogFieldViewerIP: ip})
		if !experience.WellFormedUniqueID(id) {
			renderErr(w, errTmpl, http.StatusNotFound, msgExperienceGone, rlog)
			return
		}
		pin, fromSession := strings.TrimSpace(r.URL.Query().Get("pin")), false
		sess, _ := s.Sessions.Get(r, sessionName)
		if pin == "" && sess != nil {
			pin, _ = sess.Values[id].(string)
			fromSession = pin != ""
		}
		key := st.AttemptKey(ip, id)
		if pin != "" && !fromSession && s.attemptsExceeded(key, rlog) {
			w.WriteHeader(http.StatusTooManyRequests)
			execTemplateLog(pinTmpl, w, md.PinEntryView{UniqueID: id, Err: msgTooManyAttempts}, rlog)
			return
		}
		res, e, perr := s.ES.Authorize(r.Context(), id, pin)
		if perr != nil {
			rlog.WithField("trace", perr.Trace()).Error("error authorizing experience access")
			renderErr(w, errTmpl, http.StatusInternalServerError, msgExperienceFailed, rlog)
			return
		}
		switch res {
		case md.AccessNotFound:
			rlog.Warn("experience not found")
			renderErr(w, errTmpl, http.StatusNotFound, msgExperienceGone, rlog)
		case md.AccessPinRequired:
			execTemplateLog(pinTmpl, w, md.PinEntryView{UniqueID: id}, rlog)
		case md.AccessInvalidPIN:
			if fromSession {
				// stale session, e.g. after a restart with a new secret
				delete(sess.Values, id)
				s.saveSession(w, r, sess, rlog)
				execTemplateLog(pinTmpl, w, md.PinEntryView{UniqueID: id}, rlog)
				return
			}
			s.attemptFailed(key, rlog)
			execTemplateLog(pinTmpl, w, md.PinEntryView{UniqueID: id, Err: msgInvalidPIN}, rlog)
		case md.AccessGranted:
			s.attemptsReset(key, rlog)
			// best effort: a failed view record never blocks the recipient
			if perr := s.ES.RecordView(r.Context(), id, ip, r.UserAgent()); perr != nil {
				rlog.WithField("trace", perr.Trace()).Error("error recording experience view")
			}
			rlog.WithField("views", e.ViewCount+1).Info("serving experience")
			execTemplateLog(expTmpl, w, s.experienceView(e), rlog)
		}
	}
}

// HandleUnlockExperience takes the PIN entry form and keeps the right PIN in the session, so that the
// experience URL stays free of the PIN.
func (s *valentineServer) HandleUnlockExperience() httprouter.Handle {
	clog := logging.WithFuncName().WithField("httpMethod", http.MethodPost)
	pinTmpl := mustParseTemplate(clog, "pin_entry.html")
	errTmpl := mustParseTemplate(clog, "error.html")
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		ip := clientIP(r)
		rlog := clog.WithFields(logrus.Fields{cst.LogFieldUniqueID: id, cst.LogFieldViewerIP: ip})
		if !experience.WellFormedUniqueID(id) {
			renderErr(w, errTmpl, http.StatusNotFound, msgExperienceGone, rlog)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<10)
		pin := strings.TrimSpace(r.PostFormValue("pin"))
		key := st.AttemptKey(ip, id)
		if s.attemptsExceeded(key, rlog) {
			w.WriteHeader(http.StatusTooManyRequests)
			execTemplateLog(pinTmpl, w, md.PinEntryView{UniqueID: id, Err: msgTooManyAttempts}, rlog)
			return
		}
		res, _, perr := s.ES.Authorize(r.Context(), id, pin)
		if perr != nil {
			rlog.WithField("trace", perr.Trace()).Error("error authorizing experience access")
			renderErr(w, errTmpl, http.StatusInternalServerError, msgExperienceFailed, rlog)
			return
		}
		switch res {
		case md.AccessNotFound:
			renderErr(w, errTmpl, http.StatusNotFound, msgExperienceGone, rlog)
		case md.AccessPinRequired:
			execTemplateLog(pinTmpl, w, md.PinEntryView{UniqueID: id}, rlog)
		case md.AccessInvalidPIN:
			s.attemptFailed(key, rlog)
			execTemplateLog(pinTmpl, w, md.PinEntryView{UniqueID: id, Err: msgInvalidPIN}, rlog)
		case md.AccessGranted:
			s.attemptsReset(key, rlog)
			sess, _ := s.Sessions.Get(r, sessionName)
			if sess != nil {
				sess.Values[id] = pin
				s.saveSession(w, r, sess, rlog)
			}
			http.Redirect(w, r, "/v/"+url.PathEscape(id), http.StatusSeeOther)
		}
	}
}

func (s *valentineServer) experienceView(e *md.Experience) md.ExperienceView {
	p := s.Catalog.PaletteOrDefault(e.Theme.Palette)
	v := md.ExperienceView{
		Experience: *e,
		Palette: md.PaletteView{
			Primary:    p.Primary,
			Secondary:  p.Secondary,
			Accent:     p.Accent,
			Background: p.Background,
		},
	}
	if f, ok := s.Catalog.Font(e.Theme.Font); ok {
		v.Font = f.Family
	}
	if ef, ok := s.Catalog.Effect(e.Theme.Effect); ok {
		v.EffectCSS = ef.CSS
	}
	if a, ok := s.Catalog.Animation(e.Theme.Animation); ok {
		v.AnimationClass = a.Class
	}
	// "none" entries exist in the catalog but draw nothing
	if _, ok := s.Catalog.Particles(e.Theme.Particles); ok && e.Theme.Particles != catalog.DefaultParticles {
		v.Particles = e.Theme.Particles
	}
	if _, ok := s.Catalog.SVGAnimation(e.Theme.SVGAnimation); ok && e.Theme.SVGAnimation != catalog.DefaultSVG {
		v.SVGAnimation = e.Theme.SVGAnimation
	}
	if e.VideoFilename != "" {
		v.VideoURL = "/uploads/" + url.PathEscape(e.VideoFilename)
	}
	return v
}

func (s *valentineServer) HandleGetUpload() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ref := ps.ByName("filename")
		flog := clog.WithField(cst.LogFieldFilename, ref)
		rc, perr := s.FS.Get(ref)
		if perr != nil {
			if perr.ClientFacing() {
				http.Error(w, http.StatusText(perr.StatusCode()), perr.StatusCode())
				return
			}
			flog.WithField("trace", perr.Trace()).Error("error getting upload")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", st.ContentType(ref))
		// local files support range requests, which video players rely on for seeking
		if rs, ok := rc.(io.ReadSeeker); ok {
			http.ServeContent(w, r, ref, time.Time{}, rs)
			return
		}
		if n, err := io.Copy(w, rc); err != nil {
			flog.WithError(err).WithField("bytesWritten", n).Warn("error sending upload to requester")
		}
	}
}

type statsResp struct {
	ViewCount     uint64 `json:"view_count"`
	CreatedAt     string `json:"created_at"`
	RecipientName string `json:"recipient_name"`
}

func (s *valentineServer) HandleGetStats() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		rlog := clog.WithField(cst.LogFieldUniqueID, id)
		if !experience.WellFormedUniqueID(id) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Experience not found"}, rlog)
			return
		}
		e, perr := s.ES.Get(r.Context(), id)
		if perr != nil {
			if perr.Is(pe.ErrCodeNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "Experience not found"}, rlog)
				return
			}
			rlog.WithField("trace", perr.Trace()).Error("error getting experience stats")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get stats"}, rlog)
			return
		}
		writeJSON(w, http.StatusOK, statsResp{
			ViewCount:     e.ViewCount,
			CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
			RecipientName: e.RecipientName,
		}, rlog)
	}
}

func (s *valentineServer) HandleGetCatalog() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		writeJSON(w, http.StatusOK, s.Catalog.Table(), clog)
	}
}

func (s *valentineServer) HandleHealth() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if perr := s.DB.Ping(r.Context()); perr != nil {
			clog.WithField("trace", perr.Trace()).Error("health check failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "unhealthy"}, clog)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   appVersion,
		}, clog)
	}
}

func (s *valentineServer) HandleNotFound() httprouter.Handle {
	clog := logging.WithFuncName()
	errTmpl := mustParseTemplate(clog, "error.html")
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		clog.WithField("path", r.URL.Path).Warn("page not found")
		renderErr(w, errTmpl, http.StatusNotFound, msgPageNotFound, clog)
	}
}

// -------------- utils --------------

// clientIP prefers proxy headers over the peer address, so deploy behind a proxy which overwrites them.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *valentineServer) experienceURL(r *http.Request, id string) string {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		} else if p := r.Header.Get("X-Forwarded-Proto"); p == "https" {
			scheme = p
		}
		base = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return base + "/v/" + url.PathEscape(id)
}

func (s *valentineServer) attemptsExceeded(key string, clog *logrus.Entry) bool {
	exceeded, perr := s.AL.Exceeded(key)
	if perr != nil {
		// fail open; PINs are still checked
		clog.WithError(perr).Error("error checking PIN attempts")
		return false
	}
	if exceeded {
		clog.Warn("too many wrong PINs")
	}
	return exceeded
}

func (s *valentineServer) attemptFailed(key string, clog *logrus.Entry) {
	if perr := s.AL.Fail(key); perr != nil {
		clog.WithError(perr).Error("error counting PIN attempt")
	}
}

func (s *valentineServer) attemptsReset(key string, clog *logrus.Entry) {
	if perr := s.AL.Reset(key); perr != nil {
		clog.WithError(perr).Error("error resetting PIN attempts")
	}
}

func (s *valentineServer) saveSession(w http.ResponseWriter, r *http.Request, sess *sessions.Session, clog *logrus.Entry) {
	if err := sess.Save(r, w); err != nil {
		clog.WithError(err).Error("error saving session")
	}
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || errors.Is(err, multipart.ErrMessageTooLarge) ||
		strings.Contains(err.Error(), cst.ErrMsgRequestBodyTooLarge)
}

func renderErr(w http.ResponseWriter, t *template.Template, code int, msg string, clog *logrus.Entry) {
	w.WriteHeader(code)
	execTemplateLog(t, w, md.ErrView{Code: code, Msg: msg}, clog)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}, clog *logrus.Entry) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		clog.WithError(err).Error("error writing json response")
	}
}

func execTemplateLog(t *template.Template, w io.Writer, data interface{}, log *logrus.Entry) {
	if err := t.Execute(w, data); err != nil {
		log.WithError(err).WithField("template", t.Name()).Error("error executing html template")
	}
}
