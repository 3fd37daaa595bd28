package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis"
	"github.com/gorilla/sessions"
	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"wuyrush.io/valentine/catalog"
	"wuyrush.io/valentine/common/logging"
	rt "wuyrush.io/valentine/common/retry"
	cst "wuyrush.io/valentine/constants"
	"wuyrush.io/valentine/email"
	"wuyrush.io/valentine/experience"
	pe "wuyrush.io/valentine/errors"
	md "wuyrush.io/valentine/models"
	st "wuyrush.io/valentine/stores"
)

// experienceService is what handlers need from the experience lifecycle.
type experienceService interface {
	Create(ctx context.Context, draft *md.Experience, creatorIP, customPIN string) (string, string, *pe.Err)
	Get(ctx context.Context, uniqueID string) (*md.Experience, *pe.Err)
	Authorize(ctx context.Context, uniqueID, pin string) (md.AccessResult, *md.Experience, *pe.Err)
	RecordView(ctx context.Context, uniqueID, viewerIP, userAgent string) *pe.Err
	CreatorQuota(ctx context.Context, creatorIP string) (int, *pe.Err)
}

type pinger interface {
	Ping(ctx context.Context) *pe.Err
}

// a combination of web and application server since it serves both application logic and web page rendering
type valentineServer struct {
	ES       experienceService
	DB       pinger
	FS       st.FileStore
	AL       st.AttemptLimiter
	Catalog  *catalog.Catalog
	Sessions sessions.Store
	// Mailer is nil when no smtp server is configured
	Mailer   email.Sender
	MailFrom mail.Address

	BaseURL        string
	QuotaPerIP     int
	MaxReqBodySize int64
	HSTS           bool
	Router         *httprouter.Router
}

func (s *valentineServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func setupConfig() {
	viper.AutomaticEnv()
	viper.SetDefault(cst.EnvAppPort, cst.DefaultAppPort)
	viper.SetDefault(cst.EnvDatabaseURL, cst.DefaultDatabaseURL)
	viper.SetDefault(cst.EnvUploadDir, cst.DefaultUploadDir)
	viper.SetDefault(cst.EnvReqBodySizeMaxByte, cst.DefaultReqBodySizeMaxByte)
	viper.SetDefault(cst.EnvMaxExperiencesPerIP, cst.DefaultMaxExperiencesPerIP)
	viper.SetDefault(cst.EnvQuotaWindow, cst.DefaultQuotaWindow)
	viper.SetDefault(cst.EnvExperienceExpiryDays, cst.DefaultExperienceExpiryDay)
	viper.SetDefault(cst.EnvPinAttemptsMax, cst.DefaultPinAttemptsMax)
	viper.SetDefault(cst.EnvPinAttemptsWindow, cst.DefaultPinAttemptsWindow)
	viper.SetDefault(cst.EnvPinAttemptsCacheSize, cst.DefaultPinAttemptsCache)
	viper.SetDefault(cst.EnvRedisPort, cst.DefaultRedisPort)
}

// start up application server and serve incoming requests
func serve() error {
	setupConfig()
	logging.SetupLog("ValentineServer")
	clog := logging.WithFuncName()
	// NOTE docker compose's depends_on feature only guarantee the startup order of *service containers*,
	// instead of the services themselves - It is us who define when the services are ready
	db, err := setupExperienceStore()
	if err != nil {
		return err
	}
	defer db.Close()
	fs, err := setupFileStore()
	if err != nil {
		return err
	}
	defer fs.Close()
	al, err := setupAttemptLimiter()
	if err != nil {
		return err
	}
	cat, err := setupCatalog()
	if err != nil {
		return err
	}
	mailer, err := setupMailer()
	if err != nil {
		return err
	}

	es := experience.NewService(db, cat)
	es.Retention = time.Duration(viper.GetInt(cst.EnvExperienceExpiryDays)) * 24 * time.Hour
	es.QuotaPerIP = viper.GetInt(cst.EnvMaxExperiencesPerIP)
	es.QuotaWindow = viper.GetDuration(cst.EnvQuotaWindow)

	svr := &valentineServer{
		ES:             es,
		DB:             db,
		FS:             fs,
		AL:             al,
		Catalog:        cat,
		Sessions:       setupSessions(),
		BaseURL:        viper.GetString(cst.EnvBaseURL),
		QuotaPerIP:     es.QuotaPerIP,
		MaxReqBodySize: viper.GetInt64(cst.EnvReqBodySizeMaxByte),
		HSTS:           viper.GetBool(cst.EnvHSTS),
	}
	if mailer != nil {
		svr.Mailer = mailer
		svr.MailFrom = mail.Address{Name: "Valentine", Address: viper.GetString(cst.EnvSMTPFrom)}
	}
	svr.SetupMux()

	host, port := viper.GetString(cst.EnvAppHost), viper.GetString(cst.EnvAppPort)
	hs := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", host, port),
		Handler:           svr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		clog.WithFields(log.Fields{
			"host": host,
			"port": port,
		}).Info("valentine server is starting up")
		errc <- hs.ListenAndServe()
	}()
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case sig := <-sigc:
		clog.WithField("signal", sig.String()).Info("shutting down valentine server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return hs.Shutdown(ctx)
	}
}

func startupRetryOpts() []rt.RetryOption {
	return []rt.RetryOption{
		rt.WithTimeout(3 * time.Second),
		rt.WithBaseDelay(100 * time.Millisecond),
		rt.WithExp(2.0),
		rt.WithRetryOn(rt.IsDepOffline),
	}
}

func setupExperienceStore() (st.ExperienceStore, error) {
	url := viper.GetString(cst.EnvDatabaseURL)
	clog := logging.WithFuncName()
	if !st.IsPostgresURL(url) {
		s, err := st.NewGormStore(url)
		if err != nil {
			return nil, pe.NewServiceFailure("failed initializing SQLite").WithCause(err)
		}
		clog.WithField("path", url).Info("using SQLite experience store")
		return s, nil
	}
	s, err := st.NewPgStore(url)
	if err != nil {
		return nil, pe.NewServiceFailure("failed initializing PostgreSQL").WithCause(err)
	}
	// verify the database is up correctly
	pingFn := func() error {
		if perr := s.Ping(context.Background()); perr != nil {
			return perr
		}
		return nil
	}
	if err := rt.Retry(pingFn, startupRetryOpts()...); err != nil {
		s.Close()
		return nil, pe.NewServiceFailure("failed connecting PostgreSQL").WithCause(err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, pe.NewServiceFailure("failed migrating PostgreSQL").WithCause(err)
	}
	clog.Info("using PostgreSQL experience store")
	return s, nil
}

func setupFileStore() (st.FileStore, error) {
	maxBytes := viper.GetInt64(cst.EnvReqBodySizeMaxByte)
	if bucket := viper.GetString(cst.EnvS3Bucket); bucket != "" {
		fs, err := st.NewS3FileStore(st.S3Config{
			Endpoint:        viper.GetString(cst.EnvS3Endpoint),
			Region:          viper.GetString(cst.EnvS3Region),
			Bucket:          bucket,
			AccessKeyID:     viper.GetString(cst.EnvS3AccessKeyID),
			SecretAccessKey: viper.GetString(cst.EnvS3SecretAccessKey),
			MaxBytes:        maxBytes,
		})
		if err != nil {
			return nil, pe.NewServiceFailure("failed initializing S3 file store").WithCause(err)
		}
		return fs, nil
	}
	fs, err := st.NewLocalFileStore(viper.GetString(cst.EnvUploadDir), maxBytes)
	if err != nil {
		return nil, pe.NewServiceFailure("failed initializing local file store").WithCause(err)
	}
	return fs, nil
}

func setupAttemptLimiter() (st.AttemptLimiter, error) {
	max, window := viper.GetInt(cst.EnvPinAttemptsMax), viper.GetDuration(cst.EnvPinAttemptsWindow)
	if viper.GetString(cst.EnvRedisHost) == "" {
		return st.NewLocalAttemptLimiter(max, window, viper.GetInt(cst.EnvPinAttemptsCacheSize)), nil
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:       fmt.Sprintf("%s:%s", viper.GetString(cst.EnvRedisHost), viper.GetString(cst.EnvRedisPort)),
		Password:   viper.GetString(cst.EnvRedisPasswd),
		DB:         viper.GetInt(cst.EnvRedisDB),
		MaxRetries: 3,
	})
	// verify the client is up correctly
	pingFn := func() error {
		_, err := redisClient.Ping().Result()
		return err
	}
	if err := rt.Retry(pingFn, startupRetryOpts()...); err != nil {
		return nil, pe.NewServiceFailure("failed initializing Redis").WithCause(err)
	}
	return &st.RedisAttemptLimiter{DB: redisClient, Max: int64(max), Window: window}, nil
}

func setupCatalog() (*catalog.Catalog, error) {
	path := viper.GetString(cst.EnvCatalogFile)
	if path == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.Load(path)
	if err != nil {
		return nil, pe.NewServiceFailure("failed loading catalog").WithCause(err)
	}
	return c, nil
}

func setupMailer() (*email.Mailer, error) {
	addr := viper.GetString(cst.EnvSMTPAddr)
	if addr == "" || viper.GetString(cst.EnvSMTPFrom) == "" {
		logging.WithFuncName().Info("smtp not configured; confirmation mails disabled")
		return nil, nil
	}
	ml, err := email.NewMailer(addr, viper.GetString(cst.EnvSMTPUsername), viper.GetString(cst.EnvSMTPPasswd))
	if err != nil {
		return nil, pe.NewServiceFailure("failed initializing mailer").WithCause(err)
	}
	return ml, nil
}

func setupSessions() sessions.Store {
	secret := []byte(viper.GetString(cst.EnvSecretKey))
	if len(secret) == 0 {
		logging.WithFuncName().Warn("SECRET_KEY not set; unlocked experiences will not survive restarts")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.WithError(err).Fatal("error generating session secret")
		}
	}
	return newSessionStore(secret, viper.GetBool(cst.EnvHSTS))
}

func newSessionStore(secret []byte, secure bool) *sessions.CookieStore {
	// derive a 32 byte key so sessions are encrypted, not only signed
	blockKey := sha256.Sum256(append([]byte("valentine-session-block:"), secret...))
	store := sessions.NewCookieStore(secret, blockKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
