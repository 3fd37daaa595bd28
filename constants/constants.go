// Package constants vends constants used in various components of valentine service, e.g., env var names
package constants

import "time"

const (
	// -------------- env vars --------------
	// common
	EnvVerbose = "VALENTINE_VERBOSE"
	// stores
	EnvDatabaseURL       = "DATABASE_URL"
	EnvRedisHost         = "REDIS_HOST"
	EnvRedisPort         = "REDIS_PORT"
	EnvRedisPasswd       = "REDIS_PASSWD"
	EnvRedisDB           = "REDIS_DB"
	EnvUploadDir         = "UPLOAD_DIR"
	EnvS3Endpoint        = "S3_ENDPOINT"
	EnvS3Region          = "S3_REGION"
	EnvS3Bucket          = "S3_BUCKET"
	EnvS3AccessKeyID     = "S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "S3_SECRET_ACCESS_KEY"
	// experience lifecycle
	EnvMaxExperiencesPerIP  = "MAX_EXPERIENCES_PER_IP"
	EnvQuotaWindow          = "EXPERIENCE_QUOTA_WINDOW"
	EnvExperienceExpiryDays = "EXPERIENCE_EXPIRY_DAYS"
	EnvCatalogFile          = "CATALOG_FILE"
	EnvPinAttemptsMax       = "PIN_ATTEMPTS_MAX"
	EnvPinAttemptsWindow    = "PIN_ATTEMPTS_WINDOW"
	EnvPinAttemptsCacheSize = "PIN_ATTEMPTS_CACHE_SIZE"
	// server
	EnvAppHost            = "VALENTINE_HOST"
	EnvAppPort            = "VALENTINE_PORT"
	EnvBaseURL            = "VALENTINE_BASE_URL"
	EnvHSTS               = "VALENTINE_HSTS"
	EnvSecretKey          = "SECRET_KEY"
	EnvReqBodySizeMaxByte = "VALENTINE_REQ_BODY_SIZE_MAX_BYTE"
	// mail
	EnvSMTPAddr     = "SMTP_ADDR"
	EnvSMTPUsername = "SMTP_USERNAME"
	EnvSMTPPasswd   = "SMTP_PASSWD"
	EnvSMTPFrom     = "SMTP_FROM"

	// -------------- defaults --------------
	DefaultDatabaseURL         = "valentine_experiences.db"
	DefaultUploadDir           = "uploads"
	DefaultAppPort             = "5001"
	DefaultMaxExperiencesPerIP = 100
	DefaultQuotaWindow         = 24 * time.Hour
	DefaultExperienceExpiryDay = 365
	DefaultPinAttemptsMax      = 10
	DefaultPinAttemptsWindow   = 15 * time.Minute
	DefaultPinAttemptsCache    = 1 << 14
	DefaultReqBodySizeMaxByte  = 100 << 20
	DefaultRedisPort           = "6379"

	// -------------- error messages --------------
	ErrMsgRequestBodyTooLarge = "request body too large"
	ErrMsgGeneric             = "Something went wrong. Please try again."

	// -------------- log fields --------------
	LogFieldFuncName  = "funcName"
	LogFieldUniqueID  = "uniqueID"
	LogFieldCreatorIP = "creatorIP"
	LogFieldViewerIP  = "viewerIP"
	LogFieldFilename  = "filename"
)
