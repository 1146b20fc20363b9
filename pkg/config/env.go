package config

const (
	EnvPrefix = "BACKOFFICE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "BACKOFFICE_APP_ENV"
	EnvPort           = "BACKOFFICE_APP_PORT"
	EnvLogLevel       = "BACKOFFICE_LOG_LEVEL"
	EnvRequestTimeout = "BACKOFFICE_REQUEST_TIMEOUT"

	EnvDBDSN  = "BACKOFFICE_DB_DSN"
	EnvDBHost = "BACKOFFICE_DB_HOST"
	EnvDBPort = "BACKOFFICE_DB_PORT"
	EnvDBUser = "BACKOFFICE_DB_USER"
	EnvDBPass = "BACKOFFICE_DB_PASSWORD"
	EnvDBName = "BACKOFFICE_DB_NAME"

	EnvRedisURL  = "BACKOFFICE_REDIS_URL"
	EnvRedisAddr = "BACKOFFICE_REDIS_ADDR"

	EnvAutoMigrate = "BACKOFFICE_AUTO_MIGRATE"

	EnvOrderNumberPrefix      = "BACKOFFICE_ORDER_NUMBER_PREFIX"
	EnvOrderNumberWidth       = "BACKOFFICE_ORDER_NUMBER_WIDTH"
	EnvOrderMaxCreateAttempts = "BACKOFFICE_ORDER_MAX_CREATE_ATTEMPTS"
	EnvCORSAllowedOrigins     = "BACKOFFICE_CORS_ALLOWED_ORIGINS"

	EnvAuditLockTTL = "BACKOFFICE_AUDIT_LOCK_TTL"
	EnvAuditActorID = "BACKOFFICE_AUDIT_ACTOR_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
