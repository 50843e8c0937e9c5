package config

// EnvPrefix is the shared prefix for all environment variables.
const EnvPrefix = "OMOSHOP"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "OMOSHOP_APP_ENV"
	EnvPort     = "OMOSHOP_APP_PORT"
	EnvDBDSN    = "OMOSHOP_DB_DSN"
	EnvDBHost   = "OMOSHOP_DB_HOST"
	EnvDBUser   = "OMOSHOP_DB_USER"
	EnvDBName   = "OMOSHOP_DB_NAME"
	EnvRedisURL = "OMOSHOP_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
