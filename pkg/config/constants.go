package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv  = "STOREFRONT_APP_ENV"
	EnvAppPort = "STOREFRONT_APP_PORT"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"

	EnvGatewayKeyID     = "STOREFRONT_GATEWAY_KEY_ID"
	EnvGatewayKeySecret = "STOREFRONT_GATEWAY_KEY_SECRET"
	EnvGatewaySandbox   = "STOREFRONT_GATEWAY_SANDBOX"
	EnvGatewayTimeout   = "STOREFRONT_GATEWAY_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
