package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr     string
	LogLevel     string
	AuthDisabled bool
	DatabaseDSN  string

	// OIDC configuration
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
	OIDCScopes       []string
	SessionSecret    string

	// FinOps query engine configuration
	AWSRegion           string
	AthenaOutputLocation string
	AthenaDatabase      string
	CURTable            string
	BedrockModelID      string
	Timezone            string
}

func Load() *Config {
	return &Config{
		HTTPAddr:         envOr("FINGUARD_ADDR", ":8080"),
		LogLevel:         envOr("FINGUARD_LOG_LEVEL", "info"),
		AuthDisabled:     envBool("FINGUARD_AUTH_DISABLED"),
		DatabaseDSN:      envOr("FINGUARD_DB_DSN", "sqlite:///tmp/finguard.db"),
		OIDCIssuer:       envOr("FINGUARD_OIDC_ISSUER", ""),
		OIDCClientID:     envOr("FINGUARD_OIDC_CLIENT_ID", "finguard"),
		OIDCClientSecret: envOr("FINGUARD_OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  envOr("FINGUARD_OIDC_REDIRECT_URL", ""),
		OIDCScopes:       envSlice("FINGUARD_OIDC_SCOPES", []string{"openid", "profile", "email", "groups"}),
		SessionSecret:    envOr("FINGUARD_SESSION_SECRET", ""),

		AWSRegion:            envOr("AWS_REGION", "us-east-1"),
		AthenaOutputLocation: envOr("ATHENA_OUTPUT_LOCATION", ""),
		AthenaDatabase:       envOr("AWS_CUR_DATABASE", "cur_database"),
		CURTable:             envOr("AWS_CUR_TABLE", "cur_table"),
		BedrockModelID:       envOr("FINGUARD_BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0"),
		Timezone:             envOr("FINGUARD_TIMEZONE", "UTC"),
	}
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1" || v == "yes"
}

func envSlice(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
