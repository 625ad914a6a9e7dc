// Package config loads, normalizes, and validates the agent configuration.
//
// Configuration is read from a TOML file (~/.config/imageseo/config.toml or
// ./imageseo.toml), with environment variables overriding the file for the
// deployment-sensitive settings: IMAGESEO_AI_MODE/AI_MODE, MISTRAL_API_KEY,
// HF_API_KEY, LOCAL_LLM_URL, IMAGESEO_API_BIND/PORT, and IMAGESEO_DB_FILE.
package config
