package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeGeneration(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeSchedule()
	if err := c.normalizeRegistry(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if value, ok := os.LookupEnv("IMAGESEO_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = strings.TrimSpace(value)
	} else if port, ok := os.LookupEnv("PORT"); ok && strings.TrimSpace(port) != "" {
		c.Paths.APIBind = "0.0.0.0:" + strings.TrimSpace(port)
	}
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeGeneration() error {
	if value, ok := os.LookupEnv("IMAGESEO_AI_MODE"); ok {
		c.Generation.Mode = value
	} else if value, ok := os.LookupEnv("AI_MODE"); ok {
		c.Generation.Mode = value
	}
	c.Generation.Mode = strings.ToLower(strings.TrimSpace(c.Generation.Mode))
	if c.Generation.Mode == "" {
		c.Generation.Mode = defaultMode
	}

	c.Generation.MistralAPIKey = strings.TrimSpace(c.Generation.MistralAPIKey)
	if c.Generation.MistralAPIKey == "" {
		if value, ok := os.LookupEnv("MISTRAL_API_KEY"); ok {
			c.Generation.MistralAPIKey = strings.TrimSpace(value)
		}
	}
	c.Generation.MistralAPIURL = strings.TrimSpace(c.Generation.MistralAPIURL)
	if c.Generation.MistralAPIURL == "" {
		c.Generation.MistralAPIURL = defaultMistralAPIURL
	}
	c.Generation.MistralModel = strings.TrimSpace(c.Generation.MistralModel)
	if c.Generation.MistralModel == "" {
		c.Generation.MistralModel = defaultMistralModel
	}

	c.Generation.HuggingFaceAPIKey = strings.TrimSpace(c.Generation.HuggingFaceAPIKey)
	if c.Generation.HuggingFaceAPIKey == "" {
		if value, ok := os.LookupEnv("HF_API_KEY"); ok {
			c.Generation.HuggingFaceAPIKey = strings.TrimSpace(value)
		}
	}
	c.Generation.HuggingFaceAPIURL = strings.TrimSpace(c.Generation.HuggingFaceAPIURL)
	if c.Generation.HuggingFaceAPIURL == "" {
		c.Generation.HuggingFaceAPIURL = defaultHuggingFaceAPIURL
	}

	if value, ok := os.LookupEnv("LOCAL_LLM_URL"); ok && strings.TrimSpace(value) != "" {
		c.Generation.LocalURL = strings.TrimSpace(value)
	}
	c.Generation.LocalURL = strings.TrimSpace(c.Generation.LocalURL)
	if c.Generation.LocalURL == "" {
		c.Generation.LocalURL = defaultLocalURL
	}
	c.Generation.LocalModel = strings.TrimSpace(c.Generation.LocalModel)
	if c.Generation.LocalModel == "" {
		c.Generation.LocalModel = defaultLocalModel
	}

	if c.Generation.TimeoutSeconds <= 0 {
		c.Generation.TimeoutSeconds = defaultGenerationTimeout
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.PageSize <= 0 {
		c.Pipeline.PageSize = defaultPageSize
	}
	if c.Pipeline.MaxCandidates < 0 {
		c.Pipeline.MaxCandidates = 0
	}
	if c.Pipeline.PacingMilliseconds < 0 {
		c.Pipeline.PacingMilliseconds = defaultPacingMilliseconds
	}
	if c.Pipeline.RequestTimeoutSeconds <= 0 {
		c.Pipeline.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeSchedule() {
	if c.Schedule.IntervalHours <= 0 {
		c.Schedule.IntervalHours = defaultScheduleIntervalHours
	}
}

func (c *Config) normalizeRegistry() error {
	if value, ok := os.LookupEnv("IMAGESEO_DB_FILE"); ok && strings.TrimSpace(value) != "" {
		c.Registry.Path = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Registry.Path) == "" {
		return nil
	}
	expanded, err := expandPath(c.Registry.Path)
	if err != nil {
		return fmt.Errorf("registry.path: %w", err)
	}
	c.Registry.Path = expanded
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
