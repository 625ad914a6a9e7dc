package config

const (
	defaultDataDir               = "~/.local/share/imageseo"
	defaultLogDir                = "~/.local/share/imageseo/logs"
	defaultAPIBind               = "0.0.0.0:5000"
	defaultMode                  = "huggingface"
	defaultMistralAPIURL         = "https://api.mistral.ai/v1/chat/completions"
	defaultMistralModel          = "mistral-tiny"
	defaultHuggingFaceAPIURL     = "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.1"
	defaultLocalURL              = "http://localhost:11434/api/generate"
	defaultLocalModel            = "mistral"
	defaultGenerationTimeout     = 30
	defaultPageSize              = 100
	defaultPacingMilliseconds    = 1000
	defaultRequestTimeoutSeconds = 30
	defaultScheduleIntervalHours = 24
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Generation: Generation{
			Mode:              defaultMode,
			MistralAPIURL:     defaultMistralAPIURL,
			MistralModel:      defaultMistralModel,
			HuggingFaceAPIURL: defaultHuggingFaceAPIURL,
			LocalURL:          defaultLocalURL,
			LocalModel:        defaultLocalModel,
			TimeoutSeconds:    defaultGenerationTimeout,
			FallbackToBasic:   true,
		},
		Pipeline: Pipeline{
			PageSize:              defaultPageSize,
			MaxCandidates:         0,
			PacingMilliseconds:    defaultPacingMilliseconds,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Schedule: Schedule{
			Enabled:       true,
			IntervalHours: defaultScheduleIntervalHours,
		},
		RunLog: RunLog{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Runs:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
