package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Transcription struct {
	BaseURL        string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIToken       string        `mapstructure:"api_token" validate:"required_without=MockDir"`
	PollInterval   time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxPolls       int           `mapstructure:"max_polls" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	// MockDir switches to the offline provider reading <dir>/<name>.json.
	MockDir string `mapstructure:"mock_dir"`
}

// Audio locates the source recordings. BaseURL may be empty when every
// recording carries its own URL; it may also be a local directory.
type Audio struct {
	BaseURL         string        `mapstructure:"base_url"`
	Extension       string        `mapstructure:"extension" validate:"required,alphanum"`
	// DownloadTimeout bounds one source download; 0 leaves it to the
	// recording timeout.
	DownloadTimeout time.Duration `mapstructure:"download_timeout" validate:"gte=0"`
}

type Output struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

type Batch struct {
	Manifest         string        `mapstructure:"manifest"`
	Parallelism      int           `mapstructure:"parallelism" validate:"gte=1,lte=32"`
	RecordingTimeout time.Duration `mapstructure:"recording_timeout" validate:"gt=0"`
	Force            bool          `mapstructure:"force"`
	Report           string        `mapstructure:"report"`
}

type Server struct {
	Port string `mapstructure:"port" validate:"required,numeric"`
}

type FFmpeg struct {
	Binary string `mapstructure:"binary" validate:"required"`
}

type Selection struct {
	PresentationThresholdMs int64 `mapstructure:"presentation_threshold_ms" validate:"gt=0"`
	MinClipMs               int64 `mapstructure:"min_clip_ms" validate:"gte=0,ltfield=PresentationThresholdMs"`
}

type Config struct {
	Environment   string        `mapstructure:"environment"`
	LogLevel      string        `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Server        Server        `mapstructure:"server"`
	Transcription Transcription `mapstructure:"transcription"`
	Audio         Audio         `mapstructure:"audio"`
	Output        Output        `mapstructure:"output"`
	Batch         Batch         `mapstructure:"batch"`
	FFmpeg        FFmpeg        `mapstructure:"ffmpeg"`
	Selection     Selection     `mapstructure:"selection"`
}

var defaults = map[string]any{
	"environment":                         "local",
	"log_level":                           "info",
	"server.port":                         "8080",
	"transcription.base_url":              "https://api.assemblyai.com/v2",
	"transcription.api_token":             "",
	"transcription.poll_interval":         "3s",
	"transcription.max_polls":             600,
	"transcription.request_timeout":       "30s",
	"transcription.mock_dir":              "",
	"audio.base_url":                      "",
	"audio.extension":                     "mp3",
	"audio.download_timeout":              "0s",
	"output.dir":                          "clips",
	"batch.manifest":                      "file_names.txt",
	"batch.parallelism":                   1,
	"batch.recording_timeout":             "45m",
	"batch.force":                         false,
	"batch.report":                        "",
	"ffmpeg.binary":                       "ffmpeg",
	"selection.presentation_threshold_ms": 90000,
	"selection.min_clip_ms":               3000,
}

// LoaderOptions points at explicit files; empty fields fall back to
// ./config.yml and ./.env when they exist.
type LoaderOptions struct {
	ConfigFile string
	EnvFile    string
}

// Load reads .env, then config.yml, then environment variables (highest
// precedence; TRANSCRIPTION_API_TOKEN overrides transcription.api_token).
func Load(opts LoaderOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" && exists(".env") {
		envFile = ".env"
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	cfgFile := opts.ConfigFile
	if cfgFile == "" && exists("config.yml") {
		cfgFile = "config.yml"
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field in one error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
