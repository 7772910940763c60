package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the service settings.
type Config struct {
	Port                  string
	ModelPath             string
	PreprocessingInfoPath string
	UploadFolder          string
	AllowedExtensions     []string
	AllowedOrigins        []string
	MaxUploadMB           int64
	LogLevel              string
	LogFormat             string
	LogFile               string
}

const (
	keyPort              = "port"
	keyModelPath         = "model_path"
	keyPreprocessingInfo = "preprocessing_info_path"
	keyUploadFolder      = "upload_folder"
	keyAllowedExtensions = "allowed_extensions"
	keyAllowedOrigins    = "allowed_origins"
	keyMaxUploadMB       = "max_upload_mb"
	keyLogLevel          = "log_level"
	keyLogFormat         = "log_format"
	keyLogFile           = "log_file"
)

// Load resolves configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. Environment variables are
// the upper-cased keys, e.g. MODEL_PATH.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault(keyPort, "5000")
	v.SetDefault(keyModelPath, "model.json")
	v.SetDefault(keyPreprocessingInfo, "preprocessing_info.json")
	v.SetDefault(keyUploadFolder, "uploads")
	v.SetDefault(keyAllowedExtensions, "csv")
	v.SetDefault(keyAllowedOrigins, "")
	v.SetDefault(keyMaxUploadMB, 16)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
	v.SetDefault(keyLogFile, "")
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	cfg := &Config{
		Port:                  strings.TrimSpace(v.GetString(keyPort)),
		ModelPath:             strings.TrimSpace(v.GetString(keyModelPath)),
		PreprocessingInfoPath: strings.TrimSpace(v.GetString(keyPreprocessingInfo)),
		UploadFolder:          strings.TrimSpace(v.GetString(keyUploadFolder)),
		AllowedExtensions:     normalizeExtensions(listValue(v, keyAllowedExtensions)),
		AllowedOrigins:        listValue(v, keyAllowedOrigins),
		MaxUploadMB:           v.GetInt64(keyMaxUploadMB),
		LogLevel:              strings.TrimSpace(v.GetString(keyLogLevel)),
		LogFormat:             strings.ToLower(strings.TrimSpace(v.GetString(keyLogFormat))),
		LogFile:               strings.TrimSpace(v.GetString(keyLogFile)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.UploadFolder == "" {
		return errors.New("upload_folder is required")
	}
	if len(c.AllowedExtensions) == 0 {
		return errors.New("at least one allowed extension is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log_format %q", c.LogFormat)
	}
	return nil
}

// MaxUploadBytes is the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// listValue accepts both YAML sequences and comma separated strings.
func listValue(v *viper.Viper, key string) []string {
	var raw []string
	switch value := v.Get(key).(type) {
	case []any:
		for _, item := range value {
			raw = append(raw, fmt.Sprint(item))
		}
	case []string:
		raw = value
	default:
		raw = strings.Split(v.GetString(key), ",")
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizeExtensions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, ext := range in {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}
