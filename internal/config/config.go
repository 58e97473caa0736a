package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`
	DataDir  string `yaml:"dataDir"`
	TempDir  string `yaml:"tempDir"`

	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
	UploadTimeout  string `yaml:"uploadTimeout"`
	ScanTimeout    string `yaml:"scanTimeout"`
	ScanDetached   bool   `yaml:"scanDetached"`
	ClamdAddr      string `yaml:"clamdAddr"`

	Minio MinioConfig `yaml:"minio"`
	OTP   OTPConfig   `yaml:"otp"`
	SMS   SMSConfig   `yaml:"sms"`

	JWTSecret  string `yaml:"jwtSecret"`
	SessionTTL string `yaml:"sessionTTL"`
}

// MinioConfig configures the object store connection.
type MinioConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"accessKey"`
	SecretKey     string `yaml:"secretKey"`
	Bucket        string `yaml:"bucket"`
	UseSSL        bool   `yaml:"useSSL"`
	PublicBaseURL string `yaml:"publicBaseURL"`
}

// OTPConfig configures the passcode registry.
type OTPConfig struct {
	Store              string `yaml:"store"` // file | redis
	RedisAddr          string `yaml:"redisAddr"`
	RedisPassword      string `yaml:"redisPassword"`
	TTL                string `yaml:"ttl"`
	CodeLength         int    `yaml:"codeLength"`
	SendLimitPerMinute int    `yaml:"sendLimitPerMinute"`
}

// SMSConfig selects and configures the passcode delivery provider.
type SMSConfig struct {
	Provider string `yaml:"provider"` // log | pattern | aliyun

	BaseURL     string `yaml:"baseURL"`
	APIKey      string `yaml:"apiKey"`
	FromNumber  string `yaml:"fromNumber"`
	PatternCode string `yaml:"patternCode"`

	AliyunAccessKeyID     string `yaml:"aliyunAccessKeyId"`
	AliyunAccessKeySecret string `yaml:"aliyunAccessKeySecret"`
	AliyunSignName        string `yaml:"aliyunSignName"`
	AliyunTemplateCode    string `yaml:"aliyunTemplateCode"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("FILEDROP_DATA_DIR"); v != "" {
		cfg.DataDir = strings.TrimSpace(v)
	}
	if v := os.Getenv("FILEDROP_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.Minio.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Minio.SecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.Minio.Bucket = v
	}
	if v := os.Getenv("CLAMD_ADDR"); v != "" {
		cfg.ClamdAddr = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.OTP.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.OTP.RedisPassword = v
	}
	if v := os.Getenv("SMS_API_KEY"); v != "" {
		cfg.SMS.APIKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.Minio.Endpoint == "" {
		return errors.New("config: minio.endpoint is required (set in config.yaml or MINIO_ENDPOINT)")
	}
	if cfg.Minio.Bucket == "" {
		return errors.New("config: minio.bucket is required (set in config.yaml or MINIO_BUCKET)")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("config: jwtSecret is required (set in config.yaml or JWT_SECRET)")
	}
	switch cfg.OTP.Store {
	case "", "file":
	case "redis":
		if strings.TrimSpace(cfg.OTP.RedisAddr) == "" {
			return errors.New("config: otp.redisAddr is required for the redis passcode store")
		}
	default:
		return fmt.Errorf("config: unknown otp.store %q (want file or redis)", cfg.OTP.Store)
	}
	switch cfg.SMS.Provider {
	case "", "log":
	case "pattern":
		if cfg.SMS.BaseURL == "" || cfg.SMS.PatternCode == "" {
			return errors.New("config: sms.baseURL and sms.patternCode are required for the pattern provider")
		}
	case "aliyun":
		if cfg.SMS.AliyunAccessKeyID == "" || cfg.SMS.AliyunAccessKeySecret == "" {
			return errors.New("config: aliyun credentials are required for the aliyun provider")
		}
	default:
		return fmt.Errorf("config: unknown sms.provider %q (want log, pattern, or aliyun)", cfg.SMS.Provider)
	}
	if cfg.OTP.SendLimitPerMinute > 0 && strings.TrimSpace(cfg.OTP.RedisAddr) == "" {
		return errors.New("config: otp.redisAddr is required when otp.sendLimitPerMinute is set")
	}
	if cfg.OTP.CodeLength < 0 || cfg.OTP.SendLimitPerMinute < 0 {
		return errors.New("config: otp.codeLength and otp.sendLimitPerMinute must be >= 0")
	}
	return nil
}

// ParseDuration parses an optional duration field, returning fallback when
// the field is empty.
func ParseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", field, err)
	}
	return dur, nil
}
