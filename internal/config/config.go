package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting read from the environment.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":3000"`
	Env      string `envconfig:"REVUE_ENV" default:"production"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"badger"`
	DatabaseDSN  string `envconfig:"DATABASE_DSN"`
	BadgerPath   string `envconfig:"BADGER_PATH" default:"./badger-data"`

	BlobBackend     string `envconfig:"BLOB_BACKEND" default:"badger"`
	S3Endpoint      string `envconfig:"S3_ENDPOINT"`
	S3Region        string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey     string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey     string `envconfig:"S3_SECRET_KEY"`
	S3Bucket        string `envconfig:"S3_BUCKET" default:"article-pdfs"`
	S3PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	AdminEmail        string        `envconfig:"ADMIN_EMAIL"`
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`
	SessionSecret     string        `envconfig:"SESSION_SECRET"`
	SessionTTL        time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	SweepSchedule  string `envconfig:"SWEEP_SCHEDULE" default:"@every 6h"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`

	DefaultLanguage string `envconfig:"DEFAULT_LANGUAGE" default:"en"`
	SubmissionEmail string `envconfig:"SUBMISSION_EMAIL"`
	// ProfilePath names a JSON file replacing the built-in editorial
	// board profile.
	ProfilePath string `envconfig:"PROFILE_PATH"`
}

// Development reports whether REVUE_ENV asks for development logging.
func (c *Config) Development() bool {
	return strings.EqualFold(c.Env, "development")
}

// Validate checks backend names and the settings each backend needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case "badger":
		if c.BadgerPath == "" {
			errs = append(errs, errors.New("BADGER_PATH is required for the badger store"))
		}
	case "postgres":
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.BlobBackend {
	case "badger":
		if c.StoreBackend != "badger" && c.BadgerPath == "" {
			errs = append(errs, errors.New("BADGER_PATH is required for the badger blob store"))
		}
	case "s3":
		if c.S3AccessKey == "" || c.S3SecretKey == "" {
			errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 blob store"))
		}
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 blob store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend))
	}

	if c.AdminEmail == "" || c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD_HASH are required"))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	switch strings.ToLower(c.DefaultLanguage) {
	case "en", "fr":
	default:
		errs = append(errs, fmt.Errorf("unsupported DEFAULT_LANGUAGE %q", c.DefaultLanguage))
	}

	return errors.Join(errs...)
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &c, nil
}
