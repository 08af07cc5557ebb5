package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Роли процесса.
const (
	RoleBot   = "bot"
	RoleServe = "serve"
)

type Config struct {
	TelegramToken   string
	TelegramTimeout time.Duration

	ObjectStore   string // s3 | local
	BucketName    string
	AWSRegion     string
	S3Endpoint    string
	LocalStoreDir string

	ResultStore string // sqlite | mysql | memory
	DatabaseDSN string
	CacheTTL    time.Duration

	DetectEngine   string // yolov5 | gocv
	YoloCommand    []string
	YoloDir        string
	YoloWeights    string
	ClassNamesPath string

	ProjectDir string
	ScratchDir string
	PhotosDir  string

	YoloURL    string
	ListenAddr string
	LogLevel   string
	LogFormat  string

	StoreTimeout   time.Duration
	DetectTimeout  time.Duration
	ResultTimeout  time.Duration
	PredictTimeout time.Duration
}

// SetDefaults задаёт значения по умолчанию
func SetDefaults(v *viper.Viper) {
	v.SetDefault("telegram_timeout", 30*time.Second)
	v.SetDefault("object_store", "s3")
	v.SetDefault("local_store_dir", "bucket")
	v.SetDefault("result_store", "sqlite")
	v.SetDefault("database_dsn", "predictions.db")
	v.SetDefault("cache_ttl", 10*time.Minute)
	v.SetDefault("detect_engine", "yolov5")
	v.SetDefault("yolo_command", "python detect.py")
	v.SetDefault("yolo_weights", "yolov5s.pt")
	v.SetDefault("class_names_path", "data/coco128.yaml")
	v.SetDefault("project_dir", "static/data")
	v.SetDefault("scratch_dir", "tempImages")
	v.SetDefault("photos_dir", ".")
	v.SetDefault("yolo_url", "http://yolo5:8081")
	v.SetDefault("listen_addr", ":8081")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("store_timeout", 30*time.Second)
	v.SetDefault("detect_timeout", 2*time.Minute)
	v.SetDefault("result_timeout", 10*time.Second)
	v.SetDefault("predict_timeout", 3*time.Minute)
}

// Load читает конфигурацию из окружения (и .env, если он есть).
// v может содержать уже привязанные флаги командной строки.
func Load(v *viper.Viper) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		TelegramToken:   v.GetString("telegram_token"),
		TelegramTimeout: v.GetDuration("telegram_timeout"),
		ObjectStore:     strings.ToLower(v.GetString("object_store")),
		BucketName:      v.GetString("bucket_name"),
		AWSRegion:       v.GetString("aws_region"),
		S3Endpoint:      v.GetString("s3_endpoint"),
		LocalStoreDir:   v.GetString("local_store_dir"),
		ResultStore:     strings.ToLower(v.GetString("result_store")),
		DatabaseDSN:     v.GetString("database_dsn"),
		CacheTTL:        v.GetDuration("cache_ttl"),
		DetectEngine:    strings.ToLower(v.GetString("detect_engine")),
		YoloCommand:     strings.Fields(v.GetString("yolo_command")),
		YoloDir:         v.GetString("yolo_dir"),
		YoloWeights:     v.GetString("yolo_weights"),
		ClassNamesPath:  v.GetString("class_names_path"),
		ProjectDir:      v.GetString("project_dir"),
		ScratchDir:      v.GetString("scratch_dir"),
		PhotosDir:       v.GetString("photos_dir"),
		YoloURL:         v.GetString("yolo_url"),
		ListenAddr:      v.GetString("listen_addr"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		StoreTimeout:    v.GetDuration("store_timeout"),
		DetectTimeout:   v.GetDuration("detect_timeout"),
		ResultTimeout:   v.GetDuration("result_timeout"),
		PredictTimeout:  v.GetDuration("predict_timeout"),
	}

	return cfg, nil
}

// Validate проверяет настройки, нужные роли процесса
func (c *Config) Validate(role string) error {
	var errs []error

	switch c.ObjectStore {
	case "s3":
		if c.BucketName == "" {
			errs = append(errs, errors.New("BUCKET_NAME is required for the s3 object store"))
		}
	case "local":
	default:
		errs = append(errs, fmt.Errorf("unknown OBJECT_STORE %q", c.ObjectStore))
	}

	switch role {
	case RoleBot:
		if c.TelegramToken == "" {
			errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
		}
		if c.YoloURL == "" {
			errs = append(errs, errors.New("YOLO_URL is required"))
		}
	case RoleServe:
		switch c.ResultStore {
		case "sqlite", "mysql", "memory":
		default:
			errs = append(errs, fmt.Errorf("unknown RESULT_STORE %q", c.ResultStore))
		}
		switch c.DetectEngine {
		case "yolov5":
			if len(c.YoloCommand) == 0 {
				errs = append(errs, errors.New("YOLO_COMMAND is required for the yolov5 engine"))
			}
		case "gocv":
		default:
			errs = append(errs, fmt.Errorf("unknown DETECT_ENGINE %q", c.DetectEngine))
		}
		if c.CacheTTL < 0 {
			errs = append(errs, fmt.Errorf("CACHE_TTL must not be negative, got %s", c.CacheTTL))
		}
		if c.ClassNamesPath == "" {
			errs = append(errs, errors.New("CLASS_NAMES_PATH is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown role %q", role))
	}

	return errors.Join(errs...)
}
