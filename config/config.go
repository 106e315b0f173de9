package config

import (
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Data      DataConfig      `yaml:"data"`
	Worker    WorkerConfig    `yaml:"worker"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite, mysql
	DSN  string `yaml:"dsn"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// ExtractorConfig 外部解析/预测服务
// CallbackBase 用于拼接回调地址，需要是预测服务可达的本服务地址
type ExtractorConfig struct {
	BaseURL       string `yaml:"base_url"`
	CallbackBase  string `yaml:"callback_base"`
	TimeoutSecond int    `yaml:"timeout_second"`
}

type DataConfig struct {
	Dir           string `yaml:"dir"`
	SampleProject string `yaml:"sample_project"` // 范文项目名称
}

type WorkerConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

func loadConfig() *Config {
	config := &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/app.db",
		},
		MinIO: MinIOConfig{
			Endpoint: "127.0.0.1:9000",
			Bucket:   "fund-files",
		},
		Extractor: ExtractorConfig{
			BaseURL:       "http://127.0.0.1:9130",
			CallbackBase:  "http://127.0.0.1:8080",
			TimeoutSecond: 60,
		},
		Data: DataConfig{
			Dir: "./data",
		},
		Worker: WorkerConfig{
			MaxWorkers: 2,
		},
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		yaml.Unmarshal(data, config)
	}

	// 环境变量优先级高于配置文件
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbDSN := os.Getenv("DB_DSN"); dbDSN != "" {
		config.Database.DSN = dbDSN
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		config.Data.Dir = dataDir
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		config.MinIO.Endpoint = endpoint
	}
	if accessKey := os.Getenv("MINIO_ACCESS_KEY"); accessKey != "" {
		config.MinIO.AccessKey = accessKey
	}
	if secretKey := os.Getenv("MINIO_SECRET_KEY"); secretKey != "" {
		config.MinIO.SecretKey = secretKey
	}
	if base := os.Getenv("EXTRACTOR_BASE_URL"); base != "" {
		config.Extractor.BaseURL = base
	}
	if workers := os.Getenv("MAX_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			config.Worker.MaxWorkers = n
		}
	}

	return config
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
