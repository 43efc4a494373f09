// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，供 cmd 下的二进制使用。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Extraction    ExtractionConfig    `mapstructure:"extraction"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Search        SearchConfig        `mapstructure:"search"`
	Reindex       ReindexConfig       `mapstructure:"reindex"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空表示不启用。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// StorageConfig 描述归档文件在本地磁盘上的根目录。
type StorageConfig struct {
	Root           string `mapstructure:"root"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// ExtractionConfig 控制文本提取与 OCR 兜底链路。
type ExtractionConfig struct {
	MaxChars          int           `mapstructure:"max_chars"`
	LegacyWordCommand string        `mapstructure:"legacy_word_command"`
	LegacyWordTimeout time.Duration `mapstructure:"legacy_word_timeout"`
	OCR               OCRConfig     `mapstructure:"ocr"`
	PDFRender         PDFRender     `mapstructure:"pdf_render"`
}

// OCRConfig 选择 OCR 引擎：tika、tesseract 或 none。
type OCRConfig struct {
	Engine           string        `mapstructure:"engine"`
	Language         string        `mapstructure:"language"`
	Timeout          time.Duration `mapstructure:"timeout"`
	TesseractCommand string        `mapstructure:"tesseract_command"`
}

// PDFRender 配置将 PDF 页面渲染为图片的外部命令（pdftoppm）。
type PDFRender struct {
	Command string        `mapstructure:"command"`
	DPI     int           `mapstructure:"dpi"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string        `mapstructure:"addresses"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	IndexName string        `mapstructure:"index_name"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// KafkaConfig 存储审计事件流的 Kafka 配置。
type KafkaConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Brokers    string `mapstructure:"brokers"`
	AuditTopic string `mapstructure:"audit_topic"`

	// PublishTimeout 约束单次审计事件发布，超时只记录日志
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// AuditConfig 控制是否记录审计日志。
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SearchConfig 存储搜索相关的配置。
type SearchConfig struct {
	ResultsPerPage int `mapstructure:"results_per_page"`
}

// ReindexConfig 控制全量重建索引的批大小与并发数。
type ReindexConfig struct {
	BatchSize int `mapstructure:"batch_size"`
	Workers   int `mapstructure:"workers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.mysql.max_idle_conns", 10)
	v.SetDefault("database.mysql.max_open_conns", 100)
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_expire_hours", 12)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")
	v.SetDefault("storage.root", "/data/docs")
	v.SetDefault("storage.max_upload_bytes", 104857600)
	v.SetDefault("extraction.max_chars", 100000)
	v.SetDefault("extraction.legacy_word_command", "antiword")
	v.SetDefault("extraction.legacy_word_timeout", 30*time.Second)
	v.SetDefault("extraction.ocr.engine", "tika")
	v.SetDefault("extraction.ocr.language", "eng")
	v.SetDefault("extraction.ocr.timeout", 60*time.Second)
	v.SetDefault("extraction.ocr.tesseract_command", "tesseract")
	v.SetDefault("extraction.pdf_render.command", "pdftoppm")
	v.SetDefault("extraction.pdf_render.dpi", 300)
	v.SetDefault("extraction.pdf_render.timeout", 60*time.Second)
	v.SetDefault("tika.server_url", "http://localhost:9998")
	v.SetDefault("elasticsearch.addresses", "http://localhost:9200")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.index_name", "archive_documents")
	v.SetDefault("elasticsearch.timeout", 10*time.Second)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.audit_topic", "archive-audit")
	v.SetDefault("kafka.publish_timeout", 2*time.Second)
	v.SetDefault("audit.enabled", true)
	v.SetDefault("search.results_per_page", 25)
	v.SetDefault("reindex.batch_size", 200)
	v.SetDefault("reindex.workers", 4)
}

// Load 读取配置文件（可为空），并允许 ARCHIVE_ 前缀的环境变量覆盖任意键。
// 例如 ARCHIVE_STORAGE_ROOT 覆盖 storage.root。
func Load(configPath string) (*Config, error) {
	// .env 是可选的，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ARCHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// Init 加载配置到全局变量 Conf，失败时直接 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}
