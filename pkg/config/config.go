package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Kafka           KafkaConfig           `mapstructure:"kafka"`
	Log             LogConfig             `mapstructure:"log"`
	Minio           MinioConfig           `mapstructure:"minio"`
	Storage         StorageConfig         `mapstructure:"storage"`
	Upload          UploadConfig          `mapstructure:"upload"`
	Transcode       TranscodeConfig       `mapstructure:"transcode"`
	Retry           RetryConfig           `mapstructure:"retry"`
	Worker          WorkerConfig          `mapstructure:"worker"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
	GRPCServer      GRPCServerConfig      `mapstructure:"grpc_server"`
	Public          PublicConfig          `mapstructure:"public"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置，driver 支持 mysql 与 sqlite
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	BootstrapServers []string          `mapstructure:"bootstrap_servers"`
	ClientID         string            `mapstructure:"client_id"`
	Enabled          bool              `mapstructure:"enabled"`
	Topics           KafkaTopicsConfig `mapstructure:"topics"`
}

type KafkaTopicsConfig struct {
	MediaEvents string `mapstructure:"media_events"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// MinioConfig MinIO配置，启用后转码产物会同步发布到对象存储
type MinioConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKey       string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// StorageConfig 本地持久化存储布局
type StorageConfig struct {
	RootDir      string `mapstructure:"root_dir"`
	ImageDir     string `mapstructure:"image_dir"`
	VideoDir     string `mapstructure:"video_dir"`
	ThumbnailDir string `mapstructure:"thumbnail_dir"`
	TempDir      string `mapstructure:"temp_dir"`
}

// UploadConfig 上传校验
type UploadConfig struct {
	MaxSizeBytes    int64    `mapstructure:"max_size_bytes"`
	ImageExtensions []string `mapstructure:"image_extensions"`
	VideoExtensions []string `mapstructure:"video_extensions"`
}

// PublicConfig 对外访问配置
type PublicConfig struct {
	StorageBase string `mapstructure:"storage_base"`
}

// TranscodeConfig 转码配置
type TranscodeConfig struct {
	FFmpeg          FFmpegConfig  `mapstructure:"ffmpeg"`
	SegmentSeconds  int           `mapstructure:"segment_seconds"`
	PlaylistName    string        `mapstructure:"playlist_name"`
	ThumbnailOffset time.Duration `mapstructure:"thumbnail_offset"`
	PublishObjects  bool          `mapstructure:"publish_objects"`
}

// FFmpegConfig FFmpeg相关配置
type FFmpegConfig struct {
	BinaryPath  string        `mapstructure:"binary_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	VideoCodec  string        `mapstructure:"video_codec"`
	AudioCodec  string        `mapstructure:"audio_codec"`
	VideoPreset string        `mapstructure:"video_preset"`
	Threads     int           `mapstructure:"threads"`
}

// RetryConfig 转码重试策略
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// WorkerConfig Worker相关配置
type WorkerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	WorkerID            string        `mapstructure:"worker_id"`
	MaxConcurrentTasks  int           `mapstructure:"max_concurrent_tasks"`
	QueueDriver         string        `mapstructure:"queue_driver"`
	QueueKey            string        `mapstructure:"queue_key"`
	QueueCapacity       int           `mapstructure:"queue_capacity"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
	RecoverStaleAfter   time.Duration `mapstructure:"recover_stale_after"` // redis 队列下接管处理中记录的阈值，<0 关闭
}

// ServiceRegistryConfig registration configuration.
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoints       []string      `mapstructure:"endpoints"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// GRPCServerConfig gRPC server configuration.
type GRPCServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

const (
	QueueDriverMemory = "memory"
	QueueDriverRedis  = "redis"

	DatabaseDriverMySQL  = "mysql"
	DatabaseDriverSQLite = "sqlite"
)

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("server.port", 8083)
	v.SetDefault("database.driver", DatabaseDriverMySQL)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.client_id", "media-service")
	v.SetDefault("kafka.topics.media_events", "media.status")
	v.SetDefault("service_registry.enabled", false)
	v.SetDefault("grpc_server.enabled", true)
	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.queue_driver", QueueDriverMemory)
	v.SetDefault("transcode.publish_objects", false)

	// 设置环境变量前缀
	v.SetEnvPrefix("MEDIA_SVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// Default 返回只包含默认值的配置，供测试和嵌入式场景使用
func Default() *Config {
	cfg := &Config{}
	cfg.Database.Driver = DatabaseDriverMySQL
	cfg.Worker.Enabled = true
	cfg.Worker.QueueDriver = QueueDriverMemory
	cfg.normalize()
	return cfg
}

// normalize 补全配置的默认值
func (c *Config) normalize() {
	// 兼容不同的密钥字段
	if c.Minio.AccessKeyID == "" {
		c.Minio.AccessKeyID = c.Minio.AccessKey
	}
	if c.Minio.SecretAccessKey == "" {
		c.Minio.SecretAccessKey = c.Minio.SecretKey
	}

	if c.Server.Port <= 0 {
		c.Server.Port = 8083
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DatabaseDriverMySQL
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.Driver == DatabaseDriverSQLite && c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/media.db"
	}

	// 存储布局默认值
	if c.Storage.RootDir == "" {
		c.Storage.RootDir = "storage"
	}
	if c.Storage.ImageDir == "" {
		c.Storage.ImageDir = "media/images"
	}
	if c.Storage.VideoDir == "" {
		c.Storage.VideoDir = "media/videos"
	}
	if c.Storage.ThumbnailDir == "" {
		c.Storage.ThumbnailDir = "media/thumbnails"
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "tmp/uploads"
	}

	// 上传限制默认值
	if c.Upload.MaxSizeBytes <= 0 {
		c.Upload.MaxSizeBytes = 20 * 1024 * 1024
	}
	if len(c.Upload.ImageExtensions) == 0 {
		c.Upload.ImageExtensions = []string{"jpg", "jpeg", "png"}
	}
	if len(c.Upload.VideoExtensions) == 0 {
		c.Upload.VideoExtensions = []string{"mp4", "mov", "mkv", "flv", "avi", "wmv"}
	}

	// 转码默认值
	if c.Transcode.SegmentSeconds <= 0 {
		c.Transcode.SegmentSeconds = 10
	}
	if c.Transcode.PlaylistName == "" {
		c.Transcode.PlaylistName = "playlist.m3u8"
	}
	if c.Transcode.ThumbnailOffset <= 0 {
		c.Transcode.ThumbnailOffset = 100 * time.Millisecond
	}
	if c.Transcode.FFmpeg.BinaryPath == "" {
		c.Transcode.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Transcode.FFmpeg.Timeout == 0 {
		c.Transcode.FFmpeg.Timeout = time.Hour
	}
	if c.Transcode.FFmpeg.VideoCodec == "" {
		c.Transcode.FFmpeg.VideoCodec = "libx264"
	}
	if c.Transcode.FFmpeg.AudioCodec == "" {
		c.Transcode.FFmpeg.AudioCodec = "aac"
	}
	if c.Transcode.FFmpeg.VideoPreset == "" {
		c.Transcode.FFmpeg.VideoPreset = "veryfast"
	}
	if c.Transcode.FFmpeg.Threads < 0 {
		c.Transcode.FFmpeg.Threads = 0
	}

	// 重试策略默认值
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.Backoff <= 0 {
		c.Retry.Backoff = 60 * time.Second
	}

	// Worker相关默认值
	if c.Worker.WorkerID == "" {
		c.Worker.WorkerID = "media-worker"
	}
	if c.Worker.MaxConcurrentTasks <= 0 {
		c.Worker.MaxConcurrentTasks = 2
	}
	if c.Worker.QueueDriver == "" {
		c.Worker.QueueDriver = QueueDriverMemory
	}
	if c.Worker.QueueKey == "" {
		c.Worker.QueueKey = "media:transcode"
	}
	if c.Worker.QueueCapacity <= 0 {
		c.Worker.QueueCapacity = c.Worker.MaxConcurrentTasks * 50
	}
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = time.Second
	}
	if c.Worker.ShutdownGracePeriod == 0 {
		c.Worker.ShutdownGracePeriod = 10 * time.Second
	}
	if c.Worker.RecoverStaleAfter == 0 {
		c.Worker.RecoverStaleAfter = 24 * time.Hour
	}

	if c.GRPCServer.Host == "" {
		c.GRPCServer.Host = "0.0.0.0"
	}
	if c.GRPCServer.Port == 0 {
		c.GRPCServer.Port = 9092
	}
	if c.ServiceRegistry.ServiceName == "" {
		c.ServiceRegistry.ServiceName = "media-service"
	}
	if c.ServiceRegistry.DialTimeout <= 0 {
		c.ServiceRegistry.DialTimeout = 5 * time.Second
	}
	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "media-service"
	}
	if c.Kafka.Topics.MediaEvents == "" {
		c.Kafka.Topics.MediaEvents = "media.status"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// GetRedisAddr 获取Redis地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetGRPCAddr 获取gRPC监听地址
func (c *GRPCServerConfig) GetGRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
