package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 应用配置结构体
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Cookie   CookieConfig   `yaml:"cookie"`
	Log      LogConfig      `yaml:"log"`
	Redis    RedisConfig    `yaml:"redis"`
	Media    MediaConfig    `yaml:"media"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port         string        `yaml:"port"`         // 服务器监听端口
	ReadTimeout  time.Duration `yaml:"readTimeout"`  // 读取超时时间
	WriteTimeout time.Duration `yaml:"writeTimeout"` // 写入超时时间
	IdleTimeout  time.Duration `yaml:"idleTimeout"`  // 空闲超时时间
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`   // mysql / postgres / memory
	Host     string `yaml:"host"`     // 数据库主机地址
	Port     int    `yaml:"port"`     // 数据库端口
	Username string `yaml:"username"` // 数据库用户名
	Password string `yaml:"password"` // 数据库密码
	Database string `yaml:"database"` // 数据库名称
	Charset  string `yaml:"charset"`  // 字符集（mysql）
	SSLMode  string `yaml:"sslMode"`  // sslmode（postgres）
	MaxIdle  int    `yaml:"maxIdle"`  // 最大空闲连接数
	MaxOpen  int    `yaml:"maxOpen"`  // 最大打开连接数
	LogSQL   bool   `yaml:"logSQL"`   // 是否打印SQL
}

// JWTConfig JWT配置，访问令牌与刷新令牌使用不同的密钥
type JWTConfig struct {
	AccessSecret  string        `yaml:"accessSecret"`
	AccessExpire  time.Duration `yaml:"accessExpire"`
	RefreshSecret string        `yaml:"refreshSecret"`
	RefreshExpire time.Duration `yaml:"refreshExpire"`
	Issuer        string        `yaml:"issuer"` // JWT签发者
}

// CookieConfig 令牌Cookie配置
type CookieConfig struct {
	Secure   bool   `yaml:"secure"`
	Domain   string `yaml:"domain"`
	SameSite string `yaml:"sameSite"` // lax / strict / none
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`      // 日志级别
	Filename   string `yaml:"filename"`   // 日志文件名
	MaxSize    int    `yaml:"maxSize"`    // 单个日志文件最大大小(MB)
	MaxBackups int    `yaml:"maxBackups"` // 最大备份文件数
	MaxAge     int    `yaml:"maxAge"`     // 最大保存天数
	Compress   bool   `yaml:"compress"`   // 是否压缩
	Console    bool   `yaml:"console"`    // 是否同时输出到标准输出
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`  // 未启用时使用内存黑名单
	Host     string `yaml:"host"`     // Redis主机地址
	Port     int    `yaml:"port"`     // Redis端口
	Password string `yaml:"password"` // Redis密码
	DB       int    `yaml:"db"`       // Redis数据库编号
}

// MediaConfig 媒体上传配置
type MediaConfig struct {
	Provider      string `yaml:"provider"`      // local / s3
	UploadDir     string `yaml:"uploadDir"`     // 上传临时文件目录
	MaxUploadSize int64  `yaml:"maxUploadSize"` // 单次上传最大字节数
	LocalDir      string `yaml:"localDir"`      // local 模式的公开目录
	PublicBaseURL string `yaml:"publicBaseURL"` // 生成文件URL的前缀
	Folder        string `yaml:"folder"`        // 对象key前缀

	S3 S3Config `yaml:"s3"`
}

// S3Config S3兼容存储配置
type S3Config struct {
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UsePathStyle    bool   `yaml:"usePathStyle"`
}

// LoadConfig 加载配置（.env + YAML文件 + 环境变量）
func LoadConfig() *Config {
	// 0. 加载 .env（不存在时忽略）
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}

	// 1. 从YAML文件加载默认配置
	config := loadFromYAML(getEnv("CONFIG_FILE", "config/config.yaml"))

	// 2. 用环境变量覆盖配置（环境变量优先级更高）
	overrideWithEnvVars(config)

	return config
}

// loadFromYAML 从YAML文件加载配置，缺失的字段保留默认值
func loadFromYAML(filePath string) *Config {
	config := getDefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return config
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		// 解析失败时返回默认配置
		return getDefaultConfig()
	}

	return config
}

// overrideWithEnvVars 用环境变量覆盖配置
func overrideWithEnvVars(config *Config) {
	// 服务器配置
	if port := getEnv("SERVER_PORT", ""); port != "" {
		config.Server.Port = port
	}
	if timeout := getEnvDuration("SERVER_READ_TIMEOUT", 0); timeout > 0 {
		config.Server.ReadTimeout = timeout
	}
	if timeout := getEnvDuration("SERVER_WRITE_TIMEOUT", 0); timeout > 0 {
		config.Server.WriteTimeout = timeout
	}
	if timeout := getEnvDuration("SERVER_IDLE_TIMEOUT", 0); timeout > 0 {
		config.Server.IdleTimeout = timeout
	}

	// 数据库配置
	if driver := getEnv("DB_DRIVER", ""); driver != "" {
		config.Database.Driver = driver
	}
	if host := getEnv("DB_HOST", ""); host != "" {
		config.Database.Host = host
	}
	if port := getEnvInt("DB_PORT", 0); port > 0 {
		config.Database.Port = port
	}
	if username := getEnv("DB_USERNAME", ""); username != "" {
		config.Database.Username = username
	}
	if password := getEnv("DB_PASSWORD", ""); password != "" {
		config.Database.Password = password
	}
	if database := getEnv("DB_DATABASE", ""); database != "" {
		config.Database.Database = database
	}
	if charset := getEnv("DB_CHARSET", ""); charset != "" {
		config.Database.Charset = charset
	}
	if sslMode := getEnv("DB_SSLMODE", ""); sslMode != "" {
		config.Database.SSLMode = sslMode
	}
	if maxIdle := getEnvInt("DB_MAX_IDLE", 0); maxIdle > 0 {
		config.Database.MaxIdle = maxIdle
	}
	if maxOpen := getEnvInt("DB_MAX_OPEN", 0); maxOpen > 0 {
		config.Database.MaxOpen = maxOpen
	}
	config.Database.LogSQL = getEnvBool("DB_LOG_SQL", config.Database.LogSQL)

	// JWT配置
	if secret := getEnv("ACCESS_TOKEN_SECRET", ""); secret != "" {
		config.JWT.AccessSecret = secret
	}
	if expire := getEnvDuration("ACCESS_TOKEN_EXPIRY", 0); expire > 0 {
		config.JWT.AccessExpire = expire
	}
	if secret := getEnv("REFRESH_TOKEN_SECRET", ""); secret != "" {
		config.JWT.RefreshSecret = secret
	}
	if expire := getEnvDuration("REFRESH_TOKEN_EXPIRY", 0); expire > 0 {
		config.JWT.RefreshExpire = expire
	}
	if issuer := getEnv("JWT_ISSUER", ""); issuer != "" {
		config.JWT.Issuer = issuer
	}

	// Cookie配置
	config.Cookie.Secure = getEnvBool("COOKIE_SECURE", config.Cookie.Secure)
	if domain := getEnv("COOKIE_DOMAIN", ""); domain != "" {
		config.Cookie.Domain = domain
	}
	if sameSite := getEnv("COOKIE_SAMESITE", ""); sameSite != "" {
		config.Cookie.SameSite = sameSite
	}

	// 日志配置
	if level := getEnv("LOG_LEVEL", ""); level != "" {
		config.Log.Level = level
	}
	if filename := getEnv("LOG_FILENAME", ""); filename != "" {
		config.Log.Filename = filename
	}
	if maxSize := getEnvInt("LOG_MAX_SIZE", 0); maxSize > 0 {
		config.Log.MaxSize = maxSize
	}
	if maxBackups := getEnvInt("LOG_MAX_BACKUPS", 0); maxBackups > 0 {
		config.Log.MaxBackups = maxBackups
	}
	if maxAge := getEnvInt("LOG_MAX_AGE", 0); maxAge > 0 {
		config.Log.MaxAge = maxAge
	}
	config.Log.Console = getEnvBool("LOG_CONSOLE", config.Log.Console)

	// Redis配置
	config.Redis.Enabled = getEnvBool("REDIS_ENABLED", config.Redis.Enabled)
	if host := getEnv("REDIS_HOST", ""); host != "" {
		config.Redis.Host = host
	}
	if port := getEnvInt("REDIS_PORT", 0); port > 0 {
		config.Redis.Port = port
	}
	if password := getEnv("REDIS_PASSWORD", ""); password != "" {
		config.Redis.Password = password
	}
	if db := getEnvInt("REDIS_DB", -1); db >= 0 {
		config.Redis.DB = db
	}

	// 媒体配置
	if provider := getEnv("MEDIA_PROVIDER", ""); provider != "" {
		config.Media.Provider = provider
	}
	if dir := getEnv("MEDIA_UPLOAD_DIR", ""); dir != "" {
		config.Media.UploadDir = dir
	}
	if size := getEnvInt("MEDIA_MAX_UPLOAD_SIZE", 0); size > 0 {
		config.Media.MaxUploadSize = int64(size)
	}
	if dir := getEnv("MEDIA_LOCAL_DIR", ""); dir != "" {
		config.Media.LocalDir = dir
	}
	if base := getEnv("MEDIA_PUBLIC_BASE_URL", ""); base != "" {
		config.Media.PublicBaseURL = base
	}
	if folder := getEnv("MEDIA_FOLDER", ""); folder != "" {
		config.Media.Folder = folder
	}
	if region := getEnv("S3_REGION", ""); region != "" {
		config.Media.S3.Region = region
	}
	if bucket := getEnv("S3_BUCKET", ""); bucket != "" {
		config.Media.S3.Bucket = bucket
	}
	if endpoint := getEnv("S3_ENDPOINT", ""); endpoint != "" {
		config.Media.S3.Endpoint = endpoint
	}
	if key := getEnv("S3_ACCESS_KEY_ID", ""); key != "" {
		config.Media.S3.AccessKeyID = key
	}
	if secret := getEnv("S3_SECRET_ACCESS_KEY", ""); secret != "" {
		config.Media.S3.SecretAccessKey = secret
	}
	config.Media.S3.UsePathStyle = getEnvBool("S3_USE_PATH_STYLE", config.Media.S3.UsePathStyle)
}

// getDefaultConfig 获取默认配置
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			Username: "vidhub",
			Password: "vidhub",
			Database: "vidhub",
			Charset:  "utf8mb4",
			SSLMode:  "disable",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		JWT: JWTConfig{
			AccessSecret:  "change-me-access-secret",
			AccessExpire:  24 * time.Hour,
			RefreshSecret: "change-me-refresh-secret",
			RefreshExpire: 10 * 24 * time.Hour,
			Issuer:        "vidhub",
		},
		Cookie: CookieConfig{
			Secure:   true,
			SameSite: "lax",
		},
		Log: LogConfig{
			Level:      "info",
			Filename:   "logs/app.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
			Console:    true,
		},
		Redis: RedisConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    6379,
			DB:      0,
		},
		Media: MediaConfig{
			Provider:      "local",
			UploadDir:     "public/temp",
			MaxUploadSize: 10 << 20,
			LocalDir:      "public/media",
			PublicBaseURL: "http://localhost:8000/media",
			Folder:        "vidhub",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
	}
}

// 辅助函数：获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 辅助函数：获取整数环境变量
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// 辅助函数：获取布尔环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// 辅助函数：获取时间环境变量
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
