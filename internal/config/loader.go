// Package config 提供配置加载功能
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultDir 默认配置目录
const DefaultDir = "configs"

var placeholderPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = DefaultDir
	}
	return LoadFrom(dir)
}

// LoadFrom 从指定目录加载配置
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 默认配置（缺失时完全依赖默认值和环境变量）
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	// 2. 环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := loadConfigFile(v, filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env)), true); err != nil {
		return nil, err
	}

	// 3. 环境变量直接覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符，未定义且无默认值时保留原样
func expandEnv(s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := placeholderPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match
	})
}

// Validate 校验服务通用的必填项
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.Postgres.Host) == "" {
		errs = append(errs, errors.New("database.postgres.host is required"))
	}
	if strings.TrimSpace(c.Database.Postgres.Database) == "" {
		errs = append(errs, errors.New("database.postgres.database is required"))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, errors.New("embedding.dimension must be positive"))
	}
	if c.Embedding.APIBatchSize <= 0 {
		errs = append(errs, errors.New("embedding.api_batch_size must be positive"))
	}
	if c.Search.MaxLimit <= 0 || c.Search.DefaultLimit <= 0 || c.Search.DefaultLimit > c.Search.MaxLimit {
		errs = append(errs, errors.New("search.default_limit must be within 1..search.max_limit"))
	}
	return errors.Join(errs...)
}

// ValidateIngest 校验导入任务的必填项，缺少任何一项都属于启动期致命错误
func (c *Config) ValidateIngest() error {
	errs := []error{c.Validate()}
	if strings.TrimSpace(c.Embedding.APIKey) == "" {
		errs = append(errs, errors.New("embedding.api_key is required for ingestion"))
	}
	if strings.TrimSpace(c.Ingest.DataPath) == "" {
		errs = append(errs, errors.New("ingest.data_path is required"))
	}
	if strings.TrimSpace(c.Ingest.CheckpointFile) == "" {
		errs = append(errs, errors.New("ingest.checkpoint_file is required"))
	}
	if c.Ingest.DBBatchSize <= 0 {
		errs = append(errs, errors.New("ingest.db_batch_size must be positive"))
	}
	if c.Ingest.MaxWorkers <= 0 {
		errs = append(errs, errors.New("ingest.max_workers must be positive"))
	}
	return errors.Join(errs...)
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "poetry-search")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8000)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "60s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "30s")

	// 数据库默认值
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "postgres123")
	v.SetDefault("database.postgres.database", "poetry_db")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 20)
	v.SetDefault("database.postgres.max_idle_conns", 2)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")
	v.SetDefault("database.postgres.log_level", "warn")
	v.SetDefault("database.postgres.slow_threshold", "1s")

	// Redis 默认值
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.redis.query_ttl", "24h")

	// Embedding 默认值
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("embedding.model", "text-embedding-v1")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("embedding.api_batch_size", 10)
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("embedding.retry_delay", "2s")
	v.SetDefault("embedding.timeout", "60s")

	// 导入默认值
	v.SetDefault("ingest.data_path", "")
	v.SetDefault("ingest.checkpoint_file", "processed_files.log")
	v.SetDefault("ingest.db_batch_size", 100)
	v.SetDefault("ingest.max_workers", 8)

	// 检索默认值
	v.SetDefault("search.default_limit", 10)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("search.semantic_total_cap", 1000)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", false)
	v.SetDefault("security.rate_limit.requests_per_second", 50)
}
