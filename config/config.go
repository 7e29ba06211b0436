package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	OllamaHost         string
	VisionModel        string
	AnalyzeTimeout     int // 单张图片分析超时（秒）
	DBPath             string
	ImageDir           string
	APIToken           string
	RateLimitEnabled   bool
	RateLimitPerIP     int
	RateLimitBurst     int
	AnalyzeWorkerCount int
	JPEGQuality        int
}

// Load 加载配置（从 .env 文件和环境变量）
func Load() (*Config, error) {
	// 尝试加载 .env 文件（如果不存在也不报错）
	_ = godotenv.Load()

	cfg := &Config{
		OllamaHost:         getEnv("OLLAMA_HOST", "http://localhost:11434"),
		VisionModel:        getEnv("VISION_MODEL", "llava"),
		AnalyzeTimeout:     getEnvInt("ANALYZE_TIMEOUT", 120),
		DBPath:             parseDBPath(getEnv("DATABASE_URL", "image_tags.sqlite")),
		ImageDir:           getEnv("IMAGE_DIR", "images"),
		APIToken:           getEnv("API_TOKEN", "your-secret-token-here"),
		RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitPerIP:     getEnvInt("RATE_LIMIT_PER_IP", 60),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 10),
		AnalyzeWorkerCount: getEnvInt("ANALYZE_WORKER_COUNT", 2),
		JPEGQuality:        getEnvInt("JPEG_QUALITY", 90),
	}

	return cfg, nil
}

// LoadFromDB 从数据库加载配置并覆盖当前配置
func (c *Config) LoadFromDB(dbAPI interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}) error {
	// 这里使用 interface 是为了避免循环引用, 因为 db 包引用了 config
	// 实际上我们会传入 *sql.DB
	rows, err := dbAPI.Query("SELECT key, value FROM system_configs")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}

		switch key {
		case "API_TOKEN":
			if value != "" {
				c.APIToken = value
			}
		case "OLLAMA_HOST":
			if value != "" {
				c.OllamaHost = value
			}
		case "VISION_MODEL":
			if value != "" {
				c.VisionModel = value
			}
		case "ANALYZE_TIMEOUT":
			if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
				c.AnalyzeTimeout = secs
			}
		}
	}
	return nil
}

// parseDBPath 解析数据库路径（兼容 sqlite:/// 前缀）
func parseDBPath(dbURL string) string {
	return strings.TrimPrefix(dbURL, "sqlite:///")
}

// getEnv 获取环境变量（带默认值）
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	value = strings.ToLower(strings.TrimSpace(value))
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.APIToken == "" || c.APIToken == "your-secret-token-here" {
		return fmt.Errorf("请设置 API_TOKEN 环境变量")
	}

	if c.OllamaHost == "" {
		return fmt.Errorf("OLLAMA_HOST 不能为空")
	}

	if c.AnalyzeTimeout <= 0 {
		return fmt.Errorf("ANALYZE_TIMEOUT 必须大于 0")
	}

	if c.RateLimitPerIP <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_IP 必须大于 0")
	}

	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY 必须在 1-100 之间")
	}

	return nil
}
