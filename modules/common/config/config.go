package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Provider 이름
const (
	ProviderKie    = "kie"
	ProviderGemini = "gemini"
)

// AssetStore 백엔드 이름
const (
	AssetStoreRedis    = "redis"
	AssetStoreSupabase = "supabase"
	AssetStoreMemory   = "memory"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabasePublicBucket  string
	SupabasePrivateBucket string

	// Generation provider
	GenerationProvider string
	KieAPIKey          string
	KieAPIURL          string
	KieModel           string
	GeminiAPIKey       string
	GeminiModel        string

	// Generation 기본 옵션
	DefaultAspectRatio  string
	DefaultResolution   string
	DefaultOutputFormat string

	// Asset
	AssetStore       string
	AssetTable       string
	UnlockPriceLabel string
	WatermarkText    string

	// Server
	Port string
}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg := FromEnv()

	// 필수 환경변수 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", cfg.RedisHost, cfg.RedisPort, cfg.RedisUseTLS)
	log.Printf("   Supabase: %s (public: %s, private: %s)", cfg.SupabaseURL, cfg.SupabasePublicBucket, cfg.SupabasePrivateBucket)
	log.Printf("   Provider: %s (configured: %v)", cfg.GenerationProvider, cfg.ProviderConfigured())
	log.Printf("   Asset store: %s", cfg.AssetStore)

	return cfg, nil
}

// FromEnv - .env 로드 없이 현재 환경변수로 Config 생성
func FromEnv() *Config {
	// Redis UseTLS 파싱
	useTLS := true // 기본값
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	return &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		// Supabase
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabasePublicBucket:  getEnv("SUPABASE_PUBLIC_BUCKET", "family-portrait-previews"),
		SupabasePrivateBucket: getEnv("SUPABASE_PRIVATE_BUCKET", "family-portrait-private"),

		// Generation provider
		GenerationProvider: strings.ToLower(getEnv("GENERATION_PROVIDER", ProviderKie)),
		KieAPIKey:          getEnv("KIE_API_KEY", ""),
		KieAPIURL:          getEnv("KIE_API_URL", "https://api.kie.ai/api/v1/jobs"),
		KieModel:           getEnv("KIE_MODEL", "nano-banana-pro"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),

		DefaultAspectRatio:  getEnv("DEFAULT_ASPECT_RATIO", "4:3"),
		DefaultResolution:   getEnv("DEFAULT_RESOLUTION", "2K"),
		DefaultOutputFormat: getEnv("DEFAULT_OUTPUT_FORMAT", "png"),

		// Asset
		AssetStore:       strings.ToLower(getEnv("ASSET_STORE", AssetStoreRedis)),
		AssetTable:       getEnv("ASSET_TABLE", "family_portrait_assets"),
		UnlockPriceLabel: getEnv("UNLOCK_PRICE_LABEL", "$9.99"),
		WatermarkText:    getEnv("WATERMARK_TEXT", "FAMILY TREE ART PREVIEW"),

		// Server
		Port: getEnv("PORT", "8080"),
	}
}

// ProviderConfigured - 선택된 생성 provider의 키가 설정됐는지 확인
// provider 키가 없어도 서버는 뜨고, generate 요청에서 ConfigurationError로 응답한다
func (c *Config) ProviderConfigured() bool {
	switch c.GenerationProvider {
	case ProviderKie:
		return c.KieAPIKey != ""
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	}
	return false
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	switch c.GenerationProvider {
	case ProviderKie, ProviderGemini:
	default:
		return fmt.Errorf("GENERATION_PROVIDER must be %q or %q, got %q", ProviderKie, ProviderGemini, c.GenerationProvider)
	}

	switch c.AssetStore {
	case AssetStoreRedis:
		if c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required for ASSET_STORE=redis")
		}
	case AssetStoreSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for ASSET_STORE=supabase")
		}
	case AssetStoreMemory:
	default:
		return fmt.Errorf("unknown ASSET_STORE: %s", c.AssetStore)
	}

	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	return nil
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
