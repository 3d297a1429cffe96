package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"family-portrait-server/modules/app"
	"family-portrait-server/modules/common/config"
)

// 만료 asset record 청소 주기
const sweepInterval = 30 * time.Minute

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":             "healthy",
			"service":            "family-portrait-server",
			"provider":           cfg.GenerationProvider,
			"providerConfigured": cfg.ProviderConfigured(),
		})
	}
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize: %v", err)
	}
	defer a.Close()

	// 만료 asset 청소 루틴 시작
	a.Assets.StartSweeper(ctx, sweepInterval)

	// 라우터 설정
	r := mux.NewRouter()

	// CORS 미들웨어 적용
	r.Use(enableCORS)

	// 라우트 설정
	r.HandleFunc("/", healthCheck(cfg)).Methods("GET")
	r.HandleFunc("/health", healthCheck(cfg)).Methods("GET")
	r.HandleFunc("/ws", a.Hub.HandleWebSocket)
	a.Handler.RegisterRoutes(r)

	log.Printf("🚀 Family Portrait Server starting on port %s", cfg.Port)
	log.Printf("📡 Progress WebSocket: ws://localhost:%s/ws?session={sessionId}", cfg.Port)
	log.Printf("🌳 Generate: POST http://localhost:%s/api/family-portrait/generate", cfg.Port)
	log.Printf("🔓 Asset: GET http://localhost:%s/api/family-portrait/assets/{assetId}", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	// 서버 시작
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
