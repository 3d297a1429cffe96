package app

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"family-portrait-server/modules/assets"
	"family-portrait-server/modules/common/config"
	"family-portrait-server/modules/common/database"
	"family-portrait-server/modules/common/progress"
	"family-portrait-server/modules/common/provider"
	redisutil "family-portrait-server/modules/common/redis"
	"family-portrait-server/modules/common/storage"
	"family-portrait-server/modules/common/transfer"
	familyportrait "family-portrait-server/modules/family-portrait"
	"family-portrait-server/modules/submodule/kieai"
	"family-portrait-server/modules/submodule/nanobanana"
)

const bannerTitle = "Family Tree Art"

// App - 서버와 CLI가 함께 쓰는 구성 요소
type App struct {
	Config   *config.Config
	Hub      *progress.Hub
	Assets   *assets.Service
	Portrait *familyportrait.Service
	Handler  *familyportrait.Handler
	Unlocker familyportrait.Unlocker
	Redis    *redis.Client
}

// New - 설정에 따라 저장소, provider, 파이프라인을 구성
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Hub: progress.NewHub()}

	// 1. 저장소 (preview/참조 사진은 public, clean은 private 버킷)
	publicStore := storage.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabasePublicBucket, true)
	privateStore := storage.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabasePrivateBucket, false)
	photoTransfer := transfer.NewClient(publicStore, transfer.Options{})
	cleanTransfer := transfer.NewClient(privateStore, transfer.Options{})

	// 2. Redis (redis asset store에는 필수, 그 외에는 unlock ledger용으로 선택)
	rdb, err := redisutil.Connect(ctx, cfg)
	if err != nil {
		if cfg.AssetStore == config.AssetStoreRedis {
			return nil, fmt.Errorf("redis is required for ASSET_STORE=redis: %w", err)
		}
		log.Printf("⚠️  Redis unavailable, unlock ledger disabled: %v", err)
	}
	a.Redis = rdb

	// 3. asset record 저장소
	store, err := newAssetStore(cfg, rdb)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Assets = assets.NewService(store, cleanTransfer, photoTransfer, assets.WatermarkOptions{
		TileText:    cfg.WatermarkText,
		BannerTitle: bannerTitle,
		PriceLabel:  cfg.UnlockPriceLabel,
	})

	// 4. 생성 provider
	p, err := newProvider(ctx, cfg, photoTransfer)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Portrait = familyportrait.NewService(
		familyportrait.NewTaskClient(p),
		photoTransfer,
		a.Assets,
		a.Hub,
		familyportrait.GenerateOptions{
			AspectRatio:  cfg.DefaultAspectRatio,
			Resolution:   cfg.DefaultResolution,
			OutputFormat: cfg.DefaultOutputFormat,
		},
	)

	a.Unlocker = familyportrait.LockedUnlocker{}
	if rdb != nil {
		a.Unlocker = familyportrait.NewRedisUnlocker(rdb)
	}
	a.Handler = familyportrait.NewHandler(a.Portrait, a.Unlocker, privateStore)

	log.Printf("✅ Family portrait pipeline ready (provider: %s, configured: %v, asset store: %s)",
		p.Name(), p.Configured(), cfg.AssetStore)
	return a, nil
}

func newAssetStore(cfg *config.Config, rdb *redis.Client) (assets.Store, error) {
	switch cfg.AssetStore {
	case config.AssetStoreRedis:
		return assets.NewRedisStore(rdb), nil
	case config.AssetStoreSupabase:
		db, err := database.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.AssetTable)
		if err != nil {
			return nil, err
		}
		return assets.NewSupabaseStore(db), nil
	case config.AssetStoreMemory:
		log.Println("⚠️  Using in-memory asset store (records are lost on restart)")
		return assets.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown asset store: %s", cfg.AssetStore)
}

func newProvider(ctx context.Context, cfg *config.Config, fetcher nanobanana.Fetcher) (provider.Provider, error) {
	switch cfg.GenerationProvider {
	case config.ProviderKie:
		return kieai.NewService(cfg.KieAPIKey, cfg.KieAPIURL, cfg.KieModel), nil
	case config.ProviderGemini:
		return nanobanana.NewService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, fetcher)
	}
	return nil, fmt.Errorf("unknown generation provider: %s", cfg.GenerationProvider)
}

// Close - 외부 연결 정리
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
}
