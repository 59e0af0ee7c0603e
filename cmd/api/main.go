package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custodia.org/internal/auth"
	"custodia.org/internal/blob"
	"custodia.org/internal/config"
	"custodia.org/internal/custody"
	"custodia.org/internal/httpapi"
	"custodia.org/internal/obs"
	"custodia.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg := config.Load()

	if cfg.DevMode {
		// Insecure fallbacks (fixed auth secret, seeded accounts) only
		// exist behind this flag; production startup without a secret
		// fails closed.
		auth.EnableInsecureDevSecret()
		log.Println("development mode enabled: insecure fallbacks active")
	}

	var (
		users     auth.Store
		engine    custody.Service
		directory custody.UserDirectory
		pgStore   *pg.Store
	)
	if cfg.DatabaseDSN != "" {
		var err error
		pgStore, err = pg.Open(cfg.DatabaseDSN, pg.WithPendingGuard(cfg.PendingGuard))
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		users = pgStore
		engine = pgStore
		directory = pgStore
	} else {
		mem := auth.NewInMemory()
		users = mem
		directory = mem
		engine = custody.NewInMemory(
			custody.WithUserDirectory(directory),
			custody.WithPendingGuard(cfg.PendingGuard),
		)
	}

	authSvc, err := auth.NewService(users)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	ctx := context.Background()

	var blobs blob.Store
	if cfg.S3Bucket != "" {
		blobs, err = blob.NewS3(ctx, blob.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	} else {
		blobs, err = blob.NewFS(cfg.DocumentDir)
	}
	if err != nil {
		log.Fatalf("document storage: %v", err)
	}

	if cfg.DevMode {
		if err := seedDevData(ctx, authSvc, users, engine); err != nil {
			log.Fatalf("seed dev data: %v", err)
		}
	}

	rp := httpapi.ReadyProbe{}
	if pgStore != nil {
		rp.DB = pgStore.DB()
	}
	api := httpapi.New(rp, version, authSvc, engine, blobs, cfg.WebDir)
	api.ConfigureRateLimit(cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting custodia-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}

// seedDevData creates the fixed development accounts and one default asset
// on first startup (no users yet).
func seedDevData(ctx context.Context, authSvc *auth.Service, users auth.Store, engine custody.Service) error {
	n, err := users.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	accounts := []struct {
		name, email, password, role string
	}{
		{"Administrator", "admin@custodia.local", "admin-dev-password", auth.RoleAdmin},
		{"Vault Staff", "staff@custodia.local", "staff-dev-password", auth.RoleStaff},
		{"Demo Claimant", "user@custodia.local", "user-dev-password", auth.RoleUser},
	}
	for _, acc := range accounts {
		if _, err := authSvc.Register(ctx, acc.name, acc.email, acc.password, acc.role); err != nil {
			return err
		}
	}

	assets, err := engine.ListAssets(ctx)
	if err != nil {
		return err
	}
	if len(assets) > 0 {
		return nil
	}
	_, err = engine.CreateAsset(ctx, &custody.Asset{
		Name:          "Gold bullion, 1kg bar",
		Description:   "Development seed asset",
		OriginalValue: 6_500_000,
		CurrentValue:  6_500_000,
		DemurrageRate: 50,
		Status:        custody.AssetStored,
	})
	return err
}
