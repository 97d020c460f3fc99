package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	api "github.com/sealdrop/sealdrop/internal/api/http"
	"github.com/sealdrop/sealdrop/internal/api/http/handler"
	"github.com/sealdrop/sealdrop/internal/atrest"
	"github.com/sealdrop/sealdrop/internal/config"
	"github.com/sealdrop/sealdrop/internal/logger"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/repository/postgres"
	"github.com/sealdrop/sealdrop/internal/server"
	"github.com/sealdrop/sealdrop/internal/service"
	"github.com/sealdrop/sealdrop/internal/storage/encrypted"
	storage "github.com/sealdrop/sealdrop/internal/storage/minio"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	keys := atrest.NewKeyring(cfg.AtRest.MasterKeyBytes())
	if keys.Enabled() {
		logger.Info("encryption at rest enabled")
	}

	fileRepo := postgres.NewFileRepository(db, keys)
	grantRepo := postgres.NewGrantRepository(db, keys)
	auditRepo := postgres.NewAuditRepository(db)

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	blobStore, err := storage.NewBlobStore(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize blob store", "error", err)
	}
	blobs := encrypted.New(blobStore, keys)

	verifyService := service.NewVerify(fileRepo, grantRepo, auditRepo, logger, service.VerifyConfig{
		CodeLength:  cfg.OTP.CodeLength,
		MaxAttempts: cfg.OTP.MaxAttempts,
		Cooldown:    cfg.OTP.Cooldown,
	})
	shareService := service.NewShare(fileRepo, grantRepo, blobs, auditRepo, logger)

	h := handler.New(verifyService, shareService, logger)
	httpServer := server.NewHTTPServer(api.NewRouter(h, logger), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
