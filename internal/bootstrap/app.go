// Package bootstrap wires configuration into concrete dependencies.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"docverify-backend/internal/audit"
	"docverify-backend/internal/comparison"
	"docverify-backend/internal/documents"
	"docverify-backend/internal/extraction"
	"docverify-backend/internal/nlp"
	"docverify-backend/internal/nlp/spacy"
	"docverify-backend/internal/ocr"
	"docverify-backend/internal/shared/config"
	"docverify-backend/internal/shared/server"
	"docverify-backend/internal/shared/storage/db"
	"docverify-backend/internal/shared/storage/object"
	localstore "docverify-backend/internal/shared/storage/object/local"
	s3store "docverify-backend/internal/shared/storage/object/s3"
	"docverify-backend/internal/verification"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Audit  audit.Sink

	DocumentsRepo       documents.Repo
	VerificationService *verification.Service
	ComparisonService   *comparison.Service
	VerificationHandler *verification.Handler
	ComparisonHandler   *comparison.Handler
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sink, err := buildAuditSink(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var repo documents.Repo
	if sqlDB != nil {
		repo = documents.NewPgRepo(sqlDB)
	} else {
		repo = documents.NewMemoryRepo()
	}

	pipeline := &extraction.Pipeline{Entities: buildEntityClient(cfg)}
	textSource := &ocr.StoreSource{Store: store}
	verifySvc := verification.NewService(repo, store, pipeline, textSource, sink)
	compareSvc := comparison.NewService(repo, cfg.SimilarityThreshold)

	app := &App{
		Config:              cfg,
		DB:                  sqlDB,
		Store:               store,
		Audit:               sink,
		DocumentsRepo:       repo,
		VerificationService: verifySvc,
		ComparisonService:   compareSvc,
		VerificationHandler: verification.NewHandler(verifySvc),
		ComparisonHandler:   comparison.NewHandler(compareSvc),
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              cfg,
		VerificationHandler: app.VerificationHandler,
		ComparisonHandler:   app.ComparisonHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildAuditSink(ctx context.Context, cfg config.Config) (audit.Sink, error) {
	switch cfg.AuditSinkType {
	case "nats":
		if strings.TrimSpace(cfg.NATSURL) == "" {
			return nil, fmt.Errorf("AUDIT_SINK=nats requires NATS_URL")
		}
		return audit.NewNATSSink(cfg.NATSURL, cfg.AuditSubject)
	case "sqs":
		if strings.TrimSpace(cfg.AuditSQSQueueURL) == "" {
			return nil, fmt.Errorf("AUDIT_SINK=sqs requires AUDIT_SQS_QUEUE_URL")
		}
		return audit.NewSQSSink(ctx, cfg.AWSRegion, cfg.AuditSQSQueueURL)
	default:
		return audit.LogSink{}, nil
	}
}

func buildEntityClient(cfg config.Config) nlp.Client {
	if strings.TrimSpace(cfg.NLPServiceURL) == "" {
		return nlp.NoopClient{}
	}
	client, err := spacy.NewClient(cfg.NLPServiceURL)
	if err != nil {
		log.Printf("bootstrap: entity service misconfigured, extraction runs patterns only: %v", err)
		return nlp.NoopClient{}
	}
	return client
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
