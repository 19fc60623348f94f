package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	athenasdk "github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	cesdk "github.com/aws/aws-sdk-go-v2/service/costexplorer"

	finopsathena "github.com/amitkumar0206/finops-orchestrator-sub000/internal/athena"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/auth"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/collector"
	collectoraws "github.com/amitkumar0206/finops-orchestrator-sub000/internal/collector/aws"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/config"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/datasource"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/datasource/costexplorer"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/drilldown"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/llm"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/models"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/orchestrator"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/pipeline"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/reqcontext"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/server"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/serviceresolver"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/sqlvalidate"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/store"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/textsql"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/timerange"
	"github.com/amitkumar0206/finops-orchestrator-sub000/migrations"
	"github.com/amitkumar0206/finops-orchestrator-sub000/web"

	_ "github.com/amitkumar0206/finops-orchestrator-sub000/docs/swagger"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// @title           FinOps Query Engine API
// @version         1.0
// @description     Natural-language FinOps query engine over AWS Cost and Usage Reports.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apikey  SessionAuth
// @in                          cookie
// @name                        finguard_session
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting finopsqueryd", "version", version, "commit", commit, "build_time", buildTime)

	cfg := config.Load()

	db, err := store.New(cfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(migrations.FS); err != nil {
		logger.Error("failed to run database migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "dsn", cfg.DatabaseDSN)

	entrypoint, err := buildQueryPipeline(cfg, logger)
	if err != nil {
		logger.Error("failed to wire query pipeline", "error", err)
		os.Exit(1)
	}

	frontendFS, err := fs.Sub(web.DistFS, "dist")
	if err != nil {
		logger.Error("failed to load embedded frontend", "error", err)
		frontendFS = nil
	}

	authMgr, err := auth.NewManager(cfg, db, logger)
	if err != nil {
		logger.Error("failed to initialize auth manager", "error", err)
		os.Exit(1)
	}
	rbac := auth.NewRBAC(db, cfg.AuthDisabled)

	// Cost collector registry and scheduler feed the project cost-source
	// store the query pipeline's multi-tenant scope draws account ids from.
	// Out of scope by spec Non-goals: only AWS CUR collection is wired.
	collectorRegistry := collector.NewRegistry()
	if awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion)); err != nil {
		logger.Warn("AWS config unavailable, cost collection disabled", "error", err)
		collectorRegistry.Register(models.CostSourceAWS, collectoraws.New(nil, logger))
	} else {
		collectorRegistry.Register(models.CostSourceAWS, collectoraws.New(athenasdk.NewFromConfig(awsCfg), logger))
	}

	collectorScheduler := collector.NewScheduler(collectorRegistry, db, collector.DefaultSchedulerConfig(), logger)

	srv := server.New(cfg, db, authMgr, rbac, entrypoint, frontendFS, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go collectorScheduler.Start(ctx)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("finopsqueryd started", "addr", cfg.HTTPAddr)
	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("finopsqueryd stopped")
}

// buildQueryPipeline wires the AWS SDK v2 clients and every FinOps
// component (spec §2's 13 components) behind one pipeline.Entrypoint.
func buildQueryPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Entrypoint, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, err
	}

	athenaClient := athenasdk.NewFromConfig(awsCfg)
	costExplorerClient := cesdk.NewFromConfig(awsCfg)
	bedrockClient := bedrockruntime.NewFromConfig(awsCfg)

	llmClient := llm.NewBedrockClient(bedrockClient, cfg.BedrockModelID, logger)
	validator := sqlvalidate.New(cfg.CURTable)
	enforcer := reqcontext.NewScopeEnforcer(logger)
	services := serviceresolver.New(&llmArbitrator{client: llmClient}, logger)

	generator := textsql.New(llmClient, validator, enforcer, cfg.CURTable, logger)

	athenaDriver := finopsathena.New(athenaClient, cfg.AthenaDatabase, cfg.AthenaOutputLocation, cfg.CURTable, enforcer, logger)
	athenaSource := datasource.NewAthena(athenaDriver)
	costExplorerSource := costexplorer.New(costExplorerClient, logger)

	orch := orchestrator.New(athenaSource, costExplorerSource, logger)
	dd := drilldown.New(athenaSource, validator, cfg.CURTable, logger)
	resolver := timerange.New(cfg.Timezone)

	return pipeline.New(resolver, generator, orch, dd, services, logger), nil
}

// llmArbitrator adapts the shared llm.Client to serviceresolver.Arbitrator:
// ask the model to pick one candidate product code or report none fits.
type llmArbitrator struct {
	client llm.Client
}

func (a *llmArbitrator) Arbitrate(ctx context.Context, phrase string, candidates []string) (string, error) {
	prompt := fmt.Sprintf("Service phrase: %q\nCandidate CUR product codes: %s\nRespond with only the single best matching product code, or NONE if none fit.",
		phrase, strings.Join(candidates, ", "))
	resp, err := a.client.Call(ctx, prompt, llm.CallOptions{
		SystemPrompt: "You map an AWS service phrase to the single best matching CUR line_item_product_code.",
		MaxTokens:    32,
	})
	if err != nil {
		return "", err
	}
	picked := strings.TrimSpace(resp)
	if picked == "" || strings.EqualFold(picked, "NONE") {
		return "", nil
	}
	for _, c := range candidates {
		if strings.EqualFold(c, picked) {
			return c, nil
		}
	}
	return "", nil
}
