package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cloudagent "github.com/nexusgateway/mcp-gateway/internal/agents/cloud"
	deliveryagent "github.com/nexusgateway/mcp-gateway/internal/agents/delivery"
	peopleagent "github.com/nexusgateway/mcp-gateway/internal/agents/people"
	salesagent "github.com/nexusgateway/mcp-gateway/internal/agents/sales"
	"github.com/nexusgateway/mcp-gateway/internal/audit"
	"github.com/nexusgateway/mcp-gateway/internal/config"
	"github.com/nexusgateway/mcp-gateway/internal/domain/delivery"
	"github.com/nexusgateway/mcp-gateway/internal/domain/memory"
	"github.com/nexusgateway/mcp-gateway/internal/domain/people"
	"github.com/nexusgateway/mcp-gateway/internal/domain/sales"
	"github.com/nexusgateway/mcp-gateway/internal/email"
	"github.com/nexusgateway/mcp-gateway/internal/events"
	"github.com/nexusgateway/mcp-gateway/internal/gateway"
	"github.com/nexusgateway/mcp-gateway/internal/identity"
	"github.com/nexusgateway/mcp-gateway/internal/llm"
	"github.com/nexusgateway/mcp-gateway/internal/registry"
	"github.com/nexusgateway/mcp-gateway/internal/store"
	"github.com/nexusgateway/mcp-gateway/internal/tasks"
	"github.com/nexusgateway/mcp-gateway/internal/threat"
)

// version is overridden via -ldflags "-X main.version=..." at release time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "MCP Gateway — agent execution gateway and domain orchestrator",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return runServe(logger)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background task dispatcher's consumer loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return runWorker(logger)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create required store indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return runMigrate(logger)
	},
}

func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// wired bundles everything boot assembles, shared by serve/worker.
type wired struct {
	cfg         *config.Config
	storeCli    *store.Client
	rdb         *redis.Client
	publisher   *events.Publisher
	dispatcher  *tasks.Dispatcher
	auditSink   *audit.Sink
	reg         *registry.Registry
	auth        *identity.Authenticator
	salesSvc    *sales.Service
	deliverySvc *delivery.Service
	banking     bankingClient
}

func bootstrap(ctx context.Context, logger *zap.Logger) (*wired, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	storeCli, err := store.Connect(ctx, cfg.StoreURI, cfg.StoreDatabase, logger)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	logger.Info("connected to store")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.CacheURI})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect cache: %w", err)
	}
	logger.Info("connected to cache")

	publisher := events.NewPublisher(rdb, logger)
	dispatcher := tasks.NewDispatcher(rdb, logger, tasks.DefaultRetryPolicy)
	auditSink := audit.NewSink(storeCli.Audit, logger)
	auth := identity.NewAuthenticator([]byte(cfg.SecretKey), cfg.Issuer, cfg.AccessTokenTTL)

	peopleSvc := people.NewService(storeCli.Profiles, logger)
	peopleSvc.SetScorer(threat.NewRuleBasedScorer())
	peopleSvc.SetMailer(newMailer(cfg, logger))

	salesSvc := sales.NewService(storeCli, peopleSvc, publisher, dispatcher, auditSink, logger)
	deliverySvc := delivery.NewService(storeCli, publisher, auditSink, logger)

	reg := registry.New(logger)
	sharedServices := registry.SharedServices{
		Store:      storeCli,
		Publisher:  publisher,
		Dispatcher: dispatcher,
		Audit:      auditSink,
		Logger:     logger,
	}

	cloudExec := llm.NewExecutor(noopOracle{})
	llm.RegisterCloudHandlers(cloudExec, noopCloudClient{})
	memorySvc := memory.NewService(storeCli.Chat)

	err = reg.RegisterAll(sharedServices,
		func(registry.SharedServices) registry.Agent { return salesagent.New(salesSvc) },
		func(registry.SharedServices) registry.Agent { return deliveryagent.New(deliverySvc) },
		func(registry.SharedServices) registry.Agent { return peopleagent.New(peopleSvc) },
		func(registry.SharedServices) registry.Agent {
			a := cloudagent.New(cloudExec)
			a.SetMemory(memorySvc)
			return a
		},
	)
	if err != nil {
		return nil, fmt.Errorf("register agents: %w", err)
	}

	return &wired{
		cfg:         cfg,
		storeCli:    storeCli,
		rdb:         rdb,
		publisher:   publisher,
		dispatcher:  dispatcher,
		auditSink:   auditSink,
		reg:         reg,
		auth:        auth,
		salesSvc:    salesSvc,
		deliverySvc: deliverySvc,
		banking:     noopBankingClient{logger: logger},
	}, nil
}

func runServe(logger *zap.Logger) error {
	ctx := context.Background()
	w, err := bootstrap(ctx, logger)
	if err != nil {
		return err
	}
	defer w.storeCli.Disconnect(ctx) //nolint:errcheck
	defer w.rdb.Close()              //nolint:errcheck

	gw := gateway.New(w.reg, logger)
	srv := gateway.NewServer(gw, w.auth, w.rdb, logger, w.cfg.Project, version, w.reg.Names)
	srv.SetDBPing(w.storeCli.Ping)

	broadcaster := events.NewBroadcaster(w.rdb, logger, events.DefaultPatterns)
	srv.WireBroadcaster(broadcaster)

	broadcastCtx, stopBroadcast := context.WithCancel(ctx)
	go broadcaster.Run(broadcastCtx)
	defer stopBroadcast()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	srv.Mount(router, w.cfg.AllowedOrigins, w.cfg.RateLimitPerMinute)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", w.cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("gateway listening", zap.Int("port", w.cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("gateway stopped")
	return nil
}

func runWorker(logger *zap.Logger) error {
	ctx := context.Background()
	w, err := bootstrap(ctx, logger)
	if err != nil {
		return err
	}
	defer w.storeCli.Disconnect(ctx) //nolint:errcheck
	defer w.rdb.Close()              //nolint:errcheck

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	workerCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-quit
		logger.Info("worker shutting down...")
		cancel()
	}()

	go w.dispatcher.Worker(workerCtx, "sales.sync_banking", syncBankingHandler(w, logger))
	go w.dispatcher.Worker(workerCtx, "sales.initiate_delivery", initiateDeliveryHandler(w, logger))

	logger.Info("worker started", zap.Strings("queues", []string{"sales.sync_banking", "sales.initiate_delivery"}))
	<-workerCtx.Done()
	logger.Info("worker stopped")
	return nil
}

// taskArgs is the common {"sale_id": "..."} shape both follow-up tasks
// enqueue from sales.Service.postCommitFanOut.
type taskArgs struct {
	SaleID string `json:"sale_id"`
}

// syncBankingHandler reconciles a committed sale against the (opaque,
// out-of-scope per spec §1) banking integration.
func syncBankingHandler(w *wired, logger *zap.Logger) tasks.Handler {
	return func(ctx context.Context, raw json.RawMessage) error {
		var args taskArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("decode sync_banking args: %w", err)
		}
		if err := w.banking.SyncSale(ctx, args.SaleID); err != nil {
			logger.Error("banking sync failed", zap.Error(err), zap.String("sale_id", args.SaleID))
			return err
		}
		return nil
	}
}

// initiateDeliveryHandler opens a delivery for a committed sale, carrying
// the sale's client and line items into the delivery's pending_assignment
// state (spec §4.5: every sale gets exactly one delivery).
func initiateDeliveryHandler(w *wired, logger *zap.Logger) tasks.Handler {
	return func(ctx context.Context, raw json.RawMessage) error {
		var args taskArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("decode initiate_delivery args: %w", err)
		}

		sale, err := w.salesSvc.GetSaleByID(ctx, args.SaleID)
		if err != nil {
			logger.Error("initiate_delivery: sale lookup failed", zap.Error(err), zap.String("sale_id", args.SaleID))
			return err
		}

		traceID := uuid.NewString()
		_, err = w.deliverySvc.CreateDelivery(ctx, traceID, delivery.CreateDeliveryInput{
			SaleID:          args.SaleID,
			ClientProfileID: sale.ClientID,
			Items:           sale.Items,
			PickupAddress:   "warehouse",
			DeliveryAddress: "client:" + sale.ClientID,
		})
		if err != nil {
			logger.Error("initiate_delivery: create delivery failed", zap.Error(err), zap.String("sale_id", args.SaleID))
			return err
		}
		return nil
	}
}

func runMigrate(logger *zap.Logger) error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	storeCli, err := store.Connect(ctx, cfg.StoreURI, cfg.StoreDatabase, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer storeCli.Disconnect(ctx) //nolint:errcheck

	if err := storeCli.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("indexes ensured")
	return nil
}

// newMailer returns an SMTPSender when SMTP_HOST is configured, falling
// back to a logging NoopSender otherwise — mirrors the optional-dependency
// Set* pattern already used for the threat scorer.
func newMailer(cfg *config.Config, logger *zap.Logger) email.EmailSender {
	if cfg.SMTPHost == "" {
		return email.NewNoopSender(logger)
	}
	return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
}

// noopOracle is a placeholder Oracle until a real LLM provider client is
// wired (spec §1: the LLM provider client is an opaque external
// dependency, out of this gateway's scope).
type noopOracle struct{}

func (noopOracle) Complete(ctx context.Context, prompt string) (string, error) {
	return `{"service":"cloud","action":"noop","params":{}}`, nil
}

// bankingClient is the narrow interface the sales.sync_banking task depends
// on (spec §1: third-party banking integrations are an external collaborator,
// out of this gateway's scope).
type bankingClient interface {
	SyncSale(ctx context.Context, saleID string) error
}

// noopBankingClient is a placeholder bankingClient until a real banking
// integration is wired.
type noopBankingClient struct {
	logger *zap.Logger
}

func (n noopBankingClient) SyncSale(ctx context.Context, saleID string) error {
	n.logger.Info("banking sync (noop)", zap.String("sale_id", saleID))
	return nil
}

// noopCloudClient is a placeholder CloudClient until a real cloud SDK is
// wired (spec §1: the cloud action handler is an opaque external
// dependency, out of this gateway's scope).
type noopCloudClient struct{}

func (noopCloudClient) LaunchInstance(ctx context.Context, region, instanceType string) (string, error) {
	return "i-placeholder", nil
}

func (noopCloudClient) CreateBucket(ctx context.Context, name, region string) (string, error) {
	return "arn:placeholder:" + name, nil
}
