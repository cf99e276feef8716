package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LovationAdmin/gastos-api/config"
	"github.com/LovationAdmin/gastos-api/handlers"
	"github.com/LovationAdmin/gastos-api/messaging"
	"github.com/LovationAdmin/gastos-api/middleware"
	"github.com/LovationAdmin/gastos-api/routes"
	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/store"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	utils.ConfigureLogging(cfg.LogLevel, cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		utils.SafeError("❌ Invalid configuration: %v", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Location()
	if err != nil {
		utils.SafeError("❌ Invalid TIMEZONE: %v", err)
		os.Exit(1)
	}

	kv, db, err := openStore(cfg)
	if err != nil {
		utils.SafeError("❌ Failed to open store: %v", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	identity, err := newIdentityProvider(cfg, kv)
	if err != nil {
		utils.SafeError("❌ Failed to set up identity provider: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDemoUser {
		if err := services.EnsureDemoUser(ctx, identity, cfg.DemoName, cfg.DemoEmail, cfg.DemoPassword); err != nil {
			utils.SafeWarn("⚠️ Failed to seed demo user: %v", err)
		}
	}

	wsHandler := handlers.NewWSHandler()
	defer wsHandler.Close()

	publishers := services.MultiPublisher{wsHandler}
	if cfg.AMQPURL != "" {
		publisher, err := messaging.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			utils.SafeWarn("⚠️ AMQP disabled: %v", err)
		} else {
			defer publisher.Close()
			publishers = append(publishers, publisher)
			utils.SafeInfo("✅ Publishing expense events to exchange %s", cfg.AMQPExchange)
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)

	repo := services.NewExpenseRepository(kv, loc)

	router := routes.SetupRouter(routes.Deps{
		BasePath:    cfg.BasePath,
		CORSOrigins: cfg.CORSOrigins,
		Identity:    identity,
		Expenses:    services.NewExpenseService(repo, loc),
		Repository:  repo,
		Categorizer: services.NewCategorizerService(kv),
		Email:       services.NewEmailService(cfg.ResendAPIKey, cfg.EmailFrom, cfg.FrontendURL),
		Events:      publishers,
		WS:          wsHandler,
		RateLimiter: limiter,
		AdminSecret: cfg.AdminSecret,
		Location:    loc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})

	g.Go(func() error {
		utils.LogStartup("gastos-api", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		utils.SafeInfo("🛑 Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.SafeError("❌ Server stopped: %v", err)
	}
}

// openStore returns the configured key-value store. db is nil for the
// in-memory backend.
func openStore(cfg *config.Config) (store.KV, *sql.DB, error) {
	var (
		kv store.KV
		db *sql.DB
	)

	switch cfg.StoreBackend {
	case config.StorePostgres:
		conn, err := config.InitDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := config.RunMigrations(conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		utils.SafeInfo("✅ Database connected successfully")
		kv, db = store.NewPostgresStore(conn), conn

	case config.StoreSQLite:
		conn, err := config.InitSQLite(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := config.RunSQLiteMigrations(conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		utils.SafeInfo("✅ SQLite store ready at %s", cfg.SQLiteDBPath)
		kv, db = store.NewSQLiteStore(conn), conn

	default:
		utils.SafeWarn("⚠️ Using in-memory store, data is lost on restart")
		kv = store.NewMemoryStore()
	}

	if cfg.DataEncryptionKey != "" {
		encrypted, err := store.NewEncryptedStore(kv, cfg.DataEncryptionKey)
		if err != nil {
			if db != nil {
				db.Close()
			}
			return nil, nil, err
		}
		kv = encrypted
	}

	return kv, db, nil
}

func newIdentityProvider(cfg *config.Config, kv store.KV) (services.IdentityProvider, error) {
	switch cfg.IdentityBackend {
	case config.IdentitySupabase:
		return services.NewSupabaseIdentityProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey), nil
	case config.IdentityLocal, "":
		return services.NewLocalIdentityProvider(kv, cfg.JWTSecret, cfg.TokenTTL), nil
	default:
		return nil, errors.New("unknown IDENTITY_BACKEND: " + cfg.IdentityBackend)
	}
}
