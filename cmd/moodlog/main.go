package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"moodlog/internal/ai"
	"moodlog/internal/alerts"
	"moodlog/internal/auth"
	"moodlog/internal/cache"
	"moodlog/internal/classify"
	"moodlog/internal/clock"
	"moodlog/internal/config"
	"moodlog/internal/consent"
	"moodlog/internal/handlers"
	"moodlog/internal/journal"
	"moodlog/internal/logger"
	"moodlog/internal/share"
	"moodlog/internal/storage"
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "moodlog",
		Short: "Emotion journal with weekly reports and shareable snapshots",
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "env file to load")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(classifyCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.SugaredLogger, error) {
	cfg := config.New(envFile)
	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Database, error) {
	db, err := storage.Open(ctx, cfg.DBDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// location falls back to UTC so a bad TIMEZONE never stops the server.
func location(cfg *config.Config, log *zap.SugaredLogger) *time.Location {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warnw("unknown timezone, using UTC", "op", "main.location", "timezone", cfg.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

func newClassifier(cfg *config.Config, log *zap.SugaredLogger) *classify.Service {
	var source classify.Source
	if cfg.AIKey != "" {
		source = ai.NewChatClient(cfg.AIKey, cfg.AIBaseURL, cfg.AIModel, cfg.AITimeout)
	} else {
		log.Infow("AI_API_KEY not set, using keyword classifier only", "op", "main.newClassifier")
	}
	return classify.NewService(source, cfg.AITimeout, log)
}

func newCache(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (cache.Cache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewLRU(cache.MaxCacheSize), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnw("redis unreachable, falling back to in-process cache", "op", "main.newCache", "addr", cfg.RedisAddr, "error", err)
		client.Close()
		return cache.NewLRU(cache.MaxCacheSize), func() {}
	}
	return cache.NewRedis(client, log), func() { client.Close() }
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			log.Infow("connected to db successfully", "driver", cfg.DBDriver)

			snapshots, closeCache := newCache(ctx, cfg, log)
			defer closeCache()

			clk := clock.NewReal()
			classifier := newClassifier(cfg, log)
			issuer := auth.NewIssuer(cfg.JWTSecret, auth.DefaultTTL)
			if cfg.JWTSecret == "" {
				log.Warnw("JWT_SECRET not set, tokens are valid for this process only", "op", "main.serve")
			}

			router := handlers.NewRouter(handlers.Handlers{
				Journal: handlers.NewJournalHandler(
					journal.NewService(db, classifier, clk, journal.Options{PeriodDays: cfg.PeriodDays, AllowReplace: cfg.AllowReplace, Location: location(cfg, log)}, log), log),
				Alerts:   handlers.NewAlertHandler(alerts.NewService(db, clk, cfg.PeriodDays, cfg.SupportFormURL, log), log),
				Reports:  handlers.NewReportHandler(consent.NewGate(db, clk), share.NewService(db, snapshots, clk, log), cfg.PeriodDays, cfg.ShareExpiresDays, log),
				Emotions: handlers.NewEmotionHandler(classifier, log),
			}, issuer, log)

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Infow("listening", "addr", cfg.HTTPAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				log.Infow("shutting down")
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Printf("Schema ready (%s)\n", cfg.DBDriver)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [user-id]",
		Short: "Issue a bearer token for a user (development)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			cfg := config.New(envFile)
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET must be set to issue tokens that a server will accept")
			}
			tok, err := auth.NewIssuer(cfg.JWTSecret, auth.DefaultTTL).Issue(userID)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify text and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			c := newClassifier(cfg, log).Classify(cmd.Context(), strings.Join(args, " "))
			out, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
