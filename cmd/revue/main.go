package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"revue/internal/auth"
	"revue/internal/config"
	"revue/internal/editor"
	"revue/internal/i18n"
	"revue/internal/metrics"
	"revue/internal/preview"
	"revue/internal/profile"
	"revue/internal/records"
	"revue/internal/store"
	web "revue/internal/server"
	"revue/internal/suggest"
	"revue/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger   *zap.Logger
	cfg      *config.Config
	addrFlag string
)

var rootCmd = &cobra.Command{
	Use:   "revue",
	Short: "revue - bilingual journal publishing server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if addrFlag != "" {
			cfg.HTTPAddr = addrFlag
		}
		if cfg.Development() {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the web server, cleanup worker and sweep schedule",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			logger.Fatal("Invalid configuration", zap.Error(err))
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Setup Signal Handling (Ctrl+C)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			logger.Info("Shutting down...")
			cancel()
		}()

		b, err := openBackends(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to init backends", zap.Error(err))
		}
		defer b.Close()

		authn, err := auth.NewPasswordAuthenticator(cfg.AdminEmail, cfg.AdminPasswordHash)
		if err != nil {
			logger.Fatal("Invalid admin account", zap.Error(err))
		}

		m := metrics.New()
		queue := worker.NewQueue(b.rdb)
		recs := records.New(b.table, b.blobs, cfg.S3Bucket, logger,
			records.WithOrphanQueue(queue),
			records.WithMetrics(m),
			records.WithMaxAge(time.Minute))
		guard := auth.NewGuard(authn, auth.NewSessions(b.rdb, cfg.SessionTTL), []byte(cfg.SessionSecret), cfg.SessionTTL, logger)
		lang, _ := i18n.ParseLanguage(cfg.DefaultLanguage)
		board, err := profile.Load(cfg.ProfilePath)
		if err != nil {
			logger.Fatal("Failed to load profile", zap.String("path", cfg.ProfilePath), zap.Error(err))
		}

		srv, err := web.NewServer(web.Deps{
			Records:         recs,
			Editor:          editor.New(recs, b.blobs, cfg.S3Bucket, cfg.MaxUploadBytes, logger),
			Guard:           guard,
			Preview:         preview.NewRenderer(b.blobs, cfg.S3Bucket, cfg.MaxUploadBytes, m, logger),
			Suggester:       suggest.NewSuggester(logger),
			Metrics:         m,
			Resolver:        i18n.NewResolver(),
			Blobs:           b.blobs,
			Bucket:          cfg.S3Bucket,
			ServeFiles:      b.serveFiles,
			DefaultLanguage: lang,
			SubmissionEmail: cfg.SubmissionEmail,
			MaxUploadBytes:  cfg.MaxUploadBytes,
			SecureCookies:   !cfg.Development(),
			Profile:         &board,
			Ping:            b.Ping,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to build web server", zap.Error(err))
		}

		if b.badger != nil {
			go store.CollectGarbage(ctx, b.badger, 5*time.Minute, logger)
		}

		// Start Worker
		w := worker.NewWorker(queue, b.blobs, cfg.S3Bucket, recs, m, logger)
		go w.Start(ctx)
		if err := w.Schedule(ctx, cfg.SweepSchedule); err != nil {
			logger.Fatal("Invalid sweep schedule", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
		}
		defer w.Stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(cfg.HTTPAddr) }()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Web server failed", zap.Error(err))
			}
			cancel()
		case <-ctx.Done():
		}

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown failed", zap.Error(err))
		}
		logger.Info("Goodbye!")
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := ""
		if len(args) == 1 {
			password = args[0]
		} else {
			scanner := bufio.NewScanner(os.Stdin)
			if scanner.Scan() {
				password = strings.TrimRight(scanner.Text(), "\r\n")
			}
		}
		if password == "" {
			return errors.New("password is empty")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stored documents no article references",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		b, err := openBackends(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to init backends", zap.Error(err))
		}
		defer b.Close()

		recs := records.New(b.table, b.blobs, cfg.S3Bucket, logger)
		w := worker.NewWorker(worker.NewQueue(b.rdb), b.blobs, cfg.S3Bucket, recs, nil, logger)
		removed, err := w.Sweep(ctx)
		if err != nil {
			logger.Fatal("Sweep failed", zap.Error(err))
		}
		logger.Info("Sweep finished", zap.Int("removed", removed))
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [url]",
	Short: "Print the title and abstract extracted from a source page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sug, err := suggest.NewSuggester(logger).Suggest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", sug.Title, sug.Excerpt)
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(suggestCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
