package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ItzSouraseez/knowyourplate/auth"
	"github.com/ItzSouraseez/knowyourplate/bot"
	"github.com/ItzSouraseez/knowyourplate/config"
	"github.com/ItzSouraseez/knowyourplate/db"
	"github.com/ItzSouraseez/knowyourplate/logging"
	"github.com/ItzSouraseez/knowyourplate/services"
	"github.com/ItzSouraseez/knowyourplate/session"
	"github.com/ItzSouraseez/knowyourplate/web"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	addUserLogin string
	addUserName  string
)

const sweepInterval = 10 * time.Minute

var rootCmd = &cobra.Command{
	Use:   "knowyourplate",
	Short: "Browse restaurant menus on the web and in Telegram",
	Long: `knowyourplate serves a signed-in restaurant list and per-restaurant menus
backed by Postgres. Without a subcommand it runs the server.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server and, when TOKEN is set, the Telegram bot",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded SQL migrations",
	RunE:  runMigrate,
}

var addUserCmd = &cobra.Command{
	Use:   "adduser",
	Short: "Create or reset a password login",
	Long: `Creates the login (or replaces its password), generates a random password
and prints it once.

Example:
  knowyourplate adduser --login ada --name "Ada Lovelace"`,
	RunE: runAddUser,
}

func init() {
	addUserCmd.Flags().StringVar(&addUserLogin, "login", "", "Login name (required)")
	addUserCmd.Flags().StringVar(&addUserName, "name", "", "Display name (default: the login)")
	_ = addUserCmd.MarkFlagRequired("login")

	rootCmd.AddCommand(serveCmd, migrateCmd, addUserCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(*cobra.Command, []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err = logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	return nil
}

func openDB(ctx context.Context) error {
	if err := db.Init(ctx, cfg.DB); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	logger.Info("database connected", zap.String("host", cfg.DB.Host), zap.String("database", cfg.DB.Database))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := openDB(ctx); err != nil {
		return err
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := applyMigrations(ctx, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	password := auth.NewPassword(services.Credentials{}, logger)
	providers := auth.Registry{auth.ProviderPassword: password}
	var consent web.ConsentProvider
	if cfg.OAuth.Enabled() {
		google := auth.NewGoogle(cfg.OAuth, cfg.HTTP.PublicURL+"/auth/callback", nil, logger)
		providers[auth.ProviderGoogle] = google
		consent = google
	} else {
		logger.Info("GOOGLE_CLIENT_ID not set; only password sign-in is available")
	}
	sessions := session.NewStore(providers)
	catalog := services.Catalog{}

	srv, err := web.New(web.Options{
		Catalog:  catalog,
		Sessions: sessions,
		Password: password,
		Consent:  consent,
		Menu:     cfg.Menu,
		Secure:   strings.HasPrefix(cfg.HTTP.PublicURL, "https://"),
		Log:      logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.HTTP.Addr)
	})
	g.Go(func() error {
		sweep(gctx, sessions)
		return nil
	})

	if cfg.Telegram.Token != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		b := bot.New(api, bot.Options{
			Catalog:  catalog,
			Sessions: sessions,
			Password: password,
			Menu:     cfg.Menu,
			Log:      logger,
		})
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := api.GetUpdatesChan(u)
		g.Go(func() error {
			defer api.StopReceivingUpdates()
			return b.Run(gctx, updates)
		})
		logger.Info("telegram bot enabled", zap.String("username", api.Self.UserName))
	} else {
		logger.Info("TOKEN not set; telegram bot disabled")
	}

	err = g.Wait()
	logger.Info("stopped")
	return err
}

// sweep drops idle sessions and prunes the login audit log until ctx is done.
func sweep(ctx context.Context, sessions *session.Store) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := sessions.Sweep(cfg.Session.Idle); n > 0 {
				logger.Debug("idle sessions dropped", zap.Int("count", n), zap.Int("remaining", sessions.Len()))
			}
			if err := services.CleanupOldLoginAttempts(ctx); err != nil {
				logger.Warn("cleanup login attempts", zap.Error(err))
			}
		}
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := openDB(ctx); err != nil {
		return err
	}
	defer db.Close()
	return applyMigrations(ctx, logger)
}

func runAddUser(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	login := strings.TrimSpace(addUserLogin)
	if login == "" {
		return fmt.Errorf("--login must not be empty")
	}
	name := strings.TrimSpace(addUserName)
	if name == "" {
		name = login
	}
	if err := openDB(ctx); err != nil {
		return err
	}
	defer db.Close()

	password, err := services.GenerateSecurePassword()
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	if err := services.UpsertCredential(ctx, login, name, password); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	logger.Info("credential saved", zap.String("login", login))
	fmt.Fprintf(cmd.OutOrStdout(), "Login: %s\nPassword: %s\n", login, password)
	return nil
}
