package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal/auth"
	"github.com/frahmantamala/dot-spend/internal/budget"
	"github.com/frahmantamala/dot-spend/internal/category"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/insights"
	"github.com/frahmantamala/dot-spend/internal/transport"
	"github.com/frahmantamala/dot-spend/internal/transport/rest"
)

const shutdownTimeout = 30 * time.Second

var (
	serverPort   int
	tokenSubject string
	tokenTTL     time.Duration
)

var httpServerCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server",
	Long: `Start the HTTP server exposing the ledger as a JSON API under /api/v1. Every route except
health and ping needs a bearer token from "spend serve token".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverPort > 0 {
			cfg.Server.Port = serverPort
		}
		return withDeps(cmd.Context(), startHTTPServer)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer, err := auth.NewTokenIssuer(cfg.Server.JWTSecret, cfg.Server.TokenDuration)
		if err != nil {
			return err
		}
		token, expiresAt, err := issuer.Issue(tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Local().Format(time.RFC3339))
		return nil
	},
}

func startHTTPServer(deps *Dependencies) error {
	issuer, err := auth.NewTokenIssuer(deps.Config.Server.JWTSecret, deps.Config.Server.TokenDuration)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	setupRoutes(deps, router, issuer)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "backend", deps.Backend.Kind)
	fmt.Fprintf(os.Stderr, "Listening on http://localhost%s/api/v1\n", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed to start: %w", err)
		}
	}

	deps.Logger.Info("Server stopped")
	return nil
}

func setupRoutes(deps *Dependencies, router *chi.Mux, issuer *auth.TokenIssuer) {
	base := transport.NewBaseHandler(deps.Logger)
	handlers := rest.Handlers{
		Expense:  expense.NewHandler(base, deps.Ledger),
		Budget:   budget.NewHandler(base, deps.Budgets),
		Insights: insights.NewHandler(base, deps.Insights),
		Category: category.NewHandler(base, deps.Category),
	}
	rest.RegisterAllRoutes(router, handlers, issuer, deps.Backend, deps.Backend.Kind, deps.Logger)
}

func init() {
	httpServerCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "port to listen on (default: http_server.port)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "subject recorded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default: http_server.token_duration)")

	httpServerCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(httpServerCmd)
}
