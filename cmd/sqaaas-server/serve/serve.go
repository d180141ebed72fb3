// Package serve wires the orchestration engine's collaborators from
// configuration and runs the HTTP front end, the way the teacher's
// cmd/serve/serve.go assembles pkg/api.Server from pkg/gzhclient.Client.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alvarolopez/sqaaas-api-server/internal/config"
	"github.com/alvarolopez/sqaaas-api-server/internal/httpapi"
	"github.com/alvarolopez/sqaaas-api-server/internal/orchestrator"
	"github.com/alvarolopez/sqaaas-api-server/internal/render"
	"github.com/alvarolopez/sqaaas-api-server/internal/store"
	"github.com/alvarolopez/sqaaas-api-server/pkg/badgegateway"
	"github.com/alvarolopez/sqaaas-api-server/pkg/cigateway"
	"github.com/alvarolopez/sqaaas-api-server/pkg/repogateway"
)

var configFile string

// NewRootCmd builds the sqaaas-server root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sqaaas-server",
		Short: "Pipeline-as-a-service SQA control plane",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML configuration file")
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	mgr, err := config.NewManager(configFile, nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	cfg := mgr.Snapshot()

	log, atomicLevel, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck
	mgr.SetLogger(log)

	repoToken, err := config.ReadSecret(cfg.RepositoryBackend.AccessTokenPath)
	if err != nil {
		return fmt.Errorf("reading repository access token: %w", err)
	}
	ciToken, err := config.ReadSecret(cfg.CI.TokenPath)
	if err != nil {
		return fmt.Errorf("reading CI token: %w", err)
	}
	badgePass, err := config.ReadSecret(cfg.Badge.PasswordPath)
	if err != nil {
		return fmt.Errorf("reading badge issuer password: %w", err)
	}

	var repo repogateway.Gateway
	switch cfg.RepositoryBackend.Backend {
	case "gitlab":
		repo = repogateway.NewGitLabGateway(cfg.RepositoryBackend.GitLabBaseURL, repoToken, log)
	default:
		repo = repogateway.NewGitHubGateway(ctx, repoToken, log)
	}

	ci := cigateway.NewJenkinsGateway(cfg.CI.Endpoint, cfg.CI.User, ciToken, log)
	badge := badgegateway.NewBadgrGateway(cfg.Badge.Endpoint, cfg.Badge.User, badgePass, log)

	st, err := store.Open(cfg.StateFilePath)
	if err != nil {
		return fmt.Errorf("opening pipeline store: %w", err)
	}

	orch := orchestrator.New(st, render.New(nil), repo, ci, badge, cfg, log)

	srv := httpapi.New(orch, httpapi.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	fmt.Printf("🚀 SQAaaS API server starting on %s\n", addr)
	fmt.Printf("🔗 API base URL: http://%s/v1\n", addr)
	fmt.Printf("📦 Repository backend: %s\n", cfg.RepositoryBackend.Backend)
	fmt.Printf("🏗  CI hosting org: %s\n", cfg.CI.HostingOrg)
	fmt.Printf("📄 State file: %s\n", cfg.StateFilePath)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := mgr.Watch(sigCtx, func(reloaded config.Config) {
			setLevel(&atomicLevel, reloaded.LogLevel)
		}); err != nil {
			log.Warn("config watch stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigCtx.Done():
		log.Info("shutting down")
		return srv.Shutdown()
	}
}
