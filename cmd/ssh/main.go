package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/logging"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tomz197/greeting/internal/config"
)

// shutdownTimeout bounds how long open sessions get to close.
const shutdownTimeout = 5 * time.Second

var (
	configPath string
	host       string
	port       string
	hostKey    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "greeting-ssh",
	Short: "Serve the birthday card over SSH",
	Long: `greeting-ssh serves the card to every SSH client that asks for a terminal.
Each connection gets its own intro, card and confetti.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.Flags().StringVar(&host, "host", "", "listen host (overrides SSH_HOST)")
	rootCmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides SSH_PORT)")
	rootCmd.Flags().StringVar(&hostKey, "host-key", "", "host key path (overrides SSH_HOST_KEY)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if host != "" {
		cfg.SSH.Host = host
	}
	if port != "" {
		cfg.SSH.Port = port
	}
	if hostKey != "" {
		cfg.SSH.HostKeyPath = hostKey
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "ssh"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	workingDir, _ := os.Getwd()
	logger.Info("SSH config", "host", cfg.SSH.Host, "port", cfg.SSH.Port,
		"hostKey", cfg.SSH.HostKeyPath, "workingDir", workingDir, "audio", cfg.SSH.Audio)

	viewers := newViewerSet()
	opts := []ssh.Option{
		wish.WithAddress(net.JoinHostPort(cfg.SSH.Host, cfg.SSH.Port)),
		wish.WithMiddleware(
			cardMiddleware(cfg, logger, viewers),
			activeterm.Middleware(),
			logging.StructuredMiddlewareWithLogger(logger, log.InfoLevel),
		),
		// Set TCP_NODELAY so frames go out as soon as they are flushed
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}
	if cfg.SSH.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(cfg.SSH.HostKeyPath))
	}

	s, err := wish.NewServer(opts...)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		logger.Info("starting SSH server", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", "viewers", viewers.Len())
		viewers.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "err", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
