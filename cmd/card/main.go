package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tomz197/greeting/internal/audio"
	"github.com/tomz197/greeting/internal/config"
	"github.com/tomz197/greeting/internal/loop"
)

var (
	configPath string
	duration   time.Duration
	audioKind  string
	musicPath  string
	logFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "card",
	Short: "Open the birthday card in this terminal",
	Long: `card plays the greeting in the current terminal: fireworks behind the
intro, then a card that opens with space or enter. q quits.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.Flags().DurationVarP(&duration, "duration", "d", 0, "how long the intro fireworks run")
	rootCmd.Flags().StringVar(&audioKind, "audio", "", "music output: speaker, bell or none")
	rootCmd.Flags().StringVar(&musicPath, "music", "", "MP3 file to loop instead of the built-in melody")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
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
	flags := cmd.Flags()
	if flags.Changed("duration") {
		cfg.Intro.Duration = duration
	}
	if flags.Changed("audio") {
		cfg.Audio.Kind = audioKind
	}
	if flags.Changed("music") {
		cfg.Audio.Path = musicPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The terminal belongs to the card, so logs only go to a file.
	var logOut io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := log.NewWithOptions(logOut, log.Options{ReportTimestamp: true, Prefix: "card"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if _, err := audio.New(cfg.Audio.Kind, cfg.Audio.Path, cfg.Audio.Volume, nil); err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enable raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	v := loop.NewViewer(os.Stdout, loop.Options{
		Config: cfg,
		Player: func(out io.Writer) audio.Player {
			p, _ := audio.New(cfg.Audio.Kind, cfg.Audio.Path, cfg.Audio.Volume, out)
			return p
		},
		Logger: logger,
	})
	logger.Info("card opened", "intro", cfg.Intro.Duration, "audio", cfg.Audio.Kind)
	err = v.Run(cmd.Context(), os.Stdin)
	logger.Info("card closed", "audio_attempts", v.Audio().Attempts())
	return err
}
