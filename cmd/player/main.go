package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jscyril/chiptune_player/api"
	"github.com/jscyril/chiptune_player/internal/audio"
	"github.com/jscyril/chiptune_player/internal/config"
	"github.com/jscyril/chiptune_player/internal/emu"
	"github.com/jscyril/chiptune_player/internal/library"
	"github.com/jscyril/chiptune_player/internal/player"
	"github.com/jscyril/chiptune_player/internal/playlist"
	"github.com/jscyril/chiptune_player/internal/ui"
	"github.com/jscyril/chiptune_player/pkg/events"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var flags struct {
	config    string
	envFile   string
	dirs      []string
	byMemory  bool
	seed      uint64
	noShuffle bool
	recursive bool
}

var rootCmd = &cobra.Command{
	Use:   "chiptune-player [dir...]",
	Short: "Play every game music file in a directory",
	Long: `chiptune-player scans directories for game music files and plays them
one after another, shuffled by default, in a terminal interface.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flags.config, "config", "c", "",
		"Config file (default $XDG_CONFIG_HOME/chiptune-player/config.toml)")
	rootCmd.Flags().StringVar(&flags.envFile, "env-file", ".env",
		"Load CHIPTUNE_* overrides from this file if it exists")
	rootCmd.Flags().StringSliceVarP(&flags.dirs, "dir", "d", nil,
		"Music directory to scan (repeatable, replaces music_directories)")
	rootCmd.Flags().BoolVarP(&flags.byMemory, "mem", "m", false,
		"Read each file into memory before opening it")
	rootCmd.Flags().Uint64Var(&flags.seed, "seed", 0,
		"Seed for shuffle order (0 picks a random seed)")
	rootCmd.Flags().BoolVar(&flags.noShuffle, "no-shuffle", false,
		"Play files in directory order")
	rootCmd.Flags().BoolVarP(&flags.recursive, "recursive", "r", false,
		"Descend into subdirectories")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFile(flags.envFile); err != nil {
		return err
	}

	// Load configuration
	configPath := flags.config
	if configPath == "" {
		configPath = config.GetConfigPath()
	}
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, cfg, args)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	// Create data directory
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logFile, err := tea.LogToFile(cfg.LogPath(), "")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := emu.DefaultRegistry()
	scanner := library.NewScanner(cfg.Extensions, cfg.Recursive)
	files, err := scanner.Scan(ctx, cfg.MusicDirectories)
	if err != nil {
		// unreadable entries are skipped; the player runs on what was found
		logger.Warn("scan incomplete", "err", err)
	}
	logger.Info("scan finished", "dirs", cfg.MusicDirectories, "files", len(files),
		"without_backend", lo.CountBy(files, func(p string) bool { return !registry.Supports(p) }))
	if len(files) == 0 {
		return fmt.Errorf("no music files with extensions %s in %s",
			strings.Join(cfg.Extensions, " "), strings.Join(cfg.MusicDirectories, ", "))
	}

	bus := events.NewEventBus()
	eventLog := bus.SubscribeAll()

	orch, err := player.New(registry, files, player.Options{
		SampleRate:   cfg.Audio.SampleRate,
		ByMemory:     cfg.Audio.ByMemory,
		Playback:     playbackConfig(cfg),
		Policy:       playlist.Policy{Loop: cfg.Playback.Loop, Shuffle: cfg.Playback.Shuffle},
		ErrorLogSize: cfg.UI.ErrorLogSize,
		Rand:         newRand(flags.seed),
		Logger:       logger,
		Bus:          bus,
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	snapshot := audio.NewSnapshot()
	device, err := audio.OpenDevice(cfg.Audio.SampleRate, cfg.Audio.Latency, audio.NewBridge(orch.Session(), snapshot))
	if err != nil {
		return err
	}
	defer device.Close()

	var g errgroup.Group
	g.Go(func() error {
		logEvents(logger, eventLog)
		return nil
	})
	defer g.Wait()
	// closing the bus ends the event logger before Wait
	defer bus.Close()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			orch.Submit(api.Command{Type: api.CmdQuit})
		case <-ctx.Done():
		}
	}()

	orch.Start()

	err = ui.Run(orch, snapshot, ui.Options{
		Keys:         ui.NewKeyMap(cfg.KeyBindings),
		TickInterval: cfg.UI.TickInterval,
		ErrorTail:    cfg.UI.ErrorTail,
		ScopeWidth:   cfg.UI.ScopeWidth,
		ScopeHeight:  cfg.UI.ScopeHeight,
		Logger:       logger,
	})
	logger.Info("player stopped", "dropped_events", bus.Dropped())
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// applyFlags lets explicit command line values win over the config file
func applyFlags(cmd *cobra.Command, cfg *config.Config, args []string) {
	dirs := append(append([]string{}, flags.dirs...), args...)
	if len(dirs) > 0 {
		cfg.MusicDirectories = dirs
	}
	if cmd.Flags().Changed("mem") {
		cfg.Audio.ByMemory = flags.byMemory
	}
	if cmd.Flags().Changed("no-shuffle") {
		cfg.Playback.Shuffle = !flags.noShuffle
	}
	if cmd.Flags().Changed("recursive") {
		cfg.Recursive = flags.recursive
	}
}

func playbackConfig(cfg *config.Config) audio.PlaybackConfig {
	p := cfg.Playback
	return audio.PlaybackConfig{
		Tempo:        p.Tempo,
		StereoDepth:  p.StereoDepth,
		EchoDisabled: p.EchoDisabled,
		Accurate:     p.Accurate,
		FadeOut:      p.FadeOut,
		FadeLength:   p.FadeLength,
	}
}

func newRand(seed uint64) playlist.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func logEvents(logger *slog.Logger, ch <-chan api.AudioEvent) {
	for ev := range ch {
		logger.Debug("event", "type", ev.Type.String(), "path", ev.Path, "track", ev.Track, "state", ev.State.String(), "msg", ev.Message)
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
