package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quarkvr/app"
	"quarkvr/hal"
	"quarkvr/internal/buildinfo"
	"quarkvr/internal/config"
	"quarkvr/internal/logging"
)

var (
	configPath string
	headless   bool
	hz         int
	ticks      uint64
	width      int
	height     int
	sensorAddr string
	enterVR    bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "quarkvr",
	Short: "Stereo viewer with gaze interaction",
	Long: `quarkvr renders a demo scene flat or as a side-by-side stereo pair for a
phone viewer. Press V to toggle stereo mode; look at a hotspot to activate it.

Phone orientation is read from a WebSocket bridge (--sensor-addr) that a page
on the phone feeds with deviceorientation events.`,
	SilenceUsage: true,
	RunE:         run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "quarkvr %s (%s, %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file, reloaded on change")
	f.BoolVar(&headless, "headless", false, "run without a window")
	f.IntVar(&hz, "hz", 60, "tick rate in headless mode")
	f.Uint64Var(&ticks, "ticks", 0, "stop after N ticks in headless mode (0 = run forever)")
	f.IntVar(&width, "width", 640, "framebuffer width")
	f.IntVar(&height, "height", 320, "framebuffer height")
	f.StringVar(&sensorAddr, "sensor-addr", "", "listen address of the orientation bridge (overrides config)")
	f.BoolVar(&enterVR, "vr", false, "start in stereo mode")
	f.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(versionCmd)
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	flagOverrides(&cfg)

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting", zap.String("version", buildinfo.Short()), zap.String("config", configPath))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var updates <-chan config.Config
	if configPath != "" {
		w, err := config.NewWatcher(configPath, log.Named("config"))
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer w.Stop()
		updates = w.Updates()
	}

	hc := hal.HostConfig{
		Width:             width,
		Height:            height,
		SensorAddr:        cfg.Sensor.Addr,
		PermissionTimeout: cfg.Sensor.PermissionTimeout,
		Logger:            log,
	}
	newApp := func(h hal.HAL) hal.StepFunc {
		return app.New(h, app.Options{Config: cfg, Updates: updates, Override: flagOverrides, EnterVR: enterVR, Context: ctx})
	}

	if headless {
		err = hal.RunHeadless(ctx, hal.HeadlessConfig{Hz: hz, Ticks: ticks}, hc, newApp)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return hal.RunWindow(hc, newApp)
}

// flagOverrides applies the command-line values that take precedence over
// the config file.
func flagOverrides(cfg *config.Config) {
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if sensorAddr != "" {
		cfg.Sensor.Addr = sensorAddr
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
