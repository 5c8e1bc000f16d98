package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"linkview/internal/api"
	"linkview/internal/config"
	"linkview/internal/dataset"
	"linkview/internal/engine"
	"linkview/internal/logging"
	"linkview/internal/selection"
	"linkview/internal/view"
)

var (
	cfgFile  string
	dataPath string
	addr     string
	debug    bool
)

var rootCmd = &cobra.Command{
	Use:   "linkview",
	Short: "Linked scatterplot and histogram over a tabular dataset",
	Long: `linkview serves a scatterplot and a histogram over one dataset. Brushing
either view selects records, and both views restyle to show the selection.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("data") {
			cfg.Data.Path = dataPath
		}
		if f.Changed("addr") {
			cfg.Server.Addr = addr
		}
		if debug {
			cfg.Log.Level = "debug"
		}
		return serve(cmd.Context(), cfg)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage linkview configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return errors.Errorf("%s already exists", path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ~/.linkview/config.yaml)")
	rootCmd.Flags().StringVar(&dataPath, "data", "", "dataset file (overrides data.path)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

func newViews(cfg *config.Config) []view.View {
	scatter := view.ScatterFrame
	scatter.Width, scatter.Height = cfg.View.Width, cfg.View.Height
	hist := view.HistogramFrame
	hist.Width, hist.Height = cfg.View.Width, cfg.View.Height
	return []view.View{
		view.NewScatterplot(scatter),
		view.NewHistogram(hist, cfg.Histogram.Bins),
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewLogger(cfg.Log.Level)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Engine (views stay blank until data arrives)
	reg := prometheus.NewRegistry()
	eng := engine.New(engine.Options{
		Debounce: cfg.Engine.Debounce,
		CacheTTL: cfg.Engine.CacheTTL,
		Encodings: map[string]selection.Encoding{
			view.ScatterplotName: {X: cfg.Defaults.ScatterX, Y: cfg.Defaults.ScatterY},
			view.HistogramName:   {X: cfg.Defaults.Histogram},
		},
		Metrics: engine.NewMetrics(reg),
	}, logger, newViews(cfg)...)
	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Run(ctx) }()

	hub := api.NewHub(logger)
	defer hub.Close()
	if _, err := eng.Subscribe(ctx, hub.Publish); err != nil {
		return errors.Wrap(err, "subscribe hub")
	}

	// 2. Echo (starts instantly, data-backed routes answer 503 until loaded)
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.JSONSerializer{}
	if cfg.Log.Level == "debug" {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	opt := api.Options{BrushRate: cfg.Server.BrushRate}
	if cfg.Server.Metrics {
		opt.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	api.NewHandler(eng, hub, logger, opt).RegisterRoutes(e)

	// 3. Load the dataset in the background
	go func() {
		l := logger.WithField("path", cfg.Data.Path)
		l.Info("loading dataset")
		t0 := time.Now()
		ds, err := dataset.Load(ctx, cfg.Data.Path, dataset.Options{Delimiter: cfg.DelimiterRune()}, logger)
		if err != nil {
			l.WithError(err).Error("dataset load failed, API stays unavailable")
			return
		}
		if err := eng.Load(ctx, ds); err != nil {
			l.WithError(err).Error("install dataset")
			return
		}
		l.WithFields(logrus.Fields{"rows": ds.Len(), "took": time.Since(t0)}).Info("dataset ready")
	}()

	// 4. Serve until interrupted
	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("server ready (data loading in background)")
		serverErr <- e.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown")
		}
	}
	stop()
	return <-engineDone
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
