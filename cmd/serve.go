package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/docview/internal/analytics"
	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/server"
	"github.com/conneroisu/docview/internal/settings"
	"github.com/conneroisu/docview/internal/tree"
	"github.com/conneroisu/docview/internal/view"
	"github.com/conneroisu/docview/internal/watcher"
	"github.com/conneroisu/docview/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the documentation browser",
	Long: `Serve the documentation browser. Each browser tab connects over a
websocket and gets its own navigation session; class documents are fetched
once and shared between tabs.

With --watch and a --dir source, the class index is reloaded whenever the
documentation output changes and every open tab rebuilds its class tree.

Examples:
  docview serve --dir ./docs/output
  docview serve --dir ./docs/output --watch --open
  docview serve --source https://docs.example.com/api --grouping inheritance`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to serve on")
	serveCmd.Flags().String("host", "localhost", "host to bind to")
	serveCmd.Flags().Bool("open", false, "open the browser once the server listens")
	serveCmd.Flags().Bool("watch", false, "reload the class index when --dir changes")
	serveCmd.Flags().Var(newGroupingValue(tree.ByPackage), "grouping", "class tree grouping (package, inheritance)")
	serveCmd.Flags().String("settings", "", "settings backend (memory, yaml, sqlite)")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.open", serveCmd.Flags().Lookup("open"))
	_ = viper.BindPFlag("watch.enabled", serveCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("tree.grouping", serveCmd.Flags().Lookup("grouping"))
	_ = viper.BindPFlag("settings.backend", serveCmd.Flags().Lookup("settings"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := openDocs(ctx)
	if err != nil {
		return err
	}
	cfg, logger := d.cfg, d.logger

	store, err := settings.Open(settings.Backend(cfg.Settings.Backend), cfg.Settings.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn(ctx, err, "Failed to close settings store")
		}
	}()
	prefs := settings.NewPreferences(store, settings.Defaults{
		Grouping:    cfg.Grouping(),
		ShowPrivate: cfg.Tree.ShowPrivate,
		Show:        members.DefaultShowFlags(),
	})

	tracker := analytics.NewTracker(logger)

	hub, err := websocket.NewHub(websocket.Config{
		Catalog:     d.catalog,
		Loader:      d.loader,
		Preferences: prefs,
		Tracker:     tracker,
		Page: view.Options{
			Title:  cfg.Index.Title,
			Notice: cfg.Index.Notice,
		},
		OriginValidator:      server.NewOriginValidator(cfg.Server.AllowedOrigins),
		MaxConnectionsPerIP:  cfg.Server.MaxConnectionsPerIP,
		MaxMessagesPerMinute: cfg.Server.MaxMessagesPerMinute,
		Logger:               logger,
	})
	if err != nil {
		return err
	}

	if cfg.Watch.Enabled {
		fw, err := startIndexWatcher(ctx, d)
		if err != nil {
			return err
		}
		defer func() { _ = fw.Stop() }()
	}

	srv := server.New(server.Config{
		Addr:           cfg.Addr(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Title:          cfg.Index.Title,
		Open:           cfg.Server.Open,
	}, server.Deps{
		Catalog:     d.catalog,
		Loader:      d.loader,
		Hub:         hub,
		Tracker:     tracker,
		Preferences: prefs,
		Logger:      logger,
	})

	logger.Info(ctx, "Serving documentation",
		"classes", d.catalog.Count(),
		"grouping", cfg.Grouping().String(),
		"policy", d.loader.Policy().String())

	return srv.Start(ctx)
}

// startIndexWatcher reloads the registry when the index in the source
// directory changes.
func startIndexWatcher(ctx context.Context, d *docs) (*watcher.FileWatcher, error) {
	if d.dir == nil {
		return nil, fmt.Errorf("watching needs a --dir source")
	}

	fw, err := watcher.NewFileWatcher(d.cfg.Watch.Debounce, d.logger)
	if err != nil {
		return nil, err
	}
	filter, err := watcher.GlobFilter(d.dir.Root(), d.cfg.Watch.Pattern)
	if err != nil {
		_ = fw.Stop()
		return nil, err
	}
	fw.AddFilter(watcher.NoTempFilter)
	fw.AddFilter(filter)
	fw.AddHandler(watcher.NewIndexReloader(d.source, d.catalog, d.logger).Handle)

	if err := fw.AddRecursive(d.dir.Root()); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return nil, err
	}

	d.logger.Info(ctx, "Watching documentation output", "dir", d.dir.Root(), "pattern", d.cfg.Watch.Pattern)
	return fw, nil
}
