// Command libregnum runs the road network simulation server and its tools.
//
// Commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket
//     feed and an /mcp HTTP endpoint, with a background ticker
//  2. "mcp" runs an MCP stdio server against a running API, starting an
//     internal one when none answers
//  3. "route", "validate" and "export" work on level files offline
//  4. "migrate" applies the PostgreSQL level store migrations
//
// Settings come from an optional YAML file, LIBREGNUM_* environment variables
// (a .env file is honored) and flags, in increasing order of precedence.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/copyleft-games/libregnum-sub015/api"
	"github.com/copyleft-games/libregnum-sub015/game/config"
	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/service"
	"github.com/copyleft-games/libregnum-sub015/game/session"
	"github.com/copyleft-games/libregnum-sub015/game/store"
	"github.com/copyleft-games/libregnum-sub015/transport/mcp"
	"github.com/copyleft-games/libregnum-sub015/transport/websocket"
	"github.com/copyleft-games/libregnum-sub015/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Libregnum Road Simulation Server"
)

func main() {
	// A missing .env file is normal
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "libregnum",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "server config file (YAML)", Value: "libregnum.yaml", Sources: cli.EnvVars("LIBREGNUM_CONFIG")},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
			&cli.StringFlag{Name: "level-dir", Usage: "directory containing level files"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
			&cli.StringFlag{Name: "database-url", Usage: "PostgreSQL DSN for the level store"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			routeCommand(),
			validateCommand(),
			exportCommand(),
			migrateCommand(),
		},
		Action: runServe,
	}
}

// loadConfig reads the server config and applies flags that were set
func loadConfig(cmd *cli.Command) (config.ServerConfig, error) {
	cfg, err := config.LoadServerConfig(cmd.String("config"))
	if err != nil {
		return cfg, err
	}
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("level-dir") {
		cfg.LevelDir = cmd.String("level-dir")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.LogFormat = cmd.String("log-format")
	}
	if cmd.IsSet("database-url") {
		cfg.DatabaseURL = cmd.String("database-url")
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}
	if cmd.IsSet("tick-rate") {
		cfg.TickRate = cmd.Float("tick-rate")
	}
	return cfg, cfg.Validate()
}

// setupLogging installs the default logger. Logs always go to stderr since
// stdout belongs to MCP stdio and the offline commands.
func setupLogging(cfg config.ServerConfig, w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// services holds everything the serve and mcp commands share
type services struct {
	sim         service.SimulationService
	sessions    *session.Manager
	persistence *session.FilePersistence
	levels      *config.Manager
	store       *store.Store
}

func (s *services) Close() {
	if err := s.sessions.SaveAllSessions(); err != nil {
		slog.Warn("failed to save sessions", "error", err)
	}
	if s.store != nil {
		s.store.Close()
	}
}

// buildServices wires level sources, session persistence and the simulation
// service. With a database configured, the level store is searched first and
// receives saved levels.
func buildServices(ctx context.Context, cfg config.ServerConfig) (*services, error) {
	var sources []config.Source
	var st *store.Store

	if cfg.DatabaseURL != "" {
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to migrate level store: %w", err)
		}
		var err error
		st, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open level store: %w", err)
		}
		sources = append(sources, st)
	}

	dir, err := config.NewDirSource(cfg.LevelDir)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, fmt.Errorf("failed to create level source: %w", err)
	}
	sources = append(sources, dir)

	levels, err := config.NewManager(sources...)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}
	if cfg.DefaultLevel != "" {
		if err := levels.SetDefault(ctx, cfg.DefaultLevel); err != nil {
			slog.Warn("default level unavailable", "level", cfg.DefaultLevel, "error", err)
		}
	}

	persistence, err := session.NewFilePersistence(cfg.SessionsDir)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessions := session.NewManagerWithPersistence(persistence)
	if err := sessions.LoadPersistedSessions(); err != nil {
		slog.Warn("failed to load persisted sessions", "error", err)
	}

	name, _ := levels.GetDefault()
	slog.Info("services ready", "default_level", name, "sources", len(sources), "sessions", sessions.Count())

	return &services{
		sim:         service.NewSimulationService(sessions, levels),
		sessions:    sessions,
		persistence: persistence,
		levels:      levels,
		store:       st,
	}, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server with REST API, WebSocket and MCP endpoint",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "tick-rate", Usage: "background ticks per second (0 disables)"},
			&cli.BoolFlag{Name: "ngrok", Usage: "expose the server through an ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain"},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg, os.Stderr); err != nil {
		return err
	}

	slog.Info("starting", "app", AppName, "version", Version, "addr", cfg.Addr())

	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.Close()

	hub := websocket.NewHub()
	handler := newRouter(svcs.sim, hub, "http://"+cfg.Addr())

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening",
			"rest", fmt.Sprintf("http://%s/api", cfg.Addr()),
			"websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", cfg.Addr()),
			"mcp", fmt.Sprintf("http://%s/mcp", cfg.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		tickLoop(gctx, svcs.sim, hub, cfg.TickInterval())
		return nil
	})

	g.Go(func() error {
		cleanupLoop(gctx, svcs, hub, cfg.SessionTTL, cfg.CleanupInterval)
		return nil
	})

	if cfg.Ngrok.Enabled {
		g.Go(func() error {
			runNgrok(gctx, cfg.Ngrok, handler)
			return nil
		})
	}

	err = g.Wait()
	slog.Info("server stopped")
	return err
}

// newRouter combines the REST API with the /mcp HTTP endpoint. The MCP tools
// call back into the API at baseURL.
func newRouter(sim service.SimulationService, hub *websocket.Hub, baseURL string) http.Handler {
	apiServer := api.NewServer(sim, hub)
	mcpClient := mcp.NewClient(baseURL)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)
		if response == nil {
			// Notifications have no reply
			w.WriteHeader(http.StatusAccepted)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			slog.Error("failed to encode MCP response", "error", err)
		}
	})
	return mux
}

// tickLoop advances every session at a fixed rate and pushes fresh state to
// sessions that have WebSocket viewers
func tickLoop(ctx context.Context, sim service.SimulationService, hub *websocket.Hub, interval time.Duration) {
	if interval <= 0 {
		slog.Info("background ticker disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	delta := interval.Seconds()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range sim.TickAll(ctx, delta) {
				if !hub.HasClients(id) {
					continue
				}
				state, err := sim.GetState(ctx, id)
				if err != nil {
					continue
				}
				hub.BroadcastState(id, state)
			}
		}
	}
}

// cleanupLoop drops idle sessions, prunes sessions whose files were deleted
// and reloads levels so edits on disk show up
func cleanupLoop(ctx context.Context, svcs *services, hub *websocket.Hub, ttl, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ttl > 0 {
				svcs.sessions.CleanupExpiredSessions(ttl)
			}
			if pruned := syncSessions(svcs.sessions, svcs.persistence, hub); pruned > 0 {
				slog.Info("filesystem sync pruned orphaned sessions", "count", pruned)
			}
			if err := svcs.levels.RefreshCache(ctx); err != nil {
				slog.Warn("failed to refresh level cache", "error", err)
			}
		}
	}
}

// syncSessions removes in-memory sessions whose persisted file is gone
func syncSessions(sessions *session.Manager, persistence session.SessionPersistence, hub *websocket.Hub) int {
	pruned := 0
	for _, sess := range sessions.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := sessions.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			slog.Debug("pruned session from memory (file deleted)", "session", sess.ID)
			if hub != nil {
				hub.BroadcastEvent(sess.ID, websocket.EventDelete, nil)
			}
		}
	}
	return pruned
}

func runNgrok(ctx context.Context, cfg config.NgrokConfig, handler http.Handler) {
	if cfg.AuthToken == "" {
		slog.Warn("ngrok enabled but no auth token provided (set NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		slog.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	slog.Info("ngrok tunnel established",
		"url", tun.URL(),
		"rest", tun.URL()+"/api",
		"mcp", tun.URL()+"/mcp")

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("ngrok server error", "error", err)
	}
	slog.Info("ngrok tunnel closed")
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "run an MCP stdio server, starting an internal API when none is reachable",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Usage: "base URL of a running API (default http://<host>:<port>)", Sources: cli.EnvVars("LIBREGNUM_API_URL")},
		},
		Action: runMCP,
	}
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg, os.Stderr); err != nil {
		return err
	}

	baseURL := cmd.String("api-url")
	if baseURL == "" {
		baseURL = "http://" + cfg.Addr()
	}

	if !apiReachable(ctx, baseURL) {
		slog.Info("no API server found, starting internal HTTP server", "checked", baseURL)

		svcs, err := buildServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer svcs.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub()
		go hub.Run(ctx)

		srv := &http.Server{Handler: api.NewServer(svcs.sim, hub)}
		go func() {
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("internal HTTP server error", "error", err)
			}
		}()
		defer srv.Close()

		baseURL = "http://" + listener.Addr().String()
	}

	slog.Info("MCP stdio server ready", "api", baseURL)
	return mcp.NewClient(baseURL).Serve()
}

func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func routeCommand() *cli.Command {
	return &cli.Command{
		Name:      "route",
		Usage:     "plan a route between two roads of a level file",
		ArgsUsage: "<level-file> <from-road> <to-road>",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "from-t", Value: 0.5, Usage: "parameter along the starting road"},
			&cli.FloatFlag{Name: "to-t", Value: 0.5, Usage: "parameter along the destination road"},
			&cli.BoolFlag{Name: "json", Usage: "print the plan as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 3 {
				return fmt.Errorf("expected <level-file> <from-road> <to-road>, got %d arguments", cmd.NArg())
			}
			level, err := engine.LoadLevel(cmd.Args().Get(0))
			if err != nil {
				return err
			}
			network, err := engine.BuildNetwork(level)
			if err != nil {
				return err
			}

			plan, err := engine.PlanRoute(network, cmd.Args().Get(1), cmd.Float("from-t"), cmd.Args().Get(2), cmd.Float("to-t"))
			if err != nil {
				return err
			}

			out := cmd.Root().Writer
			if cmd.Bool("json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}
			fmt.Fprintf(out, "Route %s -> %s: %.1f m over %d roads\n", plan.From, plan.To, plan.Length, len(plan.Legs))
			for i, leg := range plan.Legs {
				dir := "forward"
				if !leg.Forward {
					dir = "reverse"
				}
				fmt.Fprintf(out, "  %d. %s (%.1f m, %s)\n", i+1, leg.RoadID, leg.Length, dir)
			}
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check level files and directories for problems",
		ArgsUsage: "[file or directory...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print reports as JSON"},
			&cli.BoolFlag{Name: "strict", Usage: "treat warnings as failures"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				dir := cmd.String("level-dir")
				if dir == "" {
					dir = config.DefaultServerConfig().LevelDir
				}
				paths = []string{dir}
			}

			files, err := expandLevelPaths(paths)
			if err != nil {
				return err
			}

			reports := make([]validate.Report, 0, len(files))
			failed := 0
			for _, file := range files {
				report := validate.ValidateFile(file)
				if !report.Valid || (cmd.Bool("strict") && len(report.Issues) > 0) {
					failed++
				}
				reports = append(reports, report)
			}

			out := cmd.Root().Writer
			if cmd.Bool("json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return err
				}
			} else {
				printReports(out, reports)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d level files failed validation", failed, len(files))
			}
			return nil
		},
	}
}

func printReports(w io.Writer, reports []validate.Report) {
	for _, r := range reports {
		status := "✅"
		if !r.Valid {
			status = "❌"
		}
		fmt.Fprintf(w, "%s %s (%d roads, %d connections, %d groups)\n", status, r.File, r.Roads, r.Connections, r.Components)
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "   %s\n", issue)
		}
	}
}

// expandLevelPaths replaces directories by the level files they contain
func expandLevelPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".json", ".yaml", ".yml":
				if !e.IsDir() {
					files = append(files, filepath.Join(p, e.Name()))
				}
			}
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no level files found")
	}
	return files, nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "convert a level file to json, yaml or geojson",
		ArgsUsage: "<level-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "geojson", Usage: "json, yaml or geojson"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write to a file instead of stdout"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("expected exactly one level file")
			}
			level, err := engine.LoadLevel(cmd.Args().First())
			if err != nil {
				return err
			}

			data, err := exportLevel(level, cmd.String("format"))
			if err != nil {
				return err
			}

			if path := cmd.String("output"); path != "" {
				return os.WriteFile(path, data, 0644)
			}
			_, err = cmd.Root().Writer.Write(data)
			return err
		},
	}
}

func exportLevel(level *engine.LevelConfig, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json", "yaml", "yml":
		return engine.MarshalLevel(level, format)
	case "geojson":
		network, err := engine.BuildNetwork(level)
		if err != nil {
			return nil, err
		}
		return json.MarshalIndent(network.GeoJSON(), "", "  ")
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply level store migrations to the configured database",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := setupLogging(cfg, os.Stderr); err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("no database configured (use --database-url or DATABASE_URL)")
			}
			if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
				return err
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}
