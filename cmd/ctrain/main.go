package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	serveradapter "github.com/hylla/ctrain/internal/adapters/server"
	servercommon "github.com/hylla/ctrain/internal/adapters/server/common"
	"github.com/hylla/ctrain/internal/adapters/storage/sqlite"
	"github.com/hylla/ctrain/internal/app"
	"github.com/hylla/ctrain/internal/config"
	"github.com/hylla/ctrain/internal/domain"
	"github.com/hylla/ctrain/internal/observability"
	"github.com/hylla/ctrain/internal/platform"
	"github.com/hylla/ctrain/internal/tui"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// clipboardWriter copies summary output for `summary --copy`.
var clipboardWriter = clipboard.WriteAll

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds persistent flag values shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if args == nil {
		args = []string{}
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// newRootCommand wires the command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{
		appName: "ctrain",
		devMode: version == "dev",
	}
	if envDev, ok := parseBoolEnv("CTRAIN_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("CTRAIN_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:   "ctrain",
		Short: "Track continuing-training credits and submit the record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, stderr, "tui", func(rt *appRuntime) error {
				return runTUI(rt)
			})
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newServeCommand(opts, stderr),
		newExportCommand(opts, stdout, stderr),
		newImportCommand(opts, stderr),
		newSubmitCommand(opts, stdout, stderr),
		newSummaryCommand(opts, stdout, stderr),
		newHistoryCommand(opts, stdout, stderr),
		newCreditsCommand(stdout),
		newRatesCommand(stdout),
	)
	return root
}

func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data and log locations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "env: %s\n", paths.EnvPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(stdout, "logs: %s\n", paths.LogDir)
			_, _ = fmt.Fprintf(stdout, "submissions: %s\n", paths.ArchiveDir)
			return nil
		},
	}
}

func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, MCP tools and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, stderr, "serve", func(rt *appRuntime) error {
				cfg := serveradapter.Config{
					HTTPBind:      firstNonEmpty(httpBind, rt.cfg.Server.HTTPBind),
					APIEndpoint:   firstNonEmpty(apiEndpoint, rt.cfg.Server.APIEndpoint),
					MCPEndpoint:   firstNonEmpty(mcpEndpoint, rt.cfg.Server.MCPEndpoint),
					ServerName:    opts.appName,
					ServerVersion: version,
				}
				rt.logger.Info("serve endpoints resolved", "http", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)
				return serveCommandRunner(cmd.Context(), cfg, serveradapter.Dependencies{
					Service: servercommon.NewAppServiceAdapter(rt.svc),
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint (default from config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint (default from config)")
	return cmd
}

func newExportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the saved form as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, stderr, "export", func(rt *appRuntime) error {
				return runExport(cmd.Context(), rt.svc, outPath, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newImportCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the saved form with a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			return withRuntime(cmd.Context(), opts, stderr, "import", func(rt *appRuntime) error {
				ctx := app.WithMutationActor(cmd.Context(), app.MutationActor{ActorID: "import", ActorType: app.ActorTypeSystem})
				return runImport(ctx, rt.svc, inPath)
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	return cmd
}

func newSubmitCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var sinkName string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Package the form and deliver it to a submission sink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, stderr, "submit", func(rt *appRuntime) error {
				// Sinks are registered default first, so an empty name picks the default when it is enabled.
				return runSubmit(cmd.Context(), rt.svc, strings.TrimSpace(sinkName), stdout, rt.logger)
			})
		},
	}
	cmd.Flags().StringVar(&sinkName, "sink", "", "submission sink: archive, github, sheets or kafka (default: configured default, else first enabled)")
	return cmd
}

func newSummaryCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var copyOut bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the submission details table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, stderr, "summary", func(rt *appRuntime) error {
				csv := rt.svc.SummaryCSV()
				if copyOut {
					if err := clipboardWriter(string(csv)); err != nil {
						return fmt.Errorf("copy summary to clipboard: %w", err)
					}
				}
				if _, err := stdout.Write(csv); err != nil {
					return fmt.Errorf("write summary: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&copyOut, "copy", false, "also copy the CSV to the clipboard")
	return cmd
}

func newHistoryCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent saves of the form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, stderr, "history", func(rt *appRuntime) error {
				events, err := rt.repo.ListFormEvents(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("list form events: %w", err)
				}
				_, err = fmt.Fprintln(stdout, renderHistory(events))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	return cmd
}

func newCreditsCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "credits <activity> <value>",
		Short: "Compute the credits one activity earns",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			calc := domain.DefaultCalculator()
			activity := strings.TrimSpace(args[0])
			credits := calc.ComputeText(activity, args[1])
			label, capNote := calc.InputHint(activity)
			_, _ = fmt.Fprintf(stdout, "activity: %s\n", activity)
			_, _ = fmt.Fprintf(stdout, "%s: %s\n", strings.ToLower(label), strings.TrimSpace(args[1]))
			_, _ = fmt.Fprintf(stdout, "credits: %s\n", formatCredits(credits))
			if capNote != "" {
				_, _ = fmt.Fprintf(stdout, "note: %s\n", capNote)
			}
			return nil
		},
	}
}

func newRatesCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Print the credit rate, rotational and goal tables",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cat := app.NewService(nil, nil, domain.GoalTable{}, nil, nil, app.ServiceConfig{}).Catalog()
			_, err := fmt.Fprintln(stdout, renderCatalog(cat))
			return err
		},
	}
}

// appRuntime holds everything a command needs once config and storage are open.
type appRuntime struct {
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	repo       *sqlite.Repository
	svc        *app.Service
	closeSinks func() error
	stderr     io.Writer
}

// withRuntime opens the runtime, runs fn and logs the command lifecycle.
func withRuntime(ctx context.Context, opts *rootOptions, stderr io.Writer, command string, fn func(*appRuntime) error) error {
	rt, err := openRuntime(ctx, opts, stderr, command)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("command flow start", "command", command)
	if err := fn(rt); err != nil {
		rt.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	rt.logger.Info("command flow complete", "command", command)
	return nil
}

// openRuntime resolves paths, loads config and secrets, and opens storage and sinks.
func openRuntime(ctx context.Context, opts *rootOptions, stderr io.Writer, command string) (*appRuntime, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("CTRAIN_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("CTRAIN_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	secrets, err := config.LoadSecrets(paths.EnvPath, ".env")
	if err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, paths.LogDir, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// Keep TUI rendering clean: runtime logs stay in the dev-file sink while the form is active.
		logger.SetConsoleEnabled(false)
	}
	rt := &appRuntime{
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
		stderr:     stderr,
	}

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	logger.Info("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		rt.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	rt.repo = repo
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	sinks, closeSinks, err := sinkFactory(cfg, secrets)
	if err != nil {
		logger.Error("submission sinks failed", "err", err)
		rt.Close()
		return nil, fmt.Errorf("configure submission sinks: %w", err)
	}
	rt.closeSinks = closeSinks
	sinkNames := make([]string, 0, len(sinks))
	for _, sink := range sinks {
		sinkNames = append(sinkNames, sink.Name())
	}
	logger.Info("submission sinks ready", "sinks", strings.Join(sinkNames, ","), "default", cfg.Sinks.Default)

	rt.svc = app.NewService(repo, nil, domain.GoalTable{}, uuid.NewString, nil, app.ServiceConfig{
		DefaultProfile: domain.Profile{
			Period:        cfg.Form.DefaultPeriod,
			Qualification: cfg.Form.DefaultQualification,
		},
		ResetAfterSubmit: cfg.Form.ResetAfterSubmit,
		Sinks:            sinks,
		OnChange:         observability.RecordProgress,
	})
	if err := rt.svc.Load(ctx); err != nil {
		logger.Error("form load failed", "err", err)
		rt.Close()
		return nil, err
	}
	progress := rt.svc.Progress()
	logger.Debug("application service initialized", "total", progress.Total, "goal", progress.Goal)
	return rt, nil
}

// Close releases sinks, storage and log sinks in reverse open order.
func (rt *appRuntime) Close() {
	if rt == nil {
		return
	}
	if rt.closeSinks != nil {
		if err := rt.closeSinks(); err != nil {
			rt.logger.Warn("submission sink close failed", "err", err)
		}
	}
	if rt.repo != nil {
		if err := rt.repo.Close(); err != nil {
			rt.logger.Warn("sqlite close failed", "db_path", rt.cfg.Database.Path, "err", err)
		}
	}
	if err := rt.logger.Close(); err != nil && rt.logger.shouldLogToSink(rt.logger.consoleSink) {
		// Keep TUI shutdown quiet on the terminal when console logging is intentionally muted.
		_, _ = fmt.Fprintf(rt.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// runTUI runs the interactive form.
func runTUI(rt *appRuntime) error {
	m := tui.NewModel(
		rt.svc,
		tui.WithDefaultSink(rt.cfg.Sinks.Default),
		tui.WithClipboard(tui.DefaultClipboard()),
	)
	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		rt.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	return nil
}

// runExport runs the requested command flow.
func runExport(ctx context.Context, svc *app.Service, outPath string, stdout io.Writer) error {
	snap, err := svc.ExportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "-" || strings.TrimSpace(outPath) == "" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runImport runs the requested command flow.
func runImport(ctx context.Context, svc *app.Service, inPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return fmt.Errorf("decode snapshot json: %w", err)
	}
	if err := svc.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

// runSubmit delivers the form and prints the receipt.
func runSubmit(ctx context.Context, svc *app.Service, sinkName string, stdout io.Writer, logger *runtimeLogger) error {
	result, err := svc.Submit(ctx, sinkName)
	var subErr *app.SubmissionError
	if errors.As(err, &subErr) {
		return fmt.Errorf("%s: %w", subErr.UserMessage(), err)
	}
	if result.Receipt.Sink != "" {
		_, _ = fmt.Fprintf(stdout, "sink: %s\n", result.Receipt.Sink)
		_, _ = fmt.Fprintf(stdout, "location: %s\n", result.Receipt.Location)
		_, _ = fmt.Fprintf(stdout, "activities: %d\n", result.Rows)
		_, _ = fmt.Fprintf(stdout, "files: %d\n", result.Files)
		_, _ = fmt.Fprintf(stdout, "credits: %s (goal met: %t)\n", formatCredits(result.TotalCredits), result.Complete)
		_, _ = fmt.Fprintf(stdout, "form cleared: %t\n", result.Reset)
	}
	if err != nil {
		logger.Warn("submission delivered but form reset failed", "sink", result.Receipt.Sink, "err", err)
		return err
	}
	return nil
}

// firstNonEmpty returns the first trimmed non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
