package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusdesk/campusdesk/internal/backup"
	"github.com/campusdesk/campusdesk/internal/config"
	"github.com/campusdesk/campusdesk/internal/db"
	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/logging"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/service"
)

// Version information (set at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global flags
var (
	dbPath  string
	jsonOut bool
	quiet   bool
	verbose bool
	noColor bool
	asActor string
)

// Global configuration (loaded once at startup)
var globalConfig *config.Config

// Exit codes, matching errors.Kind
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitParseError   = 2
	ExitNotFound     = 3
	ExitValidation   = 4
	ExitDBError      = 5
)

var rootCmd = &cobra.Command{
	Use:   "campusdesk",
	Short: "Campus trouble-ticket lifecycle and SLA tracking",
	Long: `campusdesk tracks facility and IT trouble tickets filed by students
from creation to closure, computes resolution deadlines and reports
overdue work.

Use "campusdesk init" to initialize a new database.
Use "campusdesk --help" to see all available commands.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	var err error
	globalConfig, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config file: %v\n", err)
		globalConfig = config.DefaultConfig()
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to database file (default ~/.campusdesk/campusdesk.db)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&asActor, "as", "", "Act as role:id (e.g. student:sv001, staff:an.nguyen, admin:ops)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("campusdesk %s (%s, %s)\n", Version, shortCommit(), shortDate()))

	rootCmd.AddCommand(versionCmd)
}

// shortCommit returns the first 7 characters of the git commit hash
func shortCommit() string {
	if len(GitCommit) >= 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

// shortDate returns just the date portion of BuildDate (YYYY-MM-DD)
func shortDate() string {
	if len(BuildDate) >= 10 {
		return BuildDate[:10]
	}
	return BuildDate
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// GetDBPath returns the database path from flags, config, or default.
// Priority: flag > env > config file > default
func GetDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if globalConfig != nil {
		return globalConfig.GetDB()
	}
	return ""
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig != nil {
		return globalConfig
	}
	return config.DefaultConfig()
}

// IsJSON returns whether JSON output is requested
func IsJSON() bool {
	return jsonOut
}

// IsNoColor returns whether colored output should be disabled.
// Priority: flag > env > config file > default
func IsNoColor() bool {
	if noColor {
		return true
	}
	if globalConfig != nil {
		return globalConfig.NoColor
	}
	return false
}

// IsQuiet returns whether quiet mode is enabled
func IsQuiet() bool {
	return quiet
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose
}

// stdout is where command output goes; tests redirect it with rootCmd.SetOut.
func stdout() io.Writer {
	return rootCmd.OutOrStdout()
}

// Output prints to stdout unless quiet mode is enabled
func Output(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(stdout(), format, args...)
	}
}

// OutputLine prints a line to stdout unless quiet mode is enabled
func OutputLine(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(stdout(), format+"\n", args...)
	}
}

// VerboseOutput prints to stdout only in verbose mode
func VerboseOutput(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(stdout(), format, args...)
	}
}

// ErrorOutput prints to stderr
func ErrorOutput(format string, args ...interface{}) {
	fmt.Fprintf(rootCmd.ErrOrStderr(), format, args...)
}

// printJSON writes v as indented JSON. Quiet mode does not suppress it.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WrapInternal(err, "failed to marshal output")
	}
	fmt.Fprintln(stdout(), string(data))
	return nil
}

// commandLogger builds the zap logger for a command. Diagnostics stay at
// warn unless --verbose asks for debug.
func commandLogger() *zap.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.NewWriter(rootCmd.ErrOrStderr(), logging.Config{
		Level:  level,
		Format: logFormat(rootCmd.ErrOrStderr()),
	})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// parseActor parses "role:id", e.g. "staff:an.nguyen".
func parseActor(s string) (models.Actor, error) {
	role, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || strings.TrimSpace(id) == "" {
		return models.Actor{}, errors.ParseError("invalid actor %q (expected role:id)", s).
			WithSuggestion(SuggestActorFormat)
	}
	r, err := models.ParseActorRole(role)
	if err != nil {
		return models.Actor{}, errors.Wrap(err, errors.KindParse, "invalid actor %q", s).
			WithSuggestion(SuggestActorFormat)
	}
	return models.Actor{ID: strings.TrimSpace(id), Role: r}, nil
}

// currentActor returns the actor named by --as.
func currentActor() (models.Actor, error) {
	if asActor == "" {
		return models.Actor{}, errors.Validation("this command needs an actor").
			WithSuggestion(SuggestActorFormat)
	}
	return parseActor(asActor)
}

// app bundles what a command needs to run ticket operations.
type app struct {
	db  *db.DB
	svc *service.TicketService
	log *zap.Logger
}

func (a *app) Close() {
	a.log.Sync() //nolint:errcheck
	a.db.Close()
}

// openApp opens the database and builds the ticket service from config.
func openApp() (*app, error) {
	path := GetDBPath()
	if !db.Exists(path) {
		display := path
		if display == "" {
			display = db.DefaultDBPath
		}
		return nil, errors.NotFound("no database at %s", display).WithSuggestion(SuggestRunInit)
	}

	database, err := db.Open(path)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to open database")
	}

	snapshot(context.Background(), database, false)

	cfg := GetConfig()
	logger := commandLogger()
	svc := service.NewTicketService(db.NewStore(database.DB), service.Options{
		Policy:   cfg.Policy(),
		Logger:   logger,
		Location: cfg.Location(),
	})
	return &app{db: database, svc: svc, log: logger}, nil
}

// snapshot backs up the database, unconditionally when force is set and
// otherwise only once per configured interval. Failures only warn.
func snapshot(ctx context.Context, database *db.DB, force bool) {
	mgr := backup.NewManager(database.DB, database.Path(), GetConfig().Backup)
	var (
		path string
		err  error
	)
	if force {
		path, err = mgr.Snapshot(ctx)
	} else {
		path, err = mgr.SnapshotIfStale(ctx)
	}
	if err != nil {
		VerboseOutput("Warning: backup failed: %v\n", err)
		return
	}
	if path != "" {
		VerboseOutput("Created backup: %s\n", path)
	}
}

// cmdContext returns the command's context, falling back to Background.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
