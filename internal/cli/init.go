package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/internal/config"
	"github.com/campusdesk/campusdesk/internal/db"
	"github.com/campusdesk/campusdesk/internal/errors"
)

var (
	initForce    bool
	initNoSeed   bool
	initNoConfig bool
)

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing database")
	initCmd.Flags().BoolVar(&initNoSeed, "no-seed", false, "Do not create the default categories")
	initCmd.Flags().BoolVar(&initNoConfig, "no-config", false, "Do not write a sample config file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize campusdesk for first-time use",
	Long: `Initialize campusdesk by creating the ~/.campusdesk/ directory and database.

This command:
- Creates the database with the ticket schema
- Seeds the default ticket categories (skip with --no-seed)
- Writes a sample ~/.campusdesk/config.toml if none exists (skip with --no-config)

Use --force to overwrite an existing database. The old database is
snapshotted first unless backups are disabled.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

type initResult struct {
	Database   string `json:"database"`
	Created    bool   `json:"created"`
	Schema     int64  `json:"schema_version"`
	Categories int    `json:"categories_seeded"`
	ConfigFile string `json:"config_file,omitempty"`
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetDBPath()

	if db.Exists(path) && !initForce {
		display := path
		if display == "" {
			display = db.DefaultDBPath
		}
		if IsJSON() {
			return printJSON(initResult{Database: display, Created: false})
		}
		return errors.Validation("database already exists at %s", display).
			WithSuggestion("Use --force to overwrite it.")
	}

	if initForce && db.Exists(path) {
		if old, err := db.Open(path); err == nil {
			snapshot(cmdContext(cmd), old, true)
			old.Close()
		}
		VerboseOutput("Removing existing database...\n")
		if err := db.Delete(path); err != nil {
			return errors.WrapInternal(err, "failed to remove existing database")
		}
	}

	VerboseOutput("Creating database...\n")
	database, err := db.Open(path)
	if err != nil {
		return errors.WrapInternal(err, "failed to create database")
	}
	defer database.Close()

	VerboseOutput("Running migrations...\n")
	if err := database.Migrate(); err != nil {
		return errors.WrapInternal(err, "failed to run migrations")
	}
	version, err := database.SchemaVersion()
	if err != nil {
		return errors.WrapInternal(err, "failed to read schema version")
	}

	result := initResult{Database: database.Path(), Created: true, Schema: version}

	if !initNoSeed {
		n, err := db.SeedDefaultCategories(cmdContext(cmd), database.DB)
		if err != nil {
			return errors.WrapInternal(err, "failed to seed categories")
		}
		result.Categories = n
	}

	if !initNoConfig {
		cfgPath := config.DefaultConfigPath()
		if cfgPath != "" {
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := config.WriteConfigFile(cfgPath); err != nil {
					ErrorOutput("Warning: failed to write config file: %v\n", err)
				} else {
					result.ConfigFile = cfgPath
				}
			}
		}
	}

	if IsJSON() {
		return printJSON(result)
	}

	OutputLine("Initialized campusdesk database at %s", result.Database)
	OutputLine("Schema version: %d", result.Schema)
	if result.Categories > 0 {
		OutputLine("Seeded %d categories", result.Categories)
	}
	if result.ConfigFile != "" {
		OutputLine("Wrote %s", result.ConfigFile)
	}
	return nil
}
