package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rulekit/rulekit/pkg/config"
	"github.com/rulekit/rulekit/pkg/telemetry"
)

const sampleRules = `rules:
  - name: publish
    description: Publish draft articles
    condition: input.article.status == "draft"
    actions:
      - action: data_set
        path: article.status
        value: published
      - action: list_add
        path: log
        value: "published [article.title]"
      - action: data_save
`

const sampleRecords = `site: {
	name:   "rulekit"
	slogan: "Rules over dynamic typed data"
}
`

func newInitCommand(opts *globalOptions) *cobra.Command {
	var force, dev bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a rulekit workspace",
		Long: `Initialize a workspace with a configuration file, a migrated SQLite
database, a sample rule file and a records directory.`,
		Example: `  # Initialize the current directory
  rulekit init

  # Initialize another directory, replacing an existing config
  rulekit init ./site --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			out := cmd.OutOrStdout()

			log.Info().Str("dir", dir).Msg("Initializing workspace")

			cfg := config.DefaultAppConfig()
			if dev {
				cfg.Telemetry = *telemetry.DevelopmentConfig()
			}
			for _, d := range []string{dir, filepath.Join(dir, cfg.RecordsDir)} {
				if err := os.MkdirAll(d, 0o755); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", d, err)
				}
			}

			cfgPath := opts.configPath
			if cfgPath == "" {
				cfgPath = filepath.Join(dir, defaultConfigName)
			}
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to replace it)", cfgPath)
			}
			if err := cfg.Write(cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created config file: %s\n", cfgPath)

			samples := []struct{ path, content string }{
				{filepath.Join(dir, cfg.Rules.File), sampleRules},
				{filepath.Join(dir, cfg.RecordsDir, "site.cue"), sampleRecords},
			}
			for _, s := range samples {
				created, err := writeIfMissing(s.path, s.content)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(out, "Created %s\n", s.path)
				}
			}

			ws, err := openWorkspace(cmd.Context(), &globalOptions{configPath: cfgPath, verbose: opts.verbose})
			if err != nil {
				return err
			}
			defer ws.close(cmd.Context())
			fmt.Fprintf(out, "Initialized SQLite database: %s\n", ws.cfg.Database.Path)

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace an existing config file")
	cmd.Flags().BoolVar(&dev, "dev", false, "write a config with debug logging and stdout tracing")

	return cmd
}

func writeIfMissing(path, content string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
