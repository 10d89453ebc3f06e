package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"schemaver"
	"schemaver/internal/format"
	"schemaver/internal/textdiff"
)

var (
	schemasDir  string
	versionsDir string
	maxVersions int
	driver      string
	verbose     bool

	saveMessage  string
	diffAsText   bool
	discardForce bool
)

var rootCmd = &cobra.Command{
	Use:   "schemaver",
	Short: "Snapshot and diff schema collections as numbered versions",
	Long: `Schemaver stores immutable, numbered versions of a schema directory and
computes structural diffs between them: schemas, properties, indexes and
options added, removed, modified or renamed.`,
	SilenceUsage: true,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changes since the latest version",
	RunE: func(cmd *cobra.Command, args []string) error {
		pending, err := workspace().PendingChanges()
		if err != nil {
			return err
		}
		if pending.LatestVersion == nil {
			fmt.Printf("no versions yet (%d schemas on disk)\n", pending.CurrentSchemaCount)
		} else {
			fmt.Printf("latest version: %d (%d schemas, now %d)\n",
				*pending.LatestVersion, pending.PreviousSchemaCount, pending.CurrentSchemaCount)
		}
		if !pending.HasChanges {
			fmt.Println("no pending changes")
			return nil
		}
		fmt.Printf("%d pending change(s):\n", len(pending.Changes))
		return format.NewTextFormatter(os.Stdout).Changes(pending.Changes)
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create a new version from the current schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := workspace().CreateVersion(saveMessage)
		if err != nil {
			return err
		}
		fmt.Printf("created version %d (migration %s, %d changes)\n",
			result.Version, result.Migration, len(result.Changes))
		return format.NewTextFormatter(os.Stdout).Changes(result.Changes)
	},
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List stored versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := workspace().ListVersions()
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("no versions yet")
			return nil
		}
		return format.NewTextFormatter(os.Stdout).Summaries(summaries)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <version>",
	Short: "Print one stored version as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := parseVersionArg(args[0])
		if err != nil {
			return err
		}
		v, err := workspace().ReadVersion(number)
		if err != nil {
			return err
		}
		if v == nil {
			return fmt.Errorf("version %d does not exist", number)
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <from> <to>",
	Short: "Diff two stored versions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseVersionArg(args[0])
		if err != nil {
			return err
		}
		to, err := parseVersionArg(args[1])
		if err != nil {
			return err
		}
		ws := workspace()

		if diffAsText {
			fromVersion, err := ws.ReadVersion(from)
			if err != nil {
				return err
			}
			toVersion, err := ws.ReadVersion(to)
			if err != nil {
				return err
			}
			if fromVersion == nil || toVersion == nil {
				return fmt.Errorf("version %d or %d does not exist", from, to)
			}
			text, err := textdiff.Snapshots(
				fmt.Sprintf("version %d", from),
				fmt.Sprintf("version %d", to),
				fromVersion.Snapshot, toVersion.Snapshot)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		}

		result, err := ws.DiffVersions(from, to)
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("version %d or %d does not exist", from, to)
		}
		if len(result.Changes) == 0 {
			fmt.Println("no changes")
			return nil
		}
		return format.NewTextFormatter(os.Stdout).Changes(result.Changes)
	},
}

var discardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Restore schema files from the latest version (destructive)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !discardForce {
			return fmt.Errorf("discard overwrites and deletes schema files; re-run with --force")
		}
		result, err := workspace().DiscardChanges()
		if err != nil {
			return err
		}
		fmt.Printf("restored %d schema file(s), deleted %d\n", result.Restored, result.Deleted)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&schemasDir, "schemas-dir", "schemas", "Directory holding schema files")
	rootCmd.PersistentFlags().StringVar(&versionsDir, "versions-dir", "", "Directory holding version files (default: <schemas-dir>/.versions)")
	rootCmd.PersistentFlags().IntVar(&maxVersions, "max-versions", 0, "Retention cap; 0 selects the default")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "mysql", "Target database tag recorded on versions")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	saveCmd.Flags().StringVarP(&saveMessage, "message", "m", "", "Version description")
	diffCmd.Flags().BoolVar(&diffAsText, "text", false, "Show a unified YAML diff instead of the change list")
	discardCmd.Flags().BoolVar(&discardForce, "force", false, "Confirm the destructive restore")

	rootCmd.AddCommand(statusCmd, saveCmd, logCmd, showCmd, diffCmd, discardCmd)
}

func workspace() *schemaver.Workspace {
	vd := versionsDir
	if vd == "" {
		vd = filepath.Join(schemasDir, ".versions")
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return schemaver.Open(schemaver.Config{
		SchemasDir:  schemasDir,
		VersionsDir: vd,
		MaxVersions: maxVersions,
		Driver:      driver,
		Logger:      logger,
	})
}

func parseVersionArg(arg string) (int, error) {
	number, err := strconv.Atoi(strings.TrimPrefix(arg, "v"))
	if err != nil || number <= 0 {
		return 0, fmt.Errorf("invalid version %q (expected a positive number)", arg)
	}
	return number, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
