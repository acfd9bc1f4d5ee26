package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	noColor     bool
	flagGroup   string
	flagBackend string
	flagDataDir string
	flagRemote  bool
)

var rootCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Namespaced key-value preferences on top of the platform preference store",
	Long: `prefs reads and writes string preferences grouped under a name.

Each group lives in its own platform suite (a UserDefaults domain on macOS,
a JSON file elsewhere) and its keys are stored with a "<group>." prefix.
The NativeStorage group uses the standard store without a prefix.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the prefs version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "prefs version %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.StringVar(&flagGroup, "group", "", "preference group (default from preferences.group)")
	pf.StringVar(&flagBackend, "backend", "", "storage backend: auto, defaults, file, sqlite, memory")
	pf.StringVar(&flagDataDir, "data-dir", "", "directory for file and sqlite storage")
	pf.BoolVar(&flagRemote, "remote", false, "talk to a running prefs server instead of the local store")

	rootCmd.AddCommand(
		getCmd,
		setCmd,
		removeCmd,
		clearCmd,
		keysCmd,
		migrateCmd,
		removeOldCmd,
		configCmd,
		serveCmd,
		stopCmd,
		statusCmd,
		versionCmd,
	)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		printWarning("could not load .env: %v", err)
	}

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
