package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kalambet/prefs/internal/config"
)

// --- get / set / remove ---

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored for key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		val, ok, err := store.Get(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not set", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), val)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store value under key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.Set(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s", args[0])
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <key>",
	Aliases: []string{"rm"},
	Short:   "Delete key from the group",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.Remove(args[0]); err != nil {
			return err
		}
		printSuccess("Removed %s", args[0])
		return nil
	},
}

// --- clear / keys ---

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every key in the group",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete every key in the group. Use --confirm to proceed.")
			return nil
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.RemoveAll(); err != nil {
			return err
		}
		printSuccess("Group cleared")
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys stored in the group",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		keys, err := store.Keys()
		if err != nil {
			return err
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

func init() {
	clearCmd.Flags().Bool("confirm", false, "confirm deletion")
}

// --- legacy migration ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy _cap_ keys from the standard store into the group",
	Long: `Copy every key stored with the old _cap_ prefix in the standard store
into the group. Keys the group already holds are left untouched.
The old keys are kept; run remove-old to delete them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		res, err := store.Migrate()
		if err != nil {
			return err
		}
		for _, k := range res.Migrated {
			printStep("migrated %s", k)
		}
		for _, k := range res.Existing {
			printWarning("kept existing %s", k)
		}
		printSuccess("Migrated %d keys, %d already set", len(res.Migrated), len(res.Existing))
		return nil
	},
}

var removeOldCmd = &cobra.Command{
	Use:   "remove-old",
	Short: "Delete the _cap_ keys from the standard store",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete every _cap_ key in the standard store. Use --confirm to proceed.")
			return nil
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.RemoveOld(); err != nil {
			return err
		}
		printSuccess("Legacy keys removed")
		return nil
	},
}

func init() {
	removeOldCmd.Flags().Bool("confirm", false, "confirm deletion")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var newSettings = func() config.Settings { return config.NewSettings() }

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + fmt.Sprint(config.ValidKeys()),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(newSettings(), key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
