package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/signaldeck/internal/prefs"
)

var themeCmd = &cobra.Command{
	Use:       "theme [dark|light]",
	Short:     "Show or set the dashboard theme",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"dark", "light"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPreferences(func(ctx context.Context, store *prefs.Store) error {
			if len(args) == 1 {
				store.SaveDarkMode(ctx, args[0] == "dark")
			}
			theme := "light"
			if store.Load(ctx).DarkMode {
				theme = "dark"
			}
			fmt.Printf("Theme: %s\n", theme)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
}
