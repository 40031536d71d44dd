package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var prepopulateCmd = &cobra.Command{
	Use:   "prepopulate",
	Short: "Load every live current revision into the cache",
	Long: `Warm the current-revision cache from storage. Normally driven by the
prepopulate_cache config setting; this command forces a warm-up regardless.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.PrePopulateCache(); err != nil {
			return err
		}
		fmt.Println("cache prepopulated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prepopulateCmd)
}
