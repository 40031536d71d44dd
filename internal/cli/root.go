package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mirrorwell/pagestore/internal/config"
	"github.com/mirrorwell/pagestore/internal/storage"
	"github.com/mirrorwell/pagestore/links"
	"github.com/mirrorwell/pagestore/wiki/service"
)

var (
	dbFile string
	store  service.PageService
)

var rootCmd = &cobra.Command{
	Use:   "pagestore",
	Short: "Maintenance commands for the wiki revision store",
	Long: `pagestore operates directly on the wiki's revision and link-graph
database: moving, deleting and undeleting pages, and surfacing orphaned and
broken content for editors to fix.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		conf := config.SetupConfig()
		if dbFile != "" {
			conf.DatabaseFile = dbFile
		}

		extractor := links.NewExtractor()
		repo, err := storage.Open(conf.DatabaseFile, extractor)
		if err != nil {
			return err
		}

		store = service.NewPageService(repo, repo, extractor)
		if conf.PrepopulateCache {
			return store.PrePopulateCache()
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFile, "db", "", "path to the database file (overrides config.yaml)")
}
