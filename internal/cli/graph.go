package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List live pages nothing links to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		revs, err := store.Orphans()
		if err != nil {
			return err
		}
		for _, rev := range revs {
			fmt.Println(rev.PageName)
		}
		return nil
	},
}

var brokenLinksCmd = &cobra.Command{
	Use:   "broken-links",
	Short: "List links whose target page does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		edges, err := store.BrokenLinks()
		if err != nil {
			return err
		}
		for _, edge := range edges {
			fmt.Printf("%s -> %s (%s)\n", edge.Referrer, edge.Referral, edge.Excerpt)
		}
		return nil
	},
}

var subpagesCmd = &cobra.Command{
	Use:   "subpages <page>",
	Short: "List live pages nested under a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		revs, err := store.SubpagesOf(args[0])
		if err != nil {
			return err
		}
		for _, rev := range revs {
			fmt.Println(rev.PageName)
		}
		return nil
	},
}

var parentsCmd = &cobra.Command{
	Use:   "parents <page>",
	Short: "List live pages a page is nested under",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		revs, err := store.ParentsOf(args[0])
		if err != nil {
			return err
		}
		for _, rev := range revs {
			fmt.Println(rev.PageName)
		}
		return nil
	},
}

var backlinksCmd = &cobra.Command{
	Use:   "backlinks <page>",
	Short: "List pages that link to a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		edges, err := store.Backlinks(args[0])
		if err != nil {
			return err
		}
		for _, edge := range edges {
			fmt.Printf("%s (%s)\n", edge.Referrer, edge.Excerpt)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print summary figures for the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		revs, err := store.Orphans()
		if err != nil {
			return err
		}
		broken, err := store.BrokenLinks()
		if err != nil {
			return err
		}
		edges, err := store.ReferralCount()
		if err != nil {
			return err
		}
		fmt.Printf("referral edges: %d\n", edges)
		fmt.Printf("broken links:   %d\n", len(broken))
		fmt.Printf("orphan pages:   %d\n", len(revs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(orphansCmd)
	rootCmd.AddCommand(brokenLinksCmd)
	rootCmd.AddCommand(subpagesCmd)
	rootCmd.AddCommand(parentsCmd)
	rootCmd.AddCommand(backlinksCmd)
}
