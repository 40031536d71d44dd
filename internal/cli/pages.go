package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mirrorwell/pagestore/wiki"
)

var (
	addAuthor  string
	addMessage string
	addMinor   bool
)

var addCmd = &cobra.Command{
	Use:   "add <page> [markup-file]",
	Short: "Add a new revision to a page",
	Long: `Add a new revision with markup read from a file, or from stdin when
no file is given. The new revision becomes the page's current one.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var markup []byte
		var err error
		if len(args) == 2 {
			markup, err = os.ReadFile(args[1])
		} else {
			markup, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		rev := wiki.NewRevision(args[0], string(markup))
		rev.Author = addAuthor
		rev.Message = addMessage
		rev.MinorEdit = addMinor

		created, err := store.Add(rev)
		if err != nil {
			return err
		}
		fmt.Printf("%s is now at revision %d\n", created.PageName, created.Number)
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Rename a page and its entire history",
	Long: `Move every revision of a page to a new name. Links elsewhere that
still point at the old name are not rewritten; they show up in broken-links
for editors to fix.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := store.Move(args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("move of %q lost a race with another writer, nothing changed", args[0])
		}
		fmt.Printf("moved %s to %s\n", args[0], args[1])
		return nil
	},
}

var deletePageCmd = &cobra.Command{
	Use:   "delete-page <page>",
	Short: "Soft-delete every revision of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := store.DeletePage(args[0])
		if err != nil {
			return err
		}
		if count < 0 {
			return fmt.Errorf("delete of %q lost a race with another writer, nothing changed", args[0])
		}
		fmt.Printf("soft-deleted %d revision(s) of %s\n", count, args[0])
		return nil
	},
}

var deleteRevisionCmd = &cobra.Command{
	Use:   "delete-revision <page> <revision>",
	Short: "Soft-delete one revision of a page",
	Long: `Soft-delete a single revision. Deleting the current revision promotes
the highest surviving one. Deleting a revision that does not exist is a no-op.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("revision must be a number, got %q", args[1])
		}
		if err := store.DeleteRevision(args[0], number); err != nil {
			return err
		}
		fmt.Printf("deleted revision %d of %s\n", number, args[0])
		return nil
	},
}

var undeleteCmd = &cobra.Command{
	Use:   "undelete <page>",
	Short: "Restore every soft-deleted revision of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := store.Undelete(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("undelete of %q lost a race with another writer, nothing changed", args[0])
		}
		fmt.Printf("restored %s\n", args[0])
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addAuthor, "author", "", "author recorded on the revision")
	addCmd.Flags().StringVarP(&addMessage, "message", "m", "", "revision message")
	addCmd.Flags().BoolVar(&addMinor, "minor", false, "mark as a minor edit")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(deletePageCmd)
	rootCmd.AddCommand(deleteRevisionCmd)
	rootCmd.AddCommand(undeleteCmd)
}
