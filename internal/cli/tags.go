package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTagsCommand(flags *globalFlags) *cobra.Command {
	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "List defined tags and tags in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			defined := make(map[string]struct{})
			for _, name := range a.engine.DefinedTags() {
				defined[name] = struct{}{}
			}
			for _, name := range a.engine.AllTagNames() {
				if _, ok := defined[name]; ok {
					fmt.Fprintln(cmd.OutOrStdout(), name)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (in use, not defined)\n", name)
			}
			return nil
		},
	}

	tagsCmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Define a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.engine.AddDefinedTag(args[0]) {
				return fmt.Errorf("tag %q is blank or already defined", args[0])
			}
			return nil
		},
	})

	tagsCmd.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a tag from the catalog and from every task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			a.engine.RemoveDefinedTag(args[0])
			return nil
		},
	})

	return tagsCmd
}
