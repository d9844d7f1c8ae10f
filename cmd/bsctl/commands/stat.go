package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <locator>",
	Short: "Show the size of a stream",
	Long: `Stat opens the stream behind a locator and prints its size in bytes.
For remote locators this costs a single length probe; no content is
downloaded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStream(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := s.Open(); err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", s.Path(), s.Size())
		return nil
	},
}
