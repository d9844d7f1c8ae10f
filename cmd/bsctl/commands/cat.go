package commands

import (
	"io"

	"github.com/spf13/cobra"
)

var (
	catOffset int64
	catCount  int64
)

var catCmd = &cobra.Command{
	Use:   "cat <locator>",
	Short: "Write stream content to stdout",
	Long: `Cat streams content to stdout. With --offset and --count only that span
is read; for remote locators this downloads just the blocks covering the
span.`,
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

		if catOffset > 0 {
			if err := s.Seek(catOffset, io.SeekStart); err != nil {
				return err
			}
		}

		remain := catCount
		if remain <= 0 {
			remain = s.Size() - s.Tell()
		}

		out := cmd.OutOrStdout()
		buf := make([]byte, 64*1024)
		for remain > 0 && !s.EOF() {
			n := int64(len(buf))
			if n > remain {
				n = remain
			}
			got, err := s.Read(buf[:n])
			if err != nil {
				return err
			}
			if got == 0 {
				break
			}
			if _, err := out.Write(buf[:got]); err != nil {
				return err
			}
			remain -= int64(got)
		}
		return s.Err()
	},
}

func init() {
	catCmd.Flags().Int64Var(&catOffset, "offset", 0, "byte offset to start reading from")
	catCmd.Flags().Int64Var(&catCount, "count", 0, "number of bytes to read (0 = to end)")
}
