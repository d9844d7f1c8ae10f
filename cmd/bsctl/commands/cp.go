package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/bytestream/internal/logger"
)

var cpCmd = &cobra.Command{
	Use:   "cp <source> <destination>",
	Short: "Copy one stream into another",
	Long: `Cp transfers the source stream's content into the destination. Copying
into a remote destination uploads only the span that differs from the
cached remote content; copying between local files degenerates to a
rename when possible.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openStream(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		dst, err := openStream(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		defer func() { _ = dst.Close() }()

		if err := dst.Transfer(src); err != nil {
			return err
		}
		logger.Info("copy complete",
			logger.KeyPath, args[1],
			logger.KeyCount, dst.Size())
		return nil
	},
}
