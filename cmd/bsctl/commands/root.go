// Package commands implements the bsctl CLI for inspecting and copying
// byte streams across the file, memory and remote backends.
package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/bytestream/internal/bytesize"
	"github.com/marmos91/bytestream/internal/logger"
	"github.com/marmos91/bytestream/pkg/stream"
	"github.com/marmos91/bytestream/pkg/stream/remote"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	logLevel  string
	logFormat string
	blockSize string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bsctl",
	Short: "bsctl - uniform byte stream tool",
	Long: `bsctl inspects and copies byte streams through a uniform random-access
interface. Sources and destinations may be local files, http(s) URLs or
s3://bucket/key locators; remote content is fetched lazily in blocks.

Use "bsctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return logger.Init(logger.Config{Level: logLevel, Format: logFormat})
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&blockSize, "block-size", "", "remote fetch block size, e.g. 4KiB (empty = protocol default)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(cpCmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// openStream builds the backend matching the locator scheme. Remote
// settings come from the environment, with the --block-size flag taking
// precedence.
func openStream(ctx context.Context, locator string) (stream.Stream, error) {
	cfg := remote.LoadConfig()
	if blockSize != "" {
		size, err := bytesize.Parse(blockSize)
		if err != nil {
			return nil, err
		}
		cfg.BlockSize = size.Int64()
	}

	switch {
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		fetcher, err := remote.NewClientFetcher(locator, cfg)
		if err != nil {
			return nil, err
		}
		return stream.NewRemote(fetcher, stream.WithContext(ctx)), nil
	case strings.HasPrefix(locator, "s3://"):
		fetcher, err := remote.NewS3FetcherFromURL(ctx, locator, cfg.BlockSize)
		if err != nil {
			return nil, err
		}
		return stream.NewRemote(fetcher, stream.WithContext(ctx)), nil
	default:
		return stream.NewFile(locator), nil
	}
}

