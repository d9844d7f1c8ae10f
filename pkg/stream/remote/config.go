package remote

import (
	"time"

	"github.com/spf13/viper"

	"github.com/marmos91/bytestream/internal/bytesize"
	"github.com/marmos91/bytestream/internal/logger"
)

const (
	// DefaultBlockSize is the fetch granularity for HTTP resources.
	DefaultBlockSize int64 = 1024

	// DefaultS3BlockSize is the fetch granularity for S3 objects, where
	// round trips dominate and larger ranges pay off.
	DefaultS3BlockSize int64 = 4 * 1024 * 1024

	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 30 * time.Second
)

// Config carries the remote transfer settings read from the environment.
type Config struct {
	// UploadPath is the server-side endpoint write-backs POST to.
	// Pushing without one fails with ErrConfigMissing.
	UploadPath string

	// Timeout bounds a single exchange for transports that honor it.
	Timeout time.Duration

	// BlockSize overrides the per-protocol fetch granularity. Zero keeps
	// each protocol's default.
	BlockSize int64
}

// LoadConfig reads settings from BYTESTREAM_* environment variables,
// falling back to defaults: BYTESTREAM_UPLOAD_PATH, BYTESTREAM_TIMEOUT and
// BYTESTREAM_BLOCK_SIZE. Block sizes accept human-readable values like
// "4KiB" or "1Mi"; an unparsable value is ignored.
func LoadConfig() Config {
	v := viper.New()
	v.SetEnvPrefix("BYTESTREAM")
	v.AutomaticEnv()

	v.SetDefault("upload_path", "")
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("block_size", "")

	var blockSize int64
	if raw := v.GetString("block_size"); raw != "" {
		size, err := bytesize.Parse(raw)
		if err != nil {
			logger.Warn("ignoring invalid block size", logger.KeyBlockSize, raw, logger.KeyError, err)
		} else {
			blockSize = size.Int64()
		}
	}

	return Config{
		UploadPath: v.GetString("upload_path"),
		Timeout:    v.GetDuration("timeout"),
		BlockSize:  blockSize,
	}
}
