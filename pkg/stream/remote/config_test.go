package remote_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/bytestream/pkg/stream/remote"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := remote.LoadConfig()

	assert.Empty(t, cfg.UploadPath)
	assert.Equal(t, remote.DefaultTimeout, cfg.Timeout)
	assert.Zero(t, cfg.BlockSize)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("BYTESTREAM_UPLOAD_PATH", "/upload.php")
	t.Setenv("BYTESTREAM_TIMEOUT", "90s")
	t.Setenv("BYTESTREAM_BLOCK_SIZE", "8192")

	cfg := remote.LoadConfig()

	assert.Equal(t, "/upload.php", cfg.UploadPath)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, int64(8192), cfg.BlockSize)
}

func TestLoadConfigHumanReadableBlockSize(t *testing.T) {
	t.Setenv("BYTESTREAM_BLOCK_SIZE", "4KiB")
	cfg := remote.LoadConfig()
	assert.Equal(t, int64(4096), cfg.BlockSize)
}

func TestLoadConfigInvalidBlockSizeIgnored(t *testing.T) {
	t.Setenv("BYTESTREAM_BLOCK_SIZE", "lots")
	cfg := remote.LoadConfig()
	assert.Zero(t, cfg.BlockSize)
}
