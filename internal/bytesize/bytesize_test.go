package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"plain zero", "0", 0, false},
		{"plain bytes", "8192", 8192, false},
		{"kibibytes", "4Ki", 4 * KiB, false},
		{"kibibytes long", "4KiB", 4 * KiB, false},
		{"mebibytes", "1Mi", MiB, false},
		{"decimal kilobytes", "4K", 4 * KB, false},
		{"fractional", "1.5Mi", ByteSize(1.5 * float64(MiB)), false},
		{"case insensitive", "4kib", 4 * KiB, false},
		{"with spaces", " 4 Ki ", 4 * KiB, false},
		{"empty", "", 0, true},
		{"garbage", "lots", 0, true},
		{"unknown unit", "4Xi", 0, true},
		{"negative", "-4Ki", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("4MiB")))
	assert.Equal(t, 4*MiB, b)

	assert.Error(t, b.UnmarshalText([]byte("nope")))
}

func TestString(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "4.00KiB", (4 * KiB).String())
	assert.Equal(t, "1.00MiB", MiB.String())
	assert.Equal(t, "2.00GiB", (2 * GiB).String())
}
