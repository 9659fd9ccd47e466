package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockSizeString(t *testing.T) {
	tests := []struct {
		size BlockSize
		want string
	}{
		{Megabyte, "1M"},
		{1500 * Kilobyte, "1500K"},
		{2 * Gigabyte, "2G"},
		{Terabyte, "1T"},
		{999, "999B"},
		{1001, "1001B"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.size.String())
			parsed, err := ParseBlockSize(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.size, parsed)
		})
	}
}

func TestParseBlockSizeRejects(t *testing.T) {
	for _, in := range []string{"", "M", "1.5M", "10MB", "-1K", "1Q"} {
		_, err := ParseBlockSize(in)
		assert.Error(t, err, in)
	}
	got, err := ParseBlockSize(" 4k ")
	require.NoError(t, err)
	assert.Equal(t, 4*Kilobyte, got)
}

func TestBlockSizeHuman(t *testing.T) {
	assert.Equal(t, "1.0 MB", Megabyte.Human())
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{"": CompressionNone, "GZIP": CompressionGzip, "snappy": CompressionSnappy} {
		got, err := ParseCompression(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCompression("zstd")
	assert.Error(t, err)
}
