package bytesize

import (
	"math"
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
		{"plain", "1024", 1024, false},
		{"bytes suffix", "512b", 512, false},
		{"kibibytes", "1Ki", KiB, false},
		{"mebibytes with B", "64MiB", 64 * MiB, false},
		{"gibibytes", "2Gi", 2 * GiB, false},
		{"tebibytes", "1TiB", TiB, false},
		{"kilobytes", "1K", KB, false},
		{"megabytes", "100MB", 100 * MB, false},
		{"gigabytes", "1gb", GB, false},
		{"spaces", "  1 Gi  ", GiB, false},
		{"fraction", "1.5Mi", ByteSize(1.5 * float64(MiB)), false},

		{"empty", "", 0, true},
		{"blank", "   ", 0, true},
		{"negative", "-1Gi", 0, true},
		{"unknown unit", "1XB", 0, true},
		{"no number", "Gi", 0, true},
		{"overflow", "99999999999Ti", 0, true},
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

func TestTextRoundTrip(t *testing.T) {
	tests := []struct {
		size ByteSize
		text string
	}{
		{0, "0"},
		{1000, "1000"},
		{KiB, "1Ki"},
		{64 * MiB, "64Mi"},
		{3 * GiB, "3Gi"},
		{1536 * KiB, "1536Ki"},
		{2 * TiB, "2Ti"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			text, err := tt.size.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.text, string(text))

			var back ByteSize
			require.NoError(t, back.UnmarshalText(text))
			assert.Equal(t, tt.size, back)
		})
	}

	var b ByteSize
	assert.Error(t, b.UnmarshalText([]byte("lots")))
}

func TestString(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "1.50KiB", ByteSize(1536).String())
	assert.Equal(t, "64.00MiB", (64 * MiB).String())
	assert.Equal(t, "1.00GiB", GiB.String())
	assert.Equal(t, "2.00TiB", (2 * TiB).String())
}

func TestInt64(t *testing.T) {
	assert.Equal(t, int64(1024), KiB.Int64())
	assert.Equal(t, int64(math.MaxInt64), ByteSize(math.MaxUint64).Int64())
}
