package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestValidateCoordinates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		lat     *string
		lng     *string
		wantErr bool
	}{
		{"Both Absent", nil, nil, false},
		{"Valid Pair", strPtr("51.5072"), strPtr("-0.1276"), false},
		{"Bounds Inclusive", strPtr("-90"), strPtr("180"), false},
		{"Latitude Only", strPtr("10"), nil, true},
		{"Longitude Only", nil, strPtr("10"), true},
		{"Latitude Out Of Range", strPtr("90.0001"), strPtr("0"), true},
		{"Longitude Out Of Range", strPtr("0"), strPtr("-180.5"), true},
		{"Not A Number", strPtr("north"), strPtr("0"), true},
		{"NaN", strPtr("NaN"), strPtr("0"), true},
		{"Infinity", strPtr("0"), strPtr("-Inf"), true},
		{"Hex Float", strPtr("0x1p-2"), strPtr("0"), true},
		{"Exponent", strPtr("1e1"), strPtr("0"), true},
		{"Leading Plus", strPtr("+10"), strPtr("0"), true},
		{"Bare Dot", strPtr("10."), strPtr("0"), true},
		{"Too Long", strPtr("1." + strings.Repeat("0", 31)), strPtr("0"), true},
		{"Longest Allowed", strPtr("1." + strings.Repeat("0", 30)), strPtr("0"), false},
		{"Trailing Zeros Kept", strPtr("51.50740000"), strPtr("-0.12780"), false},
		{"Surrounding Space", strPtr(" 12.5 "), strPtr("0"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lng)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateLink(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateLink("https://example.com/report?id=4"))
	assert.NoError(t, ValidateLink("http://archive.org"))
	assert.Error(t, ValidateLink("ftp://example.com/file"))
	assert.Error(t, ValidateLink("/relative/path"))
	assert.Error(t, ValidateLink("not a url"))
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	tags, err := NormalizeTags([]string{" Witness ", "witness", "", "CCTV"}, 64)
	require.NoError(t, err)
	assert.Equal(t, []string{"witness", "cctv"}, tags)

	_, err = NormalizeTags([]string{strings.Repeat("x", 65)}, 64)
	assert.Error(t, err)
}
