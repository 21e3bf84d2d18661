package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opscore/internal/logging"
	"opscore/internal/validation"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr error
	}{
		{"empty uses default", "", 100, nil},
		{"valid", "25", 25, nil},
		{"at maximum", "1000", 1000, nil},
		{"zero", "0", 0, validation.ErrInvalidLimit},
		{"negative", "-5", 0, validation.ErrInvalidLimit},
		{"not a number", "ten", 0, validation.ErrInvalidLimit},
		{"over maximum", "1001", 0, validation.ErrLimitOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validation.ParseLimit(tt.raw, 100, 1000)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevelFilter(t *testing.T) {
	level, err := validation.ParseLevelFilter("")
	require.NoError(t, err)
	assert.Equal(t, logging.LevelTrace, level)

	level, err = validation.ParseLevelFilter("WARN")
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, level)

	_, err = validation.ParseLevelFilter("loud")
	assert.ErrorIs(t, err, validation.ErrInvalidLevel)
}

func TestParseLevel(t *testing.T) {
	_, err := validation.ParseLevel(" ")
	assert.ErrorIs(t, err, validation.ErrMissingLevel)

	level, err := validation.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, level)
}
