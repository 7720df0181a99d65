package common

import (
	"testing"

	"snapscreen/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputFormat(t *testing.T) {
	configured := []string{"json", "text", "markdown"}

	tests := []struct {
		name      string
		format    string
		supported []string
		wantErr   bool
	}{
		{"json", "json", configured, false},
		{"markdown", "markdown", configured, false},
		{"yaml is not configured", "yaml", configured, true},
		{"formats are case sensitive", "JSON", configured, true},
		{"empty format", "", configured, true},
		{"no restriction", "csv", nil, false},
		{"single format", "text", []string{"json"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
			assert.Contains(t, err.Error(), "use one of:")
		})
	}
}

func TestGetSupportedFormats(t *testing.T) {
	assert.Equal(t, DefaultFormats, GetSupportedFormats(nil))
	assert.Equal(t, []string{"json"}, GetSupportedFormats([]string{"json"}))

	got := GetSupportedFormats(nil)
	got[0] = "changed"
	assert.Equal(t, "json", DefaultFormats[0], "callers get a copy")
}
