package common

import (
	"fmt"
	"slices"
	"strings"

	"snapscreen/internal/errors"
)

// DefaultFormats are offered when the configuration lists none
var DefaultFormats = []string{"json", "text", "markdown"}

// ValidateOutputFormat checks format against the configured formats. An empty
// list accepts anything the formatter registry knows.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 || slices.Contains(supportedFormats, format) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format %q, use one of: %s", format, strings.Join(supportedFormats, ", ")), nil).
		WithContext("format", format)
}

// GetSupportedFormats returns a copy of the configured formats, or the defaults.
func GetSupportedFormats(supportedFormats []string) []string {
	if len(supportedFormats) == 0 {
		return slices.Clone(DefaultFormats)
	}
	return slices.Clone(supportedFormats)
}
