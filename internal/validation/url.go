// Package validation checks user supplied paths and URLs before they reach
// the file system or a rendered page.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL validates an absolute http or https URL such as site.base_url.
// URLs containing quoting or shell characters are rejected since the value is
// written verbatim into templates.
func ValidateURL(rawURL string) error {
	// Parse and validate URL structure
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	// Only allow http/https schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %q (only http/https allowed)", parsed.Scheme)
	}

	dangerous := []string{";", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r", "\t"}
	for _, char := range dangerous {
		if strings.Contains(rawURL, char) {
			return fmt.Errorf("URL contains dangerous character: %q", char)
		}
	}

	if strings.Contains(rawURL, " ") {
		return fmt.Errorf("URL contains spaces")
	}

	// Validate hostname isn't empty
	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}

	return nil
}
