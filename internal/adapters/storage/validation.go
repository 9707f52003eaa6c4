package storage

import (
	"fmt"
	"strings"
)

// AllowedContentTypes lists the document types the backend produces.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"text/plain":      true,
	"text/csv":        true,
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))

	if !AllowedContentTypes[normalized] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}
