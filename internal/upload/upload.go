// Package upload abstracts the object-storage collaborator that holds
// RFI attachments.
package upload

import (
	"context"
	"io"
)

// Uploader stores a file and returns the remote URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, fileName, contentType string, body io.Reader) (string, error)
}
