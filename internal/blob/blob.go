// Package blob abstracts the file storage collaborator used for message
// attachments. The core calls Upload once per attachment before persisting
// the message.
package blob

import (
	"context"
	"io"
)

// Object describes a stored file.
type Object struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// Store uploads files and returns their public location.
type Store interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (Object, error)
}
