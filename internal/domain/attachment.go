package domain

import "strings"

// AttachmentType classifies an attachment by its MIME type.
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentVideo    AttachmentType = "video"
	AttachmentAudio    AttachmentType = "audio"
	AttachmentDocument AttachmentType = "document"
	AttachmentOther    AttachmentType = "other"
)

// Attachment describes an uploaded file referenced by a message. FileType is
// the raw MIME type as reported by the upload collaborator.
type Attachment struct {
	Type     AttachmentType `json:"type"`
	URL      string         `json:"url"`
	Name     string         `json:"name"`
	Size     int64          `json:"size"`
	FileType string         `json:"fileType"`
}

// AttachmentTypeFromMIME derives the attachment type tag from a MIME type
// using prefix/substring rules: image/*, video/* and audio/* map directly,
// PDFs and office formats map to document, everything else to other.
func AttachmentTypeFromMIME(mimeType string) AttachmentType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return AttachmentImage
	case strings.HasPrefix(mimeType, "video/"):
		return AttachmentVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return AttachmentAudio
	case mimeType == "application/pdf",
		strings.Contains(mimeType, "document"),
		strings.Contains(mimeType, "sheet"),
		strings.Contains(mimeType, "presentation"):
		return AttachmentDocument
	default:
		return AttachmentOther
	}
}
