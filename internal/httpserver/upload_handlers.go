package httpserver

import (
	"log"
	"net/http"

	"chatd/internal/blob"
	"chatd/internal/domain"
)

type uploadResponse struct {
	URL      string                `json:"url"`
	Name     string                `json:"name"`
	Size     int64                 `json:"size"`
	MimeType string                `json:"mimeType"`
	Type     domain.AttachmentType `json:"type"`
}

// handleUpload stores files from a multipart request and returns attachment
// descriptors the client can embed in a later message.
func handleUpload(blobStore blob.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse multipart form"})
			return
		}
		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no files provided"})
			return
		}

		uploaded := make([]uploadResponse, 0, len(headers))
		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				log.Printf("upload: open %q: %v", header.Filename, err)
				continue
			}
			mimeType := header.Header.Get("Content-Type")
			obj, err := blobStore.Upload(r.Context(), header.Filename, mimeType, file, header.Size)
			file.Close()
			if err != nil {
				log.Printf("upload: store %q: %v", header.Filename, err)
				continue
			}
			uploaded = append(uploaded, uploadResponse{
				URL:      obj.URL,
				Name:     obj.Name,
				Size:     obj.Size,
				MimeType: obj.MimeType,
				Type:     domain.AttachmentTypeFromMIME(obj.MimeType),
			})
		}
		if len(uploaded) == 0 {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "all uploads failed"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string][]uploadResponse{"files": uploaded})
	}
}
