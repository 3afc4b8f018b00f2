package companion

import (
	"fmt"
	"path"
	"strings"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/google/uuid"
)

// AllowedImageTypes defines the content types accepted for companion photos
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// validateUploads checks every upload against the content-type allow list
// and the per-image size limit
func (s *SyncService) validateUploads(field string, uploads []ImageUpload, verr *companion.ValidationError) {
	for i, up := range uploads {
		name := fmt.Sprintf("%s[%d]", field, i)
		switch {
		case len(up.Data) == 0:
			verr.Add(name, "Image is empty")
		case int64(len(up.Data)) > s.config.MaxImageBytes:
			verr.Add(name, fmt.Sprintf("Image exceeds %d bytes", s.config.MaxImageBytes))
		}
		if _, ok := AllowedImageTypes[strings.ToLower(up.ContentType)]; !ok {
			verr.Add(name, "Unsupported image type: "+up.ContentType)
		}
	}
}

// attachmentFilename returns a collision-free file name for an upload
func attachmentFilename(up ImageUpload) string {
	ext := AllowedImageTypes[strings.ToLower(up.ContentType)]
	if ext == "" {
		ext = strings.ToLower(path.Ext(up.Filename))
	}
	return uuid.New().String() + ext
}

// filenameFromURL returns the last path segment of a hosted image URL
func filenameFromURL(src string) string {
	name := path.Base(strings.SplitN(src, "?", 2)[0])
	if name == "." || name == "/" {
		return uuid.New().String() + ".jpg"
	}
	return name
}

// uploadAttachments converts uploads into attachments starting at position first
func uploadAttachments(uploads []ImageUpload, first int) []companion.ImageAttachment {
	attachments := make([]companion.ImageAttachment, 0, len(uploads))
	for i, up := range uploads {
		attachments = append(attachments, companion.NewImageAttachment(up.Data, attachmentFilename(up), up.Alt, first+i))
	}
	return attachments
}
