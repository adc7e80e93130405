package media

import (
	"context"
	"fmt"
)

// ImageUploader stores an image from a remote URL or data URI and returns its hosted URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, imageSource, folder string) (string, error)
}

// Hoster is implemented by uploaders that can recognise links they already serve.
type Hoster interface {
	IsHosted(link string) bool
}

// Rehost uploads source into folder unless it is empty or already hosted. A nil
// uploader keeps the link unchanged.
func Rehost(ctx context.Context, uploader ImageUploader, source, folder string) (string, error) {
	if source == "" || uploader == nil {
		return source, nil
	}
	if hoster, ok := uploader.(Hoster); ok && hoster.IsHosted(source) {
		return source, nil
	}

	hosted, err := uploader.UploadImage(ctx, source, folder)
	if err != nil {
		return "", fmt.Errorf("rehost image: %w", err)
	}
	return hosted, nil
}
