package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/AnshRaj112/safeharbor-backend/pkg/utils"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	MaxUploadBytes = 10 << 20
	uploadRoot     = "safeharbor/journals"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageUploader stores journal attachments on Cloudinary.
type ImageUploader struct {
	cld *cloudinary.Cloudinary
}

func NewImageUploader(cloudName, apiKey, apiSecret string) (*ImageUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &ImageUploader{cld: cld}, nil
}

// UploadImage sniffs the file, rejects anything that is not an image, and
// uploads it under a per-user folder. It returns the secure URL.
func (u *ImageUploader) UploadImage(ctx context.Context, userID string, fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > MaxUploadBytes {
		return "", &utils.ValidationError{Field: "file", Message: "File is larger than 10MB"}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	head := make([]byte, 512)
	n, _ := file.Read(head)
	if !allowedImageTypes[http.DetectContentType(head[:n])] {
		return "", &utils.ValidationError{Field: "file", Message: "Only JPEG, PNG, GIF or WebP images are allowed"}
	}
	if _, err := file.Seek(0, 0); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}

	result, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       uploadRoot + "/" + strings.ReplaceAll(userID, "/", ""),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}
