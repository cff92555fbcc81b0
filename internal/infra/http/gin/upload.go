package ginserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	gin "github.com/gin-gonic/gin"
)

const maxImageSizeBytes int64 = 10 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

type imageUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// readImageUpload reads the multipart "file" field. Errors are client errors.
func readImageUpload(c *gin.Context) (imageUpload, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return imageUpload{}, fmt.Errorf("file is required: %w", err)
	}
	if fileHeader.Size <= 0 {
		return imageUpload{}, errors.New("file is empty")
	}
	if fileHeader.Size > maxImageSizeBytes {
		return imageUpload{}, fmt.Errorf("file too large (max %d MB)", maxImageSizeBytes/1024/1024)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return imageUpload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSizeBytes+1))
	if err != nil {
		return imageUpload{}, fmt.Errorf("cannot read file: %w", err)
	}
	if len(data) == 0 {
		return imageUpload{}, errors.New("file is empty")
	}
	if int64(len(data)) > maxImageSizeBytes {
		return imageUpload{}, fmt.Errorf("file too large (max %d MB)", maxImageSizeBytes/1024/1024)
	}
	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		return imageUpload{}, fmt.Errorf("unsupported content type: %s", contentType)
	}
	return imageUpload{FileName: fileHeader.Filename, ContentType: contentType, Data: data}, nil
}
