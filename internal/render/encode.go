package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
)

// DefaultJPEGQuality is used for every image sent to clients or models
const DefaultJPEGQuality = 95

// EncodeJPEG encodes img as a baseline JPEG
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI formats data as an RFC 2397 base64 data URI
func DataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// JPEGDataURI encodes img and wraps the result in a data URI
func JPEGDataURI(img image.Image) (string, []byte, error) {
	data, err := EncodeJPEG(img, DefaultJPEGQuality)
	if err != nil {
		return "", nil, err
	}
	return DataURI("image/jpeg", data), data, nil
}
