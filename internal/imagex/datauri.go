// Package imagex converts image payloads between raw bytes and the base64
// data-URI form stored inside pending scans.
package imagex

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/leafsync/internal/common"
)

const prefix = "data:"

// EncodeDataURI wraps raw image bytes into a self-contained data URI.
// The content type is sniffed from the payload itself.
func EncodeDataURI(data []byte) string {
	contentType := http.DetectContentType(data)
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURI parses a data URI back into raw bytes and its content type.
// A malformed payload returns common.ErrInvalidImageData.
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, prefix) {
		return nil, "", fmt.Errorf("%w: missing data: prefix", common.ErrInvalidImageData)
	}

	rest := strings.TrimPrefix(uri, prefix)
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing payload separator", common.ErrInvalidImageData)
	}

	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", fmt.Errorf("%w: only base64 payloads are supported", common.ErrInvalidImageData)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrInvalidImageData, err)
	}

	return data, contentType, nil
}
