package provider

import (
	"errors"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data url")

// ParseDataURL splits a base64 data URI into its media type and payload. The
// payload is returned still base64 encoded.
func ParseDataURL(url string) (mimeType string, data string, err error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", "", ErrInvalidDataURL
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", ErrInvalidDataURL
	}

	mimeType, ok = strings.CutSuffix(header, ";base64")
	if !ok || mimeType == "" {
		return "", "", ErrInvalidDataURL
	}

	return mimeType, payload, nil
}

// StripCodeFence removes a surrounding markdown code fence, which some models
// emit around JSON even when told not to
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")

	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = ""
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text)
}
