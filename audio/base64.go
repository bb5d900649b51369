package audio

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeBase64 turns the backend's base64 audio field back into file bytes.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoAudio
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding audio: %w", err)
	}
	return data, nil
}

func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
