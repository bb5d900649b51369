package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
)

func (c *Client) Status(ctx context.Context) (Status, error) {
	var s Status
	err := c.do(ctx, http.MethodGet, "/api/status", "", nil, &s)
	return s, err
}

// Converse uploads one recorded utterance as the multipart field "audio"
// and returns the transcription, the reply and its synthesized speech.
func (c *Client) Converse(ctx context.Context, audio []byte, filename string) (Exchange, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio", filename)
	if err != nil {
		return Exchange{}, err
	}
	if _, err := part.Write(audio); err != nil {
		return Exchange{}, err
	}
	if err := w.Close(); err != nil {
		return Exchange{}, err
	}

	var ex Exchange
	err = c.do(ctx, http.MethodPost, "/api/conversation", w.FormDataContentType(), body.Bytes(), &ex)
	return ex, err
}

func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var resp struct {
		Response string `json:"response"`
	}
	err := c.postJSON(ctx, "/api/chat", map[string]string{"message": message}, &resp)
	return resp.Response, err
}

// Synthesize returns the base64 WAV the server produced for req. An empty
// string with a nil error means the server had nothing to say.
func (c *Client) Synthesize(ctx context.Context, req SynthesisRequest) (string, error) {
	var resp struct {
		Audio string `json:"audio"`
	}
	err := c.postJSON(ctx, "/api/synthesize", req, &resp)
	return resp.Audio, err
}

func (c *Client) Settings(ctx context.Context) (SettingsInfo, error) {
	var info SettingsInfo
	err := c.do(ctx, http.MethodGet, "/api/settings", "", nil, &info)
	return info, err
}

func (c *Client) SaveSettings(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return c.postJSON(ctx, "/api/settings", s, nil)
}

func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/reset", "application/json", []byte("{}"), nil)
}
