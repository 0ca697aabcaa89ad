package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"yesteryear/internal/domain"
	"yesteryear/internal/logger"
	"yesteryear/internal/util"

	"go.uber.org/zap"
)

const defaultImagesEndpoint = "https://api.openai.com/v1/images/generations"

// ImageGenerator calls the image-generation endpoint directly. The chat
// client goes through langchaingo, which has no image surface, so this is
// the one place a raw HTTP call to the model API remains.
type ImageGenerator struct {
	httpClient *http.Client
	apiKey     string
	model      string
	endpoint   string
	store      domain.ObjectStore
}

// NewImageGenerator wires an image generator. store may be nil; base64
// replies then degrade to an empty URL.
func NewImageGenerator(apiKey, model string, timeout time.Duration, store domain.ObjectStore) *ImageGenerator {
	return &ImageGenerator{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		model:      model,
		endpoint:   defaultImagesEndpoint,
		store:      store,
	}
}

// WithEndpoint overrides the API endpoint, for tests.
func (g *ImageGenerator) WithEndpoint(endpoint string) *ImageGenerator {
	g.endpoint = endpoint
	return g
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate returns a direct URL, a signed URL for an uploaded base64
// payload, or "" on any failure.
func (g *ImageGenerator) Generate(ctx context.Context, prompt, storagePath string) string {
	body, err := json.Marshal(imageRequest{Model: g.model, Prompt: prompt, Size: "1024x1024"})
	if err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		logger.Get().Warn("image generation request failed", zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Get().Warn("image generation returned non-2xx", zap.Int("status", resp.StatusCode))
		return ""
	}

	var payload imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || len(payload.Data) == 0 {
		return ""
	}

	if url := util.NormalizeText(payload.Data[0].URL); url != "" {
		return url
	}

	b64 := strings.TrimSpace(payload.Data[0].B64JSON)
	if b64 == "" || g.store == nil || storagePath == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return ""
	}
	signedURL, err := g.store.Upload(ctx, storagePath, raw, "image/png")
	if err != nil {
		logger.Get().Warn("generated image upload failed",
			zap.String("path", storagePath),
			zap.Error(err),
		)
		return ""
	}
	return signedURL
}
