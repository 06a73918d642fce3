package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Chochanguk/Yoribogo/server/internal/store"
)

// ImageGenerationRequest represents a request to an OpenAI-compatible images API
type ImageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

// ImageGenerationResponse represents the response from the images API
type ImageGenerationResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

// ImageClientConfig configures OpenAIImageClient
type ImageClientConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Size    string
	Timeout time.Duration
}

// OpenAIImageClient is the ImageGenerator backed by an images API.
type OpenAIImageClient struct {
	client *resty.Client
	cfg    ImageClientConfig
}

// NewOpenAIImageClient creates a new OpenAIImageClient instance
func NewOpenAIImageClient(cfg ImageClientConfig) *OpenAIImageClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	client := resty.New().SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &OpenAIImageClient{client: client, cfg: cfg}
}

// Generate renders prompt and returns the PNG bytes. Responses carrying a
// URL instead of inline data are downloaded.
func (c *OpenAIImageClient) Generate(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(ImageGenerationRequest{
			Model:          c.cfg.Model,
			Prompt:         prompt,
			N:              1,
			Size:           c.cfg.Size,
			ResponseFormat: "b64_json",
		}).
		Post(c.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to send image request: %w", err)
	}
	if resp.IsError() {
		err := fmt.Errorf("image API returned status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
		if resp.StatusCode() == http.StatusBadRequest {
			// content policy rejections do not go away on retry
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var result ImageGenerationResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode image response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, errors.New("no image data in API response")
	}

	if b64 := result.Data[0].B64JSON; b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}
		return data, nil
	}
	if url := result.Data[0].URL; url != "" {
		return c.download(ctx, url)
	}
	return nil, errors.New("empty image in API response")
}

func (c *OpenAIImageClient) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to download image, status: %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// ImageServiceOptions tunes retries of ImageService.Render.
type ImageServiceOptions struct {
	MaxAttempts   int
	RetryInterval time.Duration
}

// ImageService renders a recipe image, uploads it and attaches it to the recipe.
type ImageService struct {
	generator ImageGenerator
	storage   ObjectStorage
	store     *store.Store
	opts      ImageServiceOptions
	log       *zap.Logger
}

// NewImageService creates a new ImageService instance
func NewImageService(generator ImageGenerator, storage ObjectStorage, st *store.Store, opts ImageServiceOptions, log *zap.Logger) *ImageService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ImageService{
		generator: generator,
		storage:   storage,
		store:     st,
		opts:      opts,
		log:       log.Named("image"),
	}
}

// ImageKey is the object storage key of a recipe's image.
func ImageKey(recipeID uuid.UUID) string {
	return fmt.Sprintf("recipe-images/%s.png", recipeID)
}

// Render generates the image for description, stores it and attaches its URL
// to the recipe. Generation and upload are each retried with exponential
// backoff. A recipe that was deleted or already has an image is left alone.
func (s *ImageService) Render(ctx context.Context, description string, recipeID uuid.UUID) (string, error) {
	log := s.log.With(zap.String("recipe_id", recipeID.String()))
	prompt := BuildImagePrompt(description)

	var data []byte
	err := s.retry(ctx, func() error {
		var err error
		data, err = s.generator.Generate(ctx, prompt)
		if err != nil {
			log.Warn("image generation attempt failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate image after %d attempts: %w", s.opts.MaxAttempts, err)
	}

	var url string
	err = s.retry(ctx, func() error {
		var err error
		url, err = s.storage.Put(ctx, ImageKey(recipeID), data, "image/png")
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	attached, err := s.store.AttachImage(ctx, recipeID, url)
	if err != nil {
		return "", err
	}
	if !attached {
		log.Info("image not attached, recipe is gone or already has one")
	} else {
		log.Info("image attached", zap.String("url", url))
	}
	return url, nil
}

func (s *ImageService) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.opts.RetryInterval
	bo.MaxElapsedTime = 0
	return backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(s.opts.MaxAttempts-1)), ctx))
}
