// Package imagegen produces variations of an uploaded PNG.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/openai/openai-go/v3"

	"github.com/zhouzirui/z-salon/backend/internal/config"
	"github.com/zhouzirui/z-salon/backend/internal/metrics"
)

// MaxImageBytes is the upload limit for variation sources. The image must be
// strictly smaller.
const MaxImageBytes = 4 << 20

// MaxVariations bounds N.
const MaxVariations = 10

var (
	ErrUnsupportedImage = errors.New("image must be a PNG")
	ErrImageTooLarge    = errors.New("image must be smaller than 4MB")
	ErrInvalidCount     = errors.New("variation count must be between 1 and 10")
	ErrInvalidSize      = errors.New("size must be one of 256x256, 512x512, 1024x1024")
)

// Request describes one variation call. Zero values fall back to the
// configured defaults.
type Request struct {
	Image []byte
	N     int
	Size  string
}

// Image is one decoded variation.
type Image struct {
	Data        []byte `json:"-"`
	ContentType string `json:"contentType"`
	Base64      string `json:"b64"`
}

// Service wraps the image variation endpoint.
type Service struct {
	client  openai.Client
	count   int
	size    string
	metrics *metrics.Metrics
}

// NewService creates the service with defaults from cfg.
func NewService(client openai.Client, cfg config.ImageConfig, m *metrics.Metrics) *Service {
	count := cfg.Count
	if count <= 0 {
		count = 5
	}
	size := cfg.Size
	if size == "" {
		size = string(openai.ImageNewVariationParamsSize1024x1024)
	}
	return &Service{client: client, count: count, size: size, metrics: m}
}

// ReadImage reads at most MaxImageBytes from r and validates the content.
func ReadImage(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := validateImage(data); err != nil {
		return nil, err
	}
	return data, nil
}

func validateImage(data []byte) error {
	if len(data) >= MaxImageBytes {
		return ErrImageTooLarge
	}
	if !mimetype.Detect(data).Is("image/png") {
		return ErrUnsupportedImage
	}
	return nil
}

func validSize(size string) bool {
	switch openai.ImageNewVariationParamsSize(size) {
	case openai.ImageNewVariationParamsSize256x256,
		openai.ImageNewVariationParamsSize512x512,
		openai.ImageNewVariationParamsSize1024x1024:
		return true
	}
	return false
}

// Vary requests N variations of req.Image and returns them decoded.
func (s *Service) Vary(ctx context.Context, req Request) ([]Image, error) {
	if err := validateImage(req.Image); err != nil {
		return nil, err
	}

	n := req.N
	if n == 0 {
		n = s.count
	}
	if n < 1 || n > MaxVariations {
		return nil, ErrInvalidCount
	}

	size := req.Size
	if size == "" {
		size = s.size
	}
	if !validSize(size) {
		return nil, ErrInvalidSize
	}

	params := openai.ImageNewVariationParams{
		Image:          openai.File(bytes.NewReader(req.Image), "image.png", "image/png"),
		Model:          openai.ImageModelDallE2,
		N:              openai.Int(int64(n)),
		Size:           openai.ImageNewVariationParamsSize(size),
		ResponseFormat: openai.ImageNewVariationParamsResponseFormatB64JSON,
	}

	started := time.Now()
	resp, err := s.client.Images.NewVariation(ctx, params)
	s.metrics.ObserveGeneration("image_variation", started, err)
	if err != nil {
		return nil, fmt.Errorf("create image variation: %w", err)
	}

	images := make([]Image, 0, len(resp.Data))
	for i, item := range resp.Data {
		raw, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode variation %d: %w", i, err)
		}
		images = append(images, Image{
			Data:        raw,
			ContentType: mimetype.Detect(raw).String(),
			Base64:      item.B64JSON,
		})
	}

	log.Printf("[imagegen] %d variations generated, size=%s, took=%s", len(images), size, time.Since(started).Round(time.Millisecond))
	return images, nil
}
