package render

import (
	"bytes"
	"fmt"
	"image/png"
	"sync"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// DefaultDPI renders A4 thumbnails at roughly 600x850 pixels
const DefaultDPI = 72.0

// Rasterizer implements port.Rasterizer with MuPDF
type Rasterizer struct {
	dpi    float64
	logger *zap.Logger
	// MuPDF contexts are not safe for concurrent use
	mu sync.Mutex
}

// NewRasterizer creates a rasterizer; dpi <= 0 uses DefaultDPI
func NewRasterizer(dpi float64, logger *zap.Logger) *Rasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{dpi: dpi, logger: logger}
}

// FirstPagePNG renders page one of pdf as PNG
func (r *Rasterizer) FirstPagePNG(pdf []byte) ([]byte, error) {
	if len(pdf) == 0 {
		return nil, fmt.Errorf("empty PDF")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	img, err := doc.ImageDPI(0, r.dpi)
	if err != nil {
		r.logger.Warn("Failed to render first page", zap.Error(err))
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	r.logger.Debug("Rendered PDF thumbnail",
		zap.Int("pages", doc.NumPage()),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int("size", buf.Len()))

	return buf.Bytes(), nil
}
