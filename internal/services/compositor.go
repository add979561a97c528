package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"design-lab-backend/internal/logger"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

const maxCompositeSourceBytes = 20 << 20

// Compositor overlays a generated design onto a product template image.
type Compositor struct {
	httpClient *http.Client
	host       ImageHost
	scale      float64
	log        *logger.Logger
}

// NewCompositor returns a compositor that places the design at scale times the
// template width. A nil host makes composites come back as embedded PNGs.
func NewCompositor(host ImageHost, scale float64, log *logger.Logger) *Compositor {
	if scale <= 0 || scale > 1 {
		scale = 0.45
	}
	return &Compositor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		host:       host,
		scale:      scale,
		log:        log.With("service", "Compositor"),
	}
}

// CompositeDesignOnTemplate returns the URL of the composite, or "" when there
// is nothing to composite. When the design is still an embedded raster payload
// it is returned verbatim as a placeholder instead of a real overlay.
func (c *Compositor) CompositeDesignOnTemplate(ctx context.Context, templateURL, design, path string) (string, error) {
	templateURL = strings.TrimSpace(templateURL)
	design = strings.TrimSpace(design)
	if templateURL == "" || design == "" {
		return "", nil
	}
	if IsEmbeddedImage(design) {
		c.log.Debug("design not hosted yet, using it as composite placeholder", "path", path)
		return design, nil
	}

	var templateBytes, designBytes []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := c.fetch(gctx, templateURL)
		if err != nil {
			return fmt.Errorf("failed to fetch template: %w", err)
		}
		templateBytes = b
		return nil
	})
	g.Go(func() error {
		b, err := c.fetch(gctx, design)
		if err != nil {
			return fmt.Errorf("failed to fetch design: %w", err)
		}
		designBytes = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	out, err := c.overlay(templateBytes, designBytes)
	if err != nil {
		return "", err
	}

	if c.host == nil {
		return EmbedPNG(out), nil
	}
	url, err := c.host.UploadImage(ctx, path, out)
	if err != nil {
		return "", fmt.Errorf("failed to upload composite: %w", err)
	}
	return url, nil
}

func (c *Compositor) overlay(templateRaw, designRaw []byte) ([]byte, error) {
	templateImg, _, err := image.Decode(bytes.NewReader(templateRaw))
	if err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	designImg, _, err := image.Decode(bytes.NewReader(designRaw))
	if err != nil {
		return nil, fmt.Errorf("decode design: %w", err)
	}

	tb := templateImg.Bounds()
	db := designImg.Bounds()
	if db.Dx() == 0 || db.Dy() == 0 || tb.Dx() == 0 || tb.Dy() == 0 {
		return nil, fmt.Errorf("empty image")
	}

	// Fit the design into the print area: scale*width wide, at most 60% of the height.
	targetW := max(1, int(float64(tb.Dx())*c.scale))
	targetH := max(1, db.Dy()*targetW/db.Dx())
	if maxH := int(float64(tb.Dy()) * 0.6); targetH > maxH && maxH > 0 {
		targetH = maxH
		targetW = max(1, db.Dx()*targetH/db.Dy())
	}

	scaled := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), designImg, db, draw.Over, nil)

	dc := gg.NewContextForImage(templateImg)
	x := (tb.Dx() - targetW) / 2
	y := int(float64(tb.Dy()) * 0.22)
	dc.DrawImage(scaled, x, y)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Compositor) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxCompositeSourceBytes))
}
