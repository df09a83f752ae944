package filter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"sync"

	"github.com/anthonynsimon/bild/imgio"

	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/media"
)

// Output is an encoded filtered image derived from one upload and one descriptor
type Output struct {
	Data         []byte
	MediaType    string
	Descriptor   Descriptor
	SourceDigest string
	Digest       string
	Width        int
	Height       int
}

// PipelineOptions tunes encoding and result caching
type PipelineOptions struct {
	JPEGQuality int
	CacheSize   int
}

// DefaultPipelineOptions returns the options used by the service
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		JPEGQuality: 95,
		CacheSize:   64,
	}
}

type cacheKey struct {
	digest     string
	descriptor Descriptor
}

// Pipeline applies descriptors to images through a Backend
type Pipeline struct {
	backend Backend
	options PipelineOptions

	mu    sync.Mutex
	cache map[cacheKey]*Output
	order []cacheKey
}

// NewPipeline creates a pipeline with default options
func NewPipeline(backend Backend) *Pipeline {
	return NewPipelineWithOptions(backend, DefaultPipelineOptions())
}

// NewPipelineWithOptions creates a pipeline with custom options
func NewPipelineWithOptions(backend Backend, options PipelineOptions) *Pipeline {
	if options.JPEGQuality <= 0 || options.JPEGQuality > 100 {
		options.JPEGQuality = DefaultPipelineOptions().JPEGQuality
	}
	return &Pipeline{
		backend: backend,
		options: options,
		cache:   make(map[cacheKey]*Output),
	}
}

// Backend returns the backend name, for logging
func (p *Pipeline) Backend() string {
	return p.backend.Name()
}

// Apply renders d onto img. The same image bytes and descriptor always yield
// byte-identical output. Failures are ApplicationErrors; a cancelled or
// expired ctx surfaces through errors.Is on the returned error.
func (p *Pipeline) Apply(ctx context.Context, img *media.Image, d Descriptor) (*Output, error) {
	if img == nil || img.Decoded == nil {
		return nil, apperrors.NewApplicationError("no image to filter", nil)
	}
	if err := d.Validate(); err != nil {
		return nil, apperrors.NewApplicationError("invalid filter descriptor", err)
	}

	key := cacheKey{digest: img.Digest, descriptor: d}
	if out := p.lookup(key); out != nil {
		return out, nil
	}

	rendered, err := p.render(ctx, img.Decoded, d)
	if err != nil {
		return nil, apperrors.NewApplicationError(fmt.Sprintf("%s filter failed", d.FilterType), err)
	}

	data, err := p.encode(rendered, img.MediaType)
	if err != nil {
		return nil, apperrors.NewApplicationError("failed to encode filtered image", err)
	}

	sum := sha256.Sum256(data)
	bounds := rendered.Bounds()
	out := &Output{
		Data:         data,
		MediaType:    img.MediaType,
		Descriptor:   d,
		SourceDigest: img.Digest,
		Digest:       hex.EncodeToString(sum[:]),
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
	}
	p.store(key, out)
	return out, nil
}

// render runs the backend off the caller's goroutine so that a cancelled ctx
// returns immediately even when the backend itself ignores ctx
func (p *Pipeline) render(ctx context.Context, src image.Image, d Descriptor) (image.Image, error) {
	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic in %s backend: %v", p.backend.Name(), r)}
			}
		}()
		out, err := p.backend.Render(ctx, src, d)
		if err == nil && out == nil {
			err = fmt.Errorf("%s backend returned no image", p.backend.Name())
		}
		done <- result{img: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.img, r.err
	}
}

func (p *Pipeline) encode(img image.Image, mediaType string) ([]byte, error) {
	var encoder imgio.Encoder
	switch mediaType {
	case "image/jpeg":
		encoder = imgio.JPEGEncoder(p.options.JPEGQuality)
	default:
		encoder = imgio.PNGEncoder()
	}

	var buf bytes.Buffer
	if err := encoder(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) lookup(key cacheKey) *Output {
	if p.options.CacheSize <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache[key]
}

func (p *Pipeline) store(key cacheKey, out *Output) {
	if p.options.CacheSize <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.cache[key]; ok {
		return
	}
	if len(p.order) >= p.options.CacheSize {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.cache, oldest)
	}
	p.cache[key] = out
	p.order = append(p.order, key)
}
