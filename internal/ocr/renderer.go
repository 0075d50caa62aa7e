package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/procurement-extractor/internal/extract"
)

// BaseDPI is the PDF user-space resolution; render scale multiplies it.
const BaseDPI = 72.0

var _ extract.PageSource = (*Renderer)(nil)

// Renderer rasterizes PDF pages with MuPDF (go-fitz) and reads their text
// layer. The last opened document is kept so consecutive pages of one PDF
// don't reopen the file.
type Renderer struct {
	scale float64
	log   *slog.Logger

	mu      sync.Mutex
	docPath string
	doc     *fitz.Document
}

func NewRenderer(scale float64, logger *slog.Logger) *Renderer {
	if scale <= 0 {
		scale = 1.5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{scale: scale, log: logger}
}

// DPI is the effective render resolution.
func (r *Renderer) DPI() float64 {
	return BaseDPI * r.scale
}

// PageCount opens path just long enough to count its pages.
func (r *Renderer) PageCount(path string) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("count pages %s: renderer panic: %v", path, rec)
		}
	}()

	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// Extract renders one page. Open, render and renderer panics all degrade to
// the empty sentinel; a failed text layer falls back to ledongthuc/pdf.
func (r *Renderer) Extract(ctx context.Context, path string, page int) (pc extract.PageContent) {
	if ctx.Err() != nil {
		return extract.PageContent{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("ocr.render.panic", "file", path, "page", page+1, "panic", fmt.Sprint(rec))
			r.closeLocked()
			pc = extract.PageContent{}
		}
	}()

	doc, err := r.openLocked(path)
	if err != nil {
		r.log.Error("ocr.render.open_error", "file", path, "page", page+1, "error", err)
		return extract.PageContent{}
	}
	if page < 0 || page >= doc.NumPage() {
		r.log.Error("ocr.render.page_out_of_range", "file", path, "page", page+1, "pages", doc.NumPage())
		return extract.PageContent{}
	}

	png, err := doc.ImagePNG(page, r.DPI())
	if err != nil || len(png) == 0 {
		r.log.Error("ocr.render.image_error", "file", path, "page", page+1, "error", err)
		return extract.PageContent{}
	}

	text, err := doc.Text(page)
	if err != nil {
		r.log.Warn("ocr.render.text_error", "file", path, "page", page+1, "error", err)
		text = fallbackText(path, page)
	}

	r.log.Debug("ocr.render.ok", "file", path, "page", page+1, "png_bytes", len(png), "text_len", len(text), "dpi", r.DPI())
	return extract.PageContent{PNG: png, Text: strings.TrimSpace(text)}
}

// Close releases the cached document.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Renderer) openLocked(path string) (*fitz.Document, error) {
	if r.doc != nil && r.docPath == path {
		return r.doc, nil
	}
	r.closeLocked()
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	r.doc, r.docPath = doc, path
	return doc, nil
}

func (r *Renderer) closeLocked() {
	if r.doc != nil {
		_ = r.doc.Close()
	}
	r.doc, r.docPath = nil, ""
}

// fallbackText reads one page's text with the pure-Go parser. Errors yield "".
func fallbackText(path string, page int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	f, rd, err := pdf.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	if page+1 > rd.NumPage() {
		return ""
	}
	p := rd.Page(page + 1)
	if p.V.IsNull() {
		return ""
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}
