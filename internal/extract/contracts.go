package extract

import "context"

// PageContent is one rendered page: a PNG image and the page's text layer.
// The zero value is the "could not render" sentinel.
type PageContent struct {
	PNG  []byte
	Text string
}

// Empty reports whether the page failed to render and should be skipped.
func (p PageContent) Empty() bool {
	return len(p.PNG) == 0
}

// PageSource renders PDF pages for the orchestrator.
type PageSource interface {
	// PageCount returns the number of pages in the PDF at path.
	PageCount(path string) (int, error)
	// Extract renders page (zero-based). It never fails: any problem yields
	// the empty PageContent.
	Extract(ctx context.Context, path string, page int) PageContent
}
