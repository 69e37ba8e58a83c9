package printing

import (
	"bytes"
	"context"
	"strings"
	"time"
)

// PageSize is a named paper size
type PageSize string

const (
	PageSizeA4     PageSize = "A4"
	PageSizeA5     PageSize = "A5"
	PageSizeLetter PageSize = "LETTER"
)

// ParsePageSize maps a config value to a page size, defaulting to A4
func ParsePageSize(s string) PageSize {
	switch p := PageSize(strings.ToUpper(strings.TrimSpace(s))); p {
	case PageSizeA4, PageSizeA5, PageSizeLetter:
		return p
	}
	return PageSizeA4
}

// IsValid checks if the page size is supported
func (p PageSize) IsValid() bool {
	switch p {
	case PageSizeA4, PageSizeA5, PageSizeLetter:
		return true
	}
	return false
}

// Dimensions returns width and height in millimeters
func (p PageSize) Dimensions() (width, height float64) {
	switch p {
	case PageSizeA5:
		return 148, 210
	case PageSizeLetter:
		return 215.9, 279.4
	default:
		return 210, 297
	}
}

// Margins in millimeters
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// DefaultMargins are the invoice margins
func DefaultMargins() Margins {
	return Margins{Top: 12, Right: 10, Bottom: 12, Left: 10}
}

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	// HTML content to render, either a full document or a body fragment
	HTML string
	// PageSize defines the output paper dimensions
	PageSize PageSize
	// Landscape prints across the long edge
	Landscape bool
	// Margins in millimeters
	Margins Margins
	// Title for the document
	Title string
	// FooterHTML is printed on every page (optional)
	FooterHTML string
	// Timeout overrides the default rendering timeout
	Timeout time.Duration
}

// Validate checks the request before any browser work starts
func (r *RenderRequest) Validate() error {
	if r == nil {
		return NewRenderError(ErrCodeInvalidHTML, "render request is nil", nil)
	}
	if strings.TrimSpace(r.HTML) == "" {
		return NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}
	if !r.PageSize.IsValid() {
		return NewRenderError(ErrCodeInvalidPageSize, "invalid page size: "+string(r.PageSize), nil)
	}
	return nil
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	PDFData        []byte
	PageCount      int
	RenderDuration time.Duration
}

// PDFRenderer renders HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// RenderError represents an error during invoice rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout   = "RENDER_TIMEOUT"
	ErrCodeRenderFailed    = "RENDER_FAILED"
	ErrCodeRenderBusy      = "RENDER_BUSY"
	ErrCodeInvalidHTML     = "INVALID_HTML"
	ErrCodeInvalidPageSize = "INVALID_PAGE_SIZE"
	ErrCodeTemplateFailed  = "TEMPLATE_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// estimatePageCount counts page objects, excluding the page tree node
func estimatePageCount(pdfData []byte) int {
	count := bytes.Count(pdfData, []byte("/Type /Page")) - bytes.Count(pdfData, []byte("/Type /Pages"))
	return max(count, 1)
}
