package render

import (
	"sync"

	"github.com/go-pdf/fpdf"
)

// stampFont is the standard font used for coordinate overlays. Widths come
// from the same core font metrics pdfcpu stamps with.
const stampFont = "Helvetica"

// metrics measures text in points. fpdf keeps the current font as state,
// so measurement is serialized.
type metrics struct {
	mu  sync.Mutex
	pdf *fpdf.Fpdf
}

func newMetrics() *metrics {
	return &metrics{pdf: fpdf.New("P", "pt", "Letter", "")}
}

func (m *metrics) width(text string, size float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFont(stampFont, "", size)
	return m.pdf.GetStringWidth(text)
}

// truncate shortens text until it fits maxWidth. A non-positive maxWidth
// means unconstrained.
func (m *metrics) truncate(text string, size, maxWidth float64) string {
	if maxWidth <= 0 || m.width(text, size) <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && m.width(string(runes), size) > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
