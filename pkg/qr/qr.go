package qr

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer produces QR PNGs that point students at the check-in page with
// the class session parameters pre-filled.
type Renderer struct {
	checkinURL string
	size       int
}

// NewRenderer constructs a renderer. checkinURL is the public scan page;
// size is the PNG edge length in pixels.
func NewRenderer(checkinURL string, size int) *Renderer {
	if size <= 0 {
		size = 256
	}
	return &Renderer{checkinURL: checkinURL, size: size}
}

// CheckinLink builds the URL a scanned QR code resolves to.
func (r *Renderer) CheckinLink(class, year, subject, code string) string {
	q := url.Values{}
	q.Set("class", class)
	q.Set("year", year)
	q.Set("subject", subject)
	q.Set("code", code)
	return r.checkinURL + "?" + q.Encode()
}

// RenderPNG encodes the check-in link for the given session into a PNG.
func (r *Renderer) RenderPNG(class, year, subject, code string) ([]byte, error) {
	link := r.CheckinLink(class, year, subject, code)
	png, err := qrcode.Encode(link, qrcode.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return png, nil
}
