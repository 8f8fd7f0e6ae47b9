// Package qr encodes item identifiers as QR codes.
package qr

import (
	"fmt"
	"image"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/erazemk/sinalizacao/internal/model"
)

const (
	// RemoteBase is the public QR image service used for links.
	RemoteBase = "https://api.qrserver.com/v1/create-qr-code/"
	// DefaultSize is the edge length in pixels of generated codes.
	DefaultSize = 400
)

// Payload is the text encoded for an item: "<code>-<id>".
func Payload(it model.Item) string {
	return it.Code + "-" + it.ID
}

// URL returns the remote image URL for an item's code.
func URL(it model.Item) string {
	v := url.Values{}
	v.Set("size", fmt.Sprintf("%dx%d", DefaultSize, DefaultSize))
	v.Set("data", Payload(it))
	return RemoteBase + "?" + v.Encode()
}

// Filename is the download name of an item's QR image.
func Filename(it model.Item) string {
	return "QR_" + it.Code + ".png"
}

// PNG encodes the item's payload locally as a size×size PNG.
func PNG(it model.Item, size int) ([]byte, error) {
	data, err := qrcode.Encode(Payload(it), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encoding qr for %s: %w", it.Code, err)
	}
	return data, nil
}

// Image returns the item's QR code as an image for further composition.
func Image(it model.Item, size int) (image.Image, error) {
	q, err := qrcode.New(Payload(it), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encoding qr for %s: %w", it.Code, err)
	}
	return q.Image(size), nil
}
