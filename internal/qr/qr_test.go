package qr

import (
	"bytes"
	"image/png"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/sinalizacao/internal/model"
)

var item = model.Item{ID: "7", Code: "S001"}

func TestPayloadAndURL(t *testing.T) {
	assert.Equal(t, "S001-7", Payload(item))
	assert.Equal(t, "QR_S001.png", Filename(item))

	u, err := url.Parse(URL(item))
	require.NoError(t, err)
	assert.Equal(t, "api.qrserver.com", u.Host)
	assert.Equal(t, "/v1/create-qr-code/", u.Path)
	assert.Equal(t, "400x400", u.Query().Get("size"))
	assert.Equal(t, "S001-7", u.Query().Get("data"))
}

func TestPNG(t *testing.T) {
	data, err := PNG(item, 256)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 256, img.Bounds().Dy())
}

func TestImage(t *testing.T) {
	img, err := Image(item, 128)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}
