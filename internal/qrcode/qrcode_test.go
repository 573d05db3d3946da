package qrcode

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeDataURL(t *testing.T) {
	out, err := MakeDataURL("https://sho.rt/abc1234", 128)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, dataURLPrefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(out, dataURLPrefix))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestMakeDataURL_DefaultSize(t *testing.T) {
	out, err := MakeDataURL("https://sho.rt/abc1234", 0)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(out, dataURLPrefix))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, img.Bounds().Dx())
}

func TestMakeDataURL_Empty(t *testing.T) {
	_, err := MakeDataURL("", 128)
	assert.Error(t, err)
}
