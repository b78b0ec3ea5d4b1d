package camera

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocatorDeviceIndex(t *testing.T) {
	// "0" — каноническая строковая форма локального устройства
	loc, err := ParseLocator("0")
	require.NoError(t, err)
	assert.Equal(t, LocatorDevice, loc.Kind)
	assert.Equal(t, 0, loc.DeviceIndex)

	loc, err = ParseLocator("2")
	require.NoError(t, err)
	assert.Equal(t, LocatorDevice, loc.Kind)
	assert.Equal(t, 2, loc.DeviceIndex)
}

func TestParseLocatorNetwork(t *testing.T) {
	loc, err := ParseLocator("http://10.0.0.5:8080/stream.mjpg")
	require.NoError(t, err)
	assert.Equal(t, LocatorNetwork, loc.Kind)
	assert.Equal(t, "http://10.0.0.5:8080/stream.mjpg", loc.Address)

	loc, err = ParseLocator("https://cam.example.com/live")
	require.NoError(t, err)
	assert.Equal(t, LocatorNetwork, loc.Kind)
}

func TestParseLocatorFile(t *testing.T) {
	loc, err := ParseLocator("/var/video/lobby.mjpeg")
	require.NoError(t, err)
	assert.Equal(t, LocatorFile, loc.Kind)
	assert.Equal(t, "/var/video/lobby.mjpeg", loc.Address)
}

func TestParseLocatorInvalid(t *testing.T) {
	_, err := ParseLocator("")
	assert.Error(t, err)

	_, err = ParseLocator("   ")
	assert.Error(t, err)

	_, err = ParseLocator("-1")
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("/nonexistent/path.mjpeg")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

// encodeTestJPEG собирает маленький настоящий JPEG для проб сканера
func encodeTestJPEG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = shade
		img.Pix[i+1] = shade / 2
		img.Pix[i+2] = shade / 3
		img.Pix[i+3] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestMJPEGScannerSplitsConcatenatedFrames(t *testing.T) {
	first := encodeTestJPEG(t, 200)
	second := encodeTestJPEG(t, 90)

	stream := append(append([]byte{}, first...), second...)
	scanner := newMJPEGScanner(bytes.NewReader(stream))

	got1, err := scanner.Next()
	require.NoError(t, err)
	got2, err := scanner.Next()
	require.NoError(t, err)

	assert.Equal(t, first, got1)
	assert.Equal(t, second, got2)

	_, err = scanner.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMJPEGScannerSkipsGarbageBetweenFrames(t *testing.T) {
	frame := encodeTestJPEG(t, 150)

	var stream bytes.Buffer
	stream.Write([]byte("boundary garbage\r\n"))
	stream.Write(frame)
	stream.Write([]byte("\r\n--frame\r\nContent-Type: image/jpeg\r\n\r\n"))
	stream.Write(frame)

	scanner := newMJPEGScanner(&stream)

	got1, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, frame, got1)

	got2, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, frame, got2)
}

func TestStreamSourceDecodesFrames(t *testing.T) {
	frame := encodeTestJPEG(t, 120)
	src := &streamSource{
		rc:      io.NopCloser(bytes.NewReader(frame)),
		scanner: newMJPEGScanner(bytes.NewReader(frame)),
	}

	decoded, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Width)
	assert.Equal(t, 48, decoded.Height)
	require.NoError(t, src.Close())
}
