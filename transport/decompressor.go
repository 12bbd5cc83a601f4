package transport

import (
	"errors"
	"io"
	"net/http"

	"github.com/fereidani/httpdecompressor"
)

// acceptEncoding lists the encodings httpdecompressor can decode.
const acceptEncoding = "gzip, deflate, br, zstd"

// NewDecompressor wraps roundTripper so response bodies are decoded according
// to their Content-Encoding. Requests that do not set Accept-Encoding get one.
// A nil roundTripper means http.DefaultTransport.
func NewDecompressor(roundTripper http.RoundTripper) http.RoundTripper {
	if roundTripper == nil {
		roundTripper = http.DefaultTransport
	}

	return &decompressor{roundTripper: roundTripper}
}

type decompressor struct {
	roundTripper http.RoundTripper
}

func (d *decompressor) RoundTrip(request *http.Request) (*http.Response, error) {
	if request.Header.Get("Accept-Encoding") == "" {
		request = request.Clone(request.Context())
		request.Header.Set("Accept-Encoding", acceptEncoding)
	}

	rsp, err := d.roundTripper.RoundTrip(request)
	if err != nil {
		return rsp, err
	}

	origBody := rsp.Body

	bodyReader, err := httpdecompressor.Reader(rsp)
	if err != nil {
		_ = origBody.Close()

		return nil, err
	}

	if bodyReader == origBody {
		return rsp, nil
	}

	rsp.Body = &decodedBody{decoder: bodyReader, body: origBody}
	rsp.Header.Del("Content-Encoding")
	rsp.Header.Del("Content-Length")
	rsp.ContentLength = -1
	rsp.Uncompressed = true

	return rsp, nil
}

// decodedBody reads from the decoder and closes the decoder before the
// underlying body.
type decodedBody struct {
	decoder io.ReadCloser
	body    io.ReadCloser
}

func (b *decodedBody) Read(p []byte) (int, error) {
	return b.decoder.Read(p)
}

func (b *decodedBody) Close() error {
	return errors.Join(b.decoder.Close(), b.body.Close())
}

var _ http.RoundTripper = (*decompressor)(nil)
