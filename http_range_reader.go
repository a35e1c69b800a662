package gotiff

import (
	"fmt"
	"io"
	"time"

	"github.com/valyala/fasthttp"
)

// Chunk size for ranged fetches of a whole resource.
const defaultFetchChunkSize = 4 * 1024 * 1024

// DefaultMaxFetchSize is the largest resource DecodeURL downloads.
const DefaultMaxFetchSize = 1 << 30

// HTTPRangeReader implements io.ReaderAt over HTTP range requests.
type HTTPRangeReader struct {
	url       string
	client    *fasthttp.Client
	size      int64
	chunkSize int
}

// NewHTTPRangeReader creates a new HTTP range reader. The resource size is
// taken from a HEAD request and is -1 when the server does not report it.
func NewHTTPRangeReader(url string, client *fasthttp.Client) *HTTPRangeReader {
	if client == nil {
		client = defaultClient()
	}
	rr := &HTTPRangeReader{
		url:       url,
		client:    client,
		chunkSize: defaultFetchChunkSize,
	}
	rr.size = rr.getSize()
	return rr
}

// SetChunkSize sets the byte length of each ranged GET issued by ReadAll.
func (rr *HTTPRangeReader) SetChunkSize(size int) {
	if size > 0 {
		rr.chunkSize = size
	}
}

func defaultClient() *fasthttp.Client {
	return &fasthttp.Client{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// getSize gets the resource size using a HEAD request
func (rr *HTTPRangeReader) getSize() int64 {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rr.url)
	req.Header.SetMethod(fasthttp.MethodHead)

	if err := rr.client.Do(req, resp); err != nil {
		return -1
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return -1
	}

	if contentLength := resp.Header.ContentLength(); contentLength >= 0 {
		return int64(contentLength)
	}
	return -1
}

// Size returns the resource size, or -1 if unknown
func (rr *HTTPRangeReader) Size() int64 {
	return rr.size
}

// ReadAt reads len(p) bytes starting at off with a single ranged GET.
func (rr *HTTPRangeReader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset: %d", off)
	}
	if rr.size >= 0 && off >= rr.size {
		return 0, io.EOF
	}

	data, err := rr.fetchRange(off, off+int64(len(p))-1)
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// ReadAll fetches the whole resource in chunks. Resources larger than
// maxSize fail without being downloaded.
func (rr *HTTPRangeReader) ReadAll(maxSize int64) ([]byte, error) {
	if rr.size < 0 {
		return rr.fetchAll(maxSize)
	}
	if rr.size > maxSize {
		return nil, fmt.Errorf("resource size %d exceeds limit %d", rr.size, maxSize)
	}

	buf := make([]byte, rr.size)
	for off := int64(0); off < rr.size; off += int64(rr.chunkSize) {
		end := min(off+int64(rr.chunkSize), rr.size)
		if _, err := rr.ReadAt(buf[off:end], off); err != nil {
			return nil, fmt.Errorf("failed to fetch bytes %d-%d: %w", off, end-1, err)
		}
	}
	return buf, nil
}

// fetchAll issues a plain GET, for servers that do not report a size.
func (rr *HTTPRangeReader) fetchAll(maxSize int64) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rr.url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := rr.client.Do(req, resp); err != nil {
		return nil, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	body := resp.Body()
	if int64(len(body)) > maxSize {
		return nil, fmt.Errorf("resource size %d exceeds limit %d", len(body), maxSize)
	}
	result := make([]byte, len(body))
	copy(result, body)
	return result, nil
}

// fetchRange fetches the inclusive byte range [start, end] from the server.
// A server that ignores the Range header answers 200 with the whole body,
// which is sliced down to the requested window.
func (rr *HTTPRangeReader) fetchRange(start, end int64) ([]byte, error) {
	if rr.size > 0 && end >= rr.size {
		end = rr.size - 1
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rr.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	if err := rr.client.Do(req, resp); err != nil {
		return nil, err
	}

	body := resp.Body()
	switch resp.StatusCode() {
	case fasthttp.StatusPartialContent:
	case fasthttp.StatusOK:
		if start >= int64(len(body)) {
			return nil, io.EOF
		}
		body = body[start:min(end+1, int64(len(body)))]
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	// Copy body since response will be released
	result := make([]byte, len(body))
	copy(result, body)
	return result, nil
}

// DecodeURL downloads a TIFF file with HTTP range requests and decodes its first page.
// A nil client uses one with 30 second read and write timeouts.
func DecodeURL(url string, client *fasthttp.Client, opts Options) (*Image, error) {
	buf, err := NewHTTPRangeReader(url, client).ReadAll(DefaultMaxFetchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	return Decode(buf, opts)
}
