package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"fileforge/internal/domain"
)

// multipartBody streams the file between a pre-rendered header and trailer so
// the request length is known before any byte is sent.
type multipartBody struct {
	contentType string
	length      int64
	open        func() (io.ReadCloser, error)
	prefix      []byte
	suffix      []byte
}

func newMultipartBody(req Request) (*multipartBody, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if _, err := mw.CreateFormFile("file", req.File.Name); err != nil {
		return nil, fmt.Errorf("upload: file part: %w", err)
	}
	prefix := bytes.Clone(buf.Bytes())
	buf.Reset()

	if err := mw.WriteField("operation", req.Operation.String()); err != nil {
		return nil, fmt.Errorf("upload: operation field: %w", err)
	}
	for _, key := range req.Params.Keys() {
		if err := mw.WriteField(key, req.Params[key].String()); err != nil {
			return nil, fmt.Errorf("upload: %s field: %w", key, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload: close multipart: %w", err)
	}
	suffix := bytes.Clone(buf.Bytes())

	return &multipartBody{
		contentType: mw.FormDataContentType(),
		length:      int64(len(prefix)) + req.File.Size + int64(len(suffix)),
		open:        req.File.Open,
		prefix:      prefix,
		suffix:      suffix,
	}, nil
}

// reader opens the file and wraps the whole body in a progress counter.
func (b *multipartBody) reader(onProgress func(sent, total int64), onSent func()) (io.ReadCloser, error) {
	file, err := b.open()
	if err != nil {
		return nil, err
	}
	return &progressReader{
		r:          io.MultiReader(bytes.NewReader(b.prefix), file, bytes.NewReader(b.suffix)),
		closer:     file,
		total:      b.length,
		onProgress: onProgress,
		onSent:     onSent,
	}, nil
}

// progressReader reports strictly increasing byte counts and fires onSent
// once when the last declared byte has been handed to the transport.
type progressReader struct {
	r          io.Reader
	closer     io.Closer
	closeOnce  sync.Once
	sent       int64
	total      int64
	sentFired  bool
	onProgress func(sent, total int64)
	onSent     func()
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.sent < p.total {
		p.sent += int64(n)
		if p.sent > p.total {
			p.sent = p.total
		}
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
	}
	if p.sent == p.total && !p.sentFired {
		p.sentFired = true
		if p.onSent != nil {
			p.onSent()
		}
	}
	return n, err
}

func (p *progressReader) Close() error {
	var err error
	p.closeOnce.Do(func() { err = p.closer.Close() })
	return err
}

var _ io.ReadCloser = (*progressReader)(nil)

func validateRequest(req Request) error {
	if req.File == nil {
		return fmt.Errorf("upload: no file selected")
	}
	if !req.Operation.Valid() {
		return fmt.Errorf("upload: %w: %q", domain.ErrUnknownOperation, req.Operation)
	}
	return nil
}
