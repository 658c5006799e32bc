package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"inkpost/internal/models"
	"inkpost/internal/upload"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadFile streams file to POST /v1/uploads as multipart form data.
// progress, when set, receives the percentage of file bytes sent; it is
// only called when the file size is known and never reports a smaller
// value than before.
func (c *Client) UploadFile(ctx context.Context, category models.Category, file models.File, progress func(percent int)) (models.Upload, error) {
	var resp models.Upload
	if file.Open == nil {
		return resp, fmt.Errorf("file %q has no content", file.Name)
	}
	content, err := file.Open()
	if err != nil {
		return resp, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer content.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(form, category, file, &progressReader{
			r:      content,
			total:  file.Size,
			report: progress,
		}))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/uploads", pr)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.setAuthHeader(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("decode upload response: %w", err)
	}
	return resp, nil
}

func writeUploadForm(form *multipart.Writer, category models.Category, file models.File, content io.Reader) error {
	if err := form.WriteField("category", string(category)); err != nil {
		return err
	}
	if file.MediaType != "" {
		if err := form.WriteField("media_type", file.MediaType); err != nil {
			return err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	header.Set("Content-Type", mediaType)

	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return form.Close()
}

type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	last   int
	report func(percent int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.loaded += int64(n)
		p.emit()
	}
	return n, err
}

func (p *progressReader) emit() {
	if p.report == nil || p.total <= 0 {
		return
	}
	percent := int(math.Round(float64(p.loaded) * 100 / float64(p.total)))
	percent = min(percent, 100)
	if percent <= p.last {
		return
	}
	p.last = percent
	p.report(percent)
}

// Transport uploads editor files through a Client.
type Transport struct {
	client *Client
}

// NewTransport adapts client to the editor upload pipeline.
func NewTransport(client *Client) *Transport {
	return &Transport{client: client}
}

// Upload sends req and returns the public URL of the stored file.
func (t *Transport) Upload(ctx context.Context, req upload.Request, progress upload.ProgressFunc) (string, error) {
	stored, err := t.client.UploadFile(ctx, req.Category, req.File, progress)
	if err != nil {
		return "", err
	}
	if stored.URL == "" {
		return "", fmt.Errorf("server returned no url for %s", req.File.Name)
	}
	return stored.URL, nil
}
