package api

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OCAP2/demo/internal/hydrate"
	"github.com/OCAP2/demo/pkg/core"
)

// ErrNotDemo is returned when a file does not start with a demo signature.
var ErrNotDemo = errors.New("not a demo file")

// StatusError is a non-200 answer from the frontend.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Op, e.Status)
}

// retryable reports whether a later attempt could succeed.
func (e *StatusError) retryable() bool {
	return e.Status == http.StatusBadGateway ||
		e.Status == http.StatusServiceUnavailable ||
		e.Status == http.StatusGatewayTimeout ||
		e.Status == http.StatusTooManyRequests
}

// Client talks to the demo archive web frontend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	attempts int
	backoff  time.Duration
}

// New creates a client. Uploads are tried up to three times.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		attempts:   3,
		backoff:    time.Second,
	}
}

// Healthcheck checks if the frontend is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "healthcheck", Status: resp.StatusCode}
	}
	return nil
}

// Upload sends a finished demo and its metadata. The form carries the
// file's SHA-256 after the file part so the server can verify it.
// Gateway errors and rate limiting are retried with a doubling backoff.
func (c *Client) Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error {
	if err := checkSignature(filePath); err != nil {
		return err
	}

	backoff := c.backoff
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		err = c.uploadOnce(ctx, filePath, meta)
		var se *StatusError
		if err == nil || !errors.As(err, &se) || !se.retryable() || attempt == c.attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

func checkSignature(filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open demo: %w", err)
	}
	defer f.Close()

	sig, err := bufio.NewReader(f).ReadString(0)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read demo signature: %w", err)
	}
	sig = strings.TrimSuffix(sig, "\x00")
	if sig != hydrate.Signature && sig != hydrate.LegacySignature {
		return fmt.Errorf("%s: %w", filepath.Base(filePath), ErrNotDemo)
	}
	return nil
}

func (c *Client) uploadOnce(ctx context.Context, filePath string, meta core.UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open demo: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(c.writeForm(form, file, filepath.Base(filePath), meta))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/demos/add", pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "upload", Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) writeForm(form *multipart.Writer, file io.Reader, name string, meta core.UploadMetadata) error {
	fields := [][2]string{
		{"secret", c.apiKey},
		{"filename", name},
		{"mission", meta.Mission},
		{"level", strconv.Itoa(int(meta.Level))},
		{"duration", strconv.FormatFloat(meta.Duration, 'f', 3, 64)},
		{"tag", meta.PlayerTag},
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	sum := sha256.New()
	if _, err := io.Copy(io.MultiWriter(part, sum), file); err != nil {
		return fmt.Errorf("copy demo: %w", err)
	}
	if err := form.WriteField("sha256", hex.EncodeToString(sum.Sum(nil))); err != nil {
		return err
	}
	return form.Close()
}
