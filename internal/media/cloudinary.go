package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.cloudinary.com"

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, source string) (string, error)
}

type Cloudinary struct {
	apiKey     string
	apiSecret  string
	cloudName  string
	apiBase    string
	folder     string
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Cloudinary)

// WithAPIBase points uploads at another host, e.g. a test server.
func WithAPIBase(base string) Option {
	return func(c *Cloudinary) { c.apiBase = strings.TrimRight(base, "/") }
}

func WithFolder(folder string) Option {
	return func(c *Cloudinary) { c.folder = strings.Trim(folder, "/ ") }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Cloudinary) { c.httpClient = client }
}

type cloudinaryUploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewCloudinary parses a cloudinary://<key>:<secret>@<cloud> URL.
func NewCloudinary(rawURL string, opts ...Option) (*Cloudinary, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse cloudinary url: %w", err)
	}

	if parsed.Scheme != "cloudinary" {
		return nil, fmt.Errorf("invalid cloudinary scheme")
	}
	if parsed.User == nil {
		return nil, fmt.Errorf("missing cloudinary credentials")
	}

	apiKey := parsed.User.Username()
	apiSecret, ok := parsed.User.Password()
	if !ok {
		return nil, fmt.Errorf("missing cloudinary api secret")
	}
	cloudName := parsed.Hostname()
	if apiKey == "" || apiSecret == "" || cloudName == "" {
		return nil, fmt.Errorf("invalid cloudinary credentials")
	}

	c := &Cloudinary{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		cloudName: cloudName,
		apiBase:   defaultAPIBase,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cloudinary) uploadURL() string {
	return fmt.Sprintf("%s/v1_1/%s/auto/upload", c.apiBase, c.cloudName)
}

// Upload sends source (a remote URL or a data URI) with resource type auto
// and returns the hosted secure_url.
func (c *Cloudinary) Upload(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", fmt.Errorf("empty upload source")
	}

	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	if c.folder != "" {
		params["folder"] = c.folder
	}
	signature := c.sign(params)

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		fields := [][2]string{{"file", source}, {"api_key", c.apiKey}, {"signature", signature}}
		for _, key := range sortedKeys(params) {
			fields = append(fields, [2]string{key, params[key]})
		}
		for _, field := range fields {
			if err := writer.WriteField(field[0], field[1]); err != nil {
				_ = pw.CloseWithError(fmt.Errorf("write %s field: %w", field[0], err))
				return
			}
		}
		if err := writer.Close(); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("close multipart writer: %w", err))
			return
		}
		_ = pw.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL(), pr)
	if err != nil {
		_ = pr.Close()
		return "", fmt.Errorf("build cloudinary upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("read cloudinary response: %w", err)
	}

	var parsedResp cloudinaryUploadResponse
	if err := json.Unmarshal(body, &parsedResp); err != nil {
		return "", fmt.Errorf("decode cloudinary response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsedResp.Error != nil && parsedResp.Error.Message != "" {
			return "", fmt.Errorf("cloudinary upload failed: %s", parsedResp.Error.Message)
		}
		return "", fmt.Errorf("cloudinary upload failed with status %d", resp.StatusCode)
	}

	if parsedResp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary response missing secure_url")
	}

	return parsedResp.SecureURL, nil
}

// sign joins params as sorted key=value pairs, appends the API secret and
// hashes the result.
func (c *Cloudinary) sign(params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for _, key := range sortedKeys(params) {
		pairs = append(pairs, key+"="+params[key])
	}

	h := sha1.New() // #nosec G401: cloudinary API signature requires SHA-1.
	_, _ = h.Write([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
