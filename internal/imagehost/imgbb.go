package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"
)

// DefaultImgBBURL is the public upload endpoint.
const DefaultImgBBURL = "https://api.imgbb.com/1/upload"

// ImgBB uploads to the ImgBB API.
type ImgBB struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewImgBB(apiKey, endpoint string) *ImgBB {
	if endpoint == "" {
		endpoint = DefaultImgBBURL
	}
	return &ImgBB{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the image as the multipart field "image" with the API key.
func (c *ImgBB) Upload(ctx context.Context, img Image) (string, error) {
	if err := Validate(&img); err != nil {
		return "", err
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("imgbb: missing API key")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	name := img.Name
	if name == "" {
		name = "image"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	h.Set("Content-Type", img.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("imgbb: create form part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("imgbb: write image: %w", err)
	}
	if err := w.WriteField("key", c.apiKey); err != nil {
		return "", fmt.Errorf("imgbb: write key: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("imgbb: close form: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("imgbb: bad endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &body)
	if err != nil {
		return "", fmt.Errorf("imgbb: create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgbb: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("imgbb: read response: %w", err)
	}
	var out imgbbResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("imgbb: decode response (status %d): %w", resp.StatusCode, err)
	}
	if !out.Success || out.Data.URL == "" {
		msg := out.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		log.Printf("❌ [IMGBB] Upload rejected (status %d): %s", resp.StatusCode, msg)
		return "", fmt.Errorf("imgbb: upload failed: %s", msg)
	}
	log.Printf("✅ [IMGBB] Uploaded %s (%d bytes)", name, len(img.Data))
	return out.Data.URL, nil
}
