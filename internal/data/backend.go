package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
)

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// BackendClient submits products to the commerce backend as
// multipart/form-data
type BackendClient struct {
	url      string
	token    string
	tenantID string
	http     *http.Client
}

// NewBackendClient creates a backend client for the given endpoint
func NewBackendClient(url, token, tenantID string) *BackendClient {
	return &BackendClient{
		url:      url,
		token:    token,
		tenantID: tenantID,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// SendProduct submits one product. A non-2xx response is an error; the
// caller routes it to the failed queue.
func (c *BackendClient) SendProduct(ctx context.Context, p *domain.Product) error {
	body, contentType, err := buildForm(p)
	if err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "ar")
	req.Header.Set("Tenant-Id", c.tenantID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("backend error %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// buildForm maps the product onto the backend's variant form contract
func buildForm(p *domain.Product) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := map[string]string{
		"variants[0][sku]":      p.UniqueID,
		"variants[0][barcode]":  p.UniqueID,
		"variants[0][stock]":    "10",
		"name[ar]":              p.Name,
		"name[en]":              p.Name,
		"description[ar]":       p.Description,
		"description[en]":       p.Description,
		"short_description[ar]": p.ShortDescription,
		"short_description[en]": p.ShortDescription,
		"category_name":         p.ChannelName,
	}

	// A discounted listing carries the old price as the list price and
	// the current price as the discount
	if p.Prices.OldPrice != nil && p.Prices.CurrentPrice != nil {
		fields["variants[0][price]"] = formatPrice(*p.Prices.OldPrice)
		fields["variants[0][discount]"] = formatPrice(*p.Prices.CurrentPrice)
	} else if p.Prices.CurrentPrice != nil {
		fields["variants[0][price]"] = formatPrice(*p.Prices.CurrentPrice)
	} else {
		fields["variants[0][price]"] = "0"
	}

	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	for _, imagePath := range p.Images {
		if err := addImagePart(form, imagePath); err != nil {
			return nil, "", err
		}
	}

	if err := form.Close(); err != nil {
		return nil, "", err
	}
	return &buf, form.FormDataContentType(), nil
}

func addImagePart(form *multipart.Writer, imagePath string) error {
	if _, ok := imageContentTypes[filepath.Ext(imagePath)]; !ok {
		return nil
	}
	file, err := os.Open(imagePath)
	if err != nil {
		if os.IsNotExist(err) {
			// Image vanished since assembly; deliver the rest
			return nil
		}
		return err
	}
	defer file.Close()

	part, err := form.CreateFormFile("variants[0][images][]", filepath.Base(imagePath))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
