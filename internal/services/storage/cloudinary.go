package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gosimple/slug"
)

// Uploader pushes a document blob to durable storage and returns a
// reference to it.
type Uploader interface {
	Upload(ctx context.Context, blob []byte, ownerKey, filenameHint string) (string, error)
}

// CloudinaryConfig holds configuration for the Cloudinary uploader.
type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string
	Folder       string
	BaseURL      string
}

// CloudinaryUploader implements Uploader against the Cloudinary upload API.
type CloudinaryUploader struct {
	config CloudinaryConfig
	client *http.Client
}

// NewCloudinaryUploader creates a new Cloudinary uploader.
func NewCloudinaryUploader(config CloudinaryConfig) *CloudinaryUploader {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.cloudinary.com/v1_1"
	}
	if config.Folder == "" {
		config.Folder = "footiedrop/kyc"
	}
	return &CloudinaryUploader{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// uploadResponse is the subset of the Cloudinary response we consume.
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends the blob as a base64 data URL and returns the secure URL of
// the stored asset. Any non-2xx response or empty URL is an error; no
// partial reference is ever returned.
func (u *CloudinaryUploader) Upload(ctx context.Context, blob []byte, ownerKey, filenameHint string) (string, error) {
	if len(blob) == 0 {
		return "", fmt.Errorf("empty blob")
	}

	dataURL := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(blob)

	form := url.Values{}
	form.Set("file", dataURL)
	form.Set("folder", u.config.Folder)
	form.Set("public_id", fmt.Sprintf("%s_%s", ownerKey, slug.Make(filenameHint)))
	if u.config.UploadPreset != "" {
		form.Set("upload_preset", u.config.UploadPreset)
	}

	endpoint := fmt.Sprintf("%s/%s/auto/upload", u.config.BaseURL, u.config.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error uploading document: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading upload response: %w", err)
	}

	var result uploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error parsing upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if result.Error.Message != "" {
			return "", fmt.Errorf("upload failed: %s", result.Error.Message)
		}
		return "", fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}

	if result.SecureURL == "" {
		return "", fmt.Errorf("upload returned no usable reference")
	}
	return result.SecureURL, nil
}
