package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.cloudinary.com/v1_1"

// Tags attached to every stored selfie.
const selfieTags = "wellcheck,selfie"

// Client stores check-in selfies in a Cloudinary folder with signed uploads.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	APIBase   string
	HTTP      *http.Client
	now       func() time.Time
}

func New(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		APIBase:   defaultAPIBase,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

// Asset is a stored selfie.
type Asset struct {
	PublicID string `json:"public_id"`
	URL      string `json:"secure_url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadSelfie stores a JPEG under the record's ID, replacing any earlier
// upload for the same record.
func (c *Client) UploadSelfie(ctx context.Context, recordID string, jpeg []byte) (Asset, error) {
	if recordID == "" {
		return Asset{}, fmt.Errorf("cloudinary: record id is required")
	}
	form := c.form(recordID)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, k := range sortedKeys(form) {
		if err := mw.WriteField(k, form[k]); err != nil {
			return Asset{}, fmt.Errorf("cloudinary: write field %s: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile("file", recordID+".jpg")
	if err != nil {
		return Asset{}, fmt.Errorf("cloudinary: create form file: %w", err)
	}
	if _, err := part.Write(jpeg); err != nil {
		return Asset{}, fmt.Errorf("cloudinary: write file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Asset{}, fmt.Errorf("cloudinary: close form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.apiBase(), c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return Asset{}, fmt.Errorf("cloudinary: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Asset{}, fmt.Errorf("cloudinary: upload %s: %w", recordID, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		var apiErr apiError
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return Asset{}, fmt.Errorf("cloudinary: upload %s failed (%d): %s", recordID, resp.StatusCode, msg)
	}

	var asset Asset
	if err := json.Unmarshal(raw, &asset); err != nil {
		return Asset{}, fmt.Errorf("cloudinary: decode response: %w", err)
	}
	if asset.URL == "" {
		return Asset{}, fmt.Errorf("cloudinary: upload %s returned no url", recordID)
	}
	return asset, nil
}

func (c *Client) form(recordID string) map[string]string {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	form := map[string]string{
		"api_key":   c.APIKey,
		"timestamp": strconv.FormatInt(now().Unix(), 10),
		"public_id": recordID,
		"overwrite": "true",
		"tags":      selfieTags,
	}
	if c.Folder != "" {
		form["folder"] = c.Folder
	}
	form["signature"] = c.sign(form)
	return form
}

func (c *Client) apiBase() string {
	if c.APIBase == "" {
		return defaultAPIBase
	}
	return c.APIBase
}

// sign returns the hex SHA-1 of the sorted, signable params followed by the
// API secret. api_key, file, resource_type and signature are not signed.
func (c *Client) sign(params map[string]string) string {
	var pairs []string
	for _, k := range sortedKeys(params) {
		switch k {
		case "api_key", "file", "resource_type", "signature":
			continue
		}
		if v := params[k]; v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.APISecret))
	return hex.EncodeToString(sum[:])
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
