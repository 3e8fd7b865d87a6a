package faceclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"wellcheck/internal/attendance"
)

// ErrNoFace is returned when the service finds no face in the frame.
var ErrNoFace = errors.New("no face detected in image")

// Face is one detection returned by the inference service.
type Face struct {
	Age         float64            `json:"age"`
	Gender      string             `json:"gender"`
	Score       float64            `json:"score"`
	Expressions map[string]float64 `json:"expressions"`
}

// Dominant returns the expression label with the highest score.
func (f Face) Dominant() string {
	return attendance.DominantExpression(f.Expressions)
}

// Attributes converts the detection to what a check-in record stores.
func (f Face) Attributes() *attendance.FaceAttributes {
	return &attendance.FaceAttributes{
		Gender:     f.Gender,
		Age:        f.Age,
		Expression: f.Dominant(),
	}
}

// Client calls the face inference microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Detect sends a captured frame for analysis and returns every detected face.
// A frame with no faces returns ErrNoFace.
func (c *Client) Detect(ctx context.Context, frame []byte) ([]Face, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	if c.Skip {
		return []Face{{
			Age:    30,
			Gender: "unknown",
			Score:  0.95,
			Expressions: map[string]float64{
				"neutral": 0.9,
				"happy":   0.1,
			},
		}}, nil
	}

	body, _ := json.Marshal(map[string]string{"image": DataURL(frame)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Faces []Face `json:"faces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Faces) == 0 {
		return nil, ErrNoFace
	}
	return out.Faces, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}

// DataURL encodes an image as a data URL, sniffing its content type.
func DataURL(image []byte) string {
	return "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}
