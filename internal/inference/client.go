package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

// Client defaults.
const (
	// DefaultThreshold is the confidence a label must strictly exceed to be accepted.
	DefaultThreshold = 0.8
	// DefaultTimeout bounds one classification round trip.
	DefaultTimeout = 5 * time.Second

	predictPath = "/predict"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Classifier turns a window of frames into a Result.
type Classifier interface {
	Classify(ctx context.Context, window Window) (Result, error)
}

// PredictRequest is the body sent to the classifier.
type PredictRequest struct {
	Sequence Window `json:"sequence"`
}

// PredictResponse is the body returned by the classifier. Older servers use
// "result" instead of "prediction" and send a null label for rejected windows.
type PredictResponse struct {
	Prediction *string  `json:"prediction"`
	Result     *string  `json:"result"`
	Confidence *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	Error      string   `json:"error,omitempty"`
}

// Label returns the predicted label, preferring "prediction" over "result".
func (r PredictResponse) Label() string {
	if r.Prediction != nil && *r.Prediction != "" {
		return *r.Prediction
	}
	if r.Result != nil {
		return *r.Result
	}
	return ""
}

// StatusError is returned when the classifier answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("classifier returned status %d", e.Code)
	}
	return fmt.Sprintf("classifier returned status %d: %s", e.Code, e.Message)
}

// MapResponse converts a classifier response into a Result. A label is accepted
// only when present and its confidence is strictly greater than threshold.
func MapResponse(resp PredictResponse, threshold float64, at time.Time) Result {
	var confidence float64
	if resp.Confidence != nil {
		confidence = *resp.Confidence
	}

	label := resp.Label()
	if label == "" || confidence <= threshold {
		return Result{State: StateLowConfidence, Confidence: confidence, At: at}
	}

	return Result{
		State:      StateRecognized,
		Label:      label,
		Confidence: confidence,
		At:         at,
	}
}

// Client is an HTTP Classifier talking to the prediction server.
type Client struct {
	endpoint   string
	httpClient *http.Client
	threshold  float64
	validate   *validator.Validate
	now        func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithThreshold sets the acceptance threshold.
func WithThreshold(threshold float64) ClientOption {
	return func(cl *Client) {
		cl.threshold = threshold
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(cl *Client) {
		cl.httpClient = &http.Client{Timeout: timeout}
	}
}

// NewClient creates a Client for the server at baseURL (for example
// "http://127.0.0.1:5000"); requests go to baseURL + "/predict".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + predictPath,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		threshold:  DefaultThreshold,
		validate:   validator.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the full prediction URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Classify sends the window to the classifier and maps the answer.
// Transport failures, non-2xx answers and malformed bodies are returned as errors.
func (c *Client) Classify(ctx context.Context, window Window) (Result, error) {
	body, err := json.Marshal(PredictRequest{Sequence: window})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, statusError(resp)
	}

	var decoded PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if err := c.validate.Struct(decoded); err != nil {
		return Result{}, fmt.Errorf("invalid response: %w", err)
	}

	return MapResponse(decoded, c.threshold, c.now()), nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var decoded PredictResponse
	if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error != "" {
		return &StatusError{Code: resp.StatusCode, Message: decoded.Error}
	}
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}
