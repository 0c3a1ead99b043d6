// Package rest implements the content.Store interface for ArcGIS Online and ArcGIS Enterprise portals
// using the ArcGIS REST API.
package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// The default interval between checks on the status of asynchronous (publish, append) jobs.
const DEFAULT_POLL_INTERVAL time.Duration = 2 * time.Second

func init() {
	ctx := context.Background()
	content.RegisterStore(ctx, "arcgis", NewRESTStore)
}

// ClientOptions defines the configuration for a Client.
type ClientOptions struct {
	// The root URL of the portal, for example "https://www.arcgis.com" or "https://gis.example.com/portal".
	PortalURL string
	// The name of the user that items are created for.
	Username string
	// A valid ArcGIS access token for Username.
	Token string
	// An optional http.Client. If nil http.DefaultClient is used.
	HTTPClient *http.Client
	// The maximum number of requests per second. Zero means requests are not throttled.
	RequestsPerSecond float64
	// The interval between checks on the status of asynchronous jobs. Zero means DEFAULT_POLL_INTERVAL.
	PollInterval time.Duration
}

// Client is a content.Store backed by the ArcGIS REST API.
type Client struct {
	content.Store
	sharing_url   string
	username      string
	token         string
	http_client   *http.Client
	limiter       *rate.Limiter
	poll_interval time.Duration
}

// Error is an error reported by the ArcGIS REST API.
type Error struct {
	Code    int
	Message string
	Details []string
}

func (e *Error) Error() string {

	msg := fmt.Sprintf("ArcGIS error %d: %s", e.Code, e.Message)

	if len(e.Details) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(e.Details, "; "))
	}

	return msg
}

// NewRESTStore returns a new Client instance configured by a URI in the form of:
//
//	arcgis://{HOST}/{OPTIONAL_PATH}?username={USERNAME}&token={TOKEN}
//
// Optional query parameters are `rps` (requests per second), `poll` (a duration string) and `insecure`
// (use "http" rather than "https").
func NewRESTStore(ctx context.Context, uri string) (content.Store, error) {

	u, err := url.Parse(uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse URI, %w", err)
	}

	if u.Host == "" {
		return nil, errors.New("Missing portal host")
	}

	q := u.Query()

	scheme := "https"

	if q.Has("insecure") {

		insecure, err := strconv.ParseBool(q.Get("insecure"))

		if err != nil {
			return nil, fmt.Errorf("Invalid ?insecure= parameter, %w", err)
		}

		if insecure {
			scheme = "http"
		}
	}

	opts := &ClientOptions{
		PortalURL: fmt.Sprintf("%s://%s%s", scheme, u.Host, u.Path),
		Username:  q.Get("username"),
		Token:     q.Get("token"),
	}

	if q.Has("rps") {

		rps, err := strconv.ParseFloat(q.Get("rps"), 64)

		if err != nil {
			return nil, fmt.Errorf("Invalid ?rps= parameter, %w", err)
		}

		opts.RequestsPerSecond = rps
	}

	if q.Has("poll") {

		d, err := time.ParseDuration(q.Get("poll"))

		if err != nil {
			return nil, fmt.Errorf("Invalid ?poll= parameter, %w", err)
		}

		opts.PollInterval = d
	}

	return NewClient(ctx, opts)
}

// NewClient returns a new Client instance.
func NewClient(ctx context.Context, opts *ClientOptions) (*Client, error) {

	if opts.PortalURL == "" {
		return nil, errors.New("Missing portal URL")
	}

	if opts.Username == "" {
		return nil, errors.New("Missing username")
	}

	if opts.Token == "" {
		return nil, errors.New("Missing token")
	}

	c := &Client{
		sharing_url:   strings.TrimRight(opts.PortalURL, "/") + "/sharing/rest",
		username:      opts.Username,
		token:         opts.Token,
		http_client:   opts.HTTPClient,
		poll_interval: opts.PollInterval,
	}

	if c.http_client == nil {
		c.http_client = http.DefaultClient
	}

	if c.poll_interval <= 0 {
		c.poll_interval = DEFAULT_POLL_INTERVAL
	}

	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return c, nil
}

// sharingURL returns the absolute URL for a path relative to the portal's "sharing/rest" endpoint.
func (c *Client) sharingURL(parts ...string) string {

	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}

	return c.sharing_url + "/" + strings.Join(parts, "/")
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {

	if params == nil {
		params = url.Values{}
	}

	params.Set("f", "json")
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to create request for %s, %w", endpoint, err)
	}

	return c.do(req)
}

func (c *Client) post(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {

	if params == nil {
		params = url.Values{}
	}

	params.Set("f", "json")
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))

	if err != nil {
		return nil, fmt.Errorf("Failed to create request for %s, %w", endpoint, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

// postMultipart posts `params` and the contents of `r`, as a file part named `field`, to `endpoint`.
func (c *Client) postMultipart(ctx context.Context, endpoint string, params url.Values, field string, filename string, r io.Reader) ([]byte, error) {

	if params == nil {
		params = url.Values{}
	}

	params.Set("f", "json")
	params.Set("token", c.token)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {

		for k, values := range params {

			for _, v := range values {

				err := mw.WriteField(k, v)

				if err != nil {
					pw.CloseWithError(err)
					return
				}
			}
		}

		part, err := mw.CreateFormFile(field, filename)

		if err != nil {
			pw.CloseWithError(err)
			return
		}

		_, err = io.Copy(part, r)

		if err != nil {
			pw.CloseWithError(err)
			return
		}

		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)

	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("Failed to create request for %s, %w", endpoint, err)
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(req)

	// make sure the writer goroutine exits if the request failed before draining the pipe
	pr.Close()

	return body, err
}

func (c *Client) do(req *http.Request) ([]byte, error) {

	if c.limiter != nil {

		err := c.limiter.Wait(req.Context())

		if err != nil {
			return nil, fmt.Errorf("Failed to wait for rate limiter, %w", err)
		}
	}

	logger := slog.Default()
	logger = logger.With("method", req.Method, "url", req.URL.Path)

	logger.Debug("Send request")

	rsp, err := c.http_client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("Failed to execute request, %w", err)
	}

	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)

	if err != nil {
		return nil, fmt.Errorf("Failed to read response body, %w", err)
	}

	if rsp.StatusCode >= 400 {

		err := checkError(body)

		if err != nil {
			return nil, err
		}

		return nil, &Error{
			Code:    rsp.StatusCode,
			Message: rsp.Status,
		}
	}

	err = checkError(body)

	if err != nil {
		logger.Debug("Request returned an error", "error", err)
		return nil, err
	}

	return body, nil
}

// checkError returns an *Error if `body` contains an ArcGIS error response.
func checkError(body []byte) error {

	error_rsp := gjson.GetBytes(body, "error")

	if !error_rsp.Exists() {
		return nil
	}

	details := make([]string, 0)

	for _, d := range error_rsp.Get("details").Array() {
		details = append(details, d.String())
	}

	e := &Error{
		Code:    int(error_rsp.Get("code").Int()),
		Message: error_rsp.Get("message").String(),
		Details: details,
	}

	return e
}

// checkSuccess returns an error if `body` does not contain `"success": true`.
func checkSuccess(body []byte, action string) error {

	if !gjson.GetBytes(body, "success").Bool() {
		return fmt.Errorf("Failed to %s, %s", action, string(body))
	}

	return nil
}

// waitForStatus polls `check` until it reports a finished job. `check` returns the current status and whether
// that status means the job has finished.
func (c *Client) waitForStatus(ctx context.Context, check func(context.Context) (string, bool, error)) (string, error) {

	ticker := time.NewTicker(c.poll_interval)
	defer ticker.Stop()

	for {

		status, done, err := check(ctx)

		if err != nil {
			return "", err
		}

		if done {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			// pass
		}
	}
}
