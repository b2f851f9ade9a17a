// Package zenodo is a small client for the Zenodo deposition REST API.
package zenodo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/andresuchdata/zenodo-publish/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://zenodo.org/api.
	BaseURL string

	// Token is the personal access token. It is sent as a bearer header on
	// every call and as access_token on the records search.
	Token string

	// Timeout per request. Zero means no client timeout. File uploads are
	// never subject to it; they are bounded by their context only.
	Timeout time.Duration

	// RateLimit in requests per second. Zero or less disables limiting.
	RateLimit float64
	RateBurst int

	// Transport allows injecting a custom round tripper (tests).
	Transport http.RoundTripper
}

// Client talks to one archive instance.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter

	// uploadClient shares the transport but has no overall timeout.
	uploadClient *http.Client
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("zenodo base url must be provided")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid zenodo base url %q: %w", base, err)
	}

	var transport http.RoundTripper = cfg.Transport
	if cfg.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
			Base:   cfg.Transport,
		}
	}

	limit := rate.Inf
	burst := cfg.RateBurst
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		uploadClient: &http.Client{Transport: transport},
		limiter:      rate.NewLimiter(limit, burst),
	}, nil
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type response struct {
	StatusCode int
	Body       []byte
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) (*response, error) {
	return c.send(ctx, c.httpClient, method, path, query, contentType, body)
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, query url.Values, contentType string, body io.Reader) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	// path only: the query may carry the access token
	logger.Log.Info().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("zenodo request")
	// bodies of calls that change a deposition are the run's outcome
	bodyLog := logger.Log.Info()
	if method == http.MethodGet {
		bodyLog = logger.Log.Debug()
	}
	bodyLog.Str("method", method).Str("path", path).RawJSON("body", jsonOrQuoted(data)).Msg("zenodo response")

	return &response{StatusCode: resp.StatusCode, Body: data}, nil
}

// decode checks the status against want and unmarshals the body into out.
func decode(method, path string, resp *response, out any, want ...int) error {
	ok := false
	for _, code := range want {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if len(want) == 0 {
		ok = resp.StatusCode >= 200 && resp.StatusCode < 300
	}
	if !ok {
		return newAPIError(method, path, resp.StatusCode, resp.Body)
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnexpectedResponse, method, path, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any, want ...int) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, query, contentType, body)
	if err != nil {
		return err
	}
	return decode(method, path, resp, out, want...)
}

// CheckToken lists the caller's depositions to confirm the token works and
// returns the HTTP status.
func (c *Client) CheckToken(ctx context.Context) (int, error) {
	const path = "/deposit/depositions"
	resp, err := c.do(ctx, http.MethodGet, path, nil, "", nil)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, decode(http.MethodGet, path, resp, nil)
}

// SearchRecords runs the public records search. Hits missing an id or
// metadata section are skipped; a body without hits is ErrUnexpectedResponse.
func (c *Client) SearchRecords(ctx context.Context, q RecordQuery) ([]RecordSummary, error) {
	const path = "/records"

	query := url.Values{}
	if q.Community != "" {
		query.Set("communities", q.Community)
	}
	if q.Size > 0 {
		query.Set("size", strconv.Itoa(q.Size))
	}
	if q.AllVersions {
		query.Set("all_versions", "1")
	} else {
		query.Set("all_versions", "0")
	}
	if q.Sort != "" {
		query.Set("sort", q.Sort)
	}
	if c.token != "" {
		query.Set("access_token", c.token)
	}

	var parsed searchResponse
	if err := c.call(ctx, http.MethodGet, path, query, nil, &parsed); err != nil {
		return nil, err
	}
	if parsed.Hits == nil {
		return nil, fmt.Errorf("%w: %s has no hits", ErrUnexpectedResponse, path)
	}

	records := make([]RecordSummary, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if hit.ID == nil || hit.Metadata == nil {
			continue
		}
		records = append(records, RecordSummary{ID: hit.ID.String(), Title: hit.Metadata.Title})
	}
	return records, nil
}

// CreateDeposition creates an empty draft.
func (c *Client) CreateDeposition(ctx context.Context) (*Deposition, error) {
	var dep Deposition
	if err := c.call(ctx, http.MethodPost, "/deposit/depositions", nil, struct{}{}, &dep, http.StatusCreated); err != nil {
		return nil, err
	}
	if dep.ID == "" {
		return nil, fmt.Errorf("%w: created deposition has no id", ErrUnexpectedResponse)
	}
	return &dep, nil
}

// NewVersion asks for a new draft version of deposition id. Only 201 counts
// as success.
func (c *Client) NewVersion(ctx context.Context, id string) (*Deposition, error) {
	path := "/deposit/depositions/" + url.PathEscape(id) + "/actions/newversion"
	var dep Deposition
	if err := c.call(ctx, http.MethodPost, path, nil, nil, &dep, http.StatusCreated); err != nil {
		return nil, err
	}
	if dep.LatestDraftID() == "" {
		return nil, fmt.Errorf("%w: new version response has no latest_draft link", ErrUnexpectedResponse)
	}
	return &dep, nil
}

// GetDeposition fetches a deposition, including its file list.
func (c *Client) GetDeposition(ctx context.Context, id string) (*Deposition, error) {
	var dep Deposition
	if err := c.call(ctx, http.MethodGet, "/deposit/depositions/"+url.PathEscape(id), nil, nil, &dep, http.StatusOK); err != nil {
		return nil, err
	}
	return &dep, nil
}

// DeleteFile removes one file from a draft deposition.
func (c *Client) DeleteFile(ctx context.Context, id, fileID string) error {
	path := "/deposit/depositions/" + url.PathEscape(id) + "/files/" + url.PathEscape(fileID)
	return c.call(ctx, http.MethodDelete, path, nil, nil, nil)
}

// UpdateMetadata replaces the deposition metadata with body.
func (c *Client) UpdateMetadata(ctx context.Context, id string, body any) (*Deposition, error) {
	var dep Deposition
	if err := c.call(ctx, http.MethodPut, "/deposit/depositions/"+url.PathEscape(id), nil, body, &dep, http.StatusOK); err != nil {
		return nil, err
	}
	return &dep, nil
}

// UploadFile sends r as a multipart upload named name.
func (c *Client) UploadFile(ctx context.Context, id, name string, r io.Reader) (*DepositionFile, error) {
	path := "/deposit/depositions/" + url.PathEscape(id) + "/files"

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(writeUpload(mw, name, r))
	}()

	resp, err := c.send(ctx, c.uploadClient, http.MethodPost, path, nil, mw.FormDataContentType(), pr)
	// unblock the writer if the request bailed out early, then wait so r is
	// no longer read once we return
	pr.Close()
	<-done
	if err != nil {
		return nil, err
	}

	var file DepositionFile
	if err := decode(http.MethodPost, path, resp, &file, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}
	return &file, nil
}

func writeUpload(mw *multipart.Writer, name string, r io.Reader) error {
	if err := mw.WriteField("name", name); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// Publish publishes a draft deposition.
func (c *Client) Publish(ctx context.Context, id string) (*Deposition, error) {
	path := "/deposit/depositions/" + url.PathEscape(id) + "/actions/publish"
	var dep Deposition
	if err := c.call(ctx, http.MethodPost, path, nil, nil, &dep, http.StatusAccepted, http.StatusOK); err != nil {
		return nil, err
	}
	return &dep, nil
}

func jsonOrQuoted(data []byte) []byte {
	if json.Valid(data) {
		return data
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}
