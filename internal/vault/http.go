package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fdp-go/internal/fdp"
	"fdp-go/internal/gateway"
)

// HTTPVault is a Vault served by fdp-gateway.
type HTTPVault struct {
	base   string
	client *http.Client
}

// NewHTTPVault creates a client for the gateway at baseURL. A nil client
// uses one with a 30s timeout.
func NewHTTPVault(baseURL string, client *http.Client) (*HTTPVault, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway url %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPVault{base: strings.TrimRight(baseURL, "/"), client: client}, nil
}

func (v *HTTPVault) do(ctx context.Context, method, path string, body io.Reader, size int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, v.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.ContentLength = size
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// statusError turns a non-2xx response into an error; 404 wraps fdp.ErrNotFound.
func statusError(resp *http.Response, what string) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	text := strings.TrimSpace(string(msg))
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", what, fdp.ErrNotFound)
	}
	return fmt.Errorf("%s: gateway returned %s: %s", what, resp.Status, text)
}

func (v *HTTPVault) put(ctx context.Context, path string, r io.Reader, size int64) error {
	// buffer so the request length is known and short readers fail locally
	data, err := readSized(r, size)
	if err != nil {
		return err
	}
	resp, err := v.do(ctx, http.MethodPut, path, bytes.NewReader(data), size)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError(resp, "PUT "+path)
	}
	return nil
}

func (v *HTTPVault) get(ctx context.Context, path string, w io.Writer) error {
	resp, err := v.do(ctx, http.MethodGet, path, nil, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp, "GET "+path)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// exists maps 200 to true and 404 to false.
func (v *HTTPVault) exists(ctx context.Context, method, path string) (bool, error) {
	resp, err := v.do(ctx, method, path, nil, 0)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, statusError(resp, method+" "+path)
	}
}

// PutContent uploads content to the gateway, which verifies its address.
func (v *HTTPVault) PutContent(ctx context.Context, address string, r io.Reader, size int64) error {
	return v.put(ctx, "/content/"+url.PathEscape(address), r, size)
}

// GetContent downloads content by address.
func (v *HTTPVault) GetContent(ctx context.Context, address string, w io.Writer) error {
	return v.get(ctx, "/content/"+url.PathEscape(address), w)
}

// HasContent issues a HEAD for address.
func (v *HTTPVault) HasContent(ctx context.Context, address string) (bool, error) {
	return v.exists(ctx, http.MethodHead, "/content/"+url.PathEscape(address))
}

// Pin asks the gateway to pin address.
func (v *HTTPVault) Pin(ctx context.Context, address string) error {
	return v.put(ctx, "/pins/"+url.PathEscape(address), strings.NewReader(""), 0)
}

// IsPinned reports whether the gateway has pinned address.
func (v *HTTPVault) IsPinned(ctx context.Context, address string) (bool, error) {
	return v.exists(ctx, http.MethodGet, "/pins/"+url.PathEscape(address))
}

func feedPath(slot string, version int64) string {
	return "/feeds/" + url.PathEscape(slot) + "/" + strconv.FormatInt(version, 10)
}

// PutFeedUpdate uploads one version of a feed slot.
func (v *HTTPVault) PutFeedUpdate(ctx context.Context, slot string, version int64, r io.Reader, size int64) error {
	if version < 1 {
		return fmt.Errorf("invalid feed version %d", version)
	}
	return v.put(ctx, feedPath(slot, version), r, size)
}

// GetFeedUpdate downloads one version of a feed slot.
func (v *HTTPVault) GetFeedUpdate(ctx context.Context, slot string, version int64, w io.Writer) error {
	return v.get(ctx, feedPath(slot, version), w)
}

// LatestFeedVersion asks the gateway for the highest version of slot.
func (v *HTTPVault) LatestFeedVersion(ctx context.Context, slot string) (int64, error) {
	var buf bytes.Buffer
	if err := v.get(ctx, "/feeds/"+url.PathEscape(slot), &buf); err != nil {
		return 0, err
	}
	var fv gateway.FeedVersion
	if err := json.Unmarshal(buf.Bytes(), &fv); err != nil {
		return 0, fmt.Errorf("decoding feed version: %w", err)
	}
	return fv.Version, nil
}

// ValidateSetup calls the gateway health endpoint.
func (v *HTTPVault) ValidateSetup(ctx context.Context) error {
	var buf bytes.Buffer
	if err := v.get(ctx, "/health", &buf); err != nil {
		return fmt.Errorf("gateway %s not healthy: %w", v.base, err)
	}
	return nil
}

var _ fdp.Vault = (*HTTPVault)(nil)
