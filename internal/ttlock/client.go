// Package ttlock implements a client for the TTLock (Sciener) cloud API,
// which programs keyboard passwords onto physical locks and reports unlock
// events. All endpoints respond with an errcode/errmsg envelope; errcode 0
// means success.
package ttlock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dogparkjp/parkgate/internal/config"
)

// Keyboard password types. One-shot passwords self-delete after first use.
const (
	PasswordTypeOneTime   = 1
	PasswordTypePermanent = 2
)

// RecordTypeKeyboardUnlock is the record type reported for a successful
// unlock via keyboard PIN.
const RecordTypeKeyboardUnlock = 2

// Client talks to the TTLock cloud API. The OAuth2 access token is cached on
// the client and refreshed when it is missing or about to expire.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	username     string
	password     string
	httpClient   *http.Client

	mu             sync.Mutex
	accessToken    string
	tokenExpiresAt time.Time
}

// NewClient creates a vendor client from configuration
func NewClient(cfg *config.TTLockConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		username:     cfg.Username,
		password:     cfg.Password,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Configured reports whether vendor credentials are present. An unconfigured
// client never performs requests; callers fall back to demo mode.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != "" && c.username != "" && c.password != ""
}

type authResponse struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Authenticate performs the OAuth2 password grant and caches the token
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"username":      {c.username},
		"password":      {c.password},
		"grant_type":    {"password"},
	}

	var resp authResponse
	if err := c.postForm(ctx, "/oauth2/token", form, &resp); err != nil {
		return err
	}
	if resp.ErrCode != 0 {
		return fmt.Errorf("ttlock authentication failed: %s (code: %d)", resp.ErrMsg, resp.ErrCode)
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("ttlock authentication failed: empty access token")
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.tokenExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	c.mu.Unlock()

	return nil
}

// ensureValidToken refreshes the access token when it is missing or within
// a minute of expiry.
func (c *Client) ensureValidToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.accessToken
	expires := c.tokenExpiresAt
	c.mu.Unlock()

	if token != "" && time.Now().Before(expires.Add(-time.Minute)) {
		return token, nil
	}

	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	token = c.accessToken
	c.mu.Unlock()
	return token, nil
}

type addKeyboardPwdResponse struct {
	ErrCode       int    `json:"errcode"`
	ErrMsg        string `json:"errmsg"`
	KeyboardPwdID int64  `json:"keyboardPwdId"`
}

// AddKeyboardPassword programs a numeric password onto a lock for the given
// validity window and returns the vendor-assigned password ID.
func (c *Client) AddKeyboardPassword(ctx context.Context, lockID int64, password string, start, end time.Time, name string) (int64, error) {
	token, err := c.ensureValidToken(ctx)
	if err != nil {
		return 0, err
	}

	form := url.Values{
		"clientId":    {c.clientID},
		"accessToken": {token},
		"lockId":      {strconv.FormatInt(lockID, 10)},
		"password":    {password},
		"startDate":   {strconv.FormatInt(start.UnixMilli(), 10)},
		"endDate":     {strconv.FormatInt(end.UnixMilli(), 10)},
		"date":        {strconv.FormatInt(time.Now().UnixMilli(), 10)},
		"name":        {name},
		"type":        {strconv.Itoa(PasswordTypeOneTime)},
	}

	var resp addKeyboardPwdResponse
	if err := c.postForm(ctx, "/keyboardPwd/add", form, &resp); err != nil {
		return 0, err
	}
	if resp.ErrCode != 0 {
		return 0, fmt.Errorf("ttlock add keyboard password failed: %s (code: %d)", resp.ErrMsg, resp.ErrCode)
	}

	return resp.KeyboardPwdID, nil
}

type envelopeResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// DeleteKeyboardPassword removes a previously programmed password from a lock
func (c *Client) DeleteKeyboardPassword(ctx context.Context, lockID, keyboardPwdID int64) error {
	token, err := c.ensureValidToken(ctx)
	if err != nil {
		return err
	}

	form := url.Values{
		"clientId":      {c.clientID},
		"accessToken":   {token},
		"lockId":        {strconv.FormatInt(lockID, 10)},
		"keyboardPwdId": {strconv.FormatInt(keyboardPwdID, 10)},
		"date":          {strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}

	var resp envelopeResponse
	if err := c.postForm(ctx, "/keyboardPwd/delete", form, &resp); err != nil {
		return err
	}
	if resp.ErrCode != 0 {
		return fmt.Errorf("ttlock delete keyboard password failed: %s (code: %d)", resp.ErrMsg, resp.ErrCode)
	}

	return nil
}

// Record is one unlock event reported by the vendor
type Record struct {
	RecordID   int64  `json:"recordId"`
	LockID     int64  `json:"lockId"`
	LockDate   int64  `json:"lockDate"`
	RecordType int    `json:"recordType"`
	Success    int    `json:"success"`
	Username   string `json:"username"`
}

type listRecordsResponse struct {
	ErrCode int      `json:"errcode"`
	ErrMsg  string   `json:"errmsg"`
	List    []Record `json:"list"`
}

// ListLockRecords fetches unlock records for a lock within a time range.
// Used for operational backfill when webhooks were missed.
func (c *Client) ListLockRecords(ctx context.Context, lockID int64, start, end time.Time) ([]Record, error) {
	token, err := c.ensureValidToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"clientId":    {c.clientID},
		"accessToken": {token},
		"lockId":      {strconv.FormatInt(lockID, 10)},
		"startDate":   {strconv.FormatInt(start.UnixMilli(), 10)},
		"endDate":     {strconv.FormatInt(end.UnixMilli(), 10)},
		"pageNo":      {"1"},
		"pageSize":    {"100"},
		"date":        {strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/lockRecord/list?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ttlock request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp listRecordsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("ttlock response decode failed: %w", err)
	}
	if resp.ErrCode != 0 {
		return nil, fmt.Errorf("ttlock list records failed: %s (code: %d)", resp.ErrMsg, resp.ErrCode)
	}

	return resp.List, nil
}

// postForm sends a form-encoded POST and decodes the JSON response
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ttlock request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("ttlock response decode failed: %w", err)
	}

	return nil
}
