// Package steam downloads partner reports and community follower counts.
package steam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	// DefaultPartnerURL serves the sales and wishlist CSV reports.
	DefaultPartnerURL = "https://partner.steampowered.com"

	// DefaultCommunityURL serves the public group member list.
	DefaultCommunityURL = "https://steamcommunity.com"

	defaultUserAgent = "steamsync/1.0"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	PartnerURL   string
	CommunityURL string
	UserAgent    string

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to the partner and community sites.
type Client struct {
	partnerURL   string
	communityURL string
	userAgent    string
	http         *http.Client
	now          func() time.Time
}

// NewClient validates opts and returns a ready Client.
func NewClient(opts ClientOptions) (*Client, error) {
	partner := strings.TrimSpace(opts.PartnerURL)
	if partner == "" {
		partner = DefaultPartnerURL
	}
	community := strings.TrimSpace(opts.CommunityURL)
	if community == "" {
		community = DefaultCommunityURL
	}
	for _, raw := range []string{partner, community} {
		if _, err := url.Parse(raw); err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", raw, err)
		}
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		partnerURL:   strings.TrimRight(partner, "/"),
		communityURL: strings.TrimRight(community, "/"),
		userAgent:    ua,
		http:         hc,
		now:          time.Now,
	}, nil
}

// FetchReport downloads the raw text of one partner report.
// A markup body means the session cookie was rejected and yields *AuthenticationError.
func (c *Client) FetchReport(ctx context.Context, req ReportRequest) (string, error) {
	u, err := req.reportURL(c.partnerURL, c.now())
	if err != nil {
		return "", err
	}

	headers := http.Header{}
	if req.Cookie != "" {
		headers.Set("Cookie", req.Cookie)
	}

	start := time.Now()
	body, err := c.doGET(ctx, u, headers)
	if err != nil {
		return "", fmt.Errorf("%s %d: %w", req.Query.Name, req.ID, err)
	}

	slog.Debug("report fetched",
		"query", req.Query.Name,
		"id", req.ID,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	text := string(body)
	if looksLikeMarkup(text) {
		return "", &AuthenticationError{Query: req.Query.Name, RunAs: req.RunAs}
	}
	return text, nil
}

// FetchFollowers returns the member count of the community group for appID.
// A payload without the count wraps ErrMalformedPayload.
func (c *Client) FetchFollowers(ctx context.Context, appID int64) (int64, error) {
	u := c.communityURL + "/games/" + strconv.FormatInt(appID, 10) + "/memberslistxml/?xml=1"

	body, err := c.doGET(ctx, u, nil)
	if err != nil {
		return 0, fmt.Errorf("followers %d: %w", appID, err)
	}

	mc := ExtractMemberCount(string(body))
	if !mc.Found {
		return 0, fmt.Errorf("followers %d: memberCount not found: %w", appID, ErrMalformedPayload)
	}
	return mc.Count, nil
}

func (c *Client) doGET(ctx context.Context, u string, headers http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: redactQuery(u), StatusCode: resp.StatusCode}
	}
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

// looksLikeMarkup reports whether the first non-space character opens a tag.
func looksLikeMarkup(s string) bool {
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	return strings.HasPrefix(trimmed, "<")
}

// redactQuery drops the query string so report params stay out of error logs.
func redactQuery(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	parsed.RawQuery = ""
	return parsed.String()
}

// IsMalformedPayload reports whether err wraps ErrMalformedPayload.
func IsMalformedPayload(err error) bool {
	return errors.Is(err, ErrMalformedPayload)
}
