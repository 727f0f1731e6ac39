package steam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientOptions{PartnerURL: srv.URL, CommunityURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.now = func() time.Time { return time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC) }
	return c
}

// ============================================================================
// FetchReport Tests
// ============================================================================

func TestFetchReport_RequestShape(t *testing.T) {
	var gotPath, gotFile, gotParams, gotCookie string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFile = r.URL.Query().Get("file")
		gotParams = r.URL.Query().Get("params")
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte("p1\np2\nDate,Bundle(ID#)\n2024-01-01,42\n"))
	})

	body, err := c.FetchReport(context.Background(), ReportRequest{
		Query:  PackageSales,
		ID:     42,
		Name:   "starter",
		Cookie: "steamLoginSecure=abc",
	})
	if err != nil {
		t.Fatalf("FetchReport() error = %v", err)
	}

	if !strings.Contains(body, "2024-01-01,42") {
		t.Errorf("body = %q, missing data row", body)
	}
	if gotPath != "/report_csv.php" {
		t.Errorf("path = %q, want /report_csv.php", gotPath)
	}
	if gotFile != "starter" {
		t.Errorf("file = %q, want starter", gotFile)
	}
	wantParams := "query=QueryPackageSalesForCSV^pkgID=42^dateStart=2000-01-01^dateEnd=2024-03-08^HasDivisions=0^interpreter=PartnerSalesReportInterpreter"
	if gotParams != wantParams {
		t.Errorf("params = %q, want %q", gotParams, wantParams)
	}
	if gotCookie != "steamLoginSecure=abc" {
		t.Errorf("cookie = %q, want steamLoginSecure=abc", gotCookie)
	}
}

func TestFetchReport_DateOverrides(t *testing.T) {
	var gotParams string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotParams = r.URL.Query().Get("params")
		w.Write([]byte("a\nb\nDateLocal,Game\n"))
	})

	_, err := c.FetchReport(context.Background(), ReportRequest{
		Query:     WishlistActions,
		ID:        7,
		DateStart: "2023-05-01",
		DateEnd:   "2023-05-31",
	})
	if err != nil {
		t.Fatalf("FetchReport() error = %v", err)
	}

	want := "query=QueryWishlistActionsForCSV^appID=7^dateStart=2023-05-01^dateEnd=2023-05-31^interpreter=WishlistReportInterpreter"
	if gotParams != want {
		t.Errorf("params = %q, want %q", gotParams, want)
	}
}

func TestFetchReport_MarkupIsAuthenticationError(t *testing.T) {
	bodies := []string{
		"<!DOCTYPE html><html>login</html>",
		"\n\t  <html>",
	}

	for _, body := range bodies {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})

		_, err := c.FetchReport(context.Background(), ReportRequest{Query: PackageSales, ID: 1, RunAs: "ops"})
		var authErr *AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("FetchReport(%q) error = %v, want *AuthenticationError", body, err)
		}
		if authErr.RunAs != "ops" {
			t.Errorf("RunAs = %q, want ops", authErr.RunAs)
		}
		if !IsAuthentication(err) {
			t.Error("IsAuthentication() = false, want true")
		}
	}
}

func TestFetchReport_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.FetchReport(context.Background(), ReportRequest{Query: PackageSales, ID: 1})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusBadGateway)
	}
	if strings.Contains(statusErr.URL, "params") {
		t.Errorf("URL %q leaks query string", statusErr.URL)
	}
}

func TestFetchReport_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.FetchReport(ctx, ReportRequest{Query: PackageSales, ID: 1}); err == nil {
		t.Fatal("FetchReport() with cancelled context returned nil error")
	}
}

// ============================================================================
// FetchFollowers Tests
// ============================================================================

func TestFetchFollowers(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`<?xml version="1.0"?><memberList><groupID64>1</groupID64>` +
			`<groupDetails><groupName>Game</groupName><memberCount>1234</memberCount></groupDetails></memberList>`))
	})

	n, err := c.FetchFollowers(context.Background(), 480)
	if err != nil {
		t.Fatalf("FetchFollowers() error = %v", err)
	}
	if n != 1234 {
		t.Errorf("count = %d, want 1234", n)
	}
	if gotPath != "/games/480/memberslistxml/" {
		t.Errorf("path = %q", gotPath)
	}
	if q, _ := url.ParseQuery(gotQuery); q.Get("xml") != "1" {
		t.Errorf("query = %q, want xml=1", gotQuery)
	}
}

func TestFetchFollowers_Malformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<memberList><error>not found</error></memberList>"))
	})

	_, err := c.FetchFollowers(context.Background(), 1)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("error = %v, want ErrMalformedPayload", err)
	}
	if !IsMalformedPayload(err) {
		t.Error("IsMalformedPayload() = false, want true")
	}
}

// ============================================================================
// Helper Tests
// ============================================================================

func TestExtractMemberCount(t *testing.T) {
	tests := []struct {
		name string
		body string
		want MemberCount
	}{
		{"found", "<groupDetails><memberCount>42</memberCount></groupDetails>", MemberCount{Count: 42, Found: true}},
		{"whitespace around count", "<groupDetails><memberCount> 7 </memberCount></groupDetails>", MemberCount{Count: 7, Found: true}},
		{"no groupDetails", "<memberCount>42</memberCount>", MemberCount{}},
		{"memberCount outside groupDetails", "<groupDetails></groupDetails><memberCount>42</memberCount>", MemberCount{}},
		{"unclosed groupDetails", "<groupDetails><memberCount>42</memberCount>", MemberCount{}},
		{"unclosed memberCount", "<groupDetails><memberCount>42</groupDetails>", MemberCount{}},
		{"not a number", "<groupDetails><memberCount>many</memberCount></groupDetails>", MemberCount{}},
		{"empty", "", MemberCount{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMemberCount(tt.body); got != tt.want {
				t.Errorf("ExtractMemberCount() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCookieFor(t *testing.T) {
	got := CookieFor("steamLoginSecure=${runAs}; sessionid=${runAs}", "alice")
	want := "steamLoginSecure=alice; sessionid=alice"
	if got != want {
		t.Errorf("CookieFor() = %q, want %q", got, want)
	}
}

func TestSafeEndDate(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC), "2024-03-08"},
		{time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC), "2024-03-09"},
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-02-28"},
	}

	for _, tt := range tests {
		if got := SafeEndDate(tt.now); got != tt.want {
			t.Errorf("SafeEndDate(%v) = %q, want %q", tt.now, got, tt.want)
		}
	}
}
