package steam

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultDateStart is the first day requested when an entity sets no start date.
const DefaultDateStart = "2000-01-01"

// DateLayout is the day format the partner site accepts.
const DateLayout = "2006-01-02"

// ReportLag is subtracted from now to get the default end date, so the last
// reported day is complete.
const ReportLag = 36 * time.Hour

// RunAsPlaceholder is replaced by the entity's RunAs value in the cookie template.
const RunAsPlaceholder = "${runAs}"

// Query describes one partner CSV report.
type Query struct {
	Name        string // query= value, e.g. QueryPackageSalesForCSV
	IDParam     string // pkgID or appID
	Interpreter string
	Extra       []string // additional key=value params, in order
}

var (
	// PackageSales is the per-package sales report.
	PackageSales = Query{
		Name:        "QueryPackageSalesForCSV",
		IDParam:     "pkgID",
		Interpreter: "PartnerSalesReportInterpreter",
		Extra:       []string{"HasDivisions=0"},
	}

	// WishlistActions is the per-app wishlist activity report.
	WishlistActions = Query{
		Name:        "QueryWishlistActionsForCSV",
		IDParam:     "appID",
		Interpreter: "WishlistReportInterpreter",
	}
)

// ReportRequest identifies one report download.
type ReportRequest struct {
	Query     Query
	ID        int64
	Name      string // used as the file= value
	DateStart string // YYYY-MM-DD, DefaultDateStart when empty
	DateEnd   string // YYYY-MM-DD, SafeEndDate when empty
	RunAs     string
	Cookie    string
}

// SafeEndDate returns the default inclusive end date for a report requested at now.
func SafeEndDate(now time.Time) string {
	return now.UTC().Add(-ReportLag).Format(DateLayout)
}

// CookieFor fills the cookie template for one partner identity.
func CookieFor(format, runAs string) string {
	return strings.ReplaceAll(format, RunAsPlaceholder, runAs)
}

// params renders the caret-separated params value the partner endpoint expects.
func (r ReportRequest) params(now time.Time) string {
	start := r.DateStart
	if start == "" {
		start = DefaultDateStart
	}
	end := r.DateEnd
	if end == "" {
		end = SafeEndDate(now)
	}

	parts := []string{
		"query=" + r.Query.Name,
		r.Query.IDParam + "=" + strconv.FormatInt(r.ID, 10),
		"dateStart=" + start,
		"dateEnd=" + end,
	}
	parts = append(parts, r.Query.Extra...)
	parts = append(parts, "interpreter="+r.Query.Interpreter)
	return strings.Join(parts, "^")
}

// reportURL builds the report_csv.php URL under base.
func (r ReportRequest) reportURL(base string, now time.Time) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/report_csv.php")
	if err != nil {
		return "", fmt.Errorf("invalid partner URL: %w", err)
	}
	q := u.Query()
	q.Set("file", r.Name)
	q.Set("params", r.params(now))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
