package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// SheetSourceID is the source id of the configured Google Sheet.
const SheetSourceID = "sheet"

// Scopes requested for the service account. The CSV export endpoint is served
// by Drive, so spreadsheets access alone is not enough.
var sheetScopes = []string{
	"https://www.googleapis.com/auth/spreadsheets.readonly",
	"https://www.googleapis.com/auth/drive.readonly",
}

const fetchTimeout = 30 * time.Second

// SheetSource downloads one worksheet of a Google Sheet as CSV.
type SheetSource struct {
	exportURL string
	client    *http.Client
}

// NewSheetSource builds a source for the worksheet gid of sheetURL. With a
// service account credentials file the requests are authorized; without one
// the sheet must be shared publicly.
func NewSheetSource(ctx context.Context, sheetURL, gid, credentialsFile string) (*SheetSource, error) {
	exportURL, err := ExportURL(sheetURL, gid)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: fetchTimeout}
	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, sheetScopes...)
		if err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
		client = oauth2.NewClient(ctx, creds.TokenSource)
		client.Timeout = fetchTimeout
	}

	return &SheetSource{exportURL: exportURL, client: client}, nil
}

// NewSheetSourceWithClient is NewSheetSource with a caller supplied client.
func NewSheetSourceWithClient(sheetURL, gid string, client *http.Client) (*SheetSource, error) {
	exportURL, err := ExportURL(sheetURL, gid)
	if err != nil {
		return nil, err
	}
	return &SheetSource{exportURL: exportURL, client: client}, nil
}

func (s *SheetSource) ID() string        { return SheetSourceID }
func (s *SheetSource) Kind() string      { return "sheet" }
func (s *SheetSource) ExportURL() string { return s.exportURL }

func (s *SheetSource) Fetch(ctx context.Context) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.exportURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("downloading sheet: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	// A sheet that is not shared redirects to a sign-in page instead of failing.
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return nil, fmt.Errorf("downloading sheet: got %s instead of CSV, check sharing or credentials", ct)
	}
	return ReadCSV(resp.Body)
}

// ExportURL turns a sheet URL (or a bare spreadsheet id) into its CSV export
// URL for one worksheet. The scheme and host of a full URL are kept.
func ExportURL(sheetURL, gid string) (string, error) {
	sheetURL = strings.TrimSpace(sheetURL)
	if sheetURL == "" {
		return "", fmt.Errorf("sheet URL is empty")
	}
	if gid == "" {
		gid = "0"
	}

	if !strings.Contains(sheetURL, "/") {
		sheetURL = "https://docs.google.com/spreadsheets/d/" + sheetURL
	}

	u, err := url.Parse(sheetURL)
	if err != nil {
		return "", fmt.Errorf("parsing sheet URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	i := indexOf(parts, "d")
	if i < 0 || i+1 >= len(parts) || parts[i+1] == "" {
		return "", fmt.Errorf("no spreadsheet id in %q", sheetURL)
	}
	id := parts[i+1]

	// A gid in the URL fragment wins over the default.
	if frag, err := url.ParseQuery(u.Fragment); err == nil && frag.Get("gid") != "" && gid == "0" {
		gid = frag.Get("gid")
	}

	prefix := ""
	if i > 0 {
		prefix = "/" + strings.Join(parts[:i], "/")
	}

	q := url.Values{"format": {"csv"}, "gid": {gid}}
	return fmt.Sprintf("%s://%s%s/d/%s/export?%s", u.Scheme, u.Host, prefix, id, q.Encode()), nil
}

func indexOf(parts []string, s string) int {
	for i, p := range parts {
		if p == s {
			return i
		}
	}
	return -1
}
