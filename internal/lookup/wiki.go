package lookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Wiki searches page titles on a MediaWiki install.
type Wiki struct {
	base   string
	client *http.Client
}

// NewWiki creates a client for the wiki rooted at base (no trailing slash).
func NewWiki(base string, client *http.Client) *Wiki {
	return &Wiki{base: strings.TrimRight(base, "/"), client: client}
}

// BaseURL is the wiki's front page.
func (w *Wiki) BaseURL() string {
	return w.base
}

// PageURL links to the page with the given title.
func (w *Wiki) PageURL(title string) string {
	return w.base + "/" + strings.ReplaceAll(title, " ", "_")
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// Search returns matching page titles in the order the wiki ranks them.
func (w *Wiki) Search(ctx context.Context, term string) ([]string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("action", "query")
	q.Set("list", "search")
	q.Set("srsearch", term)
	q.Set("srwhat", "title")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.base+"/api.php?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build wiki request")
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "wiki search failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("wiki search returned %s", resp.Status)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to decode wiki response")
	}

	titles := make([]string, 0, len(body.Query.Search))
	for _, r := range body.Query.Search {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

// TitleCase capitalizes the first letter of every word, matching how wiki
// page titles are usually written.
func TitleCase(term string) string {
	words := strings.Fields(term)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
