package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// ErrVideoNotFound means the API knows no video with that id.
var ErrVideoNotFound = errors.New("video not found")

// Video is the summary printed for a YouTube link. Nil counters and a zero
// Duration mean the API did not report them.
type Video struct {
	Title    string
	Author   string
	Views    *int64
	Likes    *int64
	Duration time.Duration
}

// YouTube resolves video ids through the YouTube Data API v3.
type YouTube struct {
	apiURL string
	apiKey string
	client *http.Client
	cache  *lru.Cache[string, *Video]
}

// NewYouTube creates a client. cacheSize bounds the number of remembered
// videos.
func NewYouTube(apiURL, apiKey string, cacheSize int, client *http.Client) (*YouTube, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, err := lru.New[string, *Video](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create video cache")
	}
	return &YouTube{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		client: client,
		cache:  cache,
	}, nil
}

type videoListResponse struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// Video looks up a single video by id.
func (y *YouTube) Video(ctx context.Context, id string) (*Video, error) {
	if v, ok := y.cache.Get(id); ok {
		return v, nil
	}

	q := url.Values{}
	q.Set("part", "snippet,contentDetails,statistics")
	q.Set("id", id)
	q.Set("key", y.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.apiURL+"/videos?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build youtube request")
	}
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "youtube lookup failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("youtube lookup returned %s", resp.Status)
	}

	var body videoListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to decode youtube response")
	}
	if len(body.Items) == 0 {
		return nil, ErrVideoNotFound
	}

	item := body.Items[0]
	v := &Video{
		Title:    item.Snippet.Title,
		Author:   item.Snippet.ChannelTitle,
		Views:    parseCount(item.Statistics.ViewCount),
		Likes:    parseCount(item.Statistics.LikeCount),
		Duration: ParseISODuration(item.ContentDetails.Duration),
	}
	y.cache.Add(id, v)
	return v, nil
}

func parseCount(s string) *int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration parses the PT#H#M#S durations the API returns. Anything
// else yields zero.
func ParseISODuration(s string) time.Duration {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		d += time.Duration(n) * unit
	}
	return d
}

// FormatDuration renders d as H:MM:SS, prefixed with days when needed.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	clock := fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	switch {
	case days == 1:
		return "1 day, " + clock
	case days > 1:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
	return clock
}

// VideoID pulls the id out of a youtube.com or youtu.be link.
func VideoID(link string) (string, bool) {
	lower := strings.ToLower(link)
	if !strings.Contains(lower, "youtube.com") && !strings.Contains(lower, "youtu.be") {
		return "", false
	}
	// indexes into lower must be valid for link
	if len(lower) != len(link) {
		lower = link
	}

	var id string
	if i := strings.Index(lower, ".be/"); i >= 0 {
		id = link[i+len(".be/"):]
	} else if i := strings.Index(lower, "v="); i >= 0 {
		id = link[i+len("v="):]
	} else {
		return "", false
	}
	if i := strings.IndexAny(id, "?&#/"); i >= 0 {
		id = id[:i]
	}
	return id, id != ""
}
