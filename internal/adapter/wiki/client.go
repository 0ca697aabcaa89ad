package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"yesteryear/internal/domain"
	"yesteryear/internal/util"
)

const (
	defaultSummaryBase = "https://en.wikipedia.org/api/rest_v1"
	defaultCommonsBase = "https://commons.wikimedia.org/w/api.php"

	lookupTimeout = 10 * time.Second
)

// Client queries the Wikipedia REST summary API and the Wikimedia Commons
// search API. Both are public read-only endpoints with short timeouts.
type Client struct {
	httpClient  *http.Client
	summaryBase string
	commonsBase string
}

// NewClient creates a lookup client with the production endpoints.
func NewClient() *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: lookupTimeout},
		summaryBase: defaultSummaryBase,
		commonsBase: defaultCommonsBase,
	}
}

// NewClientWithBases is used by tests to point at a local server.
func NewClientWithBases(httpClient *http.Client, summaryBase, commonsBase string) *Client {
	return &Client{httpClient: httpClient, summaryBase: summaryBase, commonsBase: commonsBase}
}

type summaryPayload struct {
	Type      string `json:"type"`
	Thumbnail struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	OriginalImage struct {
		Source string `json:"source"`
	} `json:"originalimage"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Summary looks up a page summary by title. Disambiguation pages and
// missing pages yield (nil, nil).
func (c *Client) Summary(ctx context.Context, title string) (*domain.EncyclopediaSummary, error) {
	normalized := util.NormalizeText(title)
	if normalized == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/page/summary/%s",
		c.summaryBase, url.PathEscape(strings.ReplaceAll(normalized, " ", "_")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var payload summaryPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Type == "disambiguation" {
		return nil, nil
	}

	imageURL := util.NormalizeText(payload.OriginalImage.Source)
	if imageURL == "" {
		imageURL = util.NormalizeText(payload.Thumbnail.Source)
	}
	return &domain.EncyclopediaSummary{
		ImageURL: imageURL,
		PageURL:  util.NormalizeText(payload.ContentURLs.Desktop.Page),
	}, nil
}

type commonsSearchPayload struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type commonsImagePayload struct {
	Query struct {
		Pages map[string]struct {
			Thumbnail struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// SearchImage finds a Commons thumbnail for a free-text query, returning ""
// when nothing usable turns up.
func (c *Client) SearchImage(ctx context.Context, query string) (string, error) {
	safeQuery := util.NormalizeText(query)
	if safeQuery == "" {
		return "", nil
	}

	searchURL := fmt.Sprintf("%s?action=query&list=search&srsearch=%s&format=json&srlimit=1&utf8=1",
		c.commonsBase, url.QueryEscape(safeQuery))
	var search commonsSearchPayload
	if err := c.getJSON(ctx, searchURL, &search); err != nil {
		return "", err
	}
	if len(search.Query.Search) == 0 {
		return "", nil
	}
	title := util.NormalizeText(search.Query.Search[0].Title)
	if title == "" {
		return "", nil
	}

	imageURL := fmt.Sprintf("%s?action=query&titles=%s&prop=pageimages&piprop=thumbnail&pithumbsize=1200&format=json",
		c.commonsBase, url.QueryEscape(title))
	var images commonsImagePayload
	if err := c.getJSON(ctx, imageURL, &images); err != nil {
		return "", err
	}
	for _, page := range images.Query.Pages {
		if thumbnail := util.NormalizeText(page.Thumbnail.Source); thumbnail != "" {
			return thumbnail, nil
		}
	}
	return "", nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
