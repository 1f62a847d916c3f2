package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	baseURL  = "https://hacker-news.firebaseio.com/v0"
	cacheTTL = 5 * time.Minute
	maxItems = 30
)

// Item is a single headline.
type Item struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Score int    `json:"score"`
}

// Client fetches headlines from the Hacker News public API.
type Client struct {
	http *http.Client

	mu        sync.Mutex
	items     []Item
	fetchedAt time.Time
}

// NewClient creates a news client.
func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: 10 * time.Second}}
}

// Top returns up to maxItems current headlines, served from a short
// cache so paging through them does not refetch.
func (c *Client) Top(ctx context.Context) ([]Item, error) {
	c.mu.Lock()
	if c.items != nil && time.Since(c.fetchedAt) < cacheTTL {
		items := c.items
		c.mu.Unlock()
		return items, nil
	}
	c.mu.Unlock()

	var ids []int
	if err := c.getJSON(ctx, baseURL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("fetching top stories: %w", err)
	}
	if len(ids) > maxItems {
		ids = ids[:maxItems]
	}

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		var item Item
		if err := c.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", baseURL, id), &item); err != nil {
			continue
		}
		if item.Title != "" {
			items = append(items, item)
		}
	}

	c.mu.Lock()
	c.items = items
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
