// Package news builds the paginated headlines screens.
package news

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/domain"
)

const pageSize = 5

// Feature wires the news screens into the engine.
type Feature struct {
	engine *anchor.Engine
	client *Client
}

// New creates the news feature.
func New(e *anchor.Engine, client *Client) *Feature {
	return &Feature{engine: e, client: client}
}

// Register adds the news handlers and the search resolver.
func (f *Feature) Register() {
	f.engine.MustRegister("news_menu", f.listScreen)
	f.engine.MustRegister("news_list", f.listScreen)
	f.engine.MustRegister("news_search", f.searchPrompt)
	f.engine.MustRegisterResolver("news_query", f.resolveSearch)
}

// listScreen renders one page of headlines. The page lives in the
// screen's params, so a history entry re-displays the exact page the
// user saw.
func (f *Feature) listScreen(ctx context.Context, _ *domain.Session, params map[string]string) (domain.Screen, error) {
	page := 1
	if p, err := strconv.Atoi(params["page"]); err == nil && p > 0 {
		page = p
	}

	items, err := f.client.Top(ctx)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading headlines: %w", err)
	}
	if len(items) == 0 {
		return domain.Screen{
			ScreenID: "news_empty",
			Title:    "📰 News",
			Body:     "Nothing to show right now.",
		}.WithNav(true), nil
	}

	totalPages := (len(items) + pageSize - 1) / pageSize
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	var b strings.Builder
	for i, item := range items[start:end] {
		fmt.Fprintf(&b, "%d. %s (%d points)\n", start+i+1, item.Title, item.Score)
		if item.URL != "" {
			b.WriteString(item.URL + "\n")
		}
	}

	var pager []domain.Action
	if page > 1 {
		pager = append(pager, domain.Action{
			Label:    "‹ Prev",
			ActionID: anchor.FormatAction("news_list", map[string]string{"page": strconv.Itoa(page - 1)}),
		})
	}
	pager = append(pager, domain.Action{
		Label:    fmt.Sprintf("Page %d/%d", page, totalPages),
		ActionID: domain.ActionNone,
	})
	if page < totalPages {
		pager = append(pager, domain.Action{
			Label:    "Next ›",
			ActionID: anchor.FormatAction("news_list", map[string]string{"page": strconv.Itoa(page + 1)}),
		})
	}

	return domain.Screen{
		ScreenID: "news_list",
		Params:   map[string]string{"page": strconv.Itoa(page)},
		Title:    "📰 News",
		Body:     b.String(),
		Actions: [][]domain.Action{
			pager,
			{{Label: "🔍 Search", ActionID: "news_search"}},
		},
	}.WithNav(true), nil
}

// searchPrompt arms a free-text query against the current headlines.
func (f *Feature) searchPrompt(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	f.engine.Arm(sess, domain.InputText, "search keywords", 0, map[string]string{
		anchor.ResolverKey: "news_query",
	})
	return domain.Screen{
		ScreenID: "news_search",
		Title:    "🔍 Search news",
		Body:     "Send keywords to search the current headlines.",
	}.WithNav(true), nil
}

func (f *Feature) resolveSearch(ctx context.Context, _ *domain.Session, value string, _ map[string]string) (domain.Screen, error) {
	items, err := f.client.Top(ctx)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading headlines: %w", err)
	}

	query := strings.ToLower(value)
	var hits []Item
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Title), query) {
			hits = append(hits, item)
		}
	}

	if len(hits) == 0 {
		return domain.Screen{
			ScreenID: "news_search_empty",
			Params:   map[string]string{"q": value},
			Title:    "🔍 Search: " + value,
			Body:     "No headlines match. Try other keywords.",
			Actions: [][]domain.Action{
				{{Label: "🔍 New search", ActionID: "news_search"}},
			},
		}.WithNav(true), nil
	}
	if len(hits) > pageSize {
		hits = hits[:pageSize]
	}

	var b strings.Builder
	for i, item := range hits {
		fmt.Fprintf(&b, "%d. %s (%d points)\n", i+1, item.Title, item.Score)
		if item.URL != "" {
			b.WriteString(item.URL + "\n")
		}
	}

	return domain.Screen{
		ScreenID: "news_search_results",
		Params:   map[string]string{"q": value},
		Title:    "🔍 Search: " + value,
		Body:     b.String(),
		Actions: [][]domain.Action{
			{{Label: "🔍 New search", ActionID: "news_search"}},
		},
	}.WithNav(true), nil
}
