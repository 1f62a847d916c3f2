// Package finance connects a user's expense spreadsheet and renders
// spending summaries from it.
package finance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
	"github.com/soyeahso/teo/internal/store"
)

// connectTTL bounds how long the sheet-link prompt stays armed.
const connectTTL = 300 * time.Second

// analyzeCacheTTL is how long a finished analysis answers a repeated
// press of the same button without re-reading the sheet.
const analyzeCacheTTL = 2 * time.Minute

type cachedSummary struct {
	screen domain.Screen
	at     time.Time
}

// Feature wires the finance screens into the engine.
type Feature struct {
	engine *anchor.Engine
	client *Client
	users  *store.UserStore
	log    *logging.Logger

	mu    sync.Mutex
	cache map[string]cachedSummary
	now   func() time.Time
}

// New creates the finance feature.
func New(e *anchor.Engine, client *Client, users *store.UserStore, log *logging.Logger) *Feature {
	return &Feature{
		engine: e,
		client: client,
		users:  users,
		log:    log.Sub("finance"),
		cache:  make(map[string]cachedSummary),
		now:    time.Now,
	}
}

// Register adds the finance handlers and input resolvers.
func (f *Feature) Register() {
	f.engine.MustRegister("finance_menu", f.menuScreen)
	f.engine.MustRegister("finance_connect", f.connectScreen)
	f.engine.MustRegister("finance_analyze", f.analyzeScreen)
	f.engine.MustRegister("finance_search", f.searchPrompt)
	f.engine.MustRegisterResolver("finance_sheet", f.resolveSheet)
	f.engine.MustRegisterResolver("finance_query", f.resolveQuery)
}

func (f *Feature) menuScreen(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	settings, err := f.users.Get(sess.Key.UserKey())
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading settings: %w", err)
	}

	body := "Connect a Google Sheets expense table to see spending summaries."
	rows := [][]domain.Action{
		{{Label: "🔗 Connect sheet", ActionID: "finance_connect"}},
	}
	if settings.SheetURL != "" {
		body = "Sheet connected. Run an analysis or switch to a different table."
		rows = [][]domain.Action{
			{{Label: "📈 Analyze", ActionID: anchor.FormatAction("finance_analyze", map[string]string{"n": sess.Nonce})}},
			{{Label: "🔍 Search operations", ActionID: "finance_search"}},
			{{Label: "🔗 Change sheet", ActionID: "finance_connect"}},
		}
	}

	return domain.Screen{
		ScreenID: "finance_menu",
		Title:    "💰 Finance",
		Body:     body,
		Actions:  rows,
	}.WithNav(true), nil
}

// connectScreen arms a URL prompt. The link must arrive within five
// minutes or the prompt lapses.
func (f *Feature) connectScreen(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	f.engine.Arm(sess, domain.InputURL, "Google Sheets link", connectTTL, map[string]string{
		anchor.ResolverKey: "finance_sheet",
	})
	return domain.Screen{
		ScreenID: "finance_connect",
		Title:    "🔗 Connect sheet",
		Body: "Send a link to your expense spreadsheet.\n\n" +
			"Rows should be: date | category | amount.",
	}.WithNav(true), nil
}

func (f *Feature) resolveSheet(_ context.Context, sess *domain.Session, value string, _ map[string]string) (domain.Screen, error) {
	id := SpreadsheetID(value)
	if id == "" {
		// Valid URL, wrong site. Re-arm so the user can try again.
		f.engine.Arm(sess, domain.InputURL, "Google Sheets link", connectTTL, map[string]string{
			anchor.ResolverKey: "finance_sheet",
		})
		return domain.Screen{
			ScreenID: "finance_connect_retry",
			Title:    "🔗 Connect sheet",
			Body:     "That link is not a Google Sheets document. Example: https://docs.google.com/spreadsheets/d/...",
		}.WithNav(true), nil
	}

	userKey := sess.Key.UserKey()
	settings, err := f.users.Get(userKey)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading settings: %w", err)
	}
	settings.UserKey = userKey
	settings.SheetURL = value
	if err := f.users.Put(settings); err != nil {
		return domain.Screen{}, fmt.Errorf("saving sheet url: %w", err)
	}
	f.log.Info().Str("user", userKey).Msg("sheet connected")

	return domain.Screen{
		ScreenID: "finance_connected",
		Title:    "✅ Sheet connected",
		Body:     "Spreadsheet linked. Ready to analyze.",
		Actions: [][]domain.Action{
			{{Label: "📈 Analyze", ActionID: anchor.FormatAction("finance_analyze", map[string]string{"n": sess.Nonce})}},
		},
	}.WithNav(true), nil
}

// analyzeScreen reads the sheet and renders totals. A nonce rides in
// the button so that re-delivery of the same press replays the cached
// result instead of hitting the Sheets API again.
func (f *Feature) analyzeScreen(ctx context.Context, sess *domain.Session, params map[string]string) (domain.Screen, error) {
	if nonce := params["n"]; nonce != "" {
		key := sess.Key.String() + "/" + nonce
		f.mu.Lock()
		if c, ok := f.cache[key]; ok && f.now().Sub(c.at) < analyzeCacheTTL {
			f.mu.Unlock()
			return c.screen, nil
		}
		f.mu.Unlock()
	}

	settings, err := f.users.Get(sess.Key.UserKey())
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading settings: %w", err)
	}
	if settings.SheetURL == "" {
		return domain.Screen{
			ScreenID: "finance_not_connected",
			Title:    "💰 Finance",
			Body:     "No spreadsheet connected yet.",
			Actions: [][]domain.Action{
				{{Label: "🔗 Connect sheet", ActionID: "finance_connect"}},
			},
		}.WithNav(true), nil
	}

	sum, err := f.client.Summarize(ctx, SpreadsheetID(settings.SheetURL))
	if err != nil {
		return domain.Screen{}, fmt.Errorf("analyzing sheet: %w", err)
	}

	screen := summaryScreen(sum, f.now())
	if nonce := params["n"]; nonce != "" {
		key := sess.Key.String() + "/" + nonce
		f.mu.Lock()
		f.cache[key] = cachedSummary{screen: screen, at: f.now()}
		f.mu.Unlock()
	}
	return screen, nil
}

// searchPrompt arms a free-text query over the sheet's rows.
func (f *Feature) searchPrompt(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	settings, err := f.users.Get(sess.Key.UserKey())
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading settings: %w", err)
	}
	if settings.SheetURL == "" {
		return domain.Screen{
			ScreenID: "finance_not_connected",
			Title:    "💰 Finance",
			Body:     "No spreadsheet connected yet.",
			Actions: [][]domain.Action{
				{{Label: "🔗 Connect sheet", ActionID: "finance_connect"}},
			},
		}.WithNav(true), nil
	}

	f.engine.Arm(sess, domain.InputText, "search query", 0, map[string]string{
		anchor.ResolverKey: "finance_query",
	})
	return domain.Screen{
		ScreenID: "finance_search",
		Title:    "🔍 Search operations",
		Body:     "Send a category or date fragment to find matching rows.",
	}.WithNav(true), nil
}

func (f *Feature) resolveQuery(ctx context.Context, sess *domain.Session, value string, _ map[string]string) (domain.Screen, error) {
	settings, err := f.users.Get(sess.Key.UserKey())
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading settings: %w", err)
	}
	entries, err := f.client.Entries(ctx, SpreadsheetID(settings.SheetURL))
	if err != nil {
		return domain.Screen{}, fmt.Errorf("searching sheet: %w", err)
	}
	return searchScreen(value, entries), nil
}

// maxSearchRows bounds how many matches fit on the screen.
const maxSearchRows = 10

func searchScreen(query string, entries []Entry) domain.Screen {
	q := strings.ToLower(query)
	var hits []Entry
	var total float64
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Category), q) || strings.Contains(e.Date, q) {
			hits = append(hits, e)
			total += e.Amount
		}
	}

	if len(hits) == 0 {
		return domain.Screen{
			ScreenID: "finance_search_empty",
			Params:   map[string]string{"q": query},
			Title:    "🔍 Search: " + query,
			Body:     "No operations match. Try another category or date.",
			Actions: [][]domain.Action{
				{{Label: "🔍 New search", ActionID: "finance_search"}},
			},
		}.WithNav(true)
	}

	shown := hits
	if len(shown) > maxSearchRows {
		shown = shown[:maxSearchRows]
	}
	var b strings.Builder
	for _, e := range shown {
		fmt.Fprintf(&b, "• %s — %s: %.2f\n", e.Date, e.Category, e.Amount)
	}
	fmt.Fprintf(&b, "\nMatches: %d, total *%.2f*", len(hits), total)

	return domain.Screen{
		ScreenID: "finance_search_results",
		Params:   map[string]string{"q": query},
		Title:    "🔍 Search: " + query,
		Body:     b.String(),
		Actions: [][]domain.Action{
			{{Label: "🔍 New search", ActionID: "finance_search"}},
		},
	}.WithNav(true)
}

func summaryScreen(sum *Summary, now time.Time) domain.Screen {
	if sum.Rows == 0 {
		return domain.Screen{
			ScreenID: "finance_summary_empty",
			Title:    "📈 Analysis",
			Body:     "The sheet has no expense rows yet.",
		}.WithNav(true)
	}

	categories := make([]string, 0, len(sum.ByCategory))
	for c := range sum.ByCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return sum.ByCategory[categories[i]] > sum.ByCategory[categories[j]]
	})

	body := fmt.Sprintf("Rows: %d\nTotal: *%.2f*\n\nBy category:\n", sum.Rows, sum.Total)
	for _, c := range categories {
		body += fmt.Sprintf("• %s: %.2f\n", c, sum.ByCategory[c])
	}

	return domain.Screen{
		ScreenID: "finance_summary",
		Title:    "📈 Analysis",
		Body:     body,
		Status:   "updated " + now.Format("15:04"),
	}.WithNav(true)
}
