// Package news contiene las fuentes de noticias y el matcher de mercados.
package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/ports"
)

const maxItemsPerFeed = 25

// FeedSpec describe un feed RSS/Atom concreto.
type FeedSpec struct {
	Name     string
	URL      string
	Category string
}

// DefaultFeeds devuelve las fuentes primarias. El set es estable: fuentes
// con credibilidad conocida por el agregador.
func DefaultFeeds() []FeedSpec {
	return []FeedSpec{
		{Name: "Reuters", URL: "https://www.reutersagency.com/feed/?taxonomy=best-sectors&post_type=best", Category: "breaking_news"},
		{Name: "AP", URL: "https://rsshub.app/apnews/topics/apf-business", Category: "breaking_news"},
		{Name: "Bloomberg", URL: "https://feeds.bloomberg.com/markets/news.rss", Category: "breaking_news"},
		{Name: "CoinDesk", URL: "https://www.coindesk.com/arc/outboundfeeds/rss/", Category: "crypto_media"},
		{Name: "The Block", URL: "https://www.theblock.co/rss.xml", Category: "crypto_media"},
		{Name: "PANews", URL: "https://rss.panewslab.com/zh/rss", Category: "crypto_media"},
		{Name: "CNBC", URL: "https://www.cnbc.com/id/100003114/device/rss/rss.html", Category: "finance"},
		{Name: "MarketWatch", URL: "https://feeds.marketwatch.com/marketwatch/topstories/", Category: "finance"},
	}
}

// RSSFeed es un ports.NewsProvider sobre un feed RSS 2.0 o Atom.
type RSSFeed struct {
	spec   FeedSpec
	client *resty.Client
	log    *slog.Logger
}

// NewRSSFeed crea un provider para un feed concreto.
func NewRSSFeed(spec FeedSpec, log *slog.Logger) *RSSFeed {
	if log == nil {
		log = slog.Default()
	}
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; polyclaw/1.0)")
	return &RSSFeed{spec: spec, client: client, log: log}
}

// NewProviders construye un provider por FeedSpec.
func NewProviders(specs []FeedSpec, log *slog.Logger) []ports.NewsProvider {
	out := make([]ports.NewsProvider, 0, len(specs))
	for _, spec := range specs {
		out = append(out, NewRSSFeed(spec, log))
	}
	return out
}

func (f *RSSFeed) Name() string { return f.spec.Name }

// Fetch descarga y parsea el feed. Los items sin título se descartan.
func (f *RSSFeed) Fetch(ctx context.Context) ([]domain.NewsItem, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.spec.URL)
	if err != nil {
		return nil, fmt.Errorf("news.Fetch: %s: %w", f.spec.Name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("news.Fetch: %s: status %d", f.spec.Name, resp.StatusCode())
	}

	entries, err := parseFeed(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("news.Fetch: %s: %w", f.spec.Name, err)
	}

	items := make([]domain.NewsItem, 0, len(entries))
	for _, e := range entries {
		title := stripHTML(e.Title)
		if title == "" {
			continue
		}
		items = append(items, domain.NewsItem{
			Source:    f.spec.Name,
			Category:  f.spec.Category,
			Title:     title,
			Link:      e.link(),
			Published: parsePubDate(e.PubDate, e.Updated),
		})
		if len(items) >= maxItemsPerFeed {
			break
		}
	}
	f.log.Debug("feed fetched", "source", f.spec.Name, "items", len(items))
	return items, nil
}

// --- parseo RSS/Atom ---

// feedEntry es la forma neutra a la que se normalizan RSS 2.0 y Atom.
type feedEntry struct {
	Title   string
	Link    string
	PubDate string
	Updated string
}

func (e feedEntry) link() string { return strings.TrimSpace(e.Link) }

type rssDoc struct {
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			Link    string `xml:"link"`
			PubDate string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

type atomDoc struct {
	Entries []struct {
		Title string `xml:"title"`
		Links []struct {
			Href string `xml:"href,attr"`
		} `xml:"link"`
		Updated string `xml:"updated"`
	} `xml:"entry"`
}

// parseFeed acepta RSS 2.0 (channel/item) y Atom (feed/entry).
func parseFeed(body []byte) ([]feedEntry, error) {
	var rss rssDoc
	if err := xml.Unmarshal(body, &rss); err == nil && len(rss.Channel.Items) > 0 {
		entries := make([]feedEntry, 0, len(rss.Channel.Items))
		for _, it := range rss.Channel.Items {
			entries = append(entries, feedEntry{Title: it.Title, Link: it.Link, PubDate: it.PubDate})
		}
		return entries, nil
	}

	var atom atomDoc
	if err := xml.Unmarshal(body, &atom); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	entries := make([]feedEntry, 0, len(atom.Entries))
	for _, en := range atom.Entries {
		e := feedEntry{Title: en.Title, Updated: en.Updated}
		for _, l := range en.Links {
			if l.Href != "" {
				e.Link = l.Href
				break
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

func parsePubDate(candidates ...string) time.Time {
	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range pubDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}
