// Package source fetches app-store customer reviews and persists raw
// review dumps for offline, reproducible runs.
package source

import (
	"fmt"
	"log"
	"strings"

	"github.com/mmcdole/gofeed"

	"reviewpulse/internal/review"
)

// The customer-review feed serves at most 10 pages per app.
const maxFeedPages = 10

// AppStoreClient pulls customer reviews from the public App Store RSS
// feed, newest first.
type AppStoreClient struct {
	parser  *gofeed.Parser
	country string
}

// NewAppStoreClient creates a client for one storefront country
// (e.g. "us"). Empty defaults to "us".
func NewAppStoreClient(country string) *AppStoreClient {
	if country == "" {
		country = "us"
	}
	return &AppStoreClient{
		parser:  gofeed.NewParser(),
		country: country,
	}
}

func (c *AppStoreClient) feedURL(appID string, page int) string {
	return fmt.Sprintf(
		"https://itunes.apple.com/%s/rss/customerreviews/page=%d/id=%s/sortby=mostrecent/xml",
		c.country, page, appID)
}

// FetchReviews walks the review feed pages for one app and returns the
// raw records. A page failing after the first is logged and ends the
// walk rather than failing the fetch; the first page failing is an error
// because it usually means a bad app ID.
func (c *AppStoreClient) FetchReviews(appID string) ([]review.Raw, error) {
	var raws []review.Raw
	for page := 1; page <= maxFeedPages; page++ {
		feed, err := c.parser.ParseURL(c.feedURL(appID, page))
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetching reviews for app %s: %w", appID, err)
			}
			log.Printf("Failed to fetch page %d for app %s: %v", page, appID, err)
			break
		}
		pageRaws := parseFeedItems(feed)
		if len(pageRaws) == 0 {
			break
		}
		raws = append(raws, pageRaws...)
	}
	log.Printf("Fetched %d reviews for app %s (%s)", len(raws), appID, c.country)
	return raws, nil
}

// parseFeedItems converts feed entries into raw review records. The
// first item of each page is the app's own metadata entry and carries no
// rating extension; it is skipped.
func parseFeedItems(feed *gofeed.Feed) []review.Raw {
	var raws []review.Raw
	for _, item := range feed.Items {
		rating := imExtension(item, "rating")
		if rating == "" {
			continue
		}
		body := item.Content
		if body == "" {
			body = item.Description
		}
		raw := review.Raw{
			"id":     item.GUID,
			"title":  strings.TrimSpace(item.Title),
			"text":   strings.TrimSpace(body),
			"rating": rating,
			"author": authorName(item),
		}
		if v := imExtension(item, "version"); v != "" {
			raw["version"] = v
		}
		if item.UpdatedParsed != nil {
			raw["date"] = item.UpdatedParsed.UTC().Format("2006-01-02T15:04:05Z07:00")
		} else if item.PublishedParsed != nil {
			raw["date"] = item.PublishedParsed.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		raws = append(raws, raw)
	}
	return raws
}

// imExtension reads an im: namespace extension value off a feed item.
func imExtension(item *gofeed.Item, name string) string {
	exts, ok := item.Extensions["im"]
	if !ok {
		return ""
	}
	values, ok := exts[name]
	if !ok || len(values) == 0 {
		return ""
	}
	return values[0].Value
}

func authorName(item *gofeed.Item) string {
	if item.Author != nil {
		return item.Author.Name
	}
	return ""
}
