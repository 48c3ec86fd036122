// Package feed scrapes the university news listing.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/felixgeelhaar/campusbot/internal/announcements/application"
	"github.com/felixgeelhaar/campusbot/internal/announcements/domain"
)

const (
	itemSelector  = ".view-content .views-row, .news-list .news-item"
	titleSelector = "h2, .title, .news-title"
	dateSelector  = ".date, time"
)

// Client reads announcements from an HTML listing page.
type Client struct {
	feedURL *url.URL
	http    *resty.Client
	logger  *slog.Logger
}

// New creates a feed client for feedURL.
func New(feedURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		feedURL: u,
		http: resty.New().
			SetHeader("User-Agent", "Mozilla/5.0").
			SetTimeout(timeout),
		logger: logger.With("component", "announcements_feed"),
	}, nil
}

// FetchLatest returns at most limit items in page order. The resolved
// link doubles as the item ID.
func (c *Client) FetchLatest(ctx context.Context, limit int) ([]domain.Announcement, error) {
	res, err := c.http.R().SetContext(ctx).Get(c.feedURL.String())
	if err != nil {
		return nil, fmt.Errorf("GET feed: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("GET feed: unexpected status %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := Parse(doc, c.feedURL)
	if len(items) == 0 {
		c.logger.WarnContext(ctx, "announcements list empty, verify feed selectors")
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Parse extracts the announcements of a listing page. Items without a
// title are skipped.
func Parse(doc *goquery.Document, base *url.URL) []domain.Announcement {
	var items []domain.Announcement
	doc.Find(itemSelector).Each(func(_ int, row *goquery.Selection) {
		title := strings.TrimSpace(row.Find(titleSelector).First().Text())
		if title == "" {
			return
		}

		link := base.String()
		if href, ok := row.Find("a").First().Attr("href"); ok {
			if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}

		items = append(items, domain.Announcement{
			ID:    link,
			Title: title,
			URL:   link,
			Date:  strings.TrimSpace(row.Find(dateSelector).First().Text()),
		})
	})
	return items
}

var _ application.Feed = (*Client)(nil)
