// Package portal scrapes the NetPA schedule portal over plain HTTP.
package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/felixgeelhaar/campusbot/internal/schedule/application"
	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
	"github.com/felixgeelhaar/campusbot/pkg/observability"
)

// DefaultUserAgent mimics a desktop browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

// ErrLoginRejected is returned when the login form is shown again after
// submitting credentials.
var ErrLoginRejected = errors.New("portal rejected the credentials")

// Config configures the portal client.
type Config struct {
	LoginURL  string
	PortalURL string
	// EventsURL optionally serves the calendar event store as JSON.
	EventsURL string
	Username  string
	Password  string
	Timeout   time.Duration
	// Location is used for naive timestamps and rendered clock times.
	Location  *time.Location
	UserAgent string
}

// Client fetches schedule entries. Every fetch runs in a fresh session.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	metrics observability.Metrics
	now     func() time.Time
}

// New creates a portal client.
func New(cfg Config, logger *slog.Logger, metrics observability.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Client{
		cfg:     cfg,
		logger:  logger.With("component", "portal"),
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock returns a copy of c that reads the current time from now.
func (c *Client) WithClock(now func() time.Time) *Client {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Client) newSession() (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	session := resty.New()
	session.SetCookieJar(jar)
	session.SetHeader("User-Agent", c.cfg.UserAgent)
	session.SetHeader("Accept-Language", "pt-PT,pt;q=0.9")
	session.SetTimeout(c.cfg.Timeout)
	return session, nil
}

// FetchSchedule logs in and extracts the entries of the requested week.
func (c *Client) FetchSchedule(ctx context.Context, opts application.FetchOptions) (entries []domain.Entry, err error) {
	timer := observability.StartTimer("portal_fetch").
		WithMetrics(c.metrics).
		WithTags(observability.T("week_offset", strconv.Itoa(opts.WeekOffset)))
	defer func() {
		timer.StopWithError(err)
		c.metrics.Counter(observability.MetricPortalRequests, 1, observability.T("outcome", outcome(err)))
	}()

	session, err := c.newSession()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	form, err := c.resolveLoginForm(ctx, session)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "submitting portal credentials", "action", form.action.String())
	page, err := c.submit(ctx, session, form)
	if err != nil {
		return nil, err
	}
	if _, stillThere := findLoginForm(page.doc, page.url); stillThere {
		return nil, ErrLoginRejected
	}

	c.logger.InfoContext(ctx, "loading portal schedule page")
	page, err = c.get(ctx, session, c.cfg.PortalURL)
	if err != nil {
		return nil, err
	}

	week := WeekRange(c.now(), opts.WeekOffset)

	if c.cfg.EventsURL != "" {
		entries, err = c.fetchEventStore(ctx, session, week)
		switch {
		case domain.IsServiceUnavailable(err):
			return nil, err
		case err != nil:
			c.logger.WarnContext(ctx, "event store could not be read, falling back to page parsing", "error", err)
		case len(entries) > 0:
			c.logger.InfoContext(ctx, "extracted schedule entries",
				"count", len(entries),
				"source", "store",
				"week_offset", opts.WeekOffset,
			)
			return entries, nil
		}
	}

	entries, source := extractDocument(page.doc)
	if source == sourceTable {
		c.logger.WarnContext(ctx, "falling back to table-based schedule extraction", "count", len(entries))
	}
	if len(entries) == 0 {
		c.logger.WarnContext(ctx, "schedule extraction returned no entries, selectors may need updating")
	}
	if opts.WeekOffset != 0 {
		entries = week.Filter(entries)
		if len(entries) == 0 && c.cfg.EventsURL == "" {
			c.logger.WarnContext(ctx, "no dated entries for the requested week on the portal page, set an events URL to read other weeks",
				"week_offset", opts.WeekOffset,
			)
		}
	}
	c.logger.InfoContext(ctx, "extracted schedule entries",
		"count", len(entries),
		"source", source,
		"week_offset", opts.WeekOffset,
	)
	return entries, nil
}

// resolveLoginForm opens the login page and looks for the credentials form.
// When it is missing the page is reloaded once and then the portal page is
// tried, since it redirects anonymous sessions to the login. A form that
// never shows up is reported as an outage.
func (c *Client) resolveLoginForm(ctx context.Context, session *resty.Client) (loginForm, error) {
	c.logger.InfoContext(ctx, "opening portal login page")
	p, err := c.get(ctx, session, c.cfg.LoginURL)
	if err != nil {
		return loginForm{}, err
	}
	if form, ok := findLoginForm(p.doc, p.url); ok {
		return form, nil
	}

	retries := []struct {
		url string
		msg string
	}{
		{c.cfg.LoginURL, "login form not detected on first attempt, retrying"},
		{c.cfg.PortalURL, "retrying login by navigating to portal page"},
	}
	for _, retry := range retries {
		c.logger.WarnContext(ctx, retry.msg, "url", retry.url)
		p, err := c.get(ctx, session, retry.url)
		switch {
		case domain.IsServiceUnavailable(err):
			return loginForm{}, err
		case err != nil:
			c.logger.WarnContext(ctx, "portal page could not be loaded", "url", retry.url, "error", err)
			continue
		}
		if form, ok := findLoginForm(p.doc, p.url); ok {
			return form, nil
		}
	}

	return loginForm{}, &domain.ServiceUnavailableError{Reason: "login form not found"}
}

type page struct {
	url *url.URL
	doc *goquery.Document
}

func (c *Client) get(ctx context.Context, session *resty.Client, target string) (page, error) {
	res, err := session.R().SetContext(ctx).Get(target)
	if err != nil {
		return page{}, fmt.Errorf("GET %s: %w", target, err)
	}
	return readPage(res)
}

func (c *Client) submit(ctx context.Context, session *resty.Client, form loginForm) (page, error) {
	values := form.fill(c.cfg.Username, c.cfg.Password)
	req := session.R().SetContext(ctx)

	var (
		res *resty.Response
		err error
	)
	if form.method == http.MethodGet {
		u := *form.action
		u.RawQuery = values.Encode()
		res, err = req.Get(u.String())
	} else {
		res, err = req.SetFormDataFromValues(values).Post(form.action.String())
	}
	if err != nil {
		return page{}, fmt.Errorf("submit login form: %w", err)
	}
	return readPage(res)
}

// readPage parses an HTML response, mapping outage pages to
// domain.ServiceUnavailableError.
func readPage(res *resty.Response) (page, error) {
	if res.StatusCode() == http.StatusServiceUnavailable {
		return page{}, &domain.ServiceUnavailableError{Reason: "portal returned 503"}
	}
	if res.IsError() {
		return page{}, fmt.Errorf("%s %s: unexpected status %d", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return page{}, fmt.Errorf("parse html: %w", err)
	}
	if reason, down := unavailable(doc.Find("body").Text()); down {
		return page{}, &domain.ServiceUnavailableError{Reason: reason}
	}

	u, err := url.Parse(res.Request.URL)
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		u, err = res.RawResponse.Request.URL, nil
	}
	if err != nil {
		return page{}, fmt.Errorf("parse page url: %w", err)
	}
	return page{url: u, doc: doc}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsServiceUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}

var _ application.Fetcher = (*Client)(nil)
