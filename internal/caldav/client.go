package caldav

import (
	"context"
	"fmt"
	"kanji/internal/models"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-webdav/caldav"
)

const (
	DefaultEndpoint = "https://caldav.icloud.com/"
	requestTimeout  = 30 * time.Second
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "kanji/1.0")
	return t.Transport.RoundTrip(req)
}

// Client reads busy time from a CalDAV server (iCloud, Fastmail, Nextcloud, ...).
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	loc          *time.Location

	mu        sync.Mutex
	calendars map[string]string // display name -> path
}

// NewClient creates a CalDAV client. Floating times and all-day dates are
// read in loc.
func NewClient(logger *slog.Logger, endpoint, username, password string, loc *time.Location) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if loc == nil {
		loc = time.UTC
	}
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport, Timeout: requestTimeout}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	return &Client{
		caldavClient: caldavClient,
		logger:       logger,
		loc:          loc,
	}, nil
}

// BusyEvents returns the events that block time in calendar between from
// and to. calendar is a collection path ("/...") or a display name.
func (c *Client) BusyEvents(ctx context.Context, calendar string, from, to time.Time) ([]*models.Event, error) {
	calPath, err := c.ResolveCalendar(ctx, calendar)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Querying CalDAV calendar", "path", calPath, "from", from, "to", to)

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Props: []string{"VERSION"},
			Comps: []caldav.CalendarCompRequest{
				{
					Name: "VEVENT",
					Props: []string{
						"UID", "SUMMARY", "DTSTART", "DTEND", "DURATION", "STATUS", "TRANSP",
						"RRULE", "RDATE", "EXDATE", "RECURRENCE-ID",
					},
				},
			},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: from.UTC(),
					End:   to.UTC(),
				},
			},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	events := toInternalEvents(c.logger, objects, from, to, c.loc)
	c.logger.Info("Successfully fetched events from CalDAV", "count", len(events), "path", calPath)
	return events, nil
}

// ResolveCalendar maps a calendar display name to its collection path.
// Paths are returned unchanged.
func (c *Client) ResolveCalendar(ctx context.Context, calendar string) (string, error) {
	if strings.HasPrefix(calendar, "/") {
		return calendar, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calendars == nil {
		cals, err := c.ListCalendars(ctx)
		if err != nil {
			return "", err
		}
		c.calendars = make(map[string]string, len(cals))
		for _, cal := range cals {
			c.calendars[cal.Name] = cal.Path
		}
	}

	path, ok := c.calendars[calendar]
	if !ok {
		return "", fmt.Errorf("%w: no calendar named '%s'", models.ErrCalendarNotFound, calendar)
	}
	return path, nil
}

// Calendar is one collection in the user's calendar home.
type Calendar struct {
	Name string
	Path string
}

// ListCalendars discovers the user's calendars.
func (c *Client) ListCalendars(ctx context.Context) ([]Calendar, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	cals, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}

	out := make([]Calendar, 0, len(cals))
	for _, cal := range cals {
		out = append(out, Calendar{Name: cal.Name, Path: cal.Path})
	}
	return out, nil
}
