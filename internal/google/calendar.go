package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"kanji/internal/models"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	credentialsFile = "credentials.json"
	dateLayout      = "2006-01-02"
)

// CalendarClient provides a client for reading busy time from the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
	account string
}

// NewClient creates a new Google Calendar client.
// It handles loading credentials and setting up an authenticated HTTP client.
// It supports multiple accounts by looking for token files like token-user1.json, token-user2.json, etc.
// in tokenDir. The accountName is used to find the correct token file.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, tokenDir, accountName string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(filepath.Join(tokenDir, TokenFile(accountName)))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &CalendarClient{service: service, logger: logger, account: accountName}, nil
}

// BusyEvents fetches the entries that block time in the specified calendar
// between from and to. Recurring events are expanded by the API.
func (c *CalendarClient) BusyEvents(ctx context.Context, calendarID string, from, to time.Time) ([]*models.Event, error) {
	c.logger.Debug("Fetching busy events", "account", c.account, "calendarID", calendarID, "from", from, "to", to)

	var items []*calendar.Event
	err := c.service.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		OrderBy("startTime").
		MaxResults(250).
		Pages(ctx, func(page *calendar.Events) error {
			items = append(items, page.Items...)
			return nil
		})
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", models.ErrCalendarNotFound, calendarID)
		}
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Info("Successfully fetched events from Google Calendar", "count", len(items), "calendarID", calendarID)
	return c.toInternalEvents(items, calendarID), nil
}

// toInternalEvents converts Google Calendar events to the internal Event model,
// dropping entries that do not make the owner busy.
func (c *CalendarClient) toInternalEvents(googleEvents []*calendar.Event, source string) []*models.Event {
	var internalEvents []*models.Event
	for _, item := range googleEvents {
		if item.Start == nil || item.End == nil {
			continue
		}
		if item.Status == "cancelled" || item.Transparency == "transparent" || declinedBySelf(item) {
			c.logger.Debug("Skipping event that does not block time", "id", item.Id, "status", item.Status, "transparency", item.Transparency)
			continue
		}

		event := &models.Event{
			ID:     item.Id,
			Title:  item.Summary,
			Source: fmt.Sprintf("google-%s", source),
		}

		var startErr, endErr error
		if item.Start.DateTime != "" {
			event.StartTime, startErr = time.Parse(time.RFC3339, item.Start.DateTime)
			event.EndTime, endErr = time.Parse(time.RFC3339, item.End.DateTime)
		} else {
			// All-day events carry dates only; the end date is exclusive.
			event.AllDay = true
			event.StartTime, startErr = time.Parse(dateLayout, item.Start.Date)
			event.EndTime, endErr = time.Parse(dateLayout, item.End.Date)
		}
		if startErr != nil || endErr != nil {
			c.logger.Warn("Skipping event with unparseable times", "id", item.Id, "start", item.Start, "end", item.End)
			continue
		}

		internalEvents = append(internalEvents, event)
	}
	return internalEvents
}

func declinedBySelf(item *calendar.Event) bool {
	for _, a := range item.Attendees {
		if a.Self && a.ResponseStatus == "declined" {
			return true
		}
	}
	return false
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the root directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// TokenFile is the file an account's token is stored in.
func TokenFile(accountName string) string {
	return "token-" + accountName + ".json"
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// Calendar is one entry of an account's calendar list.
type Calendar struct {
	ID      string
	Summary string
	Primary bool
}

// ListCalendars returns all calendars associated with the authenticated account.
func (c *CalendarClient) ListCalendars(ctx context.Context) ([]Calendar, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var calendars []Calendar
	for _, item := range list.Items {
		calendars = append(calendars, Calendar{ID: item.Id, Summary: item.Summary, Primary: item.Primary})
	}
	return calendars, nil
}

// GetTokenAccounts returns the account names of all saved tokens in dir.
func GetTokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
