package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"rendita/internal/core"
	"rendita/internal/log"
	"rendita/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab holding the portfolio grid.
const DefaultSheetName = "Portfolio"

// Credentials selects the service account used to reach the Sheets API.
// JSON wins over File; with neither, GOOGLE_APPLICATION_CREDENTIALS is read.
type Credentials struct {
	JSON string
	File string
}

// valuesAPI is the part of the Sheets values service the client uses.
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
}

type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s serviceValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// Client stores the portfolio as a grid in one sheet tab.
type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheetName     string
}

var _ store.Repository = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, creds Credentials, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceValues{svc: svc}, spreadsheetID, sheetName), nil
}

func newClient(values valuesAPI, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &Client{values: values, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func credentialsJSON(ctx context.Context, creds Credentials) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials", log.FieldComponent, log.ComponentSheets)
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading service account credentials", log.FieldComponent, log.ComponentSheets, "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	b, err := credentialsJSON(ctx, creds)
	if err != nil {
		return nil, err
	}
	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(b),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", log.FieldComponent, log.ComponentSheets)
	return service, nil
}

func (c *Client) gridRange() string {
	return fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
}

// Load reads the grid back into a portfolio. An empty sheet means store.ErrNotFound.
func (c *Client) Load(ctx context.Context) (core.PortfolioState, error) {
	if c.values == nil {
		return core.PortfolioState{}, errors.New("sheets service not initialized")
	}
	rng := c.gridRange()
	rows, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return core.PortfolioState{}, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(rows) <= 1 {
		return core.PortfolioState{}, store.ErrNotFound
	}
	return decodeRows(rows)
}

// Save clears the tab and writes the whole grid.
func (c *Client) Save(ctx context.Context, state core.PortfolioState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.values == nil {
		return errors.New("sheets service not initialized")
	}

	rng := c.gridRange()
	if err := c.values.Clear(ctx, c.spreadsheetID, rng); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	rows := encodeRows(state)
	target := fmt.Sprintf("%s!A1:%s%d", c.sheetName, lastColumn, len(rows))
	if err := c.values.Update(ctx, c.spreadsheetID, target, rows); err != nil {
		return fmt.Errorf("update %s: %w", target, err)
	}

	slog.InfoContext(ctx, "Portfolio written to Google Sheets", log.FieldComponent, log.ComponentSheets,
		"sheet", c.sheetName,
		"rows", len(rows),
		"revision", state.Revision)
	return nil
}
