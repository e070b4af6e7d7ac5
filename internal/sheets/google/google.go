package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"nutrilog/internal/core"
	"nutrilog/internal/metrics"
	ports "nutrilog/internal/sheets"
)

// Config selects the spreadsheet and the service account credentials.
// CredentialsJSON wins over CredentialsFile when both are set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	// Serializes lookups and writes so two upserts cannot claim the same
	// empty row.
	mu sync.Mutex
}

var _ ports.MealMirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Meals"
	}

	if len(opts) == 0 {
		switch {
		case cfg.CredentialsJSON != "":
			slog.InfoContext(ctx, "Using inline service account credentials", "component", "sheets")
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		case cfg.CredentialsFile != "":
			slog.InfoContext(ctx, "Using service account credentials file", "component", "sheets", "path", cfg.CredentialsFile)
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		default:
			return nil, errors.New("missing service account credentials")
		}
		opts = append(opts, option.WithScopes(gsheet.SpreadsheetsScope))
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: sheet}, nil
}

// UpsertMeal writes e into the row holding its id, or appends a new row.
func (c *Client) UpsertMeal(ctx context.Context, e core.MealEntry, version int64) error {
	err := c.upsert(ctx, e, version)
	metrics.RecordSheetsSync("upsert", err)
	return err
}

func (c *Client) upsert(ctx context.Context, e core.MealEntry, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.idColumn(ctx)
	if err != nil {
		return err
	}

	row := findRow(ids, e.ID)
	if row == 0 {
		row = nextRow(ids)
		if row == 1 {
			if err := c.write(ctx, rowRange(c.sheet, 1), header); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
			row = 2
		}
	}

	if err := c.write(ctx, rowRange(c.sheet, row), mealRow(e, version)); err != nil {
		return fmt.Errorf("write meal %d: %w", e.ID, err)
	}

	slog.DebugContext(ctx, "Mirrored meal to sheet", "component", "sheets", "id", e.ID, "row", row, "version", version)
	return nil
}

// DeleteMeal clears the row holding id. A missing row is not an error.
func (c *Client) DeleteMeal(ctx context.Context, id int64) error {
	err := c.delete(ctx, id)
	metrics.RecordSheetsSync("delete", err)
	return err
}

func (c *Client) delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.idColumn(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row == 0 {
		slog.DebugContext(ctx, "Meal not in sheet, nothing to delete", "component", "sheets", "id", id)
		return nil
	}

	rng := rowRange(c.sheet, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) idColumn(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) write(ctx context.Context, rng string, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}
