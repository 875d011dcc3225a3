// Package google exports completion data to a Google Sheets spreadsheet using
// Service Account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"dmo/internal/core"
	ports "dmo/internal/export"
)

type Client struct {
	svc              *gsheet.Service
	spreadsheetID    string
	completionsSheet string
	digestSheet      string
}

// Ensure interface conformance
var (
	_ ports.CompletionWriter = (*Client)(nil)
	_ ports.DigestWriter     = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: GOOGLE_COMPLETIONS_SHEET_NAME (default "Completions"),
// GOOGLE_DIGEST_SHEET_NAME (default "Digest").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	completionsSheet := strings.TrimSpace(os.Getenv("GOOGLE_COMPLETIONS_SHEET_NAME"))
	if completionsSheet == "" {
		completionsSheet = "Completions"
	}
	digestSheet := strings.TrimSpace(os.Getenv("GOOGLE_DIGEST_SHEET_NAME"))
	if digestSheet == "" {
		digestSheet = "Digest"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:              svc,
		spreadsheetID:    spreadsheetID,
		completionsSheet: completionsSheet,
		digestSheet:      digestSheet,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// Append writes one completion log row after the current last row of the
// completions sheet and returns its range reference.
func (c *Client) Append(ctx context.Context, r ports.Row) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	nextRow, err := c.nextRow(ctx, c.completionsSheet)
	if err != nil {
		return "", err
	}

	dataRange := fmt.Sprintf("%s!A%d:D%d", c.completionsSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{r.Date.String(), r.DmoName, r.Completed, r.Note}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// AppendDigest writes one row per DMO of the daily report to the digest
// sheet.
func (c *Client) AppendDigest(ctx context.Context, report core.DailyReport) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(report.Dmos) == 0 {
		return nil
	}

	nextRow, err := c.nextRow(ctx, c.digestSheet)
	if err != nil {
		return err
	}

	values := make([][]any, 0, len(report.Dmos))
	for _, status := range report.Dmos {
		note := ""
		if status.Note != nil {
			note = *status.Note
		}
		values = append(values, []any{
			report.Date.String(),
			status.Dmo.Name,
			status.Completed,
			note,
			strings.Join(status.Activities, ", "),
		})
	}

	dataRange := fmt.Sprintf("%s!A%d:E%d", c.digestSheet, nextRow, nextRow+len(values)-1)
	vr := &gsheet.ValueRange{Values: values}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", dataRange, err)
	}

	return nil
}

// nextRow finds the first empty row of a sheet by counting column A.
func (c *Client) nextRow(ctx context.Context, sheetName string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get sheet dimensions for %s: %w", sheetName, err)
	}
	return len(resp.Values) + 1, nil
}
