package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/steamsync/internal/report"
	"github.com/JonMunkholm/steamsync/internal/steam"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "authentication error",
			err:      fmt.Errorf("sales: %w", &steam.AuthenticationError{Query: "QueryPackageSalesForCSV", RunAs: "ops"}),
			wantCode: "AUTH001",
		},
		{
			name:     "malformed payload",
			err:      fmt.Errorf("followers 480: %w", steam.ErrMalformedPayload),
			wantCode: "PAY001",
		},
		{
			name:     "no header",
			err:      fmt.Errorf("QueryWishlistActionsForCSV 7: %w", report.ErrNoHeader),
			wantCode: "PAY002",
		},
		{
			name:     "status error",
			err:      fmt.Errorf("wrapped: %w", &steam.StatusError{URL: "https://x", StatusCode: 502}),
			wantCode: "NET001",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("fetch: %w", context.DeadlineExceeded),
			wantCode: "NET002",
		},
		{
			name:     "transaction aborted",
			err:      fmt.Errorf("create savepoint: %w: %w", ErrTxAborted, errors.New("conn closed")),
			wantCode: "DB006",
		},
		{
			name:     "pg unique violation",
			err:      fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Message: "boom"}),
			wantCode: "DB001",
		},
		{
			name:     "pg not null",
			err:      &pgconn.PgError{Code: "23502", Message: "null value"},
			wantCode: "DB002",
		},
		{
			name:     "pg data exception",
			err:      &pgconn.PgError{Code: "22003", Message: "numeric field overflow"},
			wantCode: "DB003",
		},
		{
			name:     "pg undefined table",
			err:      &pgconn.PgError{Code: "42P01", Message: `relation "steam_sold" does not exist`},
			wantCode: "DB005",
		},
		{
			name:     "connection refused pattern",
			err:      errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantCode: "DB004",
		},
		{
			name:     "unknown error",
			err:      errors.New("something odd"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned empty message")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(&steam.AuthenticationError{Query: "q"})
	want := "Partner session expired (Code: AUTH001). Refresh the cookie for this run_as identity"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}
