package core

// error_messages.go maps technical errors to stable codes and operator-facing
// messages. Codes appear in the run report and on the status page, so they can be
// quoted when a run fails.
//
// # Remote Errors
//
//	AUTH001 - Partner session expired: the report endpoint answered with a login page
//	          Action: Refresh the cookie for the entity's run_as identity
//
//	PAY001  - Follower payload malformed: memberCount not found in groupDetails
//	          Action: Check the app id; the community page may not exist
//
//	PAY002  - Report has no header: fewer than three non-blank lines
//	          Action: Check the entity id and date range
//
//	NET001  - Remote HTTP status: the remote answered with a non-2xx status
//	          Action: Retry later; check the partner site status
//
//	NET002  - Timeout: a request or query did not finish in time
//	          Action: Retry later or raise STEAM_HTTP_TIMEOUT
//
// # Database Errors
//
// Matched on the PostgreSQL SQLSTATE when available, otherwise on message patterns:
//
//	DB001 - Duplicate key (23505)
//	DB002 - Constraint violation (23502 not null, 23514 check, 23503 foreign key)
//	DB003 - Invalid value (class 22, data exception)
//	DB004 - Connection refused or reset
//	DB005 - Table missing (42P01)
//	DB006 - Transaction aborted (savepoint failure)
//
// # Default Error (ERR000)
//
// Fallback when nothing specific matches. Check the logs for the original error.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/steamsync/internal/report"
	"github.com/JonMunkholm/steamsync/internal/steam"
)

// UserMessage provides operator-facing error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for reference
}

var (
	msgAuth = UserMessage{
		Message: "Partner session expired",
		Action:  "Refresh the cookie for this run_as identity",
		Code:    "AUTH001",
	}
	msgMalformed = UserMessage{
		Message: "Follower payload malformed",
		Action:  "Check the app id; the community page may not exist",
		Code:    "PAY001",
	}
	msgNoHeader = UserMessage{
		Message: "Report has no header row",
		Action:  "Check the entity id and date range",
		Code:    "PAY002",
	}
	msgStatus = UserMessage{
		Message: "Remote returned an error status",
		Action:  "Retry later; check the partner site status",
		Code:    "NET001",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out",
		Action:  "Retry later or raise STEAM_HTTP_TIMEOUT",
		Code:    "NET002",
	}
	msgTxAborted = UserMessage{
		Message: "Transaction aborted",
		Action:  "Check database logs; the run was rolled back",
		Code:    "DB006",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively with strings.Contains after the
// typed checks in MapError. The first matching pattern wins.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A row with this key already exists",
			Action:  "Check for a unique index on the table",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates",
		msg: UserMessage{
			Message: "Row violates a table constraint",
			Action:  "Compare the report columns with schema.sql",
			Code:    "DB002",
		},
	},
	{
		pattern: "invalid input syntax",
		msg: UserMessage{
			Message: "Value does not fit the column type",
			Action:  "Compare the report columns with schema.sql",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "Table is missing",
			Action:  "Create the tables from internal/database/schema.sql",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg:     msgTimeout,
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-facing message.
// Typed errors are checked first, then SQLSTATE codes, then message patterns.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case steam.IsAuthentication(err):
		return msgAuth
	case errors.Is(err, steam.ErrMalformedPayload):
		return msgMalformed
	case errors.Is(err, report.ErrNoHeader):
		return msgNoHeader
	case errors.Is(err, ErrTxAborted):
		return msgTxAborted
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	}

	var statusErr *steam.StatusError
	if errors.As(err, &statusErr) {
		return msgStatus
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := mapSQLState(pgErr.Code); ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// mapSQLState maps a PostgreSQL SQLSTATE to a message through the pattern table,
// so both paths share one set of messages.
func mapSQLState(code string) (UserMessage, bool) {
	var pattern string
	switch {
	case code == "23505":
		pattern = "duplicate key"
	case code == "23502", code == "23503", code == "23514":
		pattern = "violates"
	case strings.HasPrefix(code, "22"):
		pattern = "invalid input syntax"
	case code == "42P01":
		pattern = "does not exist"
	default:
		return UserMessage{}, false
	}
	for _, ep := range errorPatterns {
		if ep.pattern == pattern {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// ClassifyError returns the code for err, or "" for nil.
func ClassifyError(err error) string {
	return MapError(err).Code
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
