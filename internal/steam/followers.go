package steam

import (
	"strconv"
	"strings"
)

const (
	groupDetailsOpen  = "<groupDetails>"
	groupDetailsClose = "</groupDetails>"
	memberCountOpen   = "<memberCount>"
	memberCountClose  = "</memberCount>"
)

// MemberCount is the result of looking for a follower count in a community payload.
type MemberCount struct {
	Count int64
	Found bool
}

// ExtractMemberCount finds the integer between <memberCount> tags nested in
// <groupDetails>. It is a plain substring search, not an XML parser: anything else in
// the payload is ignored, and any missing tag or non-integer text is NotFound.
func ExtractMemberCount(body string) MemberCount {
	details, ok := between(body, groupDetailsOpen, groupDetailsClose)
	if !ok {
		return MemberCount{}
	}
	raw, ok := between(details, memberCountOpen, memberCountClose)
	if !ok {
		return MemberCount{}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return MemberCount{}
	}
	return MemberCount{Count: n, Found: true}
}

// between returns the text after the first open and before the next close.
func between(s, open, closing string) (string, bool) {
	_, rest, ok := strings.Cut(s, open)
	if !ok {
		return "", false
	}
	inner, _, ok := strings.Cut(rest, closing)
	if !ok {
		return "", false
	}
	return inner, true
}
