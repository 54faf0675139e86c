// Package audit records signed audit events for every mutating call made
// against the licensing API and publishes them to a message bus.
package audit

import (
	"net/url"
	"strings"
	"time"
)

// Event is one audited API call.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	AccountID  string    `json:"account_id,omitempty"`
	Method     string    `json:"method"`
	Endpoint   string    `json:"endpoint"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Action     string    `json:"action,omitempty"`
	Status     int       `json:"status"`
	Attempts   int       `json:"attempts"`
	RequestID  string    `json:"request_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	Signature  string    `json:"signature,omitempty"`
}

// target splits an endpoint into resource, id and action:
//
//	licenses/abc/actions/suspend -> licenses, abc, suspend
//	/accounts/acct/users/u1      -> users, u1, ""
func target(endpoint string) (resource, id, action string) {
	path := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		path = u.Path
	}
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })

	for i, seg := range segments {
		if seg == "accounts" && i+1 < len(segments) {
			segments = segments[i+2:]
			break
		}
	}
	if len(segments) == 0 {
		return "unknown", "", ""
	}

	resource = segments[0]
	if len(segments) > 1 {
		id = segments[1]
	}
	if len(segments) > 3 && segments[2] == "actions" {
		action = segments[3]
	}
	return resource, id, action
}

// subjectToken makes s safe as a single NATS subject token.
func subjectToken(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "unknown"
	}
	return s
}
