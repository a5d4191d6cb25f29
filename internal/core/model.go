package core

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	// MinutesSavedPerUnsubscribe is the estimate used for the time-saved stat
	MinutesSavedPerUnsubscribe = 2

	// MaxActivityRecords bounds the per-user activity log
	MaxActivityRecords = 50

	// DefaultLabelName is the Gmail label applied to processed messages
	DefaultLabelName = "UNSUBSCRIBED"

	// DefaultSearchQuery matches typical subscription mail
	DefaultSearchQuery = `"unsubscribe" OR "email preferences" OR "opt-out" OR "subscription preferences"`

	// DefaultMaxEmails bounds a single batch run
	DefaultMaxEmails = 50
)

// Message is one mailbox item as returned by the mailbox adapter.
// The payload mirrors the Gmail wire shape so the core never depends on
// the Google SDK directly.
type Message struct {
	ID      string
	Payload *MessagePart
}

// MessagePart is a node in the MIME part tree. A part with children is a
// multipart container; a part without children is a leaf carrying content.
type MessagePart struct {
	MimeType string
	Headers  []Header
	Body     *MessagePartBody
	Parts    []*MessagePart
}

// Header is a single message header
type Header struct {
	Name  string
	Value string
}

// MessagePartBody carries base64url-encoded content bytes
type MessagePartBody struct {
	Data string
}

// SenderMetadata is parsed from message headers. Every field defaults to
// the empty string on parse failure; no field is ever absent.
type SenderMetadata struct {
	Sender      string `json:"sender"`
	SenderName  string `json:"sender_name"`
	SenderEmail string `json:"sender_email"`
	Domain      string `json:"domain"`
	Subject     string `json:"subject"`
	Date        string `json:"date"`
}

// ExtractedContent is the result of content extraction for one message
type ExtractedContent struct {
	Body     string
	Metadata SenderMetadata
}

// OutcomeKind classifies the result of processing one message
type OutcomeKind int

const (
	OutcomeUnsubscribed OutcomeKind = iota
	OutcomeNoLinksFound
	OutcomeNoContentFound
	OutcomeExecutionFailed
	OutcomeUnexpectedError
)

// String returns a stable name for the outcome kind
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeUnsubscribed:
		return "unsubscribed"
	case OutcomeNoLinksFound:
		return "no_links_found"
	case OutcomeNoContentFound:
		return "no_content_found"
	case OutcomeExecutionFailed:
		return "execution_failed"
	default:
		return "unexpected_error"
	}
}

// Outcome is the per-message processing result
type Outcome struct {
	Kind     OutcomeKind
	Metadata SenderMetadata
}

// ActivityType classifies an activity record for display
type ActivityType string

const (
	ActivityInfo    ActivityType = "info"
	ActivityWarning ActivityType = "warning"
	ActivitySuccess ActivityType = "success"
	ActivityError   ActivityType = "error"
)

// ActivityRecord is one entry in a user's activity log
type ActivityRecord struct {
	Type     ActivityType      `json:"type"`
	Message  string            `json:"message"`
	Time     string            `json:"time"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewActivity creates an activity record stamped with the current time
func NewActivity(activityType ActivityType, message string) ActivityRecord {
	return ActivityRecord{
		Type:    activityType,
		Message: message,
		Time:    time.Now().Format(time.RFC3339),
	}
}

// DomainStat aggregates successful unsubscribes for one sender domain.
// The set of sender emails is kept as a set internally and rendered as a
// sorted list at the JSON boundary.
type DomainStat struct {
	Count      int
	SenderName string
	emails     map[string]struct{}
}

// NewDomainStat creates an empty stat for a domain
func NewDomainStat(senderName string) *DomainStat {
	return &DomainStat{
		SenderName: senderName,
		emails:     make(map[string]struct{}),
	}
}

// AddEmail records a sender email for the domain. Adding the same email
// twice does not grow the set.
func (d *DomainStat) AddEmail(email string) {
	if email == "" {
		return
	}
	if d.emails == nil {
		d.emails = make(map[string]struct{})
	}
	d.emails[email] = struct{}{}
}

// Emails returns the distinct sender emails for the domain, sorted
func (d *DomainStat) Emails() []string {
	out := make([]string, 0, len(d.emails))
	for e := range d.emails {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

type domainStatJSON struct {
	Count      int      `json:"count"`
	SenderName string   `json:"sender_name"`
	Emails     []string `json:"emails"`
}

// MarshalJSON renders the email set as a sorted list
func (d *DomainStat) MarshalJSON() ([]byte, error) {
	return json.Marshal(domainStatJSON{
		Count:      d.Count,
		SenderName: d.SenderName,
		Emails:     d.Emails(),
	})
}

// UnmarshalJSON rebuilds the email set from a persisted list
func (d *DomainStat) UnmarshalJSON(data []byte) error {
	var raw domainStatJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Count = raw.Count
	d.SenderName = raw.SenderName
	d.emails = make(map[string]struct{}, len(raw.Emails))
	for _, e := range raw.Emails {
		d.emails[e] = struct{}{}
	}
	return nil
}

// UserStats holds the durable per-user counters. Mutated additively by
// batch runs; never reset.
type UserStats struct {
	TotalScanned      int                    `json:"total_scanned"`
	TotalUnsubscribed int                    `json:"total_unsubscribed"`
	TimeSaved         int                    `json:"time_saved"`
	Domains           map[string]*DomainStat `json:"domains_unsubscribed"`
}

// NewUserStats creates an empty stats record
func NewUserStats() *UserStats {
	return &UserStats{
		Domains: make(map[string]*DomainStat),
	}
}

// BatchSummary reports the result of one batch run
type BatchSummary struct {
	Scanned      int
	Unsubscribed int
	Failed       int
	TimeSaved    int
}
