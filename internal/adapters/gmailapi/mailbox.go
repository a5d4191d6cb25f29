// Package gmailapi adapts the Gmail REST API to the core mailbox port.
package gmailapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmarfinetz/gmail-unsubscriber/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

// gmailUser addresses the authenticated account
const gmailUser = "me"

// Mailbox is a core.Mailbox implementation backed by the Gmail API
type Mailbox struct {
	svc    *gmail.Service
	logger *zap.Logger
}

// NewMailbox creates a mailbox over an authenticated Gmail service
func NewMailbox(svc *gmail.Service, logger *zap.Logger) *Mailbox {
	return &Mailbox{
		svc:    svc,
		logger: logger,
	}
}

// Search returns up to limit message ids matching the query
func (m *Mailbox) Search(ctx context.Context, query string, limit int) ([]string, error) {
	resp, err := m.svc.Users.Messages.List(gmailUser).
		Q(query).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError("list messages", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	m.logger.Info("Mailbox search completed",
		zap.String("query", query),
		zap.Int("matches", len(ids)))
	return ids, nil
}

// GetMessage retrieves the full message and maps it to the core model
func (m *Mailbox) GetMessage(ctx context.Context, id string) (*core.Message, error) {
	msg, err := m.svc.Users.Messages.Get(gmailUser, id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError("get message", err)
	}
	return &core.Message{
		ID:      msg.Id,
		Payload: convertPart(msg.Payload),
	}, nil
}

// EnsureLabel returns the id of the named label, creating it if missing
func (m *Mailbox) EnsureLabel(ctx context.Context, name string) (string, error) {
	resp, err := m.svc.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError("list labels", err)
	}
	for _, label := range resp.Labels {
		if label.Name == name {
			m.logger.Debug("Label already exists", zap.String("label", name))
			return label.Id, nil
		}
	}

	created, err := m.svc.Users.Labels.Create(gmailUser, &gmail.Label{
		Name:                  name,
		MessageListVisibility: "show",
		LabelListVisibility:   "labelShow",
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError("create label", err)
	}
	m.logger.Info("Created label",
		zap.String("label", name),
		zap.String("label_id", created.Id))
	return created.Id, nil
}

// ModifyLabels adds and removes labels on a message
func (m *Mailbox) ModifyLabels(ctx context.Context, id string, add, remove []string) error {
	_, err := m.svc.Users.Messages.Modify(gmailUser, id, &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Context(ctx).Do()
	if err != nil {
		return wrapAPIError("modify labels", err)
	}
	return nil
}

// convertPart maps the Gmail part tree onto the core model
func convertPart(part *gmail.MessagePart) *core.MessagePart {
	if part == nil {
		return nil
	}
	out := &core.MessagePart{
		MimeType: part.MimeType,
	}
	for _, h := range part.Headers {
		out.Headers = append(out.Headers, core.Header{Name: h.Name, Value: h.Value})
	}
	if part.Body != nil {
		out.Body = &core.MessagePartBody{Data: part.Body.Data}
	}
	for _, sub := range part.Parts {
		out.Parts = append(out.Parts, convertPart(sub))
	}
	return out
}

// wrapAPIError classifies authentication-class API errors so the
// orchestrator can abort on them instead of isolating the message
func wrapAPIError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 401 {
		return fmt.Errorf("%s: %w", op, core.ErrAuthExpired)
	}
	return fmt.Errorf("%s: %w", op, err)
}
