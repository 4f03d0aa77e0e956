package services

import (
	"context"
	"strings"

	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/apperrors"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/models"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/repositories"
)

// Inbox serves the paginated contact-message inbox. The backing store offers
// ordered-query-with-limit but no count, so page totals are derived by
// over-fetching a single extra record.
type Inbox struct {
	repo repositories.Repository
}

// NewInbox returns an Inbox over the given repository
func NewInbox(repo repositories.Repository) *Inbox {
	return &Inbox{repo: repo}
}

// GetPage returns page number page (1-based) of the inbox, ordered
// unread-first then newest-first. It fetches page*pageSize+1 records and
// slices out the requested window; whether the extra record came back tells
// it a further page exists.
//
// Total is an estimate, not a true count: page*pageSize+1 while more pages
// exist, and the exact number of fetched records once the fetch came up
// short (at which point everything is known). It only grows as the user
// pages forward and is recomputed fresh on every call.
func (ib *Inbox) GetPage(ctx context.Context, page, pageSize int) (*models.MessagesPage, error) {
	if page < 1 || pageSize < 1 {
		return nil, apperrors.Wrap(nil, apperrors.ErrInvalidInput, "page and pageSize must be positive")
	}

	fetchLimit := page*pageSize + 1
	msgs, err := ib.repo.QueryMessages(ctx, fetchLimit)
	if err != nil {
		return nil, err
	}

	hasMore := len(msgs) > page*pageSize

	start := (page - 1) * pageSize
	end := page * pageSize
	if start > len(msgs) {
		start = len(msgs)
	}
	if end > len(msgs) {
		end = len(msgs)
	}

	total := len(msgs) // fetch came up short: the exact count is known
	if hasMore {
		total = page*pageSize + 1
	}

	return &models.MessagesPage{
		Items: msgs[start:end],
		Total: total,
	}, nil
}

// Read fetches one message and unconditionally marks it read, the side
// effect of opening the detail view. The returned message reflects the state
// at fetch time, so a first read still shows IsNew true.
func (ib *Inbox) Read(ctx context.Context, id string) (*models.Message, error) {
	msg, err := ib.repo.GetMessageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ib.repo.SetMessageRead(ctx, id); err != nil {
		return nil, err
	}
	return msg, nil
}

// Submit validates and stores a new inbound contact message
func (ib *Inbox) Submit(ctx context.Context, msg *models.Message) error {
	if strings.TrimSpace(msg.Email) == "" || strings.TrimSpace(msg.Message) == "" {
		return apperrors.Wrap(nil, apperrors.ErrInvalidInput, "email and message are required")
	}
	return ib.repo.CreateMessage(ctx, msg)
}
