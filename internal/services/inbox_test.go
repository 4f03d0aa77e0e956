package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/apperrors"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/models"
)

// seedMessages stores n messages, each a minute apart, all unread
func seedMessages(repo *fakeRepo, n int) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("msg-%02d", i)
		repo.messages[id] = &models.Message{
			ID:        id,
			Subject:   fmt.Sprintf("Quote request %d", i),
			Name:      "Operator",
			Email:     "ops@example.com",
			Message:   "Please quote Haiphong to Singapore.",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			IsNew:     true,
		}
	}
}

func TestInbox_GetPage_EmptyStore(t *testing.T) {
	inbox := NewInbox(newFakeRepo())

	page, err := inbox.GetPage(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Equal(t, 0, page.Total)
}

func TestInbox_GetPage_OverfetchesOneExtraRecord(t *testing.T) {
	repo := newFakeRepo()
	seedMessages(repo, 25)
	inbox := NewInbox(repo)

	_, err := inbox.GetPage(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Equal(t, []int{21}, repo.queryLimits)
}

func TestInbox_GetPage_BoundaryExactlyOnePage(t *testing.T) {
	repo := newFakeRepo()
	seedMessages(repo, 10)
	inbox := NewInbox(repo)

	page, err := inbox.GetPage(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 10)
	// No phantom next page: the estimate is the exact count
	require.Equal(t, 10, page.Total)
}

func TestInbox_GetPage_EstimateGrowsWhileMorePagesExist(t *testing.T) {
	repo := newFakeRepo()
	seedMessages(repo, 25)
	inbox := NewInbox(repo)

	page1, err := inbox.GetPage(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page1.Items, 10)
	require.Equal(t, 11, page1.Total)

	page2, err := inbox.GetPage(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, page2.Items, 10)
	require.Equal(t, 21, page2.Total)

	page3, err := inbox.GetPage(context.Background(), 3, 10)
	require.NoError(t, err)
	require.Len(t, page3.Items, 5)
	require.Equal(t, 25, page3.Total)
}

func TestInbox_GetPage_NoRepeatsAcrossPagesAndOrderNonIncreasing(t *testing.T) {
	repo := newFakeRepo()
	seedMessages(repo, 25)
	// A few already-read messages must sort after every unread one
	repo.messages["msg-20"].IsNew = false
	repo.messages["msg-24"].IsNew = false
	inbox := NewInbox(repo)

	seen := make(map[string]bool)
	var all []models.Message
	for p := 1; p <= 3; p++ {
		page, err := inbox.GetPage(context.Background(), p, 10)
		require.NoError(t, err)
		for _, m := range page.Items {
			require.False(t, seen[m.ID], "message %s repeated on page %d", m.ID, p)
			seen[m.ID] = true
			all = append(all, m)
		}
	}
	require.Len(t, all, 25)

	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.IsNew == cur.IsNew {
			require.False(t, cur.CreatedAt.After(prev.CreatedAt),
				"createdAt went up within the same isNew group at index %d", i)
		} else {
			require.True(t, prev.IsNew, "a read message sorted before an unread one at index %d", i)
		}
	}
}

func TestInbox_GetPage_BeyondLastPage(t *testing.T) {
	repo := newFakeRepo()
	seedMessages(repo, 12)
	inbox := NewInbox(repo)

	page, err := inbox.GetPage(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Equal(t, 12, page.Total)
}

func TestInbox_GetPage_InvalidInput(t *testing.T) {
	inbox := NewInbox(newFakeRepo())

	_, err := inbox.GetPage(context.Background(), 0, 10)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	_, err = inbox.GetPage(context.Background(), 1, 0)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestInbox_Read_MarksMessageReadExactlyOnce(t *testing.T) {
	repo := newFakeRepo()
	seedMessages(repo, 1)
	inbox := NewInbox(repo)

	first, err := inbox.Read(context.Background(), "msg-00")
	require.NoError(t, err)
	require.True(t, first.IsNew, "first open shows the message as it was fetched")

	second, err := inbox.Read(context.Background(), "msg-00")
	require.NoError(t, err)
	require.False(t, second.IsNew)
}

func TestInbox_Read_NotFound(t *testing.T) {
	inbox := NewInbox(newFakeRepo())

	_, err := inbox.Read(context.Background(), "missing")
	require.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestInbox_Submit_RequiresEmailAndMessage(t *testing.T) {
	inbox := NewInbox(newFakeRepo())

	err := inbox.Submit(context.Background(), &models.Message{Email: " ", Message: "hello"})
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	err = inbox.Submit(context.Background(), &models.Message{
		ID: "m1", Email: "a@b.c", Message: "hello", Subject: "hi", Name: "A",
	})
	require.NoError(t, err)
}
