package services

import (
	"context"
	"sort"

	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/apperrors"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/models"
)

// fakeRepo mimics the repository contract in memory: placeholder filtering,
// manifest derivation from the first surviving row, index order, and
// unread-first message ordering.
type fakeRepo struct {
	sheets   map[string]models.SheetRows
	messages map[string]*models.Message

	replaceErr error
	fetchErr   error
	queryErr   error

	fetchCalls  int
	queryLimits []int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sheets:   make(map[string]models.SheetRows),
		messages: make(map[string]*models.Message),
	}
}

func (f *fakeRepo) ReplaceSheet(_ context.Context, sheetName string, rows models.SheetRows) (int, error) {
	if f.replaceErr != nil {
		return 0, f.replaceErr
	}

	var kept []map[string]any
	for _, row := range rows.Rows {
		placeholder := false
		for _, v := range row {
			if s, ok := v.(string); ok && s == "/" {
				placeholder = true
				break
			}
		}
		if !placeholder {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return 0, nil
	}

	var manifest []string
	for _, h := range rows.Headers {
		if _, ok := kept[0][h]; ok {
			manifest = append(manifest, h)
		}
	}
	f.sheets[sheetName] = models.SheetRows{Headers: manifest, Rows: kept}
	return len(kept), nil
}

func (f *fakeRepo) FetchAllSheets(_ context.Context, sheetNames []string) (map[string]models.SheetRows, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	result := make(map[string]models.SheetRows, len(sheetNames))
	for _, name := range sheetNames {
		result[name] = f.sheets[name]
	}
	return result, nil
}

func (f *fakeRepo) QueryMessages(_ context.Context, limit int) ([]models.Message, error) {
	f.queryLimits = append(f.queryLimits, limit)
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	msgs := make([]models.Message, 0, len(f.messages))
	for _, m := range f.messages {
		msgs = append(msgs, *m)
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].IsNew != msgs[j].IsNew {
			return msgs[i].IsNew
		}
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeRepo) GetMessageByID(_ context.Context, id string) (*models.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, apperrors.Wrap(nil, apperrors.ErrNotFound, "no such message")
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) SetMessageRead(_ context.Context, id string) error {
	m, ok := f.messages[id]
	if !ok {
		return apperrors.Wrap(nil, apperrors.ErrNotFound, "no such message")
	}
	m.IsNew = false
	return nil
}

func (f *fakeRepo) CreateMessage(_ context.Context, msg *models.Message) error {
	cp := *msg
	f.messages[msg.ID] = &cp
	return nil
}
