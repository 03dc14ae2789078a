// Package memo keeps the operator memo board: notes shown between a start
// and an end date.
package memo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/tenken/internal/constants"
	apperr "github.com/julianstephens/tenken/internal/errors"
	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/utils"
)

type Board struct {
	store recordstore.Store
}

func New(store recordstore.Store) *Board {
	return &Board{store: store}
}

// Add validates and stores a memo under the id derived from its dates. A
// memo with the same range is replaced.
func (b *Board) Add(ctx context.Context, text, start, end string) (models.Memo, error) {
	m := models.Memo{
		Text:      strings.TrimSpace(text),
		StartDate: strings.TrimSpace(start),
		EndDate:   strings.TrimSpace(end),
	}
	if m.Text == "" {
		return models.Memo{}, &apperr.MissingFieldError{Field: models.FieldMemo}
	}
	if m.StartDate == "" {
		return models.Memo{}, &apperr.MissingFieldError{Field: models.FieldStartDate}
	}
	if m.EndDate == "" {
		return models.Memo{}, &apperr.MissingFieldError{Field: models.FieldEndDate}
	}
	if !utils.ValidateDate(m.StartDate) {
		return models.Memo{}, &apperr.InvalidFieldError{Field: models.FieldStartDate, Value: m.StartDate}
	}
	if !utils.ValidateDate(m.EndDate) || m.EndDate < m.StartDate {
		return models.Memo{}, &apperr.InvalidFieldError{Field: models.FieldEndDate, Value: m.EndDate}
	}

	m.ID = models.MemoID(m.StartDate, m.EndDate)
	if err := b.store.Set(ctx, constants.MemoCollection, m.ID, m.Document(), false); err != nil {
		return models.Memo{}, fmt.Errorf("add memo: %w: %w", apperr.ErrStoreUnavailable, err)
	}
	logger.Info("Memo added", "id", m.ID)
	return m, nil
}

// List returns every memo ordered by start date, then end date.
func (b *Board) List(ctx context.Context) ([]models.Memo, error) {
	records, err := b.store.List(ctx, constants.MemoCollection)
	if err != nil {
		return nil, fmt.Errorf("list memos: %w: %w", apperr.ErrStoreUnavailable, err)
	}
	memos := make([]models.Memo, 0, len(records))
	for _, r := range records {
		memos = append(memos, models.MemoFromDocument(r.ID, r.Fields))
	}
	sort.SliceStable(memos, func(i, j int) bool {
		if memos[i].StartDate != memos[j].StartDate {
			return memos[i].StartDate < memos[j].StartDate
		}
		return memos[i].EndDate < memos[j].EndDate
	})
	return memos, nil
}

// Active returns the memos covering day.
func (b *Board) Active(ctx context.Context, day string) ([]models.Memo, error) {
	return b.filter(ctx, func(m models.Memo) bool { return m.ActiveOn(day) })
}

// Upcoming returns the memos starting after day.
func (b *Board) Upcoming(ctx context.Context, day string) ([]models.Memo, error) {
	return b.filter(ctx, func(m models.Memo) bool { return m.StartDate > day })
}

func (b *Board) filter(ctx context.Context, keep func(models.Memo) bool) ([]models.Memo, error) {
	all, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Memo
	for _, m := range all {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Delete removes a memo once confirm accepts it. A nil confirm deletes
// without asking.
func (b *Board) Delete(ctx context.Context, id string, confirm func(models.Memo) bool) (bool, error) {
	doc, err := b.store.Get(ctx, constants.MemoCollection, id)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return false, fmt.Errorf("memo %s: %w", id, recordstore.ErrNotFound)
		}
		return false, fmt.Errorf("delete memo: %w: %w", apperr.ErrStoreUnavailable, err)
	}
	if confirm != nil && !confirm(models.MemoFromDocument(id, doc)) {
		return false, nil
	}
	if err := b.store.Delete(ctx, constants.MemoCollection, id); err != nil {
		return false, fmt.Errorf("delete memo: %w: %w", apperr.ErrStoreUnavailable, err)
	}
	logger.Info("Memo deleted", "id", id)
	return true, nil
}
