package engine

import (
	"github.com/sepandmal/karname-api/internal/models"
)

const (
	minPageLimit = 1
	maxPageLimit = 100
)

// Paginate slices one window out of the full ranked list. Limit is clamped to
// [1,100] and offset to ≥0; the reported metadata reflects the clamped values.
func Paginate(ranked []models.RankEntry, offset, limit int) models.RankedPage {
	if limit < minPageLimit {
		limit = minPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	total := len(ranked)
	page := make([]models.RankEntry, 0, limit)
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = append(page, ranked[offset:end]...)
	}

	return models.RankedPage{
		Entries: page,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		HasMore: offset+limit < total,
	}
}
