package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sepandmal/karname-api/internal/models"
)

// Assessment weight table scopes, lowest to highest precedence.
const (
	WeightScopeSchoolDefault  = "school_default"
	WeightScopeGlobalOverride = "global_override"
	WeightScopeTeacher        = "teacher"
)

// WeightTableRepository reads assessment weight tables. Each row stores one
// label→weight map as JSONB, keyed by scope and, for teacher rows, teacher ID.
type WeightTableRepository struct {
	db *sqlx.DB
}

// NewWeightTableRepository creates a new weight table repository.
func NewWeightTableRepository(db *sqlx.DB) *WeightTableRepository {
	return &WeightTableRepository{db: db}
}

type weightRow struct {
	Scope     string          `db:"scope"`
	TeacherID sql.NullString  `db:"teacher_id"`
	Weights   json.RawMessage `db:"weights"`
}

// LoadSources returns every stored weight table grouped by precedence layer.
// Absent layers come back as nil maps; precedence merging happens downstream.
func (r *WeightTableRepository) LoadSources(ctx context.Context) (models.WeightTableSources, error) {
	const query = `SELECT scope, teacher_id, weights
        FROM assessment_weight_tables
        ORDER BY scope ASC, teacher_id ASC`
	var rows []weightRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return models.WeightTableSources{}, fmt.Errorf("list weight tables: %w", err)
	}

	var sources models.WeightTableSources
	for _, row := range rows {
		var table models.AssessmentWeightTable
		if err := json.Unmarshal(row.Weights, &table); err != nil {
			return models.WeightTableSources{}, fmt.Errorf("unmarshal %s weight table: %w", row.Scope, err)
		}
		switch row.Scope {
		case WeightScopeSchoolDefault:
			sources.SchoolDefault = table
		case WeightScopeGlobalOverride:
			sources.GlobalOverride = table
		case WeightScopeTeacher:
			if !row.TeacherID.Valid || row.TeacherID.String == "" {
				return models.WeightTableSources{}, errors.New("teacher weight table row missing teacher_id")
			}
			if sources.TeacherOverrides == nil {
				sources.TeacherOverrides = make(map[string]models.AssessmentWeightTable)
			}
			sources.TeacherOverrides[row.TeacherID.String] = table
		default:
			return models.WeightTableSources{}, fmt.Errorf("unknown weight table scope %q", row.Scope)
		}
	}
	return sources, nil
}
