package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sepandmal/karname-api/internal/models"
)

// SessionRepository handles class session record persistence. Grades and
// assessments are stored as JSONB documents alongside the session row.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type sessionRow struct {
	ID          string          `db:"id"`
	StudentID   string          `db:"student_id"`
	TeacherID   string          `db:"teacher_id"`
	CourseID    string          `db:"course_id"`
	SessionDate time.Time       `db:"session_date"`
	Grades      json.RawMessage `db:"grades"`
	Assessments json.RawMessage `db:"assessments"`
}

// ListBetween returns all session records dated inside [from, to) for the
// students of one class. The window is Gregorian; callers pass a range wide
// enough to cover the local school year they care about.
func (r *SessionRepository) ListBetween(ctx context.Context, classID string, from, to time.Time) ([]models.SessionRecord, error) {
	const query = `SELECT sr.id, sr.student_id, sr.teacher_id, sr.course_id, sr.session_date, sr.grades, sr.assessments
        FROM session_records sr
        JOIN students s ON s.id = sr.student_id
        WHERE s.class_id = $1 AND sr.session_date >= $2 AND sr.session_date < $3
        ORDER BY sr.session_date ASC`
	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	records := make([]models.SessionRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (row sessionRow) toModel() (models.SessionRecord, error) {
	record := models.SessionRecord{
		ID:        row.ID,
		StudentID: row.StudentID,
		TeacherID: row.TeacherID,
		CourseID:  row.CourseID,
		Date:      row.SessionDate,
	}
	if len(row.Grades) > 0 {
		if err := json.Unmarshal(row.Grades, &record.Grades); err != nil {
			return models.SessionRecord{}, fmt.Errorf("unmarshal grades for session %s: %w", row.ID, err)
		}
	}
	if len(row.Assessments) > 0 {
		if err := json.Unmarshal(row.Assessments, &record.Assessments); err != nil {
			return models.SessionRecord{}, fmt.Errorf("unmarshal assessments for session %s: %w", row.ID, err)
		}
	}
	record.Normalize()
	return record, nil
}
