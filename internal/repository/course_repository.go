package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sepandmal/karname-api/internal/models"
)

// CourseRepository handles course and course-teacher assignment reads.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListByClass returns the courses taught to one class.
func (r *CourseRepository) ListByClass(ctx context.Context, classID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.name, c.credit_weight
        FROM courses c
        JOIN class_courses cc ON cc.course_id = c.id
        WHERE cc.class_id = $1
        ORDER BY c.name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, classID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// CourseTeachers returns the teacher IDs assigned to each of the given
// courses, in assignment order.
func (r *CourseRepository) CourseTeachers(ctx context.Context, courseIDs []string) (map[string][]string, error) {
	assignments := make(map[string][]string, len(courseIDs))
	if len(courseIDs) == 0 {
		return assignments, nil
	}
	query, args, err := sqlx.In(`SELECT course_id, teacher_id
        FROM course_teachers
        WHERE course_id IN (?)
        ORDER BY assigned_at ASC`, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("build course teachers query: %w", err)
	}
	query = r.db.Rebind(query)
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list course teachers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var courseID, teacherID string
		if err := rows.Scan(&courseID, &teacherID); err != nil {
			return nil, fmt.Errorf("scan course teacher: %w", err)
		}
		assignments[courseID] = append(assignments[courseID], teacherID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course teachers: %w", err)
	}
	return assignments, nil
}
