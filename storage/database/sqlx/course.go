package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
)

type courseRepository struct {
	repo
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{repo{db: db}}
}

func (r *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `INSERT INTO courses (id, title, description, difficulty_level, created_by, created_at, updated_at)
		VALUES (:id, :title, :description, :difficulty_level, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, c); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (r *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var c course.Course
	q := `SELECT id, title, description, difficulty_level, created_by, created_at, updated_at FROM courses WHERE id = $1`
	if err := r.exec(ctx).GetContext(ctx, &c, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return c, nil
}

func (r *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	q := `INSERT INTO enrollments (id, student_id, course_id, status, progress, created_at)
		VALUES (:id, :student_id, :course_id, :status, :progress, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, e); err != nil {
		if uniqueConstraint(err) == "enrollments_student_course_key" {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (r *courseRepository) GetEnrollment(ctx context.Context, studentID, courseID string) (course.Enrollment, error) {
	if !validID(studentID) || !validID(courseID) {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	var e course.Enrollment
	q := `SELECT id, student_id, course_id, status, progress, created_at FROM enrollments
		WHERE student_id = $1 AND course_id = $2`
	if err := r.exec(ctx).GetContext(ctx, &e, q, studentID, courseID); err != nil {
		return course.Enrollment{}, trapNoRowsErr(err, course.ErrEnrollmentNotFound, "getting enrollment")
	}
	return e, nil
}
