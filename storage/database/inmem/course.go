package inmemdb

import (
	"context"

	"github.com/trezcool/elimu/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	defer repo.db.lock(ctx)()
	repo.db.courses[c.ID] = c
	return c, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	defer repo.db.lock(ctx)()
	if c, ok := repo.db.courses[id]; ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.courses[e.CourseID]; !ok {
		return course.Enrollment{}, course.ErrNotFound
	}
	for _, existing := range repo.db.enrollments {
		if existing.StudentID == e.StudentID && existing.CourseID == e.CourseID {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
	}
	repo.db.enrollments[e.ID] = e
	return e, nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, studentID, courseID string) (course.Enrollment, error) {
	defer repo.db.lock(ctx)()
	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e, nil
		}
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}
