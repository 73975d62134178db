package inmemdb

import (
	"context"
	"maps"
	"sync"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/assessment"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/notification"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/sponsorship"
	"github.com/trezcool/elimu/core/user"
)

type txKey struct{}

type tables struct {
	users           map[string]user.User
	courses         map[string]course.Course
	enrollments     map[string]course.Enrollment
	sponsors        map[string]sponsorship.Sponsor
	sponsorships    map[string]sponsorship.Sponsorship
	quizzes         map[string]quiz.Quiz
	quizSubmissions map[string]quiz.Submission
	assessments     map[string]assessment.Assessment
	submissions     map[string]assessment.Submission
	notifications   map[string]notification.Notification
	emailLogs       map[string]notification.EmailLog
}

func newTables() tables {
	return tables{
		users:           make(map[string]user.User),
		courses:         make(map[string]course.Course),
		enrollments:     make(map[string]course.Enrollment),
		sponsors:        make(map[string]sponsorship.Sponsor),
		sponsorships:    make(map[string]sponsorship.Sponsorship),
		quizzes:         make(map[string]quiz.Quiz),
		quizSubmissions: make(map[string]quiz.Submission),
		assessments:     make(map[string]assessment.Assessment),
		submissions:     make(map[string]assessment.Submission),
		notifications:   make(map[string]notification.Notification),
		emailLogs:       make(map[string]notification.EmailLog),
	}
}

// clone copies every table. Stored values are never mutated in place, so a shallow copy is enough.
func (t tables) clone() tables {
	return tables{
		users:           maps.Clone(t.users),
		courses:         maps.Clone(t.courses),
		enrollments:     maps.Clone(t.enrollments),
		sponsors:        maps.Clone(t.sponsors),
		sponsorships:    maps.Clone(t.sponsorships),
		quizzes:         maps.Clone(t.quizzes),
		quizSubmissions: maps.Clone(t.quizSubmissions),
		assessments:     maps.Clone(t.assessments),
		submissions:     maps.Clone(t.submissions),
		notifications:   maps.Clone(t.notifications),
		emailLogs:       maps.Clone(t.emailLogs),
	}
}

// DB is an in-memory store behind a single lock. Transactions hold the lock for their whole duration
// and are rolled back by restoring a snapshot.
type DB struct {
	mu sync.Mutex
	tables
}

var _ core.Transactor = (*DB)(nil)

func NewDB() *DB {
	return &DB{tables: newTables()}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = newTables()
}

func (db *DB) inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) == db
}

// lock acquires the store unless ctx already runs inside one of its transactions.
func (db *DB) lock(ctx context.Context) func() {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.inTx(ctx) {
		return fn(ctx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.tables.clone()
	if err := fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		db.tables = snapshot
		return err
	}
	return nil
}
