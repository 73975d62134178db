package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trezcool/elimu/apps/shared"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/assessment"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/notification"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/sponsorship"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	inmemdb "github.com/trezcool/elimu/storage/database/inmem"
)

// App wires every service over a fresh store. DB is nil unless the store is in memory.
type App struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Mailer     *emailsvc.ConsoleService

	Tx               core.Transactor
	UserRepo         user.Repository
	CourseRepo       course.Repository
	SponsorshipRepo  sponsorship.Repository
	QuizRepo         quiz.Repository
	AssessmentRepo   assessment.Repository
	NotificationRepo notification.Repository

	Users         *user.Service
	Courses       *course.Service
	Ledger        *sponsorship.Ledger
	Quizzes       *quiz.Service
	Assessments   *assessment.Service
	Notifications *notification.Dispatcher
}

func NewConfig(t *testing.T) *core.Config {
	conf, err := core.LoadConfig("TEST")
	if err != nil {
		t.Fatalf("NewConfig() failed: %v", err)
	}
	return conf
}

func NewValidator() (*validator.Validate, ut.Translator) {
	return shared.NewValidator()
}

// NewApp returns an in-memory App recording metrics to metrics (core.NopMetrics when nil).
func NewApp(t *testing.T, metrics core.Metrics) *App {
	db := inmemdb.NewDB()
	app := newApp(NewConfig(t), shared.NewInMemStore(db), metrics)
	app.DB = db
	return app
}

// NewPostgresApp returns an App over the TEST Postgres database, emptied first.
// It skips t unless TEST_DATABASE_ENGINE=postgres. Packages share the database: run them with `go test -p 1`.
func NewPostgresApp(t *testing.T, metrics core.Metrics) *App {
	conf := NewConfig(t)
	if conf.Database.Engine != core.EnginePostgres {
		t.Skip("set TEST_DATABASE_ENGINE=postgres to run against Postgres")
	}
	ctx := context.Background()

	store, err := shared.OpenStore(ctx, conf)
	if err != nil {
		t.Fatalf("NewPostgresApp() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("NewPostgresApp() failed: %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err = db.ExecContext(ctx, truncateAll); err != nil {
		t.Fatalf("NewPostgresApp() failed: emptying database: %v", err)
	}
	return newApp(conf, store, metrics)
}

const truncateAll = `TRUNCATE TABLE users, courses, enrollments, sponsors, sponsorships, quizzes, questions, answers,
	quiz_submissions, student_answers, assessments, submissions, notifications, email_logs CASCADE`

// Engine builds an App over one storage engine.
type Engine struct {
	Name string
	New  func(t *testing.T, metrics core.Metrics) *App
}

// Engines lists the storage engines the storage-sensitive tests run against.
func Engines() []Engine {
	return []Engine{
		{Name: core.EngineInMem, New: NewApp},
		{Name: core.EnginePostgres, New: NewPostgresApp},
	}
}

func newApp(conf *core.Config, store shared.Store, metrics core.Metrics) *App {
	validate, translator := NewValidator()
	logger := logsvc.NopLogger{}
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)

	svcs := shared.NewServices(store, shared.ServiceDeps{
		Mailer:   mailer,
		Logger:   logger,
		Metrics:  metrics,
		Validate: validate,
	})
	return &App{
		Conf:       conf,
		Validate:   validate,
		Translator: translator,
		Mailer:     mailer,

		Tx:               store.Tx,
		UserRepo:         store.Users,
		CourseRepo:       store.Courses,
		SponsorshipRepo:  store.Sponsorships,
		QuizRepo:         store.Quizzes,
		AssessmentRepo:   store.Assessments,
		NotificationRepo: store.Notifications,

		Users:         svcs.Users,
		Courses:       svcs.Courses,
		Ledger:        svcs.Ledger,
		Quizzes:       svcs.Quizzes,
		Assessments:   svcs.Assessments,
		Notifications: svcs.Notifications,
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateMember is CreateUser for an active member of group, named after uname.
func (app *App) CreateMember(t *testing.T, uname, group string) user.User {
	return CreateUser(t, app.UserRepo, uname, uname, uname+"@test.cd", "", []string{group}, true)
}

// CreateSponsor opens a sponsor account holding funds for usr.
func (app *App) CreateSponsor(t *testing.T, usr user.User, company, funds string) sponsorship.Sponsor {
	s, err := app.SponsorshipRepo.CreateSponsor(context.Background(), sponsorship.Sponsor{
		ID:            uuid.NewString(),
		UserID:        usr.ID,
		CompanyName:   company,
		FundsProvided: decimal.RequireFromString(funds),
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSponsor() failed: %v", err)
	}
	return s
}

// CreateCourse adds a course owned by instructor.
func (app *App) CreateCourse(t *testing.T, instructor user.User, title string) course.Course {
	now := time.Now().UTC()
	c, err := app.CourseRepo.CreateCourse(context.Background(), course.Course{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     title + " description",
		DifficultyLevel: "beginner",
		CreatedBy:       instructor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

// Enroll adds an active enrollment of student in c.
func (app *App) Enroll(t *testing.T, student user.User, c course.Course) course.Enrollment {
	e, err := app.CourseRepo.CreateEnrollment(context.Background(), course.Enrollment{
		ID:        uuid.NewString(),
		StudentID: student.ID,
		CourseID:  c.ID,
		Status:    course.EnrollmentActive,
		Progress:  decimal.Zero,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return e
}

// NewQuizInput builds a valid quiz of n questions, each with its first answer correct.
func NewQuizInput(courseID, title string, n int) quiz.NewQuiz {
	nq := quiz.NewQuiz{CourseID: courseID, Title: title, Description: title + " description"}
	for i := 0; i < n; i++ {
		nq.Questions = append(nq.Questions, quiz.NewQuestion{
			Text: "Question " + string(rune('A'+i)),
			Answers: []quiz.NewAnswer{
				{Text: "right", IsCorrect: true},
				{Text: "wrong 1"},
				{Text: "wrong 2"},
				{Text: "wrong 3"},
			},
		})
	}
	return nq
}

// CreateQuiz stores a quiz built by NewQuizInput under c.
func (app *App) CreateQuiz(t *testing.T, c course.Course, title string, n int) quiz.Quiz {
	owner := user.Principal{UserID: c.CreatedBy, Role: user.RoleInstructor}
	q, err := app.Quizzes.CreateQuiz(context.Background(), owner, NewQuizInput(c.ID, title, n))
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return q
}

// AnswerQuiz answers every question of q: the first `correct` ones right, the rest wrong.
func AnswerQuiz(q quiz.Quiz, correct int) quiz.NewSubmission {
	var ns quiz.NewSubmission
	for i, qn := range q.Questions {
		var pick string
		for _, a := range qn.Answers {
			if a.IsCorrect == (i < correct) {
				pick = a.ID
				break
			}
		}
		ns.Answers = append(ns.Answers, quiz.AnswerInput{QuestionID: qn.ID, SelectedAnswerID: &pick})
	}
	return ns
}

// NotificationsOf returns the notifications stored for userID, newest first.
func (app *App) NotificationsOf(t *testing.T, userID string) []notification.Notification {
	list, err := app.NotificationRepo.ListNotifications(context.Background(), userID)
	if err != nil {
		t.Fatalf("NotificationsOf() failed: %v", err)
	}
	return list
}
