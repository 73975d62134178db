// Package shared builds the dependencies common to the API and the admin CLI.
package shared

import (
	"context"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/assessment"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/notification"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/sponsorship"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database"
	inmemdb "github.com/trezcool/elimu/storage/database/inmem"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
)

type (
	// Store groups the repositories of one storage engine.
	Store struct {
		Tx            core.Transactor
		Users         user.Repository
		Courses       course.Repository
		Sponsorships  sponsorship.Repository
		Quizzes       quiz.Repository
		Assessments   assessment.Repository
		Notifications notification.Repository

		close func() error
	}

	Services struct {
		Users         *user.Service
		Courses       *course.Service
		Ledger        *sponsorship.Ledger
		Quizzes       *quiz.Service
		Assessments   *assessment.Service
		Notifications *notification.Dispatcher
	}

	// ServiceDeps are the collaborators shared by every service. Publisher and Metrics are optional.
	ServiceDeps struct {
		Mailer    core.EmailService
		Publisher notification.Publisher
		Logger    core.Logger
		Metrics   core.Metrics
		Validate  *validator.Validate
	}
)

func (s Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewInMemStore returns a Store over a fresh in-memory database.
func NewInMemStore(db *inmemdb.DB) Store {
	return Store{
		Tx:            db,
		Users:         inmemdb.NewUserRepository(db),
		Courses:       inmemdb.NewCourseRepository(db),
		Sponsorships:  inmemdb.NewSponsorshipRepository(db),
		Quizzes:       inmemdb.NewQuizRepository(db),
		Assessments:   inmemdb.NewAssessmentRepository(db),
		Notifications: inmemdb.NewNotificationRepository(db),
	}
}

// OpenStore opens the configured database engine. Postgres databases are created and migrated first.
func OpenStore(ctx context.Context, conf *core.Config) (Store, error) {
	if conf.Database.Engine == core.EngineInMem {
		return NewInMemStore(inmemdb.NewDB()), nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return Store{}, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return Store{}, err
	}
	if err = database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return Store{}, err
	}

	return Store{
		Tx:            sqlxrepos.NewTransactor(db),
		Users:         sqlxrepos.NewUserRepository(db),
		Courses:       sqlxrepos.NewCourseRepository(db),
		Sponsorships:  sqlxrepos.NewSponsorshipRepository(db),
		Quizzes:       sqlxrepos.NewQuizRepository(db),
		Assessments:   sqlxrepos.NewAssessmentRepository(db),
		Notifications: sqlxrepos.NewNotificationRepository(db),
		close:         db.Close,
	}, nil
}

// NewValidator returns a validator with every custom validation and its english translations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)
	return validate, translator
}

func NewServices(store Store, deps ServiceDeps) Services {
	var svcs Services
	svcs.Users = user.NewService(store.Users, deps.Validate)
	svcs.Notifications = notification.NewDispatcher(
		store.Notifications, svcs.Users, deps.Mailer, deps.Publisher, deps.Logger, deps.Metrics,
	)
	svcs.Courses = course.NewService(store.Courses, svcs.Users, svcs.Notifications, deps.Validate)
	svcs.Ledger = sponsorship.NewLedger(store.Sponsorships, store.Tx, svcs.Users, svcs.Notifications, deps.Validate, deps.Metrics)
	svcs.Quizzes = quiz.NewService(store.Quizzes, store.Tx, svcs.Courses, svcs.Notifications, deps.Validate, deps.Metrics)
	svcs.Assessments = assessment.NewService(store.Assessments, svcs.Courses, svcs.Notifications, deps.Validate)
	return svcs
}
