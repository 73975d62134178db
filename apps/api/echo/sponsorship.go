package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/sponsorship"
	"github.com/trezcool/elimu/core/user"
)

type sponsorshipApi struct {
	ledger *sponsorship.Ledger
}

func registerSponsorshipAPI(g *echo.Group, authed []echo.MiddlewareFunc, ledger *sponsorship.Ledger) {
	api := sponsorshipApi{ledger: ledger}

	sg := g.Group("/sponsors", authed...)
	sg.POST("", api.createSponsor, requireRole(user.RoleAdmin))
	sg.GET("/:id", api.retrieveSponsor)

	spg := g.Group("/sponsorships", authed...)
	spg.GET("", api.query)
	spg.POST("", api.create)
	spg.GET("/:id", api.retrieve)
	spg.PATCH("/:id", api.decide, requireRole(user.RoleSponsor))
}

// SponsorshipRequest is either a student's application (sponsor set) or a sponsor's funding (student set).
type SponsorshipRequest struct {
	SponsorID string          `json:"sponsor"`
	StudentID string          `json:"student"`
	Amount    decimal.Decimal `json:"amount"`
}

func (api *sponsorshipApi) createSponsor(ctx echo.Context) error {
	var data sponsorship.NewSponsor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSponsor")
	}
	s, err := api.ledger.CreateSponsor(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating sponsor")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *sponsorshipApi) retrieveSponsor(ctx echo.Context) error {
	s, err := api.ledger.GetSponsor(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding sponsor")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *sponsorshipApi) create(ctx echo.Context) error {
	var data SponsorshipRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SponsorshipRequest")
	}

	var s sponsorship.Sponsorship
	var err error
	switch p := getPrincipal(ctx); {
	case p.IsStudent():
		s, err = api.ledger.Apply(ctx.Request().Context(), p, sponsorship.Application{SponsorID: data.SponsorID, Amount: data.Amount})
	case p.IsSponsor():
		s, err = api.ledger.Fund(ctx.Request().Context(), p, sponsorship.Funding{StudentID: data.StudentID, Amount: data.Amount})
	default:
		err = core.NewPermissionError("only students and sponsors can create sponsorships")
	}
	if err != nil {
		return errors.Wrap(err, "creating sponsorship")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *sponsorshipApi) query(ctx echo.Context) error {
	filter := sponsorship.QueryFilter{Status: sponsorship.Status(ctx.QueryParam("status"))}
	list, err := api.ledger.Query(ctx.Request().Context(), getPrincipal(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying sponsorships")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *sponsorshipApi) retrieve(ctx echo.Context) error {
	s, err := api.ledger.Get(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding sponsorship")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *sponsorshipApi) decide(ctx echo.Context) error {
	var data sponsorship.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	s, err := api.ledger.Decide(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "deciding sponsorship")
	}
	return ctx.JSON(http.StatusOK, s)
}
