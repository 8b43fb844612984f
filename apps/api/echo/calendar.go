package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/schedule"
)

type calendarApi struct {
	svc    *schedule.Service
	orgSvc *org.Service
}

func registerCalendarAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := calendarApi{svc: opts.ScheduleSvc, orgSvc: opts.OrgSvc}

	cg := g.Group("/calendar", jwt, billingMiddleware(opts.OrgSvc))
	cg.GET("", api.retrieve)
	cg.POST("/visit-plans/move", api.move)
}

func (api *calendarApi) retrieve(ctx echo.Context) error {
	o, err := contextOrg(ctx, api.orgSvc)
	if err != nil {
		return err
	}

	month := ctx.QueryParam("month")
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}

	cal, err := api.svc.Calendar(ctx.Request().Context(), o.ID, month, ctx.QueryParam("responsible"))
	if err != nil {
		return errors.Wrap(err, "rendering calendar")
	}
	return ctx.JSON(http.StatusOK, cal)
}

func (api *calendarApi) move(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data schedule.Move
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Move")
	}
	if err := appValidate.Struct(&data); err != nil {
		return err
	}

	if err := api.svc.MoveVisitPlans(ctx.Request().Context(), claims.Subject, data); err != nil {
		return errors.Wrap(err, "moving visit plans")
	}
	return ctx.JSON(http.StatusOK, OKResponse{OK: true})
}

type OKResponse struct {
	OK bool `json:"ok"`
}
