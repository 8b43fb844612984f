package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/schedule"
	"github.com/aquatrack/aquatrack/core/task"
)

type taskApi struct {
	svc    *task.Service
	orgSvc *org.Service
}

func registerTaskAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := taskApi{svc: opts.TaskSvc, orgSvc: opts.OrgSvc}

	tg := g.Group("/tasks", jwt, billingMiddleware(opts.OrgSvc))
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
	tg.GET("/:id/changes", api.changes)
	tg.POST("/:id/move", api.move)
	tg.POST("/:id/complete", api.complete)
	tg.POST("/:id/reopen", api.reopen)
}

func (api *taskApi) query(ctx echo.Context) error {
	o, err := contextOrg(ctx, api.orgSvc)
	if err != nil {
		return err
	}

	// default range: the current month
	now := time.Now().UTC()
	from := schedule.MonthStart(now)
	to := schedule.MonthEnd(now)
	if v := ctx.QueryParam("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			return core.NewRequestError(core.ReasonValidation, "from must be a date in YYYY-MM-DD format")
		}
	}
	if v := ctx.QueryParam("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			return core.NewRequestError(core.ReasonValidation, "to must be a date in YYYY-MM-DD format")
		}
	}

	tasks, err := api.svc.QueryByOrganization(ctx.Request().Context(), o.ID, from, to)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []task.ServiceTask{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) create(ctx echo.Context) error {
	o, err := contextOrg(ctx, api.orgSvc)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data task.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	data.OrganizationID = o.ID
	if err := data.Validate(appValidate); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *taskApi) retrieve(ctx echo.Context) error {
	t, err := api.contextTask(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) update(ctx echo.Context) error {
	t, err := api.contextTask(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data task.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	if err := appValidate.Struct(&data); err != nil {
		return err
	}

	t, err = api.svc.Update(ctx.Request().Context(), claims.Subject, t.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) destroy(ctx echo.Context) error {
	t, err := api.contextTask(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), t.ID); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *taskApi) changes(ctx echo.Context) error {
	t, err := api.contextTask(ctx)
	if err != nil {
		return err
	}

	changes, err := api.svc.Changes(ctx.Request().Context(), t.ID)
	if err != nil {
		return errors.Wrap(err, "querying task changes")
	}
	if changes == nil {
		changes = []task.Change{}
	}
	return ctx.JSON(http.StatusOK, changes)
}

func (api *taskApi) move(ctx echo.Context) error {
	t, err := api.contextTask(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data TaskMoveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TaskMoveRequest")
	}
	if err := appValidate.Struct(&data); err != nil {
		return err
	}

	target, err := time.ParseInLocation("2006-01-02", data.TargetDate, time.UTC)
	if err != nil {
		return core.NewRequestError(core.ReasonValidation, "target_date must be formatted YYYY-MM-DD")
	}
	// the dragged day; a multi-day task keeps its span
	source := t.StartDate
	if data.SourceDate != "" {
		if source, err = time.ParseInLocation("2006-01-02", data.SourceDate, time.UTC); err != nil {
			return core.NewRequestError(core.ReasonValidation, "source_date must be formatted YYYY-MM-DD")
		}
	}

	t, err = api.svc.Move(ctx.Request().Context(), claims.Subject, t.ID, source, target)
	if err != nil {
		return errors.Wrap(err, "moving task")
	}
	return ctx.JSON(http.StatusOK, TaskMoveResponse{
		OK:       true,
		NewStart: t.StartDate.Format("2006-01-02"),
		NewEnd:   fmtTaskEnd(t),
	})
}

func (api *taskApi) complete(ctx echo.Context) error {
	t, err := api.contextTask(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	t, err = api.svc.Complete(ctx.Request().Context(), claims.Subject, t.ID)
	if err != nil {
		return errors.Wrap(err, "completing task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) reopen(ctx echo.Context) error {
	t, err := api.contextTask(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	t, err = api.svc.Reopen(ctx.Request().Context(), claims.Subject, t.ID)
	if err != nil {
		return errors.Wrap(err, "reopening task")
	}
	return ctx.JSON(http.StatusOK, t)
}

// contextTask loads the task and checks org membership.
func (api *taskApi) contextTask(ctx echo.Context) (task.ServiceTask, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return task.ServiceTask{}, errors.Wrap(err, "getting context claims")
	}

	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == task.ErrNotFound {
			return task.ServiceTask{}, errHttpNotFound
		}
		return task.ServiceTask{}, errors.Wrap(err, "finding task by ID")
	}
	if claims.IsSuperuser {
		return t, nil
	}
	ok, err := api.orgSvc.HasOrganizationAccess(ctx.Request().Context(), claims.Subject, t.OrganizationID)
	if err != nil {
		return task.ServiceTask{}, errors.Wrap(err, "checking organization access")
	}
	if !ok {
		return task.ServiceTask{}, errHttpNotFound
	}
	return t, nil
}

func fmtTaskEnd(t task.ServiceTask) string {
	if t.EndDate.Valid {
		return t.EndDate.Time.Format("2006-01-02")
	}
	return ""
}

type (
	TaskMoveRequest struct {
		SourceDate string `json:"source_date" validate:"omitempty,datetime=2006-01-02"`
		TargetDate string `json:"target_date" validate:"required,datetime=2006-01-02"`
	}

	TaskMoveResponse struct {
		OK       bool   `json:"ok"`
		NewStart string `json:"new_start"`
		NewEnd   string `json:"new_end,omitempty"`
	}
)
