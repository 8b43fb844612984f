package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/notification"
	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/pool"
)

type poolApi struct {
	svc      *pool.Service
	orgSvc   *org.Service
	notifGen *notification.Generator
}

func registerPoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := poolApi{svc: opts.PoolSvc, orgSvc: opts.OrgSvc, notifGen: opts.NotifGen}

	pg := g.Group("/pools", jwt, billingMiddleware(opts.OrgSvc))
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
	pg.GET("/:id/readings", api.queryReadings)
	pg.POST("/:id/readings", api.createReading)
}

func (api *poolApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var pools []pool.Pool
	o, err := api.orgSvc.OrganizationForUser(ctx.Request().Context(), claims.Subject)
	switch errors.Cause(err) {
	case nil:
		pools, err = api.svc.QueryByOrganization(ctx.Request().Context(), o.ID)
	case org.ErrNotFound:
		// client user: their own pools only
		var c org.Client
		if c, err = api.orgSvc.ClientForUser(ctx.Request().Context(), claims.Subject); err != nil {
			if errors.Cause(err) == org.ErrNotFound {
				return ctx.JSON(http.StatusOK, []pool.Pool{})
			}
			return errors.Wrap(err, "finding client by user")
		}
		pools, err = api.svc.QueryByClient(ctx.Request().Context(), c.ID)
	default:
		return errors.Wrap(err, "finding user organization")
	}
	if err != nil {
		return errors.Wrap(err, "querying pools")
	}
	if pools == nil {
		pools = []pool.Pool{}
	}
	return ctx.JSON(http.StatusOK, pools)
}

func (api *poolApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data pool.NewPool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPool")
	}
	data.Address = core.CleanString(data.Address)
	if err := appValidate.Struct(&data); err != nil {
		return err
	}

	// staff create org pools; the org is never taken from the payload
	o, err := api.orgSvc.OrganizationForUser(ctx.Request().Context(), claims.Subject)
	switch errors.Cause(err) {
	case nil:
		data.OrganizationID = o.ID
	case org.ErrNotFound:
		data.OrganizationID = ""
	default:
		return errors.Wrap(err, "finding user organization")
	}

	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating pool")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *poolApi) retrieve(ctx echo.Context) error {
	p, err := api.contextPool(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *poolApi) update(ctx echo.Context) error {
	p, err := api.contextPool(ctx)
	if err != nil {
		return err
	}

	var data UpdatePoolRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePoolRequest")
	}
	if err := appValidate.Struct(&data); err != nil {
		return err
	}

	if data.Address != "" {
		p.Address = core.CleanString(data.Address)
	}
	if data.Description != nil {
		p.Description = *data.Description
	}
	if data.ServiceFrequency != nil {
		if *data.ServiceFrequency == "" {
			p.ServiceFrequency.Valid = false
			p.ServiceFrequency.String = ""
		} else {
			p.ServiceFrequency.SetValid(*data.ServiceFrequency)
		}
	}
	if data.ServiceIntervalDays != nil {
		if *data.ServiceIntervalDays == 0 {
			p.ServiceIntervalDays.Valid = false
			p.ServiceIntervalDays.Int = 0
		} else {
			p.ServiceIntervalDays.SetValid(*data.ServiceIntervalDays)
		}
	}
	if data.ServiceSuspended != nil {
		p.ServiceSuspended = *data.ServiceSuspended
	}
	if data.DailyReadingsRequired != nil {
		p.DailyReadingsRequired = *data.DailyReadingsRequired
	}

	p, err = api.svc.Update(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "updating pool")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *poolApi) queryReadings(ctx echo.Context) error {
	p, err := api.contextPool(ctx)
	if err != nil {
		return err
	}

	filter := pool.ReadingFilter{PoolID: p.ID}
	if from := ctx.QueryParam("from"); from != "" {
		if filter.DateFrom, err = time.Parse("2006-01-02", from); err != nil {
			return core.NewRequestError(core.ReasonValidation, "from must be a date in YYYY-MM-DD format")
		}
	}
	if to := ctx.QueryParam("to"); to != "" {
		if filter.DateTo, err = time.Parse("2006-01-02", to); err != nil {
			return core.NewRequestError(core.ReasonValidation, "to must be a date in YYYY-MM-DD format")
		}
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	readings, err := api.svc.QueryReadings(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying readings")
	}
	if readings == nil {
		readings = []pool.WaterReading{}
	}
	return ctx.JSON(http.StatusOK, readings)
}

func (api *poolApi) createReading(ctx echo.Context) error {
	p, err := api.contextPool(ctx)
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data pool.NewReading
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReading")
	}
	if err := appValidate.Struct(&data); err != nil {
		return err
	}

	r, err := api.svc.AddReading(ctx.Request().Context(), p.ID, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "adding reading")
	}

	// out-of-range values notify the org, unless the author is its staff
	if api.notifGen != nil {
		if err := api.notifGen.ReadingOutOfRange(ctx.Request().Context(), p, r); err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "checking reading limits"))
		}
	}

	return ctx.JSON(http.StatusCreated, r)
}

// contextPool loads the pool and checks the caller may see it: org staff
// for org pools, the linked client user otherwise.
func (api *poolApi) contextPool(ctx echo.Context) (pool.Pool, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return pool.Pool{}, errors.Wrap(err, "getting context claims")
	}

	p, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == pool.ErrNotFound {
			return pool.Pool{}, errHttpNotFound
		}
		return pool.Pool{}, errors.Wrap(err, "finding pool by ID")
	}

	if claims.IsSuperuser {
		return p, nil
	}
	if p.OrganizationID.Valid {
		ok, err := api.orgSvc.HasOrganizationAccess(ctx.Request().Context(), claims.Subject, p.OrganizationID.String)
		if err != nil {
			return pool.Pool{}, errors.Wrap(err, "checking organization access")
		}
		if ok {
			return p, nil
		}
	}
	if c, err := api.orgSvc.ClientForUser(ctx.Request().Context(), claims.Subject); err == nil && c.ID == p.ClientID {
		return p, nil
	} else if err != nil && errors.Cause(err) != org.ErrNotFound {
		return pool.Pool{}, errors.Wrap(err, "finding client by user")
	}
	return pool.Pool{}, errHttpNotFound
}

type UpdatePoolRequest struct {
	Address     string  `json:"address"`
	Description *string `json:"description"`

	ServiceFrequency      *string `json:"service_frequency" validate:"omitempty,oneof=weekly twice_monthly monthly bimonthly quarterly twice_yearly yearly"`
	ServiceIntervalDays   *int    `json:"service_interval_days" validate:"omitempty,min=0"`
	ServiceSuspended      *bool   `json:"service_suspended"`
	DailyReadingsRequired *bool   `json:"daily_readings_required"`
}
