package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/pool"
)

type orgApi struct {
	svc     *org.Service
	poolSvc *pool.Service
}

func registerOrgAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := orgApi{svc: opts.OrgSvc, poolSvc: opts.PoolSvc}

	og := g.Group("/orgs", jwt)
	og.POST("/register", api.register)
	og.GET("/me", api.retrieve)
	og.PUT("/me", api.update)
	og.GET("/me/norms", api.retrieveNorms)
	og.PUT("/me/norms", api.updateNorms)

	cg := g.Group("/clients", jwt, billingMiddleware(opts.OrgSvc))
	cg.GET("", api.queryClients)
	cg.POST("", api.createClient)
}

// register creates the organization and makes the caller its admin.
func (api *orgApi) register(ctx echo.Context) error {
	var data org.NewOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrganization")
	}
	data.Name = core.CleanString(data.Name)
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := appValidate.Struct(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// one organization per staff user
	if _, err := api.svc.OrganizationForUser(ctx.Request().Context(), claims.Subject); err == nil {
		return core.NewRequestError(core.ReasonConflict, "user already belongs to an organization")
	} else if errors.Cause(err) != org.ErrNotFound {
		return errors.Wrap(err, "finding user organization")
	}

	o, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering organization")
	}
	if _, err = api.svc.GrantOrganizationAccess(ctx.Request().Context(), claims.Subject, o.ID, org.RoleAdmin); err != nil {
		return errors.Wrap(err, "granting admin access")
	}

	return ctx.JSON(http.StatusCreated, o)
}

func (api *orgApi) retrieve(ctx echo.Context) error {
	o, err := contextOrg(ctx, api.svc)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return ctx.JSON(http.StatusOK, OrganizationResponse{
		Organization:  o,
		HasAccess:     org.CompanyHasAccess(o, now),
		TrialDaysLeft: org.CompanyTrialDaysLeft(o, now),
	})
}

func (api *orgApi) update(ctx echo.Context) error {
	o, err := contextOrg(ctx, api.svc)
	if err != nil {
		return err
	}

	var data UpdateOrganizationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOrganizationRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if data.Name != "" {
		o.Name = data.Name
	}
	o.INN = data.INN
	o.City = data.City
	o.Address = data.Address
	o.Phone = data.Phone
	if data.Email != "" {
		o.Email = data.Email
	}
	if data.NotifyMissedVisits != nil {
		o.NotifyMissedVisits = *data.NotifyMissedVisits
	}
	if data.NotifyPoolStaffDaily != nil {
		o.NotifyPoolStaffDaily = *data.NotifyPoolStaffDaily
	}
	if data.NotifyLimits != nil {
		o.NotifyLimits = *data.NotifyLimits
	}

	o, err = api.svc.Update(ctx.Request().Context(), o)
	if err != nil {
		return errors.Wrap(err, "updating organization")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *orgApi) retrieveNorms(ctx echo.Context) error {
	o, err := contextOrg(ctx, api.svc)
	if err != nil {
		return err
	}

	norms, err := api.poolSvc.WaterNormsFor(ctx.Request().Context(), o.ID)
	if err != nil {
		return errors.Wrap(err, "getting water norms")
	}
	if norms == nil {
		// defaults apply
		return ctx.JSON(http.StatusOK, pool.WaterNorms{OrganizationID: o.ID})
	}
	return ctx.JSON(http.StatusOK, norms)
}

func (api *orgApi) updateNorms(ctx echo.Context) error {
	o, err := contextOrg(ctx, api.svc)
	if err != nil {
		return err
	}

	var data pool.WaterNorms
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WaterNorms")
	}
	data.OrganizationID = o.ID

	norms, err := api.poolSvc.SetWaterNorms(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "setting water norms")
	}
	return ctx.JSON(http.StatusOK, norms)
}

func (api *orgApi) queryClients(ctx echo.Context) error {
	o, err := contextOrg(ctx, api.svc)
	if err != nil {
		return err
	}

	clients, err := api.svc.QueryClients(ctx.Request().Context(), o.ID)
	if err != nil {
		return errors.Wrap(err, "querying clients")
	}
	if clients == nil {
		clients = []org.Client{}
	}
	return ctx.JSON(http.StatusOK, clients)
}

func (api *orgApi) createClient(ctx echo.Context) error {
	o, err := contextOrg(ctx, api.svc)
	if err != nil {
		return err
	}

	var data org.NewClient
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClient")
	}
	data.Name = core.CleanString(data.Name)
	data.Email = core.CleanString(data.Email, true /* lower */)
	data.OrganizationID = o.ID
	if err := appValidate.Struct(&data); err != nil {
		return err
	}

	c, err := api.svc.CreateClient(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating client")
	}
	return ctx.JSON(http.StatusCreated, c)
}

// contextOrg resolves the caller's organization.
func contextOrg(ctx echo.Context, svc *org.Service) (org.Organization, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return org.Organization{}, errors.Wrap(err, "getting context claims")
	}
	o, err := svc.OrganizationForUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == org.ErrNotFound {
			return org.Organization{}, errHttpForbidden
		}
		return org.Organization{}, errors.Wrap(err, "finding user organization")
	}
	return o, nil
}

type (
	OrganizationResponse struct {
		Organization  org.Organization `json:"organization"`
		HasAccess     bool             `json:"has_access"`
		TrialDaysLeft int              `json:"trial_days_left"`
	}

	UpdateOrganizationRequest struct {
		Name    string `json:"name"`
		INN     string `json:"inn"`
		City    string `json:"city"`
		Address string `json:"address"`
		Phone   string `json:"phone"`
		Email   string `json:"email" validate:"omitempty,email"`

		NotifyMissedVisits   *bool `json:"notify_missed_visits"`
		NotifyPoolStaffDaily *bool `json:"notify_pool_staff_daily"`
		NotifyLimits         *bool `json:"notify_limits"`
	}
)

func (ur *UpdateOrganizationRequest) Validate() error {
	ur.Name = core.CleanString(ur.Name)
	ur.Email = core.CleanString(ur.Email, true /* lower */)
	return appValidate.Struct(ur)
}
