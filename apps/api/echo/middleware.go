package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aquatrack/aquatrack/core/org"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsSuperuser {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// billingMiddleware rejects requests from users whose organization's plan
// (trial or paid period) has lapsed. Superusers bypass the check.
func billingMiddleware(orgSvc *org.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsSuperuser {
				return next(ctx)
			}
			blocked, err := orgSvc.IsOrgAccessBlocked(ctx.Request().Context(), claims.Subject, time.Now().UTC())
			if err != nil {
				return errors.Wrap(err, "checking plan access")
			}
			if blocked {
				return errSubscriptionExpired
			}
			return next(ctx)
		}
	}
}
