package echoapi

import (
	"github.com/labstack/echo/v4"
)

// requireParent admits parent sessions only.
func requireParent(auth *sessionAuth) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ps, err := auth.parentSession(ctx)
			if err != nil {
				return err
			}
			ctx.Set(contextSessionKey, ps)
			return next(ctx)
		}
	}
}

// requireSession admits either identity. Handlers must still check
// per-resource ownership against the stored session.
func requireSession(auth *sessionAuth) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			s, err := auth.session(ctx)
			if err != nil {
				return err
			}
			ctx.Set(contextSessionKey, s)
			return next(ctx)
		}
	}
}
