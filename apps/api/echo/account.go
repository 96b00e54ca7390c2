package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/somaedu/soma-backend/core"
	"github.com/somaedu/soma-backend/core/identity"
)

type accountApi struct {
	auth     *sessionAuth
	svc      *identity.Service
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, auth *sessionAuth, svc *identity.Service, validate *validator.Validate) {
	api := accountApi{
		auth:     auth,
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/parents")
	pg.POST("/register", api.register)
	pg.POST("/login", api.login)
	pg.POST("/logout", api.logout)
	pg.GET("/me", api.me, requireParent(auth))

	cg := g.Group("/children")
	cg.POST("", api.createChild, requireParent(auth))
	cg.GET("", api.queryChildren, requireParent(auth))
	cg.POST("/:id/login", api.childLogin, requireParent(auth))
	cg.POST("/logout", api.childLogout)
}

// Handlers

func (api *accountApi) register(ctx echo.Context) error {
	var data identity.NewParent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParent")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	parent, err := api.svc.RegisterParent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering parent")
	}
	return ctx.JSON(http.StatusCreated, parent)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	parent, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if identity.IsAuthenticationFailure(errors.Cause(err)) {
			return core.NewValidationError(errors.New("invalid credentials"))
		}
		return errors.Wrap(err, "authenticating")
	}

	ps := api.svc.NewParentSession(parent, api.auth.parentTTL)
	if err = api.auth.setSessionCookie(ctx, ps); err != nil {
		return errors.Wrap(err, "setting session cookie")
	}
	return ctx.JSON(http.StatusOK, parent)
}

func (api *accountApi) logout(ctx echo.Context) error {
	api.auth.clearSessionCookie(ctx, parentCookieName)
	api.auth.clearSessionCookie(ctx, childCookieName)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) me(ctx echo.Context) error {
	ps, err := contextParentSession(ctx)
	if err != nil {
		return err
	}
	parent, err := api.svc.GetParent(ctx.Request().Context(), ps.ParentID)
	if err != nil {
		if errors.Cause(err) == identity.ErrNotFound {
			return errUnauthenticated
		}
		return errors.Wrap(err, "finding parent by ID")
	}
	return ctx.JSON(http.StatusOK, parent)
}

func (api *accountApi) createChild(ctx echo.Context) error {
	ps, err := contextParentSession(ctx)
	if err != nil {
		return err
	}

	var data identity.NewChild
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChild")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	child, err := api.svc.CreateChild(ctx.Request().Context(), ps.ParentID, data)
	if err != nil {
		return errors.Wrap(err, "creating child")
	}
	return ctx.JSON(http.StatusCreated, child)
}

func (api *accountApi) queryChildren(ctx echo.Context) error {
	ps, err := contextParentSession(ctx)
	if err != nil {
		return err
	}
	children, err := api.svc.QueryChildren(ctx.Request().Context(), ps.ParentID)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	if children == nil {
		children = []identity.Child{}
	}
	return ctx.JSON(http.StatusOK, children)
}

// childLogin mints a child session. This is the only path by which a child
// cookie is issued; the calling parent must own the child.
func (api *accountApi) childLogin(ctx echo.Context) error {
	ps, err := contextParentSession(ctx)
	if err != nil {
		return err
	}

	cs, err := api.svc.DeriveChildSession(ctx.Request().Context(), ps, ctx.Param("id"), api.auth.childTTL)
	if err != nil {
		switch errors.Cause(err) {
		case identity.ErrNotFound:
			return errHttpNotFound
		case identity.ErrNotOwner:
			return errHttpForbidden
		}
		if identity.IsAuthenticationFailure(errors.Cause(err)) {
			return errUnauthenticated
		}
		return errors.Wrap(err, "deriving child session")
	}

	if err = api.auth.setSessionCookie(ctx, cs); err != nil {
		return errors.Wrap(err, "setting session cookie")
	}
	child, err := api.svc.GetChild(ctx.Request().Context(), cs.ChildID)
	if err != nil {
		return errors.Wrap(err, "finding child by ID")
	}
	return ctx.JSON(http.StatusOK, child)
}

func (api *accountApi) childLogout(ctx echo.Context) error {
	api.auth.clearSessionCookie(ctx, childCookieName)
	return ctx.NoContent(http.StatusNoContent)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
