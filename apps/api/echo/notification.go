package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/somaedu/soma-backend/core/notification"
)

type notificationApi struct {
	svc *notification.Service
}

func registerNotificationAPI(g *echo.Group, auth *sessionAuth, svc *notification.Service) {
	api := notificationApi{svc: svc}

	ng := g.Group("/notifications", requireParent(auth))
	ng.GET("", api.query)
	ng.GET("/:id", api.retrieve)
	ng.POST("/:id/read", api.markRead)
}

// retrieveNotification loads a notification and enforces parent ownership.
func (api *notificationApi) retrieveNotification(ctx echo.Context) (notification.Notification, error) {
	ps, err := contextParentSession(ctx)
	if err != nil {
		return notification.Notification{}, err
	}
	n, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == notification.ErrNotFound {
			return notification.Notification{}, errHttpNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "finding notification by ID")
	}
	if !n.AccessibleBy(ps) {
		return notification.Notification{}, errHttpForbidden
	}
	return n, nil
}

func (api *notificationApi) query(ctx echo.Context) error {
	ps, err := contextParentSession(ctx)
	if err != nil {
		return err
	}
	notifs, err := api.svc.QueryByParent(ctx.Request().Context(), ps.ParentID)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) retrieve(ctx echo.Context) error {
	n, err := api.retrieveNotification(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	n, err := api.retrieveNotification(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkRead(ctx.Request().Context(), n.ID); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}
