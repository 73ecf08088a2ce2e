package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Gulhayo05/Surprise-Bag/api/middleware"
	"github.com/Gulhayo05/Surprise-Bag/api/responses"
	"github.com/Gulhayo05/Surprise-Bag/api/validators"
	"github.com/Gulhayo05/Surprise-Bag/internal/notifications"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
)

const notificationParam = "notificationId"

// inboxAction runs one inbox operation for the authenticated caller and
// returns the response payload.
type inboxAction func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error)

func inboxHandler(svc notifications.Service, logg *logger.Logger, act inboxAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		userID, _, err := middleware.ActorFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payload, err := act(r, svc, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

// ListNotifications pages through the caller's inbox, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread_only", false)
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), notifications.ListParams{
			UserID:     userID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unreadOnly,
		})
	})
}

func GetNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error) {
		id, err := validators.ParseUUIDParam(r, notificationParam)
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), userID, id)
	})
}

// NotificationUnreadCount backs the badge counter in the apps.
func NotificationUnreadCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error) {
		n, err := svc.UnreadCount(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"unread": n}, nil
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error) {
		id, err := validators.ParseUUIDParam(r, notificationParam)
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), userID, id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error) {
		updated, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": updated}, nil
	})
}

func DeleteNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error) {
		id, err := validators.ParseUUIDParam(r, notificationParam)
		if err != nil {
			return nil, err
		}
		if err := svc.Delete(r.Context(), userID, id); err != nil {
			return nil, err
		}
		return map[string]bool{"deleted": true}, nil
	})
}
