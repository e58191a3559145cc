package http

import (
	"net/http"

	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/pkg/httputil"
)

// NotificationFeed is the recent-notification history, e.g. *notify.Recorder.
type NotificationFeed interface {
	Recent() []notify.Notification
}

// ListNotifications returns a handler for GET /api/v1/notifications, oldest
// notification first.
func ListNotifications(feed NotificationFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: feed.Recent()})
	}
}
