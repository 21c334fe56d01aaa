package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/01001010sedano/TidyTapv1/internal/auth"
)

type MembershipLister interface {
	MembershipIDs(userID string) ([]string, error)
}

// HandleWebSocket upgrades an authenticated request and follows every
// household the user belongs to until the connection closes.
func HandleWebSocket(hub *Hub, memberships MembershipLister, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ids, err := memberships.MembershipIDs(sess.UserID)
		if err != nil {
			hub.logger.Error("list memberships", "user_id", sess.UserID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			hub.logger.Warn("accept", "error", err)
			return
		}

		client := NewClient(hub, conn, sess.UserID, ids)
		client.Run(r.Context())
		conn.Close(ws.StatusNormalClosure, "")
	}
}
