package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/01001010sedano/TidyTapv1/internal/metrics"
	"github.com/01001010sedano/TidyTapv1/internal/model"
)

type Sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

type SubscriptionStore interface {
	ListByUser(userID string) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// Notifier fans a payload out to every device of a set of users. A nil
// sender turns it into a no-op.
type Notifier struct {
	sender  Sender
	subs    SubscriptionStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewNotifier(sender Sender, subs SubscriptionStore, logger *slog.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{
		sender:  sender,
		subs:    subs,
		logger:  logger.With("component", "push"),
		metrics: m,
	}
}

// NotifyUsers sends payload to every subscription of userIDs. Expired
// subscriptions are removed.
func (n *Notifier) NotifyUsers(userIDs []string, payload Payload) {
	if n == nil || n.sender == nil {
		return
	}
	for _, uid := range userIDs {
		subs, err := n.subs.ListByUser(uid)
		if err != nil {
			n.logger.Error("list subscriptions", "user_id", uid, "error", err)
			continue
		}
		for i := range subs {
			err := n.sender.Send(&subs[i], payload)
			switch {
			case err == nil:
				n.metrics.ObservePush("sent")
			case errors.Is(err, ErrExpired):
				n.metrics.ObservePush("expired")
				if err := n.subs.DeleteByEndpoint(subs[i].Endpoint); err != nil {
					n.logger.Error("delete expired subscription", "user_id", uid, "error", err)
				}
			default:
				n.metrics.ObservePush("error")
				n.logger.Warn("send push", "user_id", uid, "error", err)
			}
		}
	}
}

// NotifyAssigned tells users newly added to a task's assignees about it.
// before holds the assignees prior to the change; actorID is never notified.
func (n *Notifier) NotifyAssigned(t model.Task, before []model.Assignee, actorID string) {
	had := make(map[string]bool, len(before))
	for _, a := range before {
		had[a.ID] = true
	}
	var ids []string
	for _, a := range t.AssignedTo {
		if !had[a.ID] && a.ID != actorID {
			ids = append(ids, a.ID)
			had[a.ID] = true
		}
	}
	if len(ids) == 0 {
		return
	}
	n.NotifyUsers(ids, Payload{
		Title: "New task for you 🧽",
		Body:  fmt.Sprintf("%s is due %s", t.Title, t.DueTime.Format("Mon Jan 2 15:04")),
		URL:   "/tasks/" + t.ID,
		Tag:   model.NotifTaskAssigned + "-" + t.ID,
	})
}

func assigneeIDs(t model.Task) []string {
	ids := make([]string, 0, len(t.AssignedTo))
	for _, a := range t.AssignedTo {
		ids = append(ids, a.ID)
	}
	return ids
}
