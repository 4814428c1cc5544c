// workers/notification_dispatcher.go
package workers

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// NotificationDispatcher forwards reminder fire events to the external
// notification service. Delivery guarantees past the bounded retry here are
// that service's responsibility.
type NotificationDispatcher struct {
	client  *resty.Client
	baseURL string
}

// reminderPayload is the wire format the notification service accepts.
type reminderPayload struct {
	UserID   string `json:"user_id"`
	EventID  string `json:"event_id"`
	RuleType string `json:"rule_type"`
	Methods  string `json:"methods"`
}

func NewNotificationDispatcher(baseURL, serviceToken string) *NotificationDispatcher {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Authorization", "Bearer "+serviceToken)
	return &NotificationDispatcher{client: client, baseURL: baseURL}
}

// Notify posts one (userID, ruleType, eventID) fire event.
func (d *NotificationDispatcher) Notify(userID, eventID, ruleType, methods string) error {
	resp, err := d.client.R().
		SetBody(reminderPayload{
			UserID:   userID,
			EventID:  eventID,
			RuleType: ruleType,
			Methods:  methods,
		}).
		Post(d.baseURL + "/api/v1/notifications")
	if err != nil {
		return fmt.Errorf("failed to dispatch notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification service returned %d", resp.StatusCode())
	}
	return nil
}

// LogNotifier is the fallback dispatcher when no notification service is
// configured; it only records the fire event.
type LogNotifier struct{}

func (LogNotifier) Notify(userID, eventID, ruleType, methods string) error {
	log.Infof("[Notify] user=%s event=%s rule=%s methods=%s", userID, eventID, ruleType, methods)
	return nil
}
