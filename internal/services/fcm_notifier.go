package services

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// Notifier delivers a routine reminder notification to a user's device.
// Implemented by FCMNotifier; the scheduler only sees this interface.
type Notifier interface {
	Notify(ctx context.Context, deviceToken, title, body string) error
}

type FCMNotifier struct {
	client *messaging.Client
}

func NewFCMNotifier(ctx context.Context, app *firebase.App) (*FCMNotifier, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}
	return &FCMNotifier{client: client}, nil
}

// Notify sends a push notification. A missing device token is a logged
// no-op: the user simply has no registered device.
func (n *FCMNotifier) Notify(ctx context.Context, deviceToken, title, body string) error {
	if deviceToken == "" {
		log.Printf("[FCM] no device token, skipping push")
		return nil
	}

	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type": "routine_reminder",
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := n.client.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to send FCM: %w", err)
	}
	return nil
}
