// internal/fcm/fcm.go
package fcm

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Push is one notification as shown on a device.
type Push struct {
	Title string
	Body  string
	Icon  string
	Badge string
	// Tag collapses repeated deliveries of the same notification.
	Tag  string
	Link string
	Data map[string]string
}

type FCMClient struct {
	client *messaging.Client
}

func NewFCMClient(ctx context.Context, credentialsJSON []byte) (*FCMClient, error) {
	conf := &firebase.Config{}
	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("firebase init failed: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging client init failed: %w", err)
	}

	return &FCMClient{client: messagingClient}, nil
}

// BuildMessage maps a Push onto the web, Android and APNs payloads.
func BuildMessage(token string, p Push) *messaging.Message {
	data := make(map[string]string, len(p.Data)+2)
	for k, v := range p.Data {
		data[k] = v
	}
	if p.Tag != "" {
		data["notification_id"] = p.Tag
	}
	if p.Link != "" {
		data["link"] = p.Link
	}

	badge := 1
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		},
		Data: data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: p.Title,
				Body:  p.Body,
				Icon:  p.Icon,
				Badge: p.Badge,
				Tag:   p.Tag,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
					Badge: &badge,
				},
			},
		},
		Android: &messaging.AndroidConfig{
			CollapseKey: p.Tag,
			Notification: &messaging.AndroidNotification{
				Sound: "default",
				Tag:   p.Tag,
			},
			Priority: "high",
		},
	}
	if p.Link != "" {
		msg.Webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: p.Link}
	}
	return msg
}

// Send delivers p to every token. Per-token failures are logged, not returned.
func (f *FCMClient) Send(ctx context.Context, tokens []string, p Push) error {
	if len(tokens) == 0 {
		return nil
	}

	messages := make([]*messaging.Message, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, BuildMessage(token, p))
	}

	// Send in batches of up to 500 (FCM SendEach limit)
	const batchSize = 500
	for i := 0; i < len(messages); i += batchSize {
		end := i + batchSize
		if end > len(messages) {
			end = len(messages)
		}

		batch := messages[i:end]
		resp, err := f.client.SendEach(ctx, batch)
		if err != nil {
			return fmt.Errorf("FCM batch[%d:%d] failed: %w", i, end, err)
		}

		for j, r := range resp.Responses {
			if !r.Success {
				log.Printf("⚠️ FCM token %s (idx %d in batch %d) failed: %v",
					maskToken(tokens[i+j]), j, i, r.Error)
			}
		}
		log.Printf("✅ FCM batch[%d:%d] sent: %d ok, %d failed", i, end, resp.SuccessCount, resp.FailureCount)
	}

	return nil
}

// maskToken hides all but last 6 chars for logging safety
func maskToken(token string) string {
	if len(token) <= 6 {
		return token
	}
	return "..." + token[len(token)-6:]
}
