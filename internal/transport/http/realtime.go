package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"biblioteca-mistica/internal/metrics"
	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/pkg/models"

	"github.com/gofiber/fiber/v2"
)

var streamableTables = map[string]bool{
	models.TableUsers:         true,
	models.TableModules:       true,
	models.TableBanners:       true,
	models.TablePosts:         true,
	models.TableLikes:         true,
	models.TableComments:      true,
	models.TableNotifications: true,
}

// parseTopic reads table, event and filter from the query. Notification
// streams are always scoped to the caller.
func parseTopic(c *fiber.Ctx, userID string) (realtime.Topic, error) {
	table := strings.TrimSpace(c.Query("table"))
	if !streamableTables[table] {
		return realtime.Topic{}, fmt.Errorf("unknown table %q", table)
	}
	event := realtime.EventType(strings.ToUpper(strings.TrimSpace(c.Query("event", string(realtime.Any)))))
	switch event {
	case realtime.Insert, realtime.Update, realtime.Delete, realtime.Any:
	default:
		return realtime.Topic{}, fmt.Errorf("unknown event %q", event)
	}
	filter, err := realtime.ParseFilter(c.Query("filter"))
	if err != nil {
		return realtime.Topic{}, err
	}
	if table == models.TableNotifications {
		filter = &realtime.Filter{Column: "user_id", Value: userID}
	}
	return realtime.Topic{Table: table, Event: event, Filter: filter}, nil
}

// Stream serves change events for one topic as Server-Sent Events.
func (h *Handler) Stream(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	topic, err := parseTopic(c, userID.String())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	heartbeatEvery := h.heartbeat
	log.Printf("✅ [SSE] 🟢 Connection STARTED for user=%s on %s", userID, topic.Channel())

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		connStart := time.Now()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events := make(chan realtime.Event, 32)
		sub, err := h.realtime.Subscribe(ctx, topic, func(e realtime.Event) {
			select {
			case events <- e:
			default:
				log.Printf("⚠️ [SSE] Stream buffer full for user=%s, dropping %s %s", userID, e.Table, e.Type)
			}
		})
		if err != nil {
			log.Printf("❌ [SSE] Subscribe %s failed: %v", topic.Channel(), err)
			return
		}
		metrics.RealtimeSubscribers.Inc()
		defer func() {
			sub.Unsubscribe()
			metrics.RealtimeSubscribers.Dec()
			log.Printf("🔌 [SSE] 🔴 Connection CLOSED for user=%s after %v", userID, time.Since(connStart).Round(time.Millisecond))
		}()

		ready, _ := json.Marshal(fiber.Map{
			"status":  "ready",
			"channel": topic.Channel(),
			"at":      connStart.UTC().Format(time.RFC3339Nano),
		})
		if err := writeSSE(w, "ready", ready); err != nil {
			return
		}

		heartbeat := time.NewTicker(heartbeatEvery)
		defer heartbeat.Stop()

		for {
			select {
			case e := <-events:
				data, err := json.Marshal(e)
				if err != nil {
					log.Printf("⚠️ [SSE] Failed to marshal event: %v", err)
					continue
				}
				if err := writeSSE(w, string(e.Type), data); err != nil {
					log.Printf("⚠️ [SSE] Write failed for user=%s: %v", userID, err)
					return
				}
			case <-heartbeat.C:
				if _, err := w.WriteString(": heartbeat\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func writeSSE(w *bufio.Writer, event string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
