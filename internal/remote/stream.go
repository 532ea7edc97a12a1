package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"biblioteca-mistica/internal/realtime"
)

const streamBuffer = 64

type streamSub struct {
	topic  realtime.Topic
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Unsubscribe closes the stream. Events already read are not delivered.
func (s *streamSub) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
		log.Printf("📡 [STREAM] Closed %s", s.topic.Channel())
	})
}

type sseMessage struct {
	event string
	data  string
}

// Subscribe opens the realtime stream for topic and returns once the server
// has confirmed the subscription. Events are handed to h in order from a
// single goroutine.
func (c *Client) Subscribe(ctx context.Context, topic realtime.Topic, h realtime.Handler) (realtime.Subscription, error) {
	q := url.Values{}
	q.Set("table", topic.Table)
	if topic.Event != "" {
		q.Set("event", string(topic.Event))
	}
	if topic.Filter != nil {
		q.Set("filter", topic.Filter.String())
	}

	streamCtx, cancel := context.WithCancel(ctx)
	req, err := c.newRequest(streamCtx, http.MethodGet, "/v1/realtime?"+q.Encode(), nil, "")
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream %s: %w", topic.Channel(), err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, decodeError(resp)
	}

	reader := bufio.NewReader(resp.Body)
	first, err := readMessage(reader)
	if err != nil || first.event != "ready" {
		resp.Body.Close()
		cancel()
		if err == nil {
			err = fmt.Errorf("unexpected first event %q", first.event)
		}
		return nil, fmt.Errorf("open stream %s: %w", topic.Channel(), err)
	}

	sub := &streamSub{topic: topic, cancel: cancel, done: make(chan struct{})}
	events := make(chan realtime.Event, streamBuffer)

	go func() {
		defer resp.Body.Close()
		defer close(events)
		for {
			msg, err := readMessage(reader)
			if err != nil {
				select {
				case <-sub.done:
				default:
					log.Printf("⚠️ [STREAM] %s ended: %v", topic.Channel(), err)
				}
				return
			}
			var e realtime.Event
			if err := json.Unmarshal([]byte(msg.data), &e); err != nil {
				log.Printf("⚠️ [STREAM] Bad event on %s: %v", topic.Channel(), err)
				continue
			}
			select {
			case events <- e:
			case <-sub.done:
				return
			}
		}
	}()

	go func() {
		for e := range events {
			select {
			case <-sub.done:
				return
			default:
			}
			h(e)
		}
	}()

	log.Printf("📡 [STREAM] Subscribed %s", topic.Channel())
	return sub, nil
}

// readMessage reads one event, skipping heartbeat comments.
func readMessage(r *bufio.Reader) (sseMessage, error) {
	var msg sseMessage
	var data []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return msg, err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if msg.event == "" && len(data) == 0 {
				continue
			}
			msg.data = strings.Join(data, "\n")
			return msg, nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			msg.event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}
