package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeQueue struct {
	docs   []*EventDocument
	sent   []string
	failed []string
}

func (q *fakeQueue) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	if len(q.docs) == 0 {
		return nil, nil
	}
	doc := q.docs[0]
	q.docs = q.docs[1:]
	return doc, nil
}

func (q *fakeQueue) MarkSent(ctx context.Context, id string) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	q.failed = append(q.failed, id)
	return nil
}

type fakeProducer struct {
	topics   []string
	payloads [][]byte
	headers  []map[string]string
	err      error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	p.headers = append(p.headers, headers)
	return nil
}

func testDocument() *EventDocument {
	return &EventDocument{
		ID:         "evt-1",
		Name:       "booking.requested",
		Payload:    []byte(`{"booking_id":"bk-1"}`),
		OccurredAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Aggregate:  "bk-1",
	}
}

func TestProcessOncePublishesCloudEvent(t *testing.T) {
	queue := &fakeQueue{docs: []*EventDocument{testDocument()}}
	producer := &fakeProducer{}
	w := &Worker{Queue: queue, Producer: producer, Source: "tripnest-test"}

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if len(producer.topics) != 1 || producer.topics[0] != "booking.events.v1" {
		t.Fatalf("topics = %v", producer.topics)
	}
	if len(queue.sent) != 1 || queue.sent[0] != "evt-1" {
		t.Errorf("sent = %v", queue.sent)
	}

	var evt map[string]any
	if err := json.Unmarshal(producer.payloads[0], &evt); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if evt["type"] != "booking.requested.v1" || evt["source"] != "tripnest-test" {
		t.Errorf("envelope = %v", evt)
	}
	data, ok := evt["data"].(map[string]any)
	if !ok || data["booking_id"] != "bk-1" {
		t.Errorf("data = %v", evt["data"])
	}
	if producer.headers[0]["content-type"] != "application/cloudevents+json" {
		t.Errorf("headers = %v", producer.headers[0])
	}
}

func TestProcessOnceMarksFailuresForRetry(t *testing.T) {
	queue := &fakeQueue{docs: []*EventDocument{testDocument()}}
	producer := &fakeProducer{err: errors.New("broker down")}
	w := &Worker{Queue: queue, Producer: producer}

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if len(queue.failed) != 1 || len(queue.sent) != 0 {
		t.Errorf("failed = %v, sent = %v", queue.failed, queue.sent)
	}
}

func TestProcessOnceIdleQueue(t *testing.T) {
	w := &Worker{Queue: &fakeQueue{}, Producer: &fakeProducer{}}
	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce on empty queue: %v", err)
	}
}

func TestTopicPrefix(t *testing.T) {
	w := &Worker{TopicPrefix: "staging."}
	if got := w.topicFor("booking.confirmed"); got != "staging.booking.events.v1" {
		t.Errorf("topicFor = %q", got)
	}
}

func TestNextRetryBackoffSaturates(t *testing.T) {
	w := &Worker{Backoff: []time.Duration{time.Second, 5 * time.Second}}
	now := time.Now()
	if next := w.nextRetry(0); next.Sub(now) > 2*time.Second {
		t.Errorf("first retry too far out: %v", next.Sub(now))
	}
	// Beyond the table, the last step repeats.
	if next := w.nextRetry(9); next.Sub(now) < 4*time.Second {
		t.Errorf("saturated retry too soon: %v", next.Sub(now))
	}
}
