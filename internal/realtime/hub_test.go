package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHubDeliversByTable(t *testing.T) {
	h := NewHub(10)
	txCh, cancelTx := h.Subscribe("transactions")
	defer cancelTx()
	allCh, cancelAll := h.Subscribe(AllTables)
	defer cancelAll()

	h.Publish("friendships", Insert, "f1")
	h.Publish("transactions", Update, "t1")

	select {
	case c := <-txCh:
		if c.Table != "transactions" || c.Op != Update || c.RowID != "t1" {
			t.Fatalf("transactions subscriber got %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("transactions subscriber received nothing")
	}
	select {
	case c := <-txCh:
		t.Fatalf("transactions subscriber got unexpected %+v", c)
	default:
	}

	for _, want := range []string{"friendships", "transactions"} {
		select {
		case c := <-allCh:
			if c.Table != want {
				t.Fatalf("wildcard got table %q, want %q", c.Table, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("wildcard subscriber missed %s", want)
		}
	}
}

func TestHubRingBuffer(t *testing.T) {
	h := NewHub(2)
	h.Publish("a", Insert, "1")
	h.Publish("a", Insert, "2")
	h.Publish("a", Insert, "3")

	recent := h.Recent(0)
	if len(recent) != 2 {
		t.Fatalf("Recent len = %d, want 2", len(recent))
	}
	if recent[0].RowID != "2" || recent[1].RowID != "3" {
		t.Fatalf("Recent rows = [%s, %s], want [2, 3]", recent[0].RowID, recent[1].RowID)
	}
	if recent[1].ID != 3 {
		t.Fatalf("last change ID = %d, want 3", recent[1].ID)
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(10)
	_, cancel := h.Subscribe("t")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish("t", Insert, "")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestHubCancelIsIdempotent(t *testing.T) {
	h := NewHub(10)
	_, cancel := h.Subscribe("t")
	if h.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", h.SubscriberCount())
	}
	cancel()
	cancel()
	if h.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", h.SubscriberCount())
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	got    chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.mu.Unlock()
	p.got <- struct{}{}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestHubMirrorsToPublisher(t *testing.T) {
	h := NewHub(10)
	p := &recordingPublisher{got: make(chan struct{}, 1)}
	h.SetPublisher(p)

	h.Publish("badges", Insert, "b1")
	select {
	case <-p.got:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher was not called")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.topics) != 1 || p.topics[0] != "badges" {
		t.Fatalf("topics = %v, want [badges]", p.topics)
	}
}

func TestWriteSSE(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteSSE(rec, "change", Change{Table: "goals", Op: Delete}); err != nil {
		t.Fatalf("WriteSSE: %v", err)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "event: change\ndata: {") || !strings.HasSuffix(body, "}\n\n") {
		t.Fatalf("unexpected SSE frame %q", body)
	}
	if !strings.Contains(body, `"table":"goals"`) {
		t.Fatalf("frame missing table: %q", body)
	}
}

func TestKafkaTopic(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "fintrack.")
	defer func() { _ = p.Close() }()
	if got := p.Topic("bank_connections"); got != "fintrack.bank-connections" {
		t.Fatalf("Topic = %q, want fintrack.bank-connections", got)
	}
}
