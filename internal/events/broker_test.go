package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/geethasandesh/articket/internal/domain"
	"github.com/geethasandesh/articket/internal/observability"
)

func newTestBroker(bufferSize int) *Broker {
	return NewBroker(bufferSize, zap.NewNop(), observability.NewMetrics())
}

func vmmCaller() domain.Caller {
	return domain.Caller{UID: "u1", Email: "alice@x.com", Role: domain.RoleEmployee, Project: "VMM"}
}

func vmmTicket(id string, updated time.Time) domain.Ticket {
	return domain.Ticket{
		ID:          id,
		Project:     "VMM",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		LastUpdated: updated,
	}
}

func collect(t *testing.T, sub *Subscription, n int) []TicketEvent {
	t.Helper()
	events := make([]TicketEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatalf("stream closed after %d of %d events", len(events), n)
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(events), n)
		}
	}
	return events
}

func TestSubscribeDeliversSnapshotThenIncrements(t *testing.T) {
	broker := newTestBroker(16)
	defer broker.Close()

	base := time.Now()
	snapshot := func(context.Context) ([]domain.Ticket, error) {
		return []domain.Ticket{
			vmmTicket("t-1", base),
			vmmTicket("t-2", base.Add(time.Millisecond)),
		}, nil
	}

	sub := broker.Subscribe(context.Background(), FilterSpec{Caller: vmmCaller()}, snapshot)
	defer sub.Close()

	initial := collect(t, sub, 2)
	for _, ev := range initial {
		if ev.Change != ChangeSnapshot {
			t.Errorf("initial event change = %s, want snapshot", ev.Change)
		}
	}

	broker.Publish(context.Background(), TicketEvent{
		Type:   EventUpdated,
		Change: ChangeStatus,
		Ticket: vmmTicket("t-1", base.Add(2*time.Millisecond)),
	})

	live := collect(t, sub, 1)
	if live[0].Change != ChangeStatus || live[0].Ticket.ID != "t-1" {
		t.Errorf("live event = %+v, want status change for t-1", live[0])
	}
}

func TestSubscribeSuppressesStatesCoveredBySnapshot(t *testing.T) {
	broker := newTestBroker(16)
	defer broker.Close()

	base := time.Now()
	snapshot := func(context.Context) ([]domain.Ticket, error) {
		return []domain.Ticket{vmmTicket("t-1", base)}, nil
	}

	sub := broker.Subscribe(context.Background(), FilterSpec{Caller: vmmCaller()}, snapshot)
	defer sub.Close()
	collect(t, sub, 1)

	// Same LastUpdated as the snapshot row: the subscriber already holds this
	// state, so it must not see the mutation twice.
	broker.Publish(context.Background(), TicketEvent{
		Type:   EventUpdated,
		Change: ChangeStatus,
		Ticket: vmmTicket("t-1", base),
	})
	// A strictly newer state gets through.
	broker.Publish(context.Background(), TicketEvent{
		Type:   EventUpdated,
		Change: ChangeResponseAdded,
		Ticket: vmmTicket("t-1", base.Add(time.Millisecond)),
	})

	got := collect(t, sub, 1)
	if got[0].Change != ChangeResponseAdded {
		t.Errorf("delivered change = %s, want response_added (stale event should be dropped)", got[0].Change)
	}
}

func TestPublishFansOutToEverySubscriber(t *testing.T) {
	broker := newTestBroker(16)
	defer broker.Close()

	const subscribers = 3
	subs := make([]*Subscription, 0, subscribers)
	for i := 0; i < subscribers; i++ {
		subs = append(subs, broker.Subscribe(context.Background(), FilterSpec{Caller: vmmCaller()}, nil))
	}

	broker.Publish(context.Background(), TicketEvent{
		Type:   EventCreated,
		Change: ChangeCreated,
		Ticket: vmmTicket("t-1", time.Now()),
	})

	for i, sub := range subs {
		got := collect(t, sub, 1)
		if got[0].Ticket.ID != "t-1" {
			t.Errorf("subscriber %d got ticket %s, want t-1", i, got[0].Ticket.ID)
		}
		sub.Close()
	}
}

func TestPerTicketEventsArriveInPublishOrder(t *testing.T) {
	broker := newTestBroker(64)
	defer broker.Close()

	sub := broker.Subscribe(context.Background(), FilterSpec{Caller: vmmCaller()}, nil)
	defer sub.Close()

	base := time.Now()
	const n = 20
	for i := 0; i < n; i++ {
		broker.Publish(context.Background(), TicketEvent{
			Type:   EventUpdated,
			Change: ChangeResponseAdded,
			Ticket: vmmTicket("t-1", base.Add(time.Duration(i)*time.Microsecond)),
		})
	}

	got := collect(t, sub, n)
	for i := 1; i < len(got); i++ {
		if !got[i].Ticket.LastUpdated.After(got[i-1].Ticket.LastUpdated) {
			t.Fatalf("event %d out of order: %v !> %v", i, got[i].Ticket.LastUpdated, got[i-1].Ticket.LastUpdated)
		}
	}
}

func TestScopeFilteringPerSubscriber(t *testing.T) {
	broker := newTestBroker(16)
	defer broker.Close()

	erpCaller := domain.Caller{UID: "u2", Email: "bee@x.com", Role: domain.RoleEmployee, Project: "ERP"}
	vmmSub := broker.Subscribe(context.Background(), FilterSpec{Caller: vmmCaller()}, nil)
	defer vmmSub.Close()
	erpSub := broker.Subscribe(context.Background(), FilterSpec{Caller: erpCaller}, nil)
	defer erpSub.Close()

	base := time.Now()
	broker.Publish(context.Background(), TicketEvent{
		Type: EventCreated, Change: ChangeCreated, Ticket: vmmTicket("t-1", base),
	})
	erpTicket := vmmTicket("t-2", base.Add(time.Millisecond))
	erpTicket.Project = "ERP"
	broker.Publish(context.Background(), TicketEvent{
		Type: EventCreated, Change: ChangeCreated, Ticket: erpTicket,
	})

	if got := collect(t, vmmSub, 1); got[0].Ticket.ID != "t-1" {
		t.Errorf("VMM subscriber got %s, want t-1", got[0].Ticket.ID)
	}
	if got := collect(t, erpSub, 1); got[0].Ticket.ID != "t-2" {
		t.Errorf("ERP subscriber got %s, want t-2", got[0].Ticket.ID)
	}
}

func TestStatusFilterNarrowsStream(t *testing.T) {
	broker := newTestBroker(16)
	defer broker.Close()

	spec := FilterSpec{Caller: vmmCaller(), Statuses: []domain.TicketStatus{domain.TicketStatusResolved}}
	sub := broker.Subscribe(context.Background(), spec, nil)
	defer sub.Close()

	base := time.Now()
	open := vmmTicket("t-1", base)
	broker.Publish(context.Background(), TicketEvent{Type: EventUpdated, Change: ChangeStatus, Ticket: open})

	resolved := vmmTicket("t-2", base.Add(time.Millisecond))
	resolved.Status = domain.TicketStatusResolved
	broker.Publish(context.Background(), TicketEvent{Type: EventUpdated, Change: ChangeStatus, Ticket: resolved})

	got := collect(t, sub, 1)
	if got[0].Ticket.ID != "t-2" {
		t.Errorf("got ticket %s, want only the resolved t-2", got[0].Ticket.ID)
	}
}

func TestSlowSubscriberDropsOldestAndFlagsGap(t *testing.T) {
	broker := newTestBroker(2)
	defer broker.Close()

	sub := broker.Subscribe(context.Background(), FilterSpec{Caller: vmmCaller()}, nil)
	defer sub.Close()

	// Publish far more events than the buffer holds while nobody reads.
	base := time.Now()
	const published = 20
	for i := 0; i < published; i++ {
		broker.Publish(context.Background(), TicketEvent{
			Type:   EventUpdated,
			Change: ChangeResponseAdded,
			Ticket: vmmTicket("t-1", base.Add(time.Duration(i)*time.Microsecond)),
		})
	}

	var delivered []TicketEvent
	timeout := time.After(time.Second)
drain:
	for {
		select {
		case ev := <-sub.Events():
			delivered = append(delivered, ev)
		case <-timeout:
			break drain
		default:
			if len(delivered) > 0 {
				break drain
			}
			time.Sleep(time.Millisecond)
		}
	}
	// Keep draining anything already buffered.
	for {
		select {
		case ev := <-sub.Events():
			delivered = append(delivered, ev)
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}

	if len(delivered) == 0 {
		t.Fatal("no events delivered")
	}
	if len(delivered) >= published {
		t.Fatalf("delivered %d events, expected drops with buffer of 2", len(delivered))
	}
	gapSeen := false
	for _, ev := range delivered {
		if ev.Gap {
			gapSeen = true
		}
	}
	if !gapSeen {
		t.Error("expected at least one event flagged with a gap")
	}
	for i := 1; i < len(delivered); i++ {
		if !delivered[i].Ticket.LastUpdated.After(delivered[i-1].Ticket.LastUpdated) {
			t.Fatalf("delivery order violated at %d", i)
		}
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	broker := newTestBroker(16)
	sub := broker.Subscribe(context.Background(), FilterSpec{Caller: vmmCaller()}, nil)

	broker.Close()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected closed channel after broker close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close")
	}

	// Publishing after close must not panic or deliver.
	broker.Publish(context.Background(), TicketEvent{Type: EventCreated, Change: ChangeCreated, Ticket: vmmTicket("t-9", time.Now())})
}

func TestSubscribeFuncObservesEveryPublish(t *testing.T) {
	broker := newTestBroker(16)
	defer broker.Close()

	var mu sync.Mutex
	var seen []ChangeKind
	done := make(chan struct{}, 2)
	broker.SubscribeFunc(func(_ context.Context, ev TicketEvent) {
		mu.Lock()
		seen = append(seen, ev.Change)
		mu.Unlock()
		done <- struct{}{}
	})

	base := time.Now()
	broker.Publish(context.Background(), TicketEvent{Type: EventCreated, Change: ChangeCreated, Ticket: vmmTicket("t-1", base)})
	broker.Publish(context.Background(), TicketEvent{Type: EventUpdated, Change: ChangeAssigned, Ticket: vmmTicket("t-1", base.Add(time.Millisecond))})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler did not run")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("handler saw %d events, want 2", len(seen))
	}
}
