package sse

import (
	"sync"
	"testing"

	"nplvision_backend/platform/logger"
)

func newTestService() *Service {
	return New(logger.New("development"))
}

func TestPublishDeliversToUserConnections(t *testing.T) {
	s := newTestService()
	defer s.Close()

	a := &client{userID: 7, events: make(chan Event, 32)}
	b := &client{userID: 7, events: make(chan Event, 32)}
	other := &client{userID: 8, events: make(chan Event, 32)}
	s.addClient(a)
	s.addClient(b)
	s.addClient(other)

	s.Publish(7, Event{Type: EventNewInboxTask, TaskID: "t1"})

	for _, c := range []*client{a, b} {
		select {
		case ev := <-c.events:
			if ev.TaskID != "t1" {
				t.Fatalf("task id = %s", ev.TaskID)
			}
		default:
			t.Fatal("expected event on user 7 connection")
		}
	}
	select {
	case <-other.events:
		t.Fatal("user 8 must not receive a user 7 event")
	default:
	}
}

func TestBroadcastReachesAllUsers(t *testing.T) {
	s := newTestService()
	defer s.Close()

	conns := []*client{
		{userID: 1, events: make(chan Event, 32)},
		{userID: 2, events: make(chan Event, 32)},
		{userID: 3, events: make(chan Event, 32)},
	}
	for _, c := range conns {
		s.addClient(c)
	}

	s.Broadcast(Event{Type: EventSweepComplete})

	for _, c := range conns {
		select {
		case ev := <-c.events:
			if ev.Type != EventSweepComplete {
				t.Fatalf("event type = %s", ev.Type)
			}
		default:
			t.Fatalf("user %d missed the broadcast", c.userID)
		}
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	s := newTestService()
	defer s.Close()

	c := &client{userID: 4, events: make(chan Event, 2)}
	s.addClient(c)

	for i := 0; i < 5; i++ {
		s.Publish(4, Event{Type: EventTaskUpdated})
	}

	if got := len(c.events); got != 2 {
		t.Fatalf("buffered events = %d, want 2", got)
	}
}

func TestPublishConcurrentWithDisconnect(t *testing.T) {
	// Connections come and go while events are in flight; a send must never
	// hit a closed channel.
	s := newTestService()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.Publish(5, Event{Type: EventNewInboxTask})
				s.Broadcast(Event{Type: EventTaskUpdated})
			}
		}
	}()

	for i := 0; i < 200; i++ {
		c := &client{userID: 5, events: make(chan Event, 1)}
		s.addClient(c)
		s.removeClient(c)
	}
	close(stop)
	wg.Wait()

	s.Close()
	s.Publish(5, Event{Type: EventNewInboxTask})
}
