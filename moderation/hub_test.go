package moderation

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/soonab/Soonab-sub000/schema"
)

func testFlag(target string) schema.BrigadeFlag {
	return schema.BrigadeFlag{
		ID:             "flag-" + target,
		Surface:        schema.RatingSurfacePeer,
		Target:         target,
		Reason:         "distinct_raters_in_window",
		DistinctRaters: 6,
		Raters:         []string{"profile:a", "profile:b"},
		CreatedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishFansOut(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe("a")
	b := hub.Subscribe("b")
	assert.Equal(t, 2, hub.Len())

	hub.Publish(testFlag("profile:t"))

	assert.Equal(t, "profile:t", (<-a).Target)
	assert.Equal(t, "profile:t", (<-b).Target)
}

func TestPublishSkipsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	slow := hub.Subscribe("slow")

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+5; i++ {
			hub.Publish(testFlag(fmt.Sprintf("profile:%d", i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, slow, subscriberBuffer)
	assert.Equal(t, "profile:0", (<-slow).Target)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("a")
	hub.Unsubscribe("a")
	hub.Unsubscribe("a")

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Len())

	// publishing without subscribers is a no-op
	hub.Publish(testFlag("profile:t"))
}

func TestServeConnStreamsFlags(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.ServeConn(conn)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if !assert.NoError(t, err) {
		return
	}
	defer conn.Close()

	assert.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(testFlag("profile:t"))

	var flag schema.BrigadeFlag
	conn.SetReadDeadline(time.Now().Add(time.Second))
	assert.NoError(t, conn.ReadJSON(&flag))
	assert.Equal(t, "profile:t", flag.Target)
	assert.Equal(t, 6, flag.DistinctRaters)
	assert.Equal(t, []string{"profile:a", "profile:b"}, []string(flag.Raters))

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}
