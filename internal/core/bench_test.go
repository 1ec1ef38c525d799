package core

import (
	"fmt"
	"testing"
)

func benchmarkPresenceBroadcast(b *testing.B, connections int) {
	hub := NewHub(testLogger())

	clients := make([]*Client, 0, connections)
	for i := 0; i < connections; i++ {
		c := NewClient(fmt.Sprintf("c%d", i), Identity{UserID: fmt.Sprintf("u%d", i), Username: "client"})
		hub.Register(c)
		clients = append(clients, c)
	}

	// Drain events to avoid channel backpressure.
	for _, c := range clients {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hub.broadcast(&Event{Kind: EventOnlineUsers, UserIDs: hub.OnlineUsers()})
	}
}

func BenchmarkPresenceBroadcast_10(b *testing.B)  { benchmarkPresenceBroadcast(b, 10) }
func BenchmarkPresenceBroadcast_100(b *testing.B) { benchmarkPresenceBroadcast(b, 100) }
func BenchmarkPresenceBroadcast_500(b *testing.B) { benchmarkPresenceBroadcast(b, 500) }
