package registry

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nick-prater/read-lw-sources/internal/advert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sourcesAdvert(name, addr string, counter, seq uint32) *advert.Advertisement {
	return &advert.Advertisement{
		Header:         advert.Header{Counter: counter},
		Type:           advert.TypeSources,
		SequenceNumber: seq,
		NodeName:       name,
		NodeAddress:    addr,
		UDPPort:        4000,
		Channels: []advert.Channel{
			{Number: 1, LivewireChannel: 6031, Name: "Morning Show", FromSource: "239.192.23.143"},
		},
	}
}

func TestRecordTracksNodes(t *testing.T) {
	r := NewRegistry(testLogger(), time.Minute, nil)
	defer r.Stop()

	if !r.Record(sourcesAdvert("node-a", "192.168.1.10", 1, 10), "192.168.1.10:4001") {
		t.Error("Expected first advertisement to report a new node")
	}
	if r.Record(sourcesAdvert("node-a", "192.168.1.10", 2, 11), "192.168.1.10:4001") {
		t.Error("Expected second advertisement from the same node not to be new")
	}
	r.Record(sourcesAdvert("node-b", "192.168.1.11", 1, 1), "192.168.1.11:4001")

	if r.Count() != 2 {
		t.Fatalf("Expected 2 nodes, got %d", r.Count())
	}

	nodes := r.Snapshot()
	if nodes[0].Address != "192.168.1.10" || nodes[1].Address != "192.168.1.11" {
		t.Errorf("Snapshot not ordered by address: %v, %v", nodes[0].Address, nodes[1].Address)
	}
	if nodes[0].Counter != 2 || nodes[0].SequenceNumber != 11 || nodes[0].Advertisements != 2 {
		t.Errorf("Node state not folded: %+v", nodes[0])
	}
}

func TestNodeSummaryKeepsKnownChannels(t *testing.T) {
	r := NewRegistry(testLogger(), time.Minute, nil)
	defer r.Stop()

	r.Record(sourcesAdvert("node-a", "192.168.1.10", 1, 10), "")

	summary := &advert.Advertisement{
		Header:              advert.Header{Counter: 2},
		Type:                advert.TypeNodeSummary,
		SequenceNumber:      11,
		NodeName:            "node-a",
		NodeAddress:         "192.168.1.10",
		DeclaredSourceCount: 1,
	}
	r.Record(summary, "")

	nodes := r.Snapshot()
	if len(nodes) != 1 {
		t.Fatalf("Expected 1 node, got %d", len(nodes))
	}
	if len(nodes[0].Channels) != 1 {
		t.Errorf("Node summary must not wipe known channels, got %d", len(nodes[0].Channels))
	}
	if nodes[0].DeclaredSourceCount != 1 || nodes[0].Type != advert.TypeNodeSummary {
		t.Errorf("Summary fields not folded: %+v", nodes[0])
	}
}

func TestRecordFallsBackToSourceAddress(t *testing.T) {
	r := NewRegistry(testLogger(), time.Minute, nil)
	defer r.Stop()

	// Undocumented advertisement types may carry no node section.
	bare := &advert.Advertisement{Type: 3}
	r.Record(bare, "192.168.1.44:4001")

	nodes := r.Snapshot()
	if len(nodes) != 1 || nodes[0].Address != "192.168.1.44:4001" {
		t.Errorf("Expected node keyed by source address, got %+v", nodes)
	}
}

func TestSilentNodesExpire(t *testing.T) {
	var expired []Node
	done := make(chan struct{})
	r := NewRegistry(testLogger(), 50*time.Millisecond, func(node Node) {
		expired = append(expired, node)
		close(done)
	})
	defer r.Stop()

	r.Record(sourcesAdvert("node-a", "192.168.1.10", 1, 10), "")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Node did not expire")
	}

	if r.Count() != 0 {
		t.Errorf("Expected empty registry after expiry, got %d", r.Count())
	}
	if len(expired) != 1 || expired[0].Name != "node-a" {
		t.Errorf("Expected expiry callback for node-a, got %+v", expired)
	}
}
