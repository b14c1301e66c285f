package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nick-prater/read-lw-sources/internal/advert"
)

// Node is the last-seen state for one advertising node. The decoder
// itself holds no cross-message state; this store is the caller-owned
// log of counters and sequence numbers the protocol hints at.
type Node struct {
	Name                string           `json:"name"`
	Address             string           `json:"address"`
	UDPPort             uint16           `json:"udp_port"`
	HardwareID          uint16           `json:"hardware_id"`
	Type                uint8            `json:"advertisement_type"`
	Counter             uint32           `json:"counter"`
	SequenceNumber      uint32           `json:"sequence_number"`
	DeclaredSourceCount uint16           `json:"declared_source_count"`
	Channels            []advert.Channel `json:"channels"`
	FirstSeen           time.Time        `json:"first_seen"`
	LastSeen            time.Time        `json:"last_seen"`
	Advertisements      uint64           `json:"advertisements"`
}

// Registry tracks every node heard on the advertisement group, keyed
// by node address. Nodes that go silent for longer than the timeout
// are dropped by a background janitor.
type Registry struct {
	nodes   map[string]*Node
	mu      sync.RWMutex
	logger  *slog.Logger
	timeout time.Duration

	// onExpire, when non-nil, is called for every node the janitor
	// drops.
	onExpire func(node Node)

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewRegistry creates a node registry and starts its janitor. onExpire
// may be nil.
func NewRegistry(logger *slog.Logger, timeout time.Duration, onExpire func(node Node)) *Registry {
	ctx, cancel := context.WithCancel(context.Background())

	r := &Registry{
		nodes:    make(map[string]*Node),
		logger:   logger,
		timeout:  timeout,
		onExpire: onExpire,
		ctx:      ctx,
		cancel:   cancel,
		cleanup:  make(chan struct{}),
	}

	go r.startCleanupRoutine()

	return r
}

// Record folds one decoded advertisement into the registry and reports
// whether the node was seen for the first time. The source address is
// used as the key when the advertisement carried no node address
// (undocumented types may omit the node section).
func (r *Registry) Record(adv *advert.Advertisement, source string) bool {
	key := adv.NodeAddress
	if key == "" {
		key = source
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	node, exists := r.nodes[key]
	if !exists {
		node = &Node{
			Address:   key,
			FirstSeen: now,
		}
		r.nodes[key] = node

		r.logger.Info("New node heard",
			slog.String("node_address", key),
			slog.String("node_name", adv.NodeName),
			slog.Int("advertisement_type", int(adv.Type)),
		)
	}

	// The counter looks monotonic per sender but its meaning is
	// unconfirmed; a regression is worth a note, nothing more.
	if exists && adv.Header.Counter < node.Counter {
		r.logger.Debug("Node counter went backwards",
			slog.String("node_address", key),
			slog.Uint64("previous", uint64(node.Counter)),
			slog.Uint64("current", uint64(adv.Header.Counter)),
		)
	}

	node.Counter = adv.Header.Counter
	node.SequenceNumber = adv.SequenceNumber
	node.Type = adv.Type
	node.LastSeen = now
	node.Advertisements++

	if adv.NodeName != "" {
		node.Name = adv.NodeName
	}
	if adv.UDPPort != 0 {
		node.UDPPort = adv.UDPPort
	}
	if adv.HardwareID != 0 {
		node.HardwareID = adv.HardwareID
	}
	if adv.DeclaredSourceCount != 0 {
		node.DeclaredSourceCount = adv.DeclaredSourceCount
	}

	// Only a sources advertisement describes channels; a node summary
	// must not wipe the channel list we already hold.
	if adv.Type == advert.TypeSources {
		node.Channels = append([]advert.Channel(nil), adv.Channels...)
	}

	return !exists
}

// Count returns the number of nodes currently tracked.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Snapshot returns a copy of every tracked node, ordered by address
// for stable rendering.
func (r *Registry) Snapshot() []Node {
	r.mu.RLock()
	nodes := make([]Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		nodes = append(nodes, *node)
	}
	r.mu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Address < nodes[j].Address
	})
	return nodes
}

// Stop stops the janitor and waits for it to finish.
func (r *Registry) Stop() {
	r.cancel()
	<-r.cleanup

	r.logger.Info("Node registry stopped",
		slog.Int("nodes_tracked", r.Count()),
	)
}

// startCleanupRoutine drops nodes that have gone silent.
func (r *Registry) startCleanupRoutine() {
	defer close(r.cleanup)

	interval := r.timeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Node cleanup routine started",
		slog.Duration("timeout", r.timeout),
		slog.Duration("check_interval", interval),
	)

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.cleanupExpiredNodes()
		}
	}
}

func (r *Registry) cleanupExpiredNodes() {
	now := time.Now()

	r.mu.Lock()
	var expired []Node
	for key, node := range r.nodes {
		if now.Sub(node.LastSeen) > r.timeout {
			expired = append(expired, *node)
			delete(r.nodes, key)
		}
	}
	r.mu.Unlock()

	for _, node := range expired {
		r.logger.Info("Node went silent, dropping",
			slog.String("node_address", node.Address),
			slog.String("node_name", node.Name),
			slog.Time("last_seen", node.LastSeen),
		)
		if r.onExpire != nil {
			r.onExpire(node)
		}
	}
}
