package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/nick-prater/read-lw-sources/internal/advert"
	"github.com/nick-prater/read-lw-sources/internal/config"
	"github.com/nick-prater/read-lw-sources/internal/metrics"
)

// Handler consumes fully-decoded advertisements. Failed decodes never
// reach a Handler; they are counted and logged on the diagnostic
// channel only.
type Handler interface {
	HandleAdvertisement(adv *advert.Advertisement, source *net.UDPAddr)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(adv *advert.Advertisement, source *net.UDPAddr)

func (f HandlerFunc) HandleAdvertisement(adv *advert.Advertisement, source *net.UDPAddr) {
	f(adv, source)
}

// Listener joins the advertisement multicast group and decodes every
// datagram it receives. Each datagram is decoded independently; a
// malformed one is discarded and the next is processed as if nothing
// happened.
type Listener struct {
	conn  net.PacketConn
	pconn *ipv4.PacketConn
	group net.IP

	config  *config.ListenerConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	handler Handler
	decoder advert.Decoder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	queue chan *datagram

	// Counters mirrored into Prometheus but kept locally so the HTTP
	// API can report them without scraping.
	datagramsReceived uint64
	datagramsDecoded  uint64
	decodeErrors      uint64
	datagramsDropped  uint64
	mu                sync.RWMutex
}

// datagram is one received message with its metadata. The data slice
// is owned by the datagram; the receive buffer is reused.
type datagram struct {
	data     []byte
	source   *net.UDPAddr
	received time.Time
}

// NewListener creates a listener. m may be nil (used by tests); trace
// may be nil to disable the phrase-by-phrase diagnostic channel.
func NewListener(cfg *config.ListenerConfig, logger *slog.Logger, m *metrics.Metrics,
	handler Handler, trace advert.TraceFunc) *Listener {

	ctx, cancel := context.WithCancel(context.Background())

	return &Listener{
		config:  cfg,
		logger:  logger,
		metrics: m,
		handler: handler,
		decoder: advert.Decoder{Trace: trace},
		ctx:     ctx,
		cancel:  cancel,
		queue:   make(chan *datagram, cfg.QueueSize),
	}
}

// Start joins the multicast group and begins receiving datagrams.
func (l *Listener) Start() error {
	l.group = net.ParseIP(l.config.Group).To4()
	if l.group == nil {
		return fmt.Errorf("group %q is not an IPv4 address", l.config.Group)
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", l.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on UDP port %d: %w", l.config.Port, err)
	}
	l.conn = conn
	l.pconn = ipv4.NewPacketConn(conn)

	var iface *net.Interface
	if l.config.Interface != "" {
		iface, err = net.InterfaceByName(l.config.Interface)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to find interface %s: %w", l.config.Interface, err)
		}
	}

	if err := l.pconn.JoinGroup(iface, &net.UDPAddr{IP: l.group}); err != nil {
		conn.Close()
		return fmt.Errorf("failed to join group %s: %w", l.config.Group, err)
	}

	// The destination address lets the receive loop drop datagrams for
	// other groups sharing the port. Not every platform supports it.
	if err := l.pconn.SetControlMessage(ipv4.FlagDst, true); err != nil {
		l.logger.Warn("Failed to enable destination control messages",
			slog.String("error", err.Error()),
		)
	}

	if uc, ok := conn.(*net.UDPConn); ok {
		if err := uc.SetReadBuffer(l.config.BufferSize); err != nil {
			l.logger.Warn("Failed to set receive buffer size",
				slog.Int("buffer_size", l.config.BufferSize),
				slog.String("error", err.Error()),
			)
		}
	}

	l.logger.Info("Multicast listener started",
		slog.String("group", l.config.GroupAddress()),
		slog.String("interface", l.config.Interface),
		slog.Int("buffer_size", l.config.BufferSize),
	)

	l.wg.Add(2)
	go l.receiveLoop()
	go l.decodeLoop()

	return nil
}

// Stop leaves the multicast group and waits for the loops to finish.
func (l *Listener) Stop() error {
	l.logger.Info("Stopping multicast listener...")

	l.cancel()

	if l.pconn != nil {
		if err := l.pconn.LeaveGroup(nil, &net.UDPAddr{IP: l.group}); err != nil {
			l.logger.Warn("Error leaving multicast group", slog.String("error", err.Error()))
		}
	}
	if l.conn != nil {
		if err := l.conn.Close(); err != nil {
			l.logger.Warn("Error closing connection", slog.String("error", err.Error()))
		}
	}

	l.wg.Wait()

	stats := l.GetStatistics()
	l.logger.Info("Multicast listener stopped",
		slog.Uint64("datagrams_received", stats.DatagramsReceived),
		slog.Uint64("datagrams_decoded", stats.DatagramsDecoded),
		slog.Uint64("decode_errors", stats.DecodeErrors),
		slog.Uint64("datagrams_dropped", stats.DatagramsDropped),
	)

	return nil
}

// receiveLoop reads datagrams off the wire and queues them for
// decoding. It owns the queue and closes it on exit.
func (l *Listener) receiveLoop() {
	defer l.wg.Done()
	defer close(l.queue)

	buffer := make([]byte, l.config.BufferSize)

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		// A deadline keeps the loop responsive to shutdown.
		if err := l.pconn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			l.logger.Error("Failed to set read deadline", slog.String("error", err.Error()))
			continue
		}

		n, cm, src, err := l.pconn.ReadFrom(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-l.ctx.Done():
				return
			default:
				l.logger.Error("Failed to read datagram", slog.String("error", err.Error()))
				continue
			}
		}

		if cm != nil && cm.Dst != nil && !cm.Dst.Equal(l.group) {
			continue
		}

		l.mu.Lock()
		l.datagramsReceived++
		l.mu.Unlock()
		if l.metrics != nil {
			l.metrics.RecordDatagramReceived(n)
		}

		data := make([]byte, n)
		copy(data, buffer[:n])

		source, _ := src.(*net.UDPAddr)
		dg := &datagram{data: data, source: source, received: time.Now()}

		select {
		case l.queue <- dg:
		default:
			l.mu.Lock()
			l.datagramsDropped++
			l.mu.Unlock()
			if l.metrics != nil {
				l.metrics.RecordDatagramDropped()
			}
			l.logger.Warn("Decode queue full, dropping datagram",
				slog.String("source", src.String()),
				slog.Int("size", n),
			)
		}
	}
}

// decodeLoop decodes queued datagrams one at a time and hands
// advertisements to the handler.
func (l *Listener) decodeLoop() {
	defer l.wg.Done()

	for dg := range l.queue {
		if l.metrics != nil {
			l.metrics.SetQueueSize(len(l.queue))
		}
		l.handleDatagram(dg)
	}
}

// handleDatagram decodes one datagram. A failure is scoped to this
// datagram alone: it is logged, counted and discarded.
func (l *Listener) handleDatagram(dg *datagram) {
	adv, err := l.decoder.Decode(dg.data)
	if err != nil {
		l.mu.Lock()
		l.decodeErrors++
		l.mu.Unlock()
		if l.metrics != nil {
			l.metrics.RecordDecodeError(advert.ErrorKind(err))
		}

		l.logger.Warn("Datagram failed to decode",
			slog.String("source", sourceString(dg.source)),
			slog.Int("size", len(dg.data)),
			slog.String("kind", advert.ErrorKind(err)),
			slog.String("error", err.Error()),
		)
		return
	}

	l.mu.Lock()
	l.datagramsDecoded++
	l.mu.Unlock()
	if l.metrics != nil {
		l.metrics.RecordDecoded(adv.Type, len(adv.Channels), len(adv.Warnings))
	}

	for _, w := range adv.Warnings {
		l.logger.Warn("Protocol assumption violated",
			slog.String("source", sourceString(dg.source)),
			slog.Int("offset", w.Offset),
			slog.String("detail", w.Message),
		)
	}

	l.logger.Debug("Advertisement decoded",
		slog.String("source", sourceString(dg.source)),
		slog.Int("advertisement_type", int(adv.Type)),
		slog.String("node_name", adv.NodeName),
		slog.String("node_address", adv.NodeAddress),
		slog.Int("channels", len(adv.Channels)),
		slog.Duration("queue_delay", time.Since(dg.received)),
	)

	l.handler.HandleAdvertisement(adv, dg.source)
}

// GetStatistics returns current listener statistics
func (l *Listener) GetStatistics() Statistics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Statistics{
		DatagramsReceived: l.datagramsReceived,
		DatagramsDecoded:  l.datagramsDecoded,
		DecodeErrors:      l.decodeErrors,
		DatagramsDropped:  l.datagramsDropped,
		QueueSize:         uint64(len(l.queue)),
		QueueCapacity:     uint64(cap(l.queue)),
	}
}

// Statistics represents listener performance counters
type Statistics struct {
	DatagramsReceived uint64 `json:"datagrams_received"`
	DatagramsDecoded  uint64 `json:"datagrams_decoded"`
	DecodeErrors      uint64 `json:"decode_errors"`
	DatagramsDropped  uint64 `json:"datagrams_dropped"`
	QueueSize         uint64 `json:"queue_size"`
	QueueCapacity     uint64 `json:"queue_capacity"`
}

func sourceString(src *net.UDPAddr) string {
	if src == nil {
		return "unknown"
	}
	return src.String()
}
