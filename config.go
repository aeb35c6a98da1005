package yamux

import (
	"io"
	"sync"
	"time"

	"github.com/flowmux/yamux/frame"
	"github.com/flowmux/yamux/log"
)

// Config recognizes the options described in the external-interfaces
// section of the protocol notes. The zero value is valid; missing fields
// are filled in with their documented defaults the first time a Session is
// built from it.
type Config struct {
	// InitialStreamWindowBytes is the receive window advertised for every
	// new stream, local or remote. Default 262144 (256 KiB).
	InitialStreamWindowBytes uint32

	// MaxFramePayloadBytes bounds the payload of any single Data frame this
	// side sends; larger writes are split across multiple frames. Default
	// 65536 (64 KiB).
	MaxFramePayloadBytes uint32

	// AcceptBacklog is the maximum number of inbound streams queued for
	// Accept() before new SYNs are refused with RST. Default 256.
	AcceptBacklog uint32

	// SessionPingInterval, if non-zero, causes the session to send a
	// keepalive Ping on this cadence. Each Ping waits up to one interval for
	// its response; after an unanswered Ping the next one is sent after a
	// growing backoff, and the session fails itself once maxKeepaliveMisses
	// consecutive Pings go unanswered. Zero disables keepalives.
	SessionPingInterval time.Duration

	// Logger receives structured diagnostics from the session. Defaults to
	// a no-op logger.
	Logger log.Logger

	// NewFramer builds the frame codec over the session transport. Default
	// frame.NewFramer.
	NewFramer func(io.Reader, io.Writer) frame.Framer

	// Acceptor, if set, is consulted for every inbound stream-open request
	// before it is queued for Accept(); returning false refuses the stream
	// with RST instead of establishing it. A nil Acceptor accepts everything
	// up to AcceptBacklog.
	Acceptor func(*Stream) bool

	initOnce             sync.Once
	writeQueueDepth      int
	inboundWindowDivisor uint32
}

const (
	defaultInitialWindow  = 256 * 1024
	defaultMaxFramePayload = 64 * 1024
	defaultAcceptBacklog  = 256
	defaultWriteQueueDepth = 64
)

func (c *Config) initDefaults() {
	c.initOnce.Do(func() {
		if c.InitialStreamWindowBytes == 0 {
			c.InitialStreamWindowBytes = defaultInitialWindow
		}
		if c.MaxFramePayloadBytes == 0 {
			c.MaxFramePayloadBytes = defaultMaxFramePayload
		}
		if c.AcceptBacklog == 0 {
			c.AcceptBacklog = defaultAcceptBacklog
		}
		if c.Logger == nil {
			c.Logger = log.Noop()
		}
		if c.NewFramer == nil {
			c.NewFramer = frame.NewFramer
		}
		if c.writeQueueDepth == 0 {
			c.writeQueueDepth = defaultWriteQueueDepth
		}
		if c.inboundWindowDivisor == 0 {
			// emit a WindowUpdate once half the advertised window has been
			// consumed, per the "reasonable default" in the flow-control notes.
			c.inboundWindowDivisor = 2
		}
	})
}

var zeroConfig Config

func init() {
	zeroConfig.initDefaults()
}
