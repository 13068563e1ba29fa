package codec

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Handler decodes and applies one (version, type) message body. It
// returns an error if the body is malformed for this message type.
type Handler func(body []byte) error

// Version is the dense set of message-type handlers for one protocol
// version. Type IDs are assigned 0, 1, 2, ... in registration order.
type Version struct {
	handlers []Handler
}

// NewVersion builds a Version from handlers listed in type-ID order.
func NewVersion(handlers ...Handler) *Version {
	return &Version{handlers: handlers}
}

func (v *Version) handler(typ uint8) (Handler, bool) {
	if int(typ) >= len(v.handlers) {
		return nil, false
	}
	return v.handlers[typ], true
}

// Protocol is the dense set of versions a Reader recognizes. Version IDs
// are assigned 0, 1, 2, ... in registration order.
type Protocol struct {
	versions []*Version
}

// NewProtocol builds a Protocol from versions listed in version-ID order.
func NewProtocol(versions ...*Version) *Protocol {
	return &Protocol{versions: versions}
}

func (p *Protocol) version(v uint8) (*Version, bool) {
	if int(v) >= len(p.versions) {
		return nil, false
	}
	return p.versions[v], true
}

// Reader dispatches frames read from a stream to the handler registered
// for their (version, type) pair. Unknown pairs are a failure, not a
// panic: frames may originate from another, newer or older, instance.
type Reader struct {
	protocol *Protocol
	logger   *logrus.Logger
}

// NewReader builds a Reader for protocol, logging rejected frames to
// logger (which may be nil to discard them).
func NewReader(protocol *Protocol, logger *logrus.Logger) *Reader {
	if logger == nil {
		logger = logrus.New()
		logger.Out = io.Discard
	}
	return &Reader{protocol: protocol, logger: logger}
}

// Read pulls one frame from r and dispatches it. eof is true only when
// the stream ended cleanly at a frame boundary with nothing processed.
func (rd *Reader) Read(r io.Reader) (eof bool, err error) {
	frame, err := ReadFrame(r)
	if err != nil {
		if err == ErrEndOfStream {
			return true, nil
		}
		rd.logger.Warnf("codec: rejected frame: %v", err)
		return false, fmt.Errorf("codec: reading frame: %w", err)
	}
	version, ok := rd.protocol.version(frame.Version)
	if !ok {
		rd.logger.Warnf("codec: unknown protocol version %d", frame.Version)
		return false, fmt.Errorf("codec: unknown protocol version %d", frame.Version)
	}
	handler, ok := version.handler(frame.Type)
	if !ok {
		rd.logger.Warnf("codec: unknown message type %d in version %d", frame.Type, frame.Version)
		return false, fmt.Errorf("codec: unknown message type %d in version %d", frame.Type, frame.Version)
	}
	if err := handler(frame.Body); err != nil {
		rd.logger.Warnf("codec: handler for (version %d, type %d) rejected body: %v", frame.Version, frame.Type, err)
		return false, fmt.Errorf("codec: dispatching (version %d, type %d): %w", frame.Version, frame.Type, err)
	}
	return false, nil
}
