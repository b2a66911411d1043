// Package remote mirrors the display to websocket clients and accepts input
// samples from them.
//
// The server is a display sink. Every region the adapter forwards is sent to
// each connected client as one binary message: a 9-byte header (x, y, width
// and height as little-endian uint16, then the pixel format) followed by the
// pixels. Clients send JSON input samples:
//
//	{"type":"pointer","x":10,"y":4,"pressed":true}
//	{"type":"key","code":13,"pressed":true}
//
// Connection goroutines never touch the injector. Samples are buffered and
// applied by Apply, which the host calls from the goroutine that steps the
// engine.
//
// WriteRegion runs inside the engine's flush and never waits on the network.
// Each client has a bounded outbound queue drained by its own writer; a
// client whose queue is full is disconnected.
package remote

import (
	"encoding/binary"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/go-drift/lvbind/pkg/display"
	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/input"
	"github.com/go-drift/lvbind/pkg/native"
)

// HeaderSize is the length of the region header in binary messages.
const HeaderSize = 9

const (
	// Time allowed to write one message to a client.
	writeWait = 10 * time.Second
	// Outbound messages held per client.
	defaultQueue = 64
)

// ErrClosed is returned by operations on a closed server.
var ErrClosed = stderrors.New("remote: server closed")

// Sample is one input sample sent by a client.
type Sample struct {
	Type    string `json:"type"`
	X       int16  `json:"x,omitempty"`
	Y       int16  `json:"y,omitempty"`
	Code    uint32 `json:"code,omitempty"`
	Pressed bool   `json:"pressed"`
}

// Hello is the first text message a client receives.
type Hello struct {
	Type    string `json:"type"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"`
	Session string `json:"session,omitempty"`
}

// Config describes the mirrored display.
type Config struct {
	Width, Height int
	Format        display.Format
	// Session is echoed in the hello message.
	Session string
	// Buffer is the number of samples held between Apply calls.
	Buffer int
	// Queue is the number of outbound messages held per client.
	Queue int
	// WriteTimeout bounds a single write to a client.
	WriteTimeout time.Duration
}

type message struct {
	typ  int
	data []byte
}

type client struct {
	conn *websocket.Conn
	send chan message
	addr string
}

// writePump writes queued messages until send is closed, then says goodbye.
// A failed or timed out write closes the connection, which ends the reader.
func (c *client) writePump(wait time.Duration) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wait))
		if err := c.conn.WriteMessage(msg.typ, msg.data); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(wait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Server is a display.Sink and an input source.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
	samples  chan Sample

	mu      sync.Mutex
	clients map[*client]struct{}
	frame   *display.Framebuffer
	closed  bool
	dropped int
	frames  int
	evicted int
}

// NewServer returns a server for a display of the given size and format.
func NewServer(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Format.BytesPerPixel() == 0 {
		return nil, errors.New("remote.NewServer", errors.KindConfig, 0,
			fmt.Errorf("invalid display %dx%d %v", cfg.Width, cfg.Height, cfg.Format))
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Queue < 2 {
		cfg.Queue = defaultQueue
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = writeWait
	}
	if logger == nil {
		logger = errors.Logger()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger.With("component", "remote"),
		samples: make(chan Sample, cfg.Buffer),
		clients: make(map[*client]struct{}),
	}
	// Late joiners get the current frame when it can be composed.
	if fb, err := display.NewFramebuffer(cfg.Width, cfg.Height, cfg.Format); err == nil {
		s.frame = fb
	}
	return s, nil
}

// Handler returns the websocket endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveWS)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan message, s.cfg.Queue), addr: r.RemoteAddr}
	go c.writePump(s.cfg.WriteTimeout)
	defer func() {
		s.mu.Lock()
		s.remove(c)
		s.mu.Unlock()
		conn.Close()
		s.logger.Debug("client disconnected", "remote", r.RemoteAddr)
	}()

	hello, _ := json.Marshal(Hello{
		Type:    "hello",
		Width:   s.cfg.Width,
		Height:  s.cfg.Height,
		Format:  s.cfg.Format.String(),
		Session: s.cfg.Session,
	})

	// The queue holds at least two messages, so the hello and the current
	// frame always fit.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(c.send)
		return
	}
	c.send <- message{websocket.TextMessage, hello}
	if s.frame != nil && s.frame.Writes() > 0 {
		pix := append([]byte(nil), s.frame.Image().Pix...)
		if s.cfg.Format == display.FormatRGBX8888 {
			for i := 3; i < len(pix); i += 4 {
				pix[i] = 0
			}
		}
		c.send <- message{websocket.BinaryMessage, encodeRegion(0, 0, s.cfg.Width, s.cfg.Height, s.cfg.Format, pix)}
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("client connected", "remote", r.RemoteAddr)

	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		sample, err := DecodeSample(msg)
		if err != nil {
			errors.Report(errors.New("remote.read", errors.KindParsing, 0, err))
			continue
		}
		select {
		case s.samples <- sample:
		default:
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
			s.logger.Warn("input buffer full, sample dropped")
		}
	}
}

// DecodeSample parses and validates one JSON sample.
func DecodeSample(msg []byte) (Sample, error) {
	var sample Sample
	if err := json.Unmarshal(msg, &sample); err != nil {
		return Sample{}, &errors.ParseError{Source: "remote/input", DataType: "Sample", Got: string(msg)}
	}
	switch sample.Type {
	case "pointer", "key":
		return sample, nil
	default:
		return Sample{}, &errors.ParseError{Source: "remote/input", DataType: "Sample", Got: sample.Type}
	}
}

// Apply moves every buffered sample into inj, in arrival order, and returns
// how many were applied. Call it from the engine goroutine before a step.
func (s *Server) Apply(inj *input.Injector) int {
	n := 0
	for {
		select {
		case sample := <-s.samples:
			switch sample.Type {
			case "pointer":
				inj.SetPointer(native.Point{X: sample.X, Y: sample.Y}, sample.Pressed)
			case "key":
				inj.SetKey(sample.Code, sample.Pressed)
			}
			n++
		default:
			return n
		}
	}
}

// WriteRegion implements display.Sink. It queues the region for every
// client without blocking; clients that cannot keep up are disconnected.
func (s *Server) WriteRegion(x, y, w, h int, pixels []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.frame != nil {
		if err := s.frame.WriteRegion(x, y, w, h, pixels); err != nil {
			return err
		}
	}
	s.frames++
	if len(s.clients) == 0 {
		return nil
	}
	msg := message{websocket.BinaryMessage, encodeRegion(x, y, w, h, s.cfg.Format, pixels)}
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.remove(c)
			c.conn.Close()
			s.evicted++
			s.logger.Warn("client too slow, disconnected", "remote", c.addr, "queue", s.cfg.Queue)
		}
	}
	return nil
}

// remove unregisters c and stops its writer. The caller holds s.mu.
func (s *Server) remove(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Stats returns the number of regions written and samples dropped.
func (s *Server) Stats() (regions, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, s.dropped
}

// Evicted returns the number of clients disconnected for falling behind.
func (s *Server) Evicted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

// Frame returns the composed framebuffer, or nil for 16- and 24-bit formats.
// WriteRegion mutates it, so read it only on the goroutine that steps the
// engine; Snapshot is safe from anywhere.
func (s *Server) Frame() *display.Framebuffer { return s.frame }

// Snapshot returns a copy of the composed frame, or nil when the format is
// not composed.
func (s *Server) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil
	}
	return s.frame.Scaled(1)
}

// Close disconnects every client.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for c := range s.clients {
		s.remove(c)
	}
	return nil
}

func encodeRegion(x, y, w, h int, f display.Format, pixels []byte) []byte {
	msg := make([]byte, HeaderSize+len(pixels))
	binary.LittleEndian.PutUint16(msg[0:], uint16(x))
	binary.LittleEndian.PutUint16(msg[2:], uint16(y))
	binary.LittleEndian.PutUint16(msg[4:], uint16(w))
	binary.LittleEndian.PutUint16(msg[6:], uint16(h))
	msg[8] = byte(f)
	copy(msg[HeaderSize:], pixels)
	return msg
}

// Region is a decoded binary message.
type Region struct {
	X, Y, W, H int
	Format     display.Format
	Pixels     []byte
}

// DecodeRegion parses a binary region message.
func DecodeRegion(msg []byte) (Region, error) {
	if len(msg) < HeaderSize {
		return Region{}, &errors.ParseError{Source: "remote/region", DataType: "Region", Got: msg}
	}
	r := Region{
		X:      int(binary.LittleEndian.Uint16(msg[0:])),
		Y:      int(binary.LittleEndian.Uint16(msg[2:])),
		W:      int(binary.LittleEndian.Uint16(msg[4:])),
		H:      int(binary.LittleEndian.Uint16(msg[6:])),
		Format: display.Format(msg[8]),
		Pixels: msg[HeaderSize:],
	}
	if len(r.Pixels) != r.W*r.H*r.Format.BytesPerPixel() {
		return Region{}, fmt.Errorf("remote: region %dx%d %v has %d pixel bytes: %w", r.W, r.H, r.Format, len(r.Pixels), display.ErrShortBuffer)
	}
	return r, nil
}
