package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxLineBytes bounds one command line.
const maxLineBytes = 64 * 1024

// ErrAlreadyRunning is returned by Start when a live daemon owns the socket.
var ErrAlreadyRunning = errors.New("another daemon is listening on the socket")

// Request is one command line read from a client. The reader waits for
// exactly one Reply before reading the next line of that connection.
type Request struct {
	ConnID string
	Line   string
	reply  chan string
}

// NewRequest builds a request outside a server, for hotkeys and tests.
func NewRequest(connID, line string) *Request {
	return &Request{ConnID: connID, Line: line, reply: make(chan string, 1)}
}

// Reply delivers the reply line. Only the first call has an effect.
func (r *Request) Reply(line string) {
	select {
	case r.reply <- line:
	default:
	}
}

// Wait returns the reply, or "" if ctx ends first.
func (r *Request) Wait(ctx context.Context) string {
	select {
	case line := <-r.reply:
		return line
	case <-ctx.Done():
		return ""
	}
}

// Server accepts command connections on a unix socket.
type Server struct {
	socketPath string
	logger     *slog.Logger

	listener net.Listener
	emit     func(*Request)

	mu       sync.Mutex
	conns    map[string]net.Conn
	draining bool
	pending  sync.WaitGroup
	connWG   sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a server for socketPath.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		logger:     logger,
		conns:      make(map[string]net.Conn),
		done:       make(chan struct{}),
	}
}

// SocketPath returns the listening path.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start binds the socket and begins accepting. Each line read is passed to
// emit. A stale socket file is replaced; a live one is an error.
func (s *Server) Start(ctx context.Context, emit func(*Request)) error {
	if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("%s: %w", s.socketPath, ErrAlreadyRunning)
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create command socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}
	s.listener = listener
	s.emit = emit

	s.logger.Info("command channel listening", "socket", s.socketPath)
	go s.acceptLoop(ctx)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isDraining() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		id := uuid.NewString()
		s.mu.Lock()
		if s.draining {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[id] = conn
		s.connWG.Add(1)
		s.mu.Unlock()

		go s.handleConnection(ctx, id, conn)
	}
}

func (s *Server) isDraining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draining
}

// handleConnection serves one client: read a line, hand it to the reactor,
// write its reply, repeat.
func (s *Server) handleConnection(ctx context.Context, id string, conn net.Conn) {
	defer s.connWG.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		conn.Close()
	}()

	reader := bufio.NewReaderSize(conn, 4096)
	for {
		line, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrDeadlineExceeded) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("command read failed", "conn", id, "error", err)
			}
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		s.mu.Lock()
		if s.draining {
			s.mu.Unlock()
			return
		}
		s.pending.Add(1)
		s.mu.Unlock()

		req := NewRequest(id, line)
		s.emit(req)
		reply := req.Wait(ctx)
		if reply == "" {
			s.pending.Done()
			return
		}
		_, werr := io.WriteString(conn, reply+"\n")
		s.pending.Done()
		if werr != nil {
			s.logger.Debug("reply write failed", "conn", id, "error", werr)
			return
		}
	}
}

// readLine reads one newline-terminated line. A final line without a
// newline is accepted at EOF.
func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if sb.Len() > 0 && errors.Is(err, io.EOF) {
				return sb.String(), nil
			}
			return "", err
		}
		sb.Write(chunk)
		if sb.Len() > maxLineBytes {
			return "", fmt.Errorf("command line exceeds %d bytes", maxLineBytes)
		}
		if !isPrefix {
			return sb.String(), nil
		}
	}
}

// Drain stops accepting connections and lines. Requests already handed to
// the reactor still get their replies. The returned channel closes once
// every such reply is written and every connection is closed.
func (s *Server) Drain() <-chan struct{} {
	s.mu.Lock()
	already := s.draining
	s.draining = true
	for _, conn := range s.conns {
		// Unblocks idle readers; in-flight replies are still written.
		conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	if !already {
		if s.listener != nil {
			s.listener.Close()
		}
		os.Remove(s.socketPath)
		go func() {
			s.pending.Wait()
			s.connWG.Wait()
			close(s.done)
		}()
	}
	return s.done
}

// Stop drains and waits up to timeout for outstanding replies.
func (s *Server) Stop(timeout time.Duration) {
	s.stopOnce.Do(func() {
		done := s.Drain()
		select {
		case <-done:
		case <-time.After(timeout):
			s.logger.Warn("command channel did not drain in time")
			s.mu.Lock()
			for _, conn := range s.conns {
				conn.Close()
			}
			s.mu.Unlock()
		}
	})
}
