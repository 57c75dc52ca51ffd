package ipc

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/1broseidon/tilewm/internal/runtimepath"
)

// Client sends command lines to the daemon.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for socketPath, or the default socket when empty.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		if p, err := runtimepath.SocketPath(); err == nil {
			socketPath = p
		}
	}
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SetTimeout changes the per-request deadline.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Send opens a connection, sends one line and returns the parsed reply.
// Daemon-side rejections are returned in Reply, not as an error.
func (c *Client) Send(line string) (Reply, error) {
	s, err := c.Dial()
	if err != nil {
		return Reply{}, err
	}
	defer s.Close()
	return s.Send(line)
}

// Run sends one line and converts ERR replies into errors.
func (c *Client) Run(line string) (string, error) {
	reply, err := c.Send(line)
	if err != nil {
		return "", err
	}
	if err := reply.Err(); err != nil {
		return "", err
	}
	return reply.Payload, nil
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	_, err := c.Run("monitor list")
	return err
}

// Dial opens a session for sending several lines over one connection.
func (c *Client) Dial() (*Session, error) {
	if c.socketPath == "" {
		return nil, fmt.Errorf("failed to resolve command socket path")
	}
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	return &Session{conn: conn, reader: bufio.NewReader(conn), timeout: c.timeout}, nil
}

// Session is one open command connection.
type Session struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// Send writes line and waits for its reply.
func (s *Session) Send(line string) (Reply, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.ContainsAny(line, "\n") {
		return Reply{}, fmt.Errorf("command must be a single line")
	}
	s.conn.SetDeadline(time.Now().Add(s.timeout))

	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		return Reply{}, fmt.Errorf("failed to send request: %w", err)
	}
	data, err := s.reader.ReadString('\n')
	if err != nil {
		return Reply{}, fmt.Errorf("failed to read response: %w", err)
	}
	return ParseReply(data)
}

func (s *Session) Close() error {
	return s.conn.Close()
}
