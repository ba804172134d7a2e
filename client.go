package ftp

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/simpleftp/ftp/internal/ratelimit"
)

// Client represents an FTP client session. It owns the control connection
// exclusively; data connections are created per transfer and never outlive
// it.
//
// The protocol allows one outstanding command at a time, so a Client is not
// safe for concurrent use. Callers that need concurrency must serialize
// access or use one Client per goroutine.
type Client struct {
	// conn is the control connection
	conn net.Conn

	// reader buffers the control connection. It never retains bytes past
	// the end of a fully-consumed reply.
	reader *bufio.Reader

	// host and port of the server, kept for data-connection fixups
	host string
	port string

	// timeout, when non-zero, arms per-operation deadlines. The default is
	// zero: a hung server blocks the calling goroutine indefinitely.
	timeout time.Duration

	// logger receives command/reply traces at debug level
	logger *slog.Logger

	// dialer is used for both control and data connections
	dialer *net.Dialer

	// limiter throttles data-connection throughput when set
	limiter *ratelimit.Limiter

	// parsers is the ordered list of directory listing parsers
	parsers []ListingParser
}

// Dial connects to an FTP server at the given "host:port" address and
// consumes the server's greeting reply. A greeting with any code other
// than 220 fails the connect.
//
// Example:
//
//	client, err := ftp.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
func Dial(addr string, options ...Option) (*Client, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	c := &Client{
		host:   host,
		port:   port,
		dialer: &net.Dialer{},
		logger: slog.New(slog.DiscardHandler),
		parsers: []ListingParser{
			&EPLFParser{},
			&DOSParser{},
			&UnixParser{},
		},
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	c.dialer.Timeout = c.timeout

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

// connect establishes the control connection and consumes the greeting.
func (c *Client) connect() error {
	addr := net.JoinHostPort(c.host, c.port)
	c.logger.Debug("connecting to ftp server", "addr", addr)

	conn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(c.conn)

	greeting, err := c.readReply()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to read greeting: %w", err)
	}

	if greeting.Code != 220 {
		c.conn.Close()
		return &Error{
			Command: "CONNECT",
			Message: greeting.Message,
			Code:    greeting.Code,
		}
	}

	return nil
}

// Login authenticates with the FTP server.
//
// USER alone may complete the login (2xx reply, servers with no password
// requirement); in that case no PASS is sent. A 332 reply to either command
// is surfaced as ErrAccountRequired so the caller can follow up with
// Account.
func (c *Client) Login(username, password string) error {
	reply, err := c.sendCommand("USER", username)
	if err != nil {
		return err
	}

	switch {
	case reply.Is2xx():
		// Logged in without a password
		return nil
	case reply.Code == 332:
		return ErrAccountRequired
	case reply.Code != 331:
		return &Error{
			Command: "USER",
			Message: reply.Message,
			Code:    reply.Code,
		}
	}

	reply, err = c.sendCommand("PASS", password)
	if err != nil {
		return err
	}

	switch {
	case reply.Is2xx():
		return nil
	case reply.Code == 332:
		return ErrAccountRequired
	default:
		return &Error{
			Command: "PASS",
			Message: reply.Message,
			Code:    reply.Code,
		}
	}
}

// Account supplies account information after Login returned
// ErrAccountRequired (ACCT command).
func (c *Client) Account(account string) error {
	_, err := c.expect2xx("ACCT", account)
	return err
}

// Quit logs out and closes the control connection. The QUIT reply is read
// but errors from it are ignored; the socket is closed regardless.
func (c *Client) Quit() error {
	if c.conn == nil {
		return nil
	}

	_, _ = c.sendCommand("QUIT")

	err := c.conn.Close()
	c.conn = nil
	return err
}

// Noop sends a NOOP (no operation) command. Useful as a connection probe;
// it has no observable effect on session state.
func (c *Client) Noop() error {
	_, err := c.expect2xx("NOOP")
	return err
}

// Syst returns the server's system type (SYST command).
func (c *Client) Syst() (string, error) {
	reply, err := c.expect2xx("SYST")
	if err != nil {
		return "", err
	}
	return reply.Message, nil
}

// Stat returns server or file status over the control connection (STAT
// command). With an empty path the server reports general session status.
func (c *Client) Stat(path string) (string, error) {
	var reply *Reply
	var err error
	if path == "" {
		reply, err = c.expect2xx("STAT")
	} else {
		reply, err = c.expect2xx("STAT", path)
	}
	if err != nil {
		return "", err
	}
	return reply.Message, nil
}

// Help returns the server's help text (HELP command). With an empty topic
// the server lists the commands it implements.
func (c *Client) Help(topic string) (string, error) {
	var reply *Reply
	var err error
	if topic == "" {
		reply, err = c.expect2xx("HELP")
	} else {
		reply, err = c.expect2xx("HELP", topic)
	}
	if err != nil {
		return "", err
	}
	return reply.Message, nil
}

// Allocate reserves space for an upcoming transfer (ALLO command). Most
// servers treat this as superfluous and reply 202.
func (c *Client) Allocate(size int64) error {
	_, err := c.expect2xx("ALLO", strconv.FormatInt(size, 10))
	return err
}

// Mount mounts a different file system data structure on the server
// (SMNT command).
func (c *Client) Mount(path string) error {
	_, err := c.expect2xx("SMNT", path)
	return err
}

// Abort asks the server to abort the previous command (ABOR command).
func (c *Client) Abort() error {
	_, err := c.expect2xx("ABOR")
	return err
}

// Quote sends a raw command and returns the reply. This allows commands
// the client does not expose directly.
//
// Example:
//
//	reply, err := client.Quote("SITE", "CHMOD", "755", "script.sh")
func (c *Client) Quote(command string, args ...string) (*Reply, error) {
	return c.sendCommand(command, args...)
}

// UploadFile uploads a local file to the remote path using Store.
func (c *Client) UploadFile(localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer f.Close()

	if err := c.Store(remotePath, f); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	return nil
}

// DownloadFile downloads a remote file to the local filesystem using
// Retrieve. The partial local file is removed on error.
func (c *Client) DownloadFile(remotePath, localPath string) error {
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer f.Close()

	if err := c.Retrieve(remotePath, f); err != nil {
		_ = os.Remove(localPath)
		return fmt.Errorf("download failed: %w", err)
	}

	return nil
}
