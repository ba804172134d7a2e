package ftp

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/simpleftp/ftp/internal/ratelimit"
)

// Option is a functional option for configuring an FTP client.
type Option func(*Client) error

// WithTimeout arms per-operation read/write deadlines on the control and
// data connections, and bounds the initial dial. The default is zero:
// no deadlines are set and a hung server blocks the calling goroutine
// indefinitely.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout < 0 {
			return fmt.Errorf("negative timeout: %v", timeout)
		}
		c.timeout = timeout
		return nil
	}
}

// WithLogger enables debug logging using the provided logger. All FTP
// commands and replies are logged at debug level.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	client, _ := ftp.Dial("ftp.example.com:21", ftp.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("nil logger")
		}
		c.logger = logger
		return nil
	}
}

// WithDialer sets a custom net.Dialer for the control and data connections.
// This can be used to configure source addresses, keep-alive settings, etc.
func WithDialer(dialer *net.Dialer) Option {
	return func(c *Client) error {
		if dialer == nil {
			return fmt.Errorf("nil dialer")
		}
		c.dialer = dialer
		return nil
	}
}

// WithBandwidthLimit throttles data-connection throughput to the given
// number of bytes per second, in both directions. The token bucket allows
// a one-second burst. Zero or negative disables throttling.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(c *Client) error {
		c.limiter = ratelimit.New(bytesPerSecond)
		return nil
	}
}

// WithCustomListParser adds a custom directory listing parser. Custom
// parsers are tried before the built-in ones (EPLF, DOS, Unix), so they
// can override handling of ambiguous formats.
func WithCustomListParser(parser ListingParser) Option {
	return func(c *Client) error {
		if parser == nil {
			return fmt.Errorf("nil parser")
		}
		c.parsers = append([]ListingParser{parser}, c.parsers...)
		return nil
	}
}
