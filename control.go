package ftp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reply represents one FTP server reply.
type Reply struct {
	// Code is the three-digit reply code (e.g., 220, 550)
	Code int

	// Message is the human-readable text of the reply. For multi-line
	// replies the per-line texts are joined with newlines.
	Message string

	// Lines contains every raw line of the reply, in order
	Lines []string
}

// Is1xx returns true if the reply code is in the 1xx range (preliminary positive).
func (r *Reply) Is1xx() bool {
	return r.Code >= 100 && r.Code < 200
}

// Is2xx returns true if the reply code is in the 2xx range (completion).
func (r *Reply) Is2xx() bool {
	return r.Code >= 200 && r.Code < 300
}

// Is3xx returns true if the reply code is in the 3xx range (intermediate).
func (r *Reply) Is3xx() bool {
	return r.Code >= 300 && r.Code < 400
}

// Is4xx returns true if the reply code is in the 4xx range (transient failure).
func (r *Reply) Is4xx() bool {
	return r.Code >= 400 && r.Code < 500
}

// Is5xx returns true if the reply code is in the 5xx range (permanent failure).
func (r *Reply) Is5xx() bool {
	return r.Code >= 500 && r.Code < 600
}

// String returns the full reply as a string.
func (r *Reply) String() string {
	return strings.Join(r.Lines, "\n")
}

// readReply reads one complete FTP reply from the control channel.
// It handles both single-line and multi-line replies.
//
// Single-line format: "220 Welcome\r\n"
// Multi-line format:
//
//	"220-Welcome to FTP\r\n"
//	"220-This is line 2\r\n"
//	"220 Ready\r\n"
//
// A multi-line reply ends at the first line that repeats the opening code
// followed by a space. A terminator or continuation line that carries a
// different code is a protocol error.
func readReply(r *bufio.Reader) (*Reply, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}

	line = strings.TrimRight(line, "\r\n")
	if len(line) < 4 {
		return nil, protocolErrorf("short reply line: %q", line)
	}

	code, err := strconv.Atoi(line[0:3])
	if err != nil {
		return nil, protocolErrorf("invalid reply code: %q", line[0:3])
	}
	if code < 100 || code > 599 {
		return nil, protocolErrorf("reply code out of range: %d", code)
	}

	lines := []string{line}

	// Common case: single-line reply
	if line[3] == ' ' {
		return &Reply{
			Code:    code,
			Message: line[4:],
			Lines:   lines,
		}, nil
	}

	if line[3] != '-' {
		return nil, protocolErrorf("invalid reply format: %q", line)
	}

	if err := readReplyTail(r, code, &lines); err != nil {
		return nil, err
	}

	var messageLines []string
	for _, l := range lines {
		if len(l) > 4 {
			messageLines = append(messageLines, l[4:])
		}
	}

	return &Reply{
		Code:    code,
		Message: strings.Join(messageLines, "\n"),
		Lines:   lines,
	}, nil
}

// readReplyTail consumes the remaining lines of a multi-line reply opened
// with "<code>-". The first line matching "<code> " terminates the reply.
func readReplyTail(r *bufio.Reader, code int, lines *[]string) error {
	codeStr := fmt.Sprintf("%03d", code)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return protocolErrorf("unexpected EOF inside multi-line reply %d", code)
			}
			return err
		}

		line = strings.TrimRight(line, "\r\n")

		// RFC 2389 continuation lines start with a space
		if len(line) > 0 && line[0] == ' ' {
			*lines = append(*lines, line)
			continue
		}

		if len(line) < 4 || line[0:3] != codeStr {
			return protocolErrorf("reply code mismatch inside %d reply: %q", code, line)
		}

		*lines = append(*lines, line)

		if line[3] == ' ' {
			return nil
		}

		if line[3] != '-' {
			return protocolErrorf("invalid continuation line: %q", line)
		}
	}
}

// sendCommand writes one FTP command to the control channel and reads
// exactly one reply. The protocol is strictly half-duplex: the Client must
// not be used from multiple goroutines without external serialization.
func (c *Client) sendCommand(command string, args ...string) (*Reply, error) {
	var cmd string
	if len(args) > 0 {
		cmd = fmt.Sprintf("%s %s", command, strings.Join(args, " "))
	} else {
		cmd = command
	}

	c.logger.Debug("ftp command", "cmd", cmd)

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	if _, err := fmt.Fprintf(c.conn, "%s\r\n", cmd); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	return c.readReply()
}

// readReply reads one reply from the control channel, applying the
// configured deadline. Transfer commands produce a second, independent
// reply on the same exchange; the transfer path calls this directly.
func (c *Client) readReply() (*Reply, error) {
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	reply, err := readReply(c.reader)
	if err != nil {
		if _, ok := err.(*ProtocolError); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read reply: %w", err)
	}

	c.logger.Debug("ftp reply", "code", reply.Code, "message", reply.Message)
	return reply, nil
}

// expectCode sends a command and verifies the reply code matches exactly.
func (c *Client) expectCode(expected int, command string, args ...string) (*Reply, error) {
	reply, err := c.sendCommand(command, args...)
	if err != nil {
		return nil, err
	}

	if reply.Code != expected {
		return reply, &Error{
			Command: command,
			Message: reply.Message,
			Code:    reply.Code,
		}
	}

	return reply, nil
}

// expect2xx sends a command and verifies the reply is in the 2xx range.
func (c *Client) expect2xx(command string, args ...string) (*Reply, error) {
	reply, err := c.sendCommand(command, args...)
	if err != nil {
		return nil, err
	}

	if !reply.Is2xx() {
		return reply, &Error{
			Command: command,
			Message: reply.Message,
			Code:    reply.Code,
		}
	}

	return reply, nil
}
