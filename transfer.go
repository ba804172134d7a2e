package ftp

import (
	"fmt"
	"io"
	"net"

	"github.com/simpleftp/ftp/internal/ratelimit"
)

// dataCmd runs the opening half of a data-bearing command: it negotiates a
// passive data connection, sends the transfer command, and checks for a
// preliminary positive reply. The order is fixed by the protocol: the data
// connection must exist before the server acts on the command.
//
// Only a 1xx preliminary reply lets the transfer proceed; any other code
// closes the data connection and aborts before a single payload byte moves.
// The caller owns the returned connection and must complete the exchange
// with finishTransfer.
func (c *Client) dataCmd(cmd string, args ...string) (*Reply, net.Conn, error) {
	dataConn, err := c.openDataConn()
	if err != nil {
		return nil, nil, err
	}

	reply, err := c.sendCommand(cmd, args...)
	if err != nil {
		dataConn.Close()
		return nil, nil, err
	}

	if !reply.Is1xx() {
		dataConn.Close()
		return reply, nil, &Error{
			Command: cmd,
			Message: reply.Message,
			Code:    reply.Code,
		}
	}

	return reply, dataConn, nil
}

// finishTransfer closes the data connection, then reads the transfer's
// final reply from the control channel. The close must come first: the
// server reports completion only once it sees EOF on the data connection.
// A non-2xx final reply is a transfer failure even if every byte moved.
func (c *Client) finishTransfer(cmd string, dataConn net.Conn) error {
	if err := dataConn.Close(); err != nil {
		c.logger.Debug("data connection close failed", "cmd", cmd, "error", err)
	}

	reply, err := c.readReply()
	if err != nil {
		return fmt.Errorf("failed to read completion reply: %w", err)
	}

	if !reply.Is2xx() {
		return &Error{
			Command: cmd,
			Message: reply.Message,
			Code:    reply.Code,
		}
	}

	return nil
}

// retrieve streams a download. Bytes are copied from the data connection to
// w until EOF. On a copy error the data connection is still closed and the
// final reply still drained; the copy error wins.
func (c *Client) retrieve(w io.Writer, cmd string, args ...string) (int64, error) {
	_, dataConn, err := c.dataCmd(cmd, args...)
	if err != nil {
		return 0, err
	}

	n, copyErr := io.Copy(w, ratelimit.NewReader(dataConn, c.limiter))

	finishErr := c.finishTransfer(cmd, dataConn)

	c.logger.Debug("download finished", "cmd", cmd, "bytes", n)

	if copyErr != nil {
		if finishErr != nil {
			c.logger.Debug("cleanup error after failed download", "cmd", cmd, "error", finishErr)
		}
		return n, fmt.Errorf("download failed: %w", copyErr)
	}
	return n, finishErr
}

// store streams an upload and returns the preliminary reply (STOU reports
// the assigned name there) along with the byte count.
func (c *Client) store(r io.Reader, cmd string, args ...string) (*Reply, int64, error) {
	preliminary, dataConn, err := c.dataCmd(cmd, args...)
	if err != nil {
		return nil, 0, err
	}

	n, copyErr := io.Copy(ratelimit.NewWriter(dataConn, c.limiter), r)

	// Closing the data connection signals EOF to the server
	finishErr := c.finishTransfer(cmd, dataConn)

	c.logger.Debug("upload finished", "cmd", cmd, "bytes", n)

	if copyErr != nil {
		if finishErr != nil {
			c.logger.Debug("cleanup error after failed upload", "cmd", cmd, "error", finishErr)
		}
		return preliminary, n, fmt.Errorf("upload failed: %w", copyErr)
	}
	return preliminary, n, finishErr
}

// Retrieve downloads the remote file into w (RETR command).
//
// Example:
//
//	file, err := os.Create("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Retrieve("remote.txt", file)
func (c *Client) Retrieve(remotePath string, w io.Writer) error {
	_, err := c.retrieve(w, "RETR", remotePath)
	return err
}

// Store uploads data from r to the remote path (STOR command).
//
// Example:
//
//	file, err := os.Open("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Store("remote.txt", file)
func (c *Client) Store(remotePath string, r io.Reader) error {
	_, _, err := c.store(r, "STOR", remotePath)
	return err
}

// StoreUnique uploads data under a server-assigned unique name (STOU
// command) and returns the preliminary reply's message, which carries the
// name the server chose.
func (c *Client) StoreUnique(r io.Reader) (string, error) {
	preliminary, _, err := c.store(r, "STOU")
	if err != nil {
		return "", err
	}
	return preliminary.Message, nil
}

// Append appends data from r to the remote path (APPE command), creating
// the file if it does not exist.
func (c *Client) Append(remotePath string, r io.Reader) error {
	_, _, err := c.store(r, "APPE", remotePath)
	return err
}

// listLines runs a directory-listing command (LIST/NLST) and collects the
// data connection's payload as text lines. Listings follow the same
// three-part exchange as file transfers.
func (c *Client) listLines(cmd string, path string) ([]string, error) {
	var dataConn net.Conn
	var err error

	if path == "" {
		_, dataConn, err = c.dataCmd(cmd)
	} else {
		_, dataConn, err = c.dataCmd(cmd, path)
	}
	if err != nil {
		return nil, err
	}

	lines, scanErr := scanLines(ratelimit.NewReader(dataConn, c.limiter))

	finishErr := c.finishTransfer(cmd, dataConn)

	if scanErr != nil {
		if finishErr != nil {
			c.logger.Debug("cleanup error after failed listing", "cmd", cmd, "error", finishErr)
		}
		return nil, fmt.Errorf("failed to read listing: %w", scanErr)
	}
	if finishErr != nil {
		return nil, finishErr
	}

	return lines, nil
}
