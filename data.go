package ftp

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
)

// pasvRegex matches the address tuple inside a PASV reply:
// 227 Entering Passive Mode (h1,h2,h3,h4,p1,p2)
var pasvRegex = regexp.MustCompile(`\((\d+),(\d+),(\d+),(\d+),(\d+),(\d+)\)`)

// parsePASV extracts the data-connection address from a PASV reply.
// Example: "227 Entering Passive Mode (192,168,1,1,195,149)"
// Returns: "192.168.1.1:50069" (195*256 + 149 = 50069)
func parsePASV(reply string) (string, error) {
	matches := pasvRegex.FindStringSubmatch(reply)
	if len(matches) != 7 {
		return "", protocolErrorf("no address tuple in PASV reply: %s", reply)
	}

	var h [4]int
	for i := range 4 {
		val, err := strconv.Atoi(matches[i+1])
		if err != nil || val < 0 || val > 255 {
			return "", protocolErrorf("invalid PASV address octet: %s", matches[i+1])
		}
		h[i] = val
	}
	host := fmt.Sprintf("%d.%d.%d.%d", h[0], h[1], h[2], h[3])

	p1, err1 := strconv.Atoi(matches[5])
	p2, err2 := strconv.Atoi(matches[6])
	if err1 != nil || err2 != nil || p1 < 0 || p1 > 255 || p2 < 0 || p2 > 255 {
		return "", protocolErrorf("invalid PASV port parts: %s, %s", matches[5], matches[6])
	}
	port := p1*256 + p2

	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// resolveDataAddr substitutes the control-connection host when the server
// advertises 0.0.0.0 in its PASV reply (common behind NAT).
func resolveDataAddr(pasvAddr, controlHost string) string {
	host, port, err := net.SplitHostPort(pasvAddr)
	if err != nil {
		return pasvAddr
	}

	if host == "0.0.0.0" {
		return net.JoinHostPort(controlHost, port)
	}

	return pasvAddr
}

// openDataConn negotiates passive mode and opens the data connection.
// It sends PASV, requires a 227 reply with a parsable address tuple, and
// dials the advertised endpoint. The returned connection shares no
// buffering state with the control channel.
func (c *Client) openDataConn() (net.Conn, error) {
	reply, err := c.sendCommand("PASV")
	if err != nil {
		return nil, fmt.Errorf("PASV failed: %w", err)
	}

	if reply.Code != 227 {
		return nil, &Error{
			Command: "PASV",
			Message: reply.Message,
			Code:    reply.Code,
		}
	}

	addr, err := parsePASV(reply.String())
	if err != nil {
		return nil, err
	}
	addr = resolveDataAddr(addr, c.host)

	dataConn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to data port: %w", err)
	}

	if c.timeout > 0 {
		return &deadlineConn{Conn: dataConn, timeout: c.timeout}, nil
	}

	return dataConn, nil
}
