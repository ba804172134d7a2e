package ftp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// scanLines reads the whole payload of a listing data connection as text.
func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// List returns the raw directory listing (LIST command), one line per
// entry, exactly as the server sent it. If path is empty the server lists
// the current directory. Use ListEntries for structured results.
func (c *Client) List(path string) ([]string, error) {
	return c.listLines("LIST", path)
}

// NameList returns the names in the given directory (NLST command), one
// name per line with blank lines dropped.
func (c *Client) NameList(path string) ([]string, error) {
	lines, err := c.listLines("NLST", path)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, line := range lines {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Entry represents a parsed file or directory entry from a LIST command.
type Entry struct {
	Name   string
	Type   string // "file", "dir", "link", or "unknown"
	Size   int64
	Target string // For symlinks, the target path (empty otherwise)
	Raw    string // The raw line from the LIST command
}

// ListEntries returns the directory listing parsed into entries.
//
// The parser supports multiple listing formats for compatibility:
//
//   - Unix-style (9-field): perms links owner group size month day time/year name
//   - Unix-style (8-field): perms links owner size month day time/year name
//   - DOS/Windows: MM-DD-YY HH:MMAM/PM size|<DIR> filename
//   - EPLF: +facts\tname or +facts name
//
// Lines that match no format come back with Type "unknown" and the raw
// line preserved, so callers never lose server output.
func (c *Client) ListEntries(path string) ([]*Entry, error) {
	lines, err := c.listLines("LIST", path)
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	for _, line := range lines {
		if entry := parseListLine(line, c.parsers); entry != nil {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// ListingParser is an interface for parsing directory listing entries.
type ListingParser interface {
	// Parse attempts to decode one listing line. It reports false when the
	// line does not match this parser's format.
	Parse(line string) (*Entry, bool)
}

// parseListLine tries each parser in order, falling back to an "unknown"
// entry that preserves the raw line.
func parseListLine(line string, parsers []ListingParser) *Entry {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	for _, parser := range parsers {
		if entry, ok := parser.Parse(trimmed); ok {
			return entry
		}
	}

	return &Entry{
		Raw:  line,
		Name: line,
		Type: "unknown",
	}
}

// UnixParser parses Unix-style directory entries.
type UnixParser struct{}

func (p *UnixParser) Parse(line string) (*Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return nil, false
	}

	perms := fields[0]
	isSymbolic := len(perms) >= 1 && strings.ContainsRune("-dlbcps", rune(perms[0]))
	if !isSymbolic {
		return nil, false
	}

	entry := &Entry{Raw: line}
	switch perms[0] {
	case 'd':
		entry.Type = "dir"
	case 'l':
		entry.Type = "link"
	default:
		entry.Type = "file"
	}

	// 9-field: perms links owner group size month day time/year name
	// 8-field: perms links owner size month day time/year name (no group)
	var sizeIdx, nameIdx int
	if len(fields) >= 9 && isNumeric(fields[4]) {
		sizeIdx, nameIdx = 4, 8
	} else if isNumeric(fields[3]) {
		sizeIdx, nameIdx = 3, 7
	} else {
		return nil, false
	}

	size, err := strconv.ParseInt(fields[sizeIdx], 10, 64)
	if err != nil {
		return nil, false
	}
	entry.Size = size

	fullName := strings.Join(fields[nameIdx:], " ")
	if entry.Type == "link" {
		if before, after, ok := strings.Cut(fullName, " -> "); ok {
			entry.Name = before
			entry.Target = after
			return entry, true
		}
	}
	entry.Name = fullName
	return entry, true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// DOSParser parses DOS/Windows-style directory entries.
// Example: "12-14-23  12:22PM           1037794 large-document.pdf"
// Example: "09-24-24  10:30AM       <DIR>          logs"
type DOSParser struct{}

func (p *DOSParser) Parse(line string) (*Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 || !isDOSDate(fields[0]) {
		return nil, false
	}

	entry := &Entry{Raw: line, Name: strings.Join(fields[3:], " ")}

	if fields[2] == "<DIR>" {
		entry.Type = "dir"
		return entry, true
	}

	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, false
	}
	entry.Type = "file"
	entry.Size = size
	return entry, true
}

// isDOSDate reports whether s looks like MM-DD-YY[YY] or MM/DD/YY[YY].
func isDOSDate(s string) bool {
	sep := "-"
	if !strings.Contains(s, sep) {
		sep = "/"
		if !strings.Contains(s, sep) {
			return false
		}
	}

	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return false
	}

	for i, part := range parts {
		if !isNumeric(part) {
			return false
		}
		if i < 2 && (len(part) < 1 || len(part) > 2) {
			return false
		}
		if i == 2 && len(part) != 2 && len(part) != 4 {
			return false
		}
	}
	return true
}

// EPLFParser parses EPLF (Easily Parsed LIST Format) entries.
// Example: "+i8388621.48594,m825718503,r,s280,\tdjb.html"
type EPLFParser struct{}

func (p *EPLFParser) Parse(line string) (*Entry, bool) {
	if !strings.HasPrefix(line, "+") {
		return nil, false
	}

	rest := line[1:]
	idx := strings.IndexAny(rest, "\t ")
	if idx == -1 {
		return nil, false
	}
	facts := rest[:idx]
	name := strings.TrimSpace(rest[idx+1:])
	if name == "" {
		return nil, false
	}

	entry := &Entry{Raw: line, Name: name, Type: "file"}

	for fact := range strings.SplitSeq(facts, ",") {
		if fact == "" {
			continue
		}
		switch fact[0] {
		case '/':
			entry.Type = "dir"
		case 's':
			if size, err := strconv.ParseInt(fact[1:], 10, 64); err == nil {
				entry.Size = size
			}
		}
	}

	return entry, true
}

// ChangeDir changes the current working directory (CWD command).
func (c *Client) ChangeDir(path string) error {
	_, err := c.expect2xx("CWD", path)
	return err
}

// ChangeDirUp moves to the parent directory (CDUP command).
func (c *Client) ChangeDirUp() error {
	_, err := c.expect2xx("CDUP")
	return err
}

// CurrentDir returns the current working directory (PWD command).
// The path is extracted from the quoted segment of the 257 reply,
// e.g. `257 "/home/user" is the current directory`.
func (c *Client) CurrentDir() (string, error) {
	reply, err := c.expect2xx("PWD")
	if err != nil {
		return "", err
	}

	msg := reply.Message
	start := strings.Index(msg, "\"")
	if start == -1 {
		return "", protocolErrorf("no quoted path in PWD reply: %s", msg)
	}
	end := strings.Index(msg[start+1:], "\"")
	if end == -1 {
		return "", protocolErrorf("unterminated path in PWD reply: %s", msg)
	}

	return msg[start+1 : start+1+end], nil
}

// MakeDir creates a directory (MKD command).
func (c *Client) MakeDir(path string) error {
	_, err := c.expect2xx("MKD", path)
	return err
}

// RemoveDir removes a directory (RMD command).
func (c *Client) RemoveDir(path string) error {
	_, err := c.expect2xx("RMD", path)
	return err
}

// Delete deletes a file (DELE command).
func (c *Client) Delete(path string) error {
	_, err := c.expect2xx("DELE", path)
	return err
}

// Rename renames a file or directory. RNFR must yield 350 (pending) before
// RNTO is sent; any other code aborts without touching the target.
func (c *Client) Rename(from, to string) error {
	reply, err := c.sendCommand("RNFR", from)
	if err != nil {
		return err
	}

	if reply.Code != 350 {
		return &Error{
			Command: "RNFR",
			Message: reply.Message,
			Code:    reply.Code,
		}
	}

	_, err = c.expect2xx("RNTO", to)
	return err
}

// Size returns the size of a remote file in bytes (SIZE command).
func (c *Client) Size(path string) (int64, error) {
	reply, err := c.expect2xx("SIZE", path)
	if err != nil {
		return 0, err
	}

	size, parseErr := strconv.ParseInt(strings.TrimSpace(reply.Message), 10, 64)
	if parseErr != nil {
		return 0, fmt.Errorf("invalid SIZE reply: %s", reply.Message)
	}

	return size, nil
}

// ModTime returns the modification time of a remote file (MDTM command).
// The reply carries a YYYYMMDDHHMMSS timestamp in UTC (RFC 3659 §2.3).
func (c *Client) ModTime(path string) (time.Time, error) {
	reply, err := c.expect2xx("MDTM", path)
	if err != nil {
		return time.Time{}, err
	}

	timestamp := strings.TrimSpace(reply.Message)
	modTime, parseErr := time.Parse("20060102150405", timestamp)
	if parseErr != nil {
		return time.Time{}, fmt.Errorf("invalid MDTM timestamp %q: %w", timestamp, parseErr)
	}

	return modTime.UTC(), nil
}
