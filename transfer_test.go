package ftp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRetrieve(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.startPassive(t)

	payload := "hello from the server\nsecond line\n"
	ms.handlers["RETR"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 Opening data connection for %s.", args)
		dconn, err := ms.dataListener.Accept()
		if err != nil {
			t.Errorf("data accept failed: %v", err)
			return
		}
		_, _ = dconn.Write([]byte(payload))
		dconn.Close()
		_ = c.PrintfLine("226 Transfer complete.")
	}
	ms.start()
	defer ms.stop()

	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Quit() }()

	var buf bytes.Buffer
	if err := c.Retrieve("greeting.txt", &buf); err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if buf.String() != payload {
		t.Errorf("Retrieve content = %q, want %q", buf.String(), payload)
	}

	// PASV must precede the transfer command on the control channel
	commands := ms.commands()
	var pasvIdx, retrIdx = -1, -1
	for i, cmd := range commands {
		switch cmd {
		case "PASV":
			pasvIdx = i
		case "RETR":
			retrIdx = i
		}
	}
	if pasvIdx == -1 || retrIdx == -1 || pasvIdx > retrIdx {
		t.Errorf("expected PASV before RETR, got %v", commands)
	}
}

func TestRetrieve_Refused(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.startPassive(t)
	ms.handlers["RETR"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("550 File not found.")
	}
	ms.start()
	defer ms.stop()

	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Quit() }()

	var buf bytes.Buffer
	err = c.Retrieve("missing.txt", &buf)

	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Code != 550 {
		t.Fatalf("expected *Error with code 550, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no payload on refused transfer, got %d bytes", buf.Len())
	}
}

func TestRetrieve_FinalFailure(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.startPassive(t)

	// Every byte moves, then the server reports the transfer as aborted.
	// The final reply decides: this is a failure.
	ms.handlers["RETR"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 Opening data connection.")
		dconn, err := ms.dataListener.Accept()
		if err != nil {
			t.Errorf("data accept failed: %v", err)
			return
		}
		_, _ = dconn.Write([]byte("partial data"))
		dconn.Close()
		_ = c.PrintfLine("426 Connection closed; transfer aborted.")
	}
	ms.start()
	defer ms.stop()

	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Quit() }()

	var buf bytes.Buffer
	err = c.Retrieve("flaky.txt", &buf)

	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Code != 426 {
		t.Fatalf("expected *Error with code 426, got %v", err)
	}
	if !ferr.IsTemporary() {
		t.Error("426 should be reported as temporary")
	}
}

func TestStore(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.startPassive(t)

	received := make(chan []byte, 1)
	ms.handlers["STOR"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 Ok to send data.")
		dconn, err := ms.dataListener.Accept()
		if err != nil {
			t.Errorf("data accept failed: %v", err)
			return
		}
		data, _ := io.ReadAll(dconn)
		dconn.Close()
		received <- data
		_ = c.PrintfLine("226 Transfer complete.")
	}
	ms.start()
	defer ms.stop()

	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Quit() }()

	payload := "uploaded content"
	if err := c.Store("upload.txt", strings.NewReader(payload)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if got := string(<-received); got != payload {
		t.Errorf("server received %q, want %q", got, payload)
	}
}

func TestStoreUnique(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.startPassive(t)
	ms.handlers["STOU"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 FILE: upload.1704067200")
		dconn, err := ms.dataListener.Accept()
		if err != nil {
			t.Errorf("data accept failed: %v", err)
			return
		}
		_, _ = io.Copy(io.Discard, dconn)
		dconn.Close()
		_ = c.PrintfLine("226 Transfer complete.")
	}
	ms.start()
	defer ms.stop()

	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Quit() }()

	name, err := c.StoreUnique(strings.NewReader("data"))
	if err != nil {
		t.Fatalf("StoreUnique failed: %v", err)
	}
	if !strings.Contains(name, "upload.1704067200") {
		t.Errorf("StoreUnique name = %q, want it to carry the server-assigned name", name)
	}
}

func TestAppend(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.startPassive(t)
	ms.handlers["APPE"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 Ok to send data.")
		dconn, err := ms.dataListener.Accept()
		if err != nil {
			t.Errorf("data accept failed: %v", err)
			return
		}
		_, _ = io.Copy(io.Discard, dconn)
		dconn.Close()
		_ = c.PrintfLine("226 Transfer complete.")
	}
	ms.start()
	defer ms.stop()

	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Quit() }()

	if err := c.Append("log.txt", strings.NewReader("new line\n")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}

func TestList(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.startPassive(t)

	listing := "-rw-r--r--   1 user group  1234 Jan 15 10:30 file.txt\r\n" +
		"drwxr-xr-x   2 user group  4096 Jan 10 09:00 docs\r\n"
	ms.handlers["LIST"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 Here comes the directory listing.")
		dconn, err := ms.dataListener.Accept()
		if err != nil {
			t.Errorf("data accept failed: %v", err)
			return
		}
		_, _ = dconn.Write([]byte(listing))
		dconn.Close()
		_ = c.PrintfLine("226 Directory send OK.")
	}
	ms.start()
	defer ms.stop()

	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Quit() }()

	lines, err := c.List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 listing lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "file.txt") {
		t.Errorf("unexpected first line: %q", lines[0])
	}

	entries, err := c.ListEntries("")
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "file.txt" || entries[0].Type != "file" || entries[0].Size != 1234 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
	if entries[1].Name != "docs" || entries[1].Type != "dir" {
		t.Errorf("unexpected entry: %+v", entries[1])
	}
}

func TestNameList(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.startPassive(t)
	ms.handlers["NLST"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 Here comes the directory listing.")
		dconn, err := ms.dataListener.Accept()
		if err != nil {
			t.Errorf("data accept failed: %v", err)
			return
		}
		_, _ = dconn.Write([]byte("file.txt\r\n\r\ndocs\r\n"))
		dconn.Close()
		_ = c.PrintfLine("226 Directory send OK.")
	}
	ms.start()
	defer ms.stop()

	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Quit() }()

	names, err := c.NameList("")
	if err != nil {
		t.Fatalf("NameList failed: %v", err)
	}
	want := []string{"file.txt", "docs"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("NameList() = %v, want %v", names, want)
	}
}

// closeTrackingConn wraps a net.Conn and records when Close is called.
type closeTrackingConn struct {
	net.Conn
	closed chan struct{}
	once   sync.Once
}

func (c *closeTrackingConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.Conn.Close()
}

// The data connection must be closed strictly before the final reply is
// consumed from the control channel: the server reports completion only
// after it sees EOF on the data connection.
func TestFinishTransfer_ClosesDataBeforeFinalReply(t *testing.T) {
	t.Parallel()
	controlClient, controlServer := net.Pipe()
	defer controlClient.Close()
	defer controlServer.Close()

	dataClient, dataServer := net.Pipe()
	defer dataServer.Close()

	tracked := &closeTrackingConn{Conn: dataClient, closed: make(chan struct{})}

	c := &Client{
		conn:   controlClient,
		reader: bufio.NewReader(controlClient),
		logger: slog.New(slog.DiscardHandler),
	}

	// The control server releases the final reply only after observing the
	// data connection close. If the client read the reply first, this test
	// would time out.
	go func() {
		<-tracked.closed
		_, _ = controlServer.Write([]byte("226 Transfer complete.\r\n"))
	}()

	result := make(chan error, 1)
	go func() { result <- c.finishTransfer("RETR", tracked) }()

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("finishTransfer failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("finishTransfer deadlocked: final reply read before data connection close")
	}
}

func TestFinishTransfer_FinalNon2xx(t *testing.T) {
	t.Parallel()
	controlClient, controlServer := net.Pipe()
	defer controlClient.Close()
	defer controlServer.Close()

	dataClient, dataServer := net.Pipe()
	defer dataServer.Close()

	c := &Client{
		conn:   controlClient,
		reader: bufio.NewReader(controlClient),
		logger: slog.New(slog.DiscardHandler),
	}

	go func() {
		_, _ = controlServer.Write([]byte("451 Local error in processing.\r\n"))
	}()

	err := c.finishTransfer("STOR", dataClient)
	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Code != 451 {
		t.Fatalf("expected *Error with code 451, got %v", err)
	}
}
