// Package ftp implements an FTP client (RFC 959) built around a
// synchronous control-channel protocol engine.
//
// The client speaks the FTP control protocol over a single TCP connection:
// commands are CRLF-terminated ASCII lines, replies carry a three-digit
// code and may span multiple lines. Data-bearing commands (RETR, STOR,
// STOU, APPE, LIST, NLST) open a second, short-lived TCP connection
// negotiated in passive mode (PASV) and always produce two control replies,
// a preliminary 1xx before the payload moves and a final 2xx once the data
// connection is closed.
//
// # Basic usage
//
//	client, err := ftp.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	if err := client.Login("anonymous", "anonymous@"); err != nil {
//	    log.Fatal(err)
//	}
//
//	var buf bytes.Buffer
//	if err := client.Retrieve("README", &buf); err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// The protocol allows one outstanding command at a time, so a Client
// performs no internal locking and is not safe for concurrent use. Callers
// that need parallel transfers should open one Client per goroutine; each
// holds its own control connection.
//
// # Timeouts
//
// By default no deadlines are set: a hung server blocks the calling
// goroutine indefinitely. Use WithTimeout to arm per-operation deadlines on
// both the control and data connections.
//
// # Errors
//
// Three kinds of failure are surfaced, never retried:
//
//   - I/O errors from the sockets, wrapped with context;
//   - *ProtocolError for replies the parser cannot decode (the control
//     connection is unusable afterwards, reconnect to recover);
//   - *Error for well-formed 4xx/5xx replies, carrying the code and
//     message so callers can branch on semantics.
//
// Login additionally returns ErrAccountRequired when the server demands an
// ACCT command (code 332).
//
// Not implemented: TLS, active mode (PORT), transfer resume (REST), and
// TYPE/STRU/MODE negotiation; transfers use the server's default type.
package ftp
