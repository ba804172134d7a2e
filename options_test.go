package ftp

import (
	"log/slog"
	"net"
	"testing"
	"time"
)

func TestOptions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		option  Option
		wantErr bool
		check   func(t *testing.T, c *Client)
	}{
		{
			name:   "timeout",
			option: WithTimeout(30 * time.Second),
			check: func(t *testing.T, c *Client) {
				if c.timeout != 30*time.Second {
					t.Errorf("timeout = %v, want 30s", c.timeout)
				}
			},
		},
		{
			name:    "negative timeout",
			option:  WithTimeout(-1 * time.Second),
			wantErr: true,
		},
		{
			name:   "logger",
			option: WithLogger(slog.Default()),
			check: func(t *testing.T, c *Client) {
				if c.logger != slog.Default() {
					t.Error("logger not applied")
				}
			},
		},
		{
			name:    "nil logger",
			option:  WithLogger(nil),
			wantErr: true,
		},
		{
			name:   "dialer",
			option: WithDialer(&net.Dialer{KeepAlive: time.Minute}),
			check: func(t *testing.T, c *Client) {
				if c.dialer.KeepAlive != time.Minute {
					t.Error("dialer not applied")
				}
			},
		},
		{
			name:    "nil dialer",
			option:  WithDialer(nil),
			wantErr: true,
		},
		{
			name:   "bandwidth limit",
			option: WithBandwidthLimit(64 * 1024),
			check: func(t *testing.T, c *Client) {
				if c.limiter == nil {
					t.Error("limiter not set")
				}
			},
		},
		{
			name:   "bandwidth limit disabled by zero",
			option: WithBandwidthLimit(0),
			check: func(t *testing.T, c *Client) {
				if c.limiter != nil {
					t.Error("expected nil limiter for zero rate")
				}
			},
		},
		{
			name:    "nil custom parser",
			option:  WithCustomListParser(nil),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{
				dialer: &net.Dialer{},
				logger: slog.New(slog.DiscardHandler),
			}

			err := tt.option(c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("option error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

// everythingParser claims every line as a fixed entry, proving custom
// parsers run before the built-in ones.
type everythingParser struct{}

func (p *everythingParser) Parse(line string) (*Entry, bool) {
	return &Entry{Name: "claimed", Type: "file", Raw: line}, true
}

func TestWithCustomListParser_Priority(t *testing.T) {
	t.Parallel()
	c := &Client{
		parsers: []ListingParser{&EPLFParser{}, &DOSParser{}, &UnixParser{}},
	}

	if err := WithCustomListParser(&everythingParser{})(c); err != nil {
		t.Fatal(err)
	}

	entry := parseListLine("-rw-r--r--   1 user group  1234 Jan 15 10:30 file.txt", c.parsers)
	if entry == nil || entry.Name != "claimed" {
		t.Errorf("custom parser did not take priority: %+v", entry)
	}
}
