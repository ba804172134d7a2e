// Command ftpcli is an interactive FTP shell built on the ftp client
// package. It keeps one control connection open at a time and exposes the
// usual verbs (ls, cd, get, put, ...) with completion and colored output.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/simpleftp/ftp"
	"github.com/simpleftp/ftp/internal/terminal"
)

// session holds the shell's connection state. The prompt executor runs
// commands one at a time, so no locking is needed.
type session struct {
	client *ftp.Client
	host   string

	// cwd caches the remote working directory for the prompt prefix; it is
	// refreshed after commands that can change it.
	cwd string

	completer *terminal.CommandCompleter
	tables    *terminal.TableFormatter
	logger    *slog.Logger
}

func main() {
	verbose := false
	for _, arg := range os.Args[1:] {
		if arg == "-v" || arg == "--verbose" {
			verbose = true
		}
	}

	logger := slog.New(slog.DiscardHandler)
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	s := &session{
		completer: terminal.NewCommandCompleter(),
		tables:    terminal.NewTableFormatter(),
		logger:    logger,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		s.close()
		fmt.Println("\nBye.")
		os.Exit(0)
	}()

	terminal.Banner(
		"ftpcli - interactive FTP client",
		"Type 'help' for available commands",
	)

	p := prompt.New(
		s.execute,
		s.completer.Completer,
		prompt.OptionTitle("ftpcli"),
		prompt.OptionLivePrefix(s.prefix),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionCompletionWordSeparator(" "),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(buf *prompt.Buffer) {
				s.close()
				fmt.Println("\nBye.")
				os.Exit(0)
			},
		}),
	)
	p.Run()
}

// prefix renders the live prompt: the host and remote directory when
// connected, a bare marker otherwise.
func (s *session) prefix() (string, bool) {
	if s.client == nil {
		return "ftp> ", true
	}
	if s.cwd == "" {
		return s.host + "> ", true
	}
	return s.host + ":" + s.cwd + "> ", true
}

// refreshCwd updates the cached working directory after commands that can
// change it.
func (s *session) refreshCwd() {
	if s.client == nil {
		s.cwd = ""
		return
	}
	dir, err := s.client.CurrentDir()
	if err != nil {
		s.cwd = ""
		return
	}
	s.cwd = dir
}

func (s *session) close() {
	if s.client != nil {
		_ = s.client.Quit()
		s.client = nil
		s.host = ""
		s.cwd = ""
	}
}

// requireConnection reports whether a connection exists, printing the
// standard hint when it does not.
func (s *session) requireConnection() bool {
	if s.client == nil {
		terminal.Errorf("Not connected. Use: open host[:port]")
		return false
	}
	return true
}

func (s *session) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "open":
		s.cmdOpen(args)
	case "login":
		s.cmdLogin(args)
	case "account":
		s.cmdAccount(args)
	case "ls":
		s.cmdList(args)
	case "dir":
		s.cmdDir(args)
	case "nlst":
		s.cmdNameList(args)
	case "lls":
		s.cmdLocalList(args)
	case "cd":
		s.cmdChangeDir(args)
	case "cdup":
		s.run(func() error { return s.client.ChangeDirUp() })
		s.refreshCwd()
	case "pwd":
		s.cmdPwd()
	case "get":
		s.cmdGet(args)
	case "put":
		s.cmdPut(args)
	case "putu":
		s.cmdPutUnique(args)
	case "append":
		s.cmdAppend(args)
	case "mkdir":
		s.runWithArg(args, "mkdir path", s.clientMakeDir)
	case "rmdir":
		s.runWithArg(args, "rmdir path", s.clientRemoveDir)
	case "rm", "delete":
		s.runWithArg(args, "rm path", s.clientDelete)
	case "rename":
		s.cmdRename(args)
	case "size":
		s.cmdSize(args)
	case "modtime":
		s.cmdModTime(args)
	case "stat":
		s.cmdStat(args)
	case "syst":
		s.cmdSyst()
	case "rhelp":
		s.cmdRemoteHelp(args)
	case "noop":
		s.run(func() error { return s.client.Noop() })
	case "quote":
		s.cmdQuote(args)
	case "allo":
		s.cmdAllocate(args)
	case "close":
		s.close()
		terminal.Infof("Disconnected.")
	case "help":
		s.cmdHelp()
	case "quit", "bye", "exit":
		s.close()
		fmt.Println("Bye.")
		os.Exit(0)
	default:
		terminal.Errorf("Unknown command: %s (try 'help')", cmd)
	}
}

// run executes a simple client call behind the connection check.
func (s *session) run(fn func() error) {
	if !s.requireConnection() {
		return
	}
	if err := fn(); err != nil {
		terminal.Errorf("%v", err)
		return
	}
	terminal.Successf("OK")
}

// runWithArg executes a single-path client call.
func (s *session) runWithArg(args []string, usage string, fn func(string) error) {
	if len(args) != 1 {
		terminal.Errorf("Usage: %s", usage)
		return
	}
	if !s.requireConnection() {
		return
	}
	if err := fn(args[0]); err != nil {
		terminal.Errorf("%v", err)
		return
	}
	terminal.Successf("OK")
}

func (s *session) clientMakeDir(path string) error   { return s.client.MakeDir(path) }
func (s *session) clientRemoveDir(path string) error { return s.client.RemoveDir(path) }
func (s *session) clientDelete(path string) error    { return s.client.Delete(path) }

func (s *session) cmdOpen(args []string) {
	if len(args) != 1 {
		terminal.Errorf("Usage: open host[:port]")
		return
	}
	s.close()

	addr := args[0]
	if !strings.Contains(addr, ":") {
		addr += ":21"
	}

	client, err := ftp.Dial(addr,
		ftp.WithTimeout(30*time.Second),
		ftp.WithLogger(s.logger),
	)
	if err != nil {
		terminal.Errorf("Connect failed: %v", err)
		return
	}

	s.client = client
	s.host = addr
	terminal.Successf("Connected to %s", addr)
	terminal.Infof("Use: login [user]")
}

func (s *session) cmdLogin(args []string) {
	if !s.requireConnection() {
		return
	}

	user := "anonymous"
	if len(args) > 0 {
		user = args[0]
	}

	password := "anonymous@"
	if user != "anonymous" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			terminal.Errorf("Failed to read password: %v", err)
			return
		}
		password = string(raw)
	}

	err := s.client.Login(user, password)
	if errors.Is(err, ftp.ErrAccountRequired) {
		terminal.Infof("Server requires an account. Use: account <name>")
		return
	}
	if err != nil {
		terminal.Errorf("Login failed: %v", err)
		return
	}
	s.refreshCwd()
	terminal.Successf("Logged in as %s", user)
}

func (s *session) cmdAccount(args []string) {
	if len(args) != 1 {
		terminal.Errorf("Usage: account name")
		return
	}
	if !s.requireConnection() {
		return
	}
	if err := s.client.Account(args[0]); err != nil {
		terminal.Errorf("Account failed: %v", err)
		return
	}
	terminal.Successf("Account accepted")
}

func (s *session) cmdList(args []string) {
	if !s.requireConnection() {
		return
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	entries, err := s.client.ListEntries(path)
	if err != nil {
		terminal.Errorf("List failed: %v", err)
		return
	}

	if err := s.tables.RenderEntries(entries); err != nil {
		terminal.Errorf("Render failed: %v", err)
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	s.completer.UpdateRemoteNames(names)
}

func (s *session) cmdDir(args []string) {
	if !s.requireConnection() {
		return
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	lines, err := s.client.List(path)
	if err != nil {
		terminal.Errorf("List failed: %v", err)
		return
	}
	for _, line := range lines {
		fmt.Println(line)
	}
}

func (s *session) cmdNameList(args []string) {
	if !s.requireConnection() {
		return
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	names, err := s.client.NameList(path)
	if err != nil {
		terminal.Errorf("NLST failed: %v", err)
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
	s.completer.UpdateRemoteNames(names)
}

func (s *session) cmdLocalList(args []string) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	if err := s.tables.RenderLocalDir(path); err != nil {
		terminal.Errorf("%v", err)
	}
}

func (s *session) cmdChangeDir(args []string) {
	if len(args) != 1 {
		terminal.Errorf("Usage: cd path")
		return
	}
	if !s.requireConnection() {
		return
	}
	if err := s.client.ChangeDir(args[0]); err != nil {
		terminal.Errorf("cd failed: %v", err)
		return
	}
	s.refreshCwd()
	// Stale names from the previous directory would mislead completion
	s.completer.UpdateRemoteNames(nil)
}

func (s *session) cmdPwd() {
	if !s.requireConnection() {
		return
	}
	dir, err := s.client.CurrentDir()
	if err != nil {
		terminal.Errorf("pwd failed: %v", err)
		return
	}
	s.cwd = dir
	fmt.Println(dir)
}

func (s *session) cmdGet(args []string) {
	if len(args) < 1 || len(args) > 2 {
		terminal.Errorf("Usage: get remote [local]")
		return
	}
	if !s.requireConnection() {
		return
	}

	remote := args[0]
	local := remote
	if len(args) == 2 {
		local = args[1]
	}

	f, err := os.Create(local)
	if err != nil {
		terminal.Errorf("Cannot create %s: %v", local, err)
		return
	}
	defer f.Close()

	start := time.Now()
	pw := &ftp.ProgressWriter{
		Writer:   f,
		Callback: progressLine("Downloading"),
	}

	if err := s.client.Retrieve(remote, pw); err != nil {
		fmt.Println()
		_ = os.Remove(local)
		terminal.Errorf("Download failed: %v", err)
		return
	}
	fmt.Println()
	terminal.Successf("Downloaded %s in %v", remote, time.Since(start).Round(time.Millisecond))
}

func (s *session) cmdPut(args []string) {
	if len(args) < 1 || len(args) > 2 {
		terminal.Errorf("Usage: put local [remote]")
		return
	}
	if !s.requireConnection() {
		return
	}

	local := args[0]
	remote := local
	if len(args) == 2 {
		remote = args[1]
	}

	f, err := os.Open(local)
	if err != nil {
		terminal.Errorf("Cannot open %s: %v", local, err)
		return
	}
	defer f.Close()

	start := time.Now()
	pr := &ftp.ProgressReader{
		Reader:   f,
		Callback: progressLine("Uploading"),
	}

	if err := s.client.Store(remote, pr); err != nil {
		fmt.Println()
		terminal.Errorf("Upload failed: %v", err)
		return
	}
	fmt.Println()
	terminal.Successf("Uploaded %s in %v", local, time.Since(start).Round(time.Millisecond))
}

func (s *session) cmdPutUnique(args []string) {
	if len(args) != 1 {
		terminal.Errorf("Usage: putu local")
		return
	}
	if !s.requireConnection() {
		return
	}

	f, err := os.Open(args[0])
	if err != nil {
		terminal.Errorf("Cannot open %s: %v", args[0], err)
		return
	}
	defer f.Close()

	name, err := s.client.StoreUnique(f)
	if err != nil {
		terminal.Errorf("Upload failed: %v", err)
		return
	}
	terminal.Successf("Stored as: %s", name)
}

func (s *session) cmdAppend(args []string) {
	if len(args) != 2 {
		terminal.Errorf("Usage: append local remote")
		return
	}
	if !s.requireConnection() {
		return
	}

	f, err := os.Open(args[0])
	if err != nil {
		terminal.Errorf("Cannot open %s: %v", args[0], err)
		return
	}
	defer f.Close()

	if err := s.client.Append(args[1], f); err != nil {
		terminal.Errorf("Append failed: %v", err)
		return
	}
	terminal.Successf("Appended to %s", args[1])
}

func (s *session) cmdRename(args []string) {
	if len(args) != 2 {
		terminal.Errorf("Usage: rename from to")
		return
	}
	if !s.requireConnection() {
		return
	}
	if err := s.client.Rename(args[0], args[1]); err != nil {
		terminal.Errorf("Rename failed: %v", err)
		return
	}
	terminal.Successf("Renamed %s to %s", args[0], args[1])
}

func (s *session) cmdSize(args []string) {
	if len(args) != 1 {
		terminal.Errorf("Usage: size path")
		return
	}
	if !s.requireConnection() {
		return
	}
	size, err := s.client.Size(args[0])
	if err != nil {
		terminal.Errorf("size failed: %v", err)
		return
	}
	fmt.Printf("%s: %s (%d bytes)\n", args[0], terminal.FormatSize(size), size)
}

func (s *session) cmdModTime(args []string) {
	if len(args) != 1 {
		terminal.Errorf("Usage: modtime path")
		return
	}
	if !s.requireConnection() {
		return
	}
	modTime, err := s.client.ModTime(args[0])
	if err != nil {
		terminal.Errorf("modtime failed: %v", err)
		return
	}
	fmt.Printf("%s: %s\n", args[0], modTime.Format(time.RFC1123))
}

func (s *session) cmdStat(args []string) {
	if !s.requireConnection() {
		return
	}
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	status, err := s.client.Stat(path)
	if err != nil {
		terminal.Errorf("stat failed: %v", err)
		return
	}
	fmt.Println(status)
}

func (s *session) cmdSyst() {
	if !s.requireConnection() {
		return
	}
	syst, err := s.client.Syst()
	if err != nil {
		terminal.Errorf("syst failed: %v", err)
		return
	}
	fmt.Println(syst)
}

func (s *session) cmdRemoteHelp(args []string) {
	if !s.requireConnection() {
		return
	}
	topic := ""
	if len(args) > 0 {
		topic = args[0]
	}
	help, err := s.client.Help(topic)
	if err != nil {
		terminal.Errorf("help failed: %v", err)
		return
	}
	fmt.Println(help)
}

func (s *session) cmdQuote(args []string) {
	if len(args) < 1 {
		terminal.Errorf("Usage: quote command [args...]")
		return
	}
	if !s.requireConnection() {
		return
	}
	reply, err := s.client.Quote(strings.ToUpper(args[0]), args[1:]...)
	if err != nil {
		terminal.Errorf("quote failed: %v", err)
		return
	}
	fmt.Printf("%d %s\n", reply.Code, reply.Message)
}

func (s *session) cmdAllocate(args []string) {
	if len(args) != 1 {
		terminal.Errorf("Usage: allo bytes")
		return
	}
	if !s.requireConnection() {
		return
	}
	size, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		terminal.Errorf("Invalid size: %s", args[0])
		return
	}
	if err := s.client.Allocate(size); err != nil {
		terminal.Errorf("allo failed: %v", err)
		return
	}
	terminal.Successf("OK")
}

func (s *session) cmdHelp() {
	terminal.Infof("Connection:  open host[:port], login [user], account name, close, quit")
	terminal.Infof("Browsing:    ls [path], dir [path], nlst [path], lls [path], cd path, cdup, pwd")
	terminal.Infof("Transfers:   get remote [local], put local [remote], putu local, append local remote")
	terminal.Infof("Files:       mkdir, rmdir, rm, rename from to, size, modtime, stat [path]")
	terminal.Infof("Server:      syst, rhelp [topic], noop, quote cmd [args...], allo bytes")
}

// progressLine returns a callback that rewrites a single status line as
// bytes move.
func progressLine(verb string) func(int64) {
	return func(total int64) {
		fmt.Printf("\r%s... %s", verb, terminal.FormatSize(total))
	}
}
