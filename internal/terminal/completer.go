package terminal

import (
	"strings"

	"github.com/c-bata/go-prompt"
)

// CommandCompleter suggests shell commands and cached remote paths.
type CommandCompleter struct {
	commands []prompt.Suggest

	// remoteNames caches the last NLST result for argument completion
	remoteNames []string
}

// NewCommandCompleter creates a completer seeded with the shell's command
// set.
func NewCommandCompleter() *CommandCompleter {
	return &CommandCompleter{
		commands: []prompt.Suggest{
			{Text: "open", Description: "Connect to an FTP server (open host[:port])"},
			{Text: "login", Description: "Authenticate (login [user])"},
			{Text: "account", Description: "Supply account information (ACCT)"},
			{Text: "ls", Description: "List remote directory as a table"},
			{Text: "dir", Description: "List remote directory, raw server lines"},
			{Text: "nlst", Description: "List remote file names"},
			{Text: "lls", Description: "List a local directory"},
			{Text: "cd", Description: "Change remote directory"},
			{Text: "cdup", Description: "Move to the parent remote directory"},
			{Text: "pwd", Description: "Show the remote working directory"},
			{Text: "get", Description: "Download a file (get remote [local])"},
			{Text: "put", Description: "Upload a file (put local [remote])"},
			{Text: "putu", Description: "Upload under a server-assigned unique name"},
			{Text: "append", Description: "Append a local file to a remote one"},
			{Text: "mkdir", Description: "Create a remote directory"},
			{Text: "rmdir", Description: "Remove a remote directory"},
			{Text: "rm", Description: "Delete a remote file"},
			{Text: "rename", Description: "Rename a remote file (rename from to)"},
			{Text: "size", Description: "Show the size of a remote file"},
			{Text: "modtime", Description: "Show the modification time of a remote file"},
			{Text: "stat", Description: "Show server or file status"},
			{Text: "syst", Description: "Show the server's system type"},
			{Text: "rhelp", Description: "Show the server's help text"},
			{Text: "noop", Description: "Probe the connection"},
			{Text: "quote", Description: "Send a raw FTP command"},
			{Text: "allo", Description: "Reserve space for an upload (ALLO)"},
			{Text: "close", Description: "Disconnect from the server"},
			{Text: "help", Description: "Show this command list"},
			{Text: "quit", Description: "Disconnect and exit"},
		},
	}
}

// UpdateRemoteNames replaces the cached remote names used for argument
// completion.
func (c *CommandCompleter) UpdateRemoteNames(names []string) {
	c.remoteNames = names
}

// Completer returns suggestions for the current input line.
func (c *CommandCompleter) Completer(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	words := strings.Fields(text)

	// Completing the command word itself
	if len(words) == 0 || (len(words) == 1 && !strings.HasSuffix(text, " ")) {
		return prompt.FilterHasPrefix(c.commands, d.GetWordBeforeCursor(), true)
	}

	// Completing an argument: offer cached remote names for commands that
	// take a remote path
	switch words[0] {
	case "get", "rm", "cd", "size", "modtime", "stat", "rename", "append", "rmdir":
		suggestions := make([]prompt.Suggest, 0, len(c.remoteNames))
		for _, name := range c.remoteNames {
			suggestions = append(suggestions, prompt.Suggest{Text: name})
		}
		return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
	}

	return nil
}
