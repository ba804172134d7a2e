// Package terminal renders CLI output for the ftpcli shell: colored status
// messages, directory listing tables, and command completion.
package terminal

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/simpleftp/ftp"
)

// TableFormatter renders directory listings as aligned tables.
type TableFormatter struct {
	table *tablewriter.Table
}

// NewTableFormatter creates a table formatter writing to stdout.
func NewTableFormatter() *TableFormatter {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Type", "Size", "Target")
	table.Options(
		tablewriter.WithRendition(tw.Rendition{Borders: tw.Border{Left: tw.Pending, Right: tw.Pending, Top: tw.Pending, Bottom: tw.Pending}}),
		tablewriter.WithPadding(tw.Padding{Left: "  ", Right: "  "}),
	)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.MaxWidth = 0
		cfg.Header = tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		}
		cfg.Row = tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		}
	})

	return &TableFormatter{table: table}
}

// RenderEntries renders parsed remote directory entries.
func (tf *TableFormatter) RenderEntries(entries []*ftp.Entry) error {
	if len(entries) == 0 {
		fmt.Println("Directory is empty")
		return nil
	}

	tf.table.Reset()
	tf.table.Header("Name", "Type", "Size", "Target")

	for _, entry := range entries {
		name := entry.Name
		size := FormatSize(entry.Size)

		switch entry.Type {
		case "dir":
			name += "/"
			size = "-"
		case "link":
			name += "@"
			size = "-"
		case "unknown":
			// Preserve server output the parsers could not decode
			name = entry.Raw
			size = "?"
		}

		if len(name) > 60 {
			name = name[:57] + "..."
		}

		tf.table.Append([]string{name, entry.Type, size, entry.Target})
	}

	return tf.table.Render()
}

// RenderLocalDir renders a local directory listing, for the shell's lls
// command.
func (tf *TableFormatter) RenderLocalDir(path string) error {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return err
	}

	if len(dirEntries) == 0 {
		fmt.Println("Directory is empty")
		return nil
	}

	tf.table.Reset()
	tf.table.Header("Name", "Type", "Size", "Modified")

	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}

		name := de.Name()
		entryType := "file"
		size := FormatSize(info.Size())
		if de.IsDir() {
			name += "/"
			entryType = "dir"
			size = "-"
		}

		tf.table.Append([]string{name, entryType, size, info.ModTime().Format("Jan 02 15:04")})
	}

	return tf.table.Render()
}

// FormatSize renders a byte count in human-readable form.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
