package terminal

import "github.com/fatih/color"

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	infoColor    = color.New(color.FgCyan)
	promptColor  = color.New(color.FgGreen, color.Bold)
)

// Successf prints a success message in green.
func Successf(format string, args ...any) {
	_, _ = successColor.Printf(format+"\n", args...)
}

// Errorf prints an error message in red.
func Errorf(format string, args ...any) {
	_, _ = errorColor.Printf(format+"\n", args...)
}

// Infof prints an informational message in cyan.
func Infof(format string, args ...any) {
	_, _ = infoColor.Printf(format+"\n", args...)
}

// Banner prints the shell's welcome banner.
func Banner(lines ...string) {
	for i, line := range lines {
		if i == 0 {
			_, _ = promptColor.Println(line)
			continue
		}
		_, _ = infoColor.Println(line)
	}
}
