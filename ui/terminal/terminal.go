// Package terminal is the operator-facing prompt surface: status lines
// on stdout and a line-oriented command reader on stdin.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// UI couples the prompt reader with the output stream.
type UI struct {
	in  *bufio.Scanner
	out io.Writer
}

// New wraps the given streams. Pass os.Stdin/os.Stdout in production.
func New(in io.Reader, out io.Writer) *UI {
	return &UI{in: bufio.NewScanner(in), out: out}
}

// Header prints the session banner with dataset totals.
func (u *UI) Header(datasetDir string, images, pending int) {
	fmt.Fprintln(u.out, strings.Repeat("=", 60))
	fmt.Fprintln(u.out, "Expiry date annotation")
	fmt.Fprintf(u.out, "Dataset: %s\n", datasetDir)
	fmt.Fprintf(u.out, "Images: %d, crops pending: %d\n", images, pending)
	fmt.Fprintln(u.out, strings.Repeat("=", 60))
}

// Instructions prints the command reference once at startup.
func (u *UI) Instructions() {
	fmt.Fprintln(u.out, "Type the expiry date (DD/MM/YYYY, DD/MM/YY, DDMMYYYY or DDMMYY)")
	fmt.Fprintln(u.out, "or a command:")
	fmt.Fprintln(u.out, "  <enter>  skip this crop")
	fmt.Fprintln(u.out, "  i        mark illegible")
	fmt.Fprintln(u.out, "  b        go back and redo the previous crop")
	fmt.Fprintln(u.out, "  q        save and quit")
	fmt.Fprintln(u.out, "Window keys: q/e zoom in/out, w/a/s/d pan, b/v brightness,")
	fmt.Fprintln(u.out, "c/x contrast, n/m rotate +/-, t straighten, r reset view")
	fmt.Fprintln(u.out)
}

// CropInfo prints the context line for the crop about to be annotated.
func (u *UI) CropInfo(cropID, class string, done, total int) {
	fmt.Fprintf(u.out, "[%d/%d] %s (%s)\n", done, total, cropID, class)
}

// Warn prints a recoverable problem without stopping the session.
func (u *UI) Warn(format string, args ...any) {
	fmt.Fprintf(u.out, "  ! "+format+"\n", args...)
}

// Info prints a neutral status line.
func (u *UI) Info(format string, args ...any) {
	fmt.Fprintf(u.out, format+"\n", args...)
}

// Prompt reads one trimmed command line. io.EOF means the input stream
// ended and the session should save and stop.
func (u *UI) Prompt() (string, error) {
	fmt.Fprint(u.out, "> ")
	if !u.in.Scan() {
		if err := u.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(u.in.Text()), nil
}

// Confirm asks a yes/no question, defaulting to no.
func (u *UI) Confirm(question string) bool {
	fmt.Fprintf(u.out, "%s [y/N] ", question)
	if !u.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(u.in.Text()))
	return answer == "y" || answer == "yes"
}
