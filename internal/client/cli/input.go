package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readSecret is a test seam for term.ReadPassword.
var readSecret = term.ReadPassword

// GetSecret prints prompt to w and reads a line from the terminal without
// echo. Surrounding whitespace is trimmed.
func GetSecret(prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	b, err := readSecret(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// ParseAssignments turns "name=value" arguments into form values. A bare
// "name=" clears the field. Later assignments to the same name win.
func ParseAssignments(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, errors.New("usage: edit field=value [field=value ...]")
	}
	values := make(map[string]any, len(args))
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected field=value, got %q", a)
		}
		values[name] = value
	}
	return values, nil
}

// splitCommand separates the command word from its arguments. Arguments
// may be double-quoted to keep spaces, e.g. full_name="Ana Maria".
func splitCommand(line string) (string, []string) {
	var (
		parts   []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case (r == ' ' || r == '\t') && !quoted:
			if started {
				parts = append(parts, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		parts = append(parts, cur.String())
	}
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
