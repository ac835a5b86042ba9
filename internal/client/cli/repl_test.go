package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls    []string
	editArgs []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Show(ctx context.Context) error { f.calls = append(f.calls, "show"); return nil }
func (f *fakeExec) Edit(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "edit")
	f.editArgs = args
	return nil
}
func (f *fakeExec) Refresh(ctx context.Context) error {
	f.calls = append(f.calls, "refresh")
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error {
	f.calls = append(f.calls, "status")
	return nil
}

func capturePrints(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, p := range a {
			parts = append(parts, strings.TrimSpace(toString(p)))
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	lines := capturePrints(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"help",
		"show",
		`edit full_name="Asha Rao" city=Pune`,
		"",
		"refresh",
		"status",
		"foobar",
		"logout",
		"exit",
		"show",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "(s)" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"login", "show", "edit", "refresh", "status", "logout"}, exec.calls)
	assert.Equal(t, []string{"full_name=Asha Rao", "city=Pune"}, exec.editArgs)
	assert.Contains(t, *lines, "Available commands: login, status, exit")
	assert.Contains(t, *lines, "Available commands: show, edit field=value..., refresh, status, logout, exit")
	assert.Contains(t, *lines, "Unknown command: foobar")
	assert.Contains(t, *lines, "portal (s)>")
	assert.Equal(t, "Bye!", (*lines)[len(*lines)-1])
}

func TestRunREPL_QuitAndEOF(t *testing.T) {
	capturePrints(t)

	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("quit\nshow\n")))
	assert.Empty(t, exec.calls)

	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("show")))
	assert.Equal(t, []string{"show"}, exec.calls)
}
