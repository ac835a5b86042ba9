package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/coachportal/internal/client/profile"
	"github.com/dmitrijs2005/coachportal/internal/common"
)

var errNotLoggedIn = errors.New("not logged in")

func (a *App) requireSession() (*session, error) {
	s := a.current()
	if s == nil {
		fmt.Fprintln(a.out, "Not logged in, use login first")
		return nil, errNotLoggedIn
	}
	return s, nil
}

// Show prints the displayed profile, unconfirmed edits included.
func (a *App) Show(ctx context.Context) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}

	st := s.eng.State()
	if st.Record == nil {
		fmt.Fprintf(a.out, "No profile yet (%s)\n", st.Phase)
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, f := range s.form.Schema() {
		v, _ := st.Record.Lookup(f.Name)
		fmt.Fprintf(w, "%s\t%s\n", f.Name, formatValue(v))
	}
	if st.CanonicalID != "" {
		if url, ok := a.cache.GetAvatar(ctx, st.CanonicalID); ok {
			fmt.Fprintf(w, "avatar\t%s\n", url)
		}
	}
	_ = w.Flush()

	var notes []string
	if st.Stale {
		notes = append(notes, "stale, refreshing")
	}
	if st.Pending > 0 {
		notes = append(notes, fmt.Sprintf("%d unsaved", st.Pending))
	}
	if !st.FetchedAt.IsZero() {
		notes = append(notes, "fetched "+st.FetchedAt.Format(time.DateTime))
	}
	fmt.Fprintf(a.out, "[%s] %s\n", st.Phase, strings.Join(notes, ", "))
	return nil
}

// Edit submits field=value assignments through the profile form.
func (a *App) Edit(ctx context.Context, args []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}

	values, err := ParseAssignments(args)
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}

	res := s.form.Submit(ctx, values)
	if res.OK {
		fmt.Fprintln(a.out, "Saved")
		return nil
	}

	var verr *profile.ValidationError
	var werr *profile.WriteError
	switch {
	case errors.As(res.Err, &verr):
		fmt.Fprintf(a.out, "Invalid %s: %s\n", verr.Field, verr.Reason)
	case errors.As(res.Err, &werr):
		fmt.Fprintf(a.out, "Save failed: %s\n", werr.Message)
	default:
		fmt.Fprintf(a.out, "Save failed: %v\n", res.Err)
	}
	return res.Err
}

// Refresh refetches the profile.
func (a *App) Refresh(ctx context.Context) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}

	err = s.eng.Refresh(ctx)
	switch {
	case err == nil:
		fmt.Fprintln(a.out, "Up to date")
	case errors.Is(err, common.ErrRecordGone):
	case errors.Is(err, common.ErrResolution):
		fmt.Fprintln(a.out, "No profile found for this account yet")
	default:
		fmt.Fprintln(a.out, "Refresh failed, showing cached profile")
	}
	return err
}

// Status prints connectivity and the sync phase.
func (a *App) Status(ctx context.Context) error {
	phase := "signed out"
	if s := a.current(); s != nil {
		phase = string(s.eng.State().Phase)
	}
	mode := a.mode()
	if mode == "" {
		mode = "unknown"
	}
	if user := a.sessionUser(ctx); user != "" {
		fmt.Fprintf(a.out, "user: %s, ", user)
	}
	fmt.Fprintf(a.out, "connectivity: %s, sync: %s\n", mode, phase)
	return nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		if t == "" {
			return "-"
		}
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func (a *App) getStatus() string {
	s := a.current()
	mode := string(a.mode())
	if s == nil {
		if mode == "" {
			return ""
		}
		return "(" + mode + ")"
	}
	if mode == "" {
		return "(" + s.externalID + ")"
	}
	return fmt.Sprintf("(%s %s)", s.externalID, mode)
}
