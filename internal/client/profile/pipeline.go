// Package profile turns edited form values into a minimal, normalized
// change and hands it to the sync engine.
//
// Submit validates everything first and aborts on the first problem. It
// then diffs against the displayed record, normalizes the changed values
// per field kind and writes what is left. Nothing is sent when nothing
// changed; the record is refreshed instead.
package profile

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/dmitrijs2005/coachportal/internal/client/client"
	"github.com/dmitrijs2005/coachportal/internal/client/models"
	"github.com/dmitrijs2005/coachportal/internal/logging"
	"github.com/go-playground/validator/v10"
)

// Engine is what the pipeline needs from the sync engine.
type Engine interface {
	Record() *models.UserRecord
	Write(ctx context.Context, change models.PendingChange) error
	Refresh(ctx context.Context) error
}

// Result reports a submission. Err is a *ValidationError or a *WriteError
// when OK is false.
type Result struct {
	OK  bool
	Err error
}

// Pipeline turns raw form values into a validated, normalized change
// and hands it to the engine.
type Pipeline struct {
	eng      Engine
	schema   []Field
	byName   map[string]Field
	validate *validator.Validate
	now      func() time.Time
	log      logging.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSchema replaces the default form schema.
func WithSchema(fields []Field) Option {
	return func(p *Pipeline) { p.schema = fields }
}

// WithClock overrides time.Now for date checks.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New returns a Pipeline over eng using the default schema unless
// WithSchema is given.
func New(eng Engine, log logging.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		eng:      eng,
		schema:   DefaultSchema,
		validate: validator.New(),
		now:      time.Now,
		log:      log,
	}
	for _, o := range opts {
		o(p)
	}
	p.byName = make(map[string]Field, len(p.schema))
	for _, f := range p.schema {
		p.byName[f.Name] = f
	}
	return p
}

// Schema returns the fields the pipeline accepts, in form order.
func (p *Pipeline) Schema() []Field {
	return slices.Clone(p.schema)
}

// Submit validates values against the current record, diffs and
// normalizes them, and writes the change. The first validation failure
// aborts before any network call. An empty diff triggers a Refresh and
// still reports OK.
func (p *Pipeline) Submit(ctx context.Context, values map[string]any) Result {
	current := p.eng.Record()

	if err := p.check(values, current); err != nil {
		return Result{Err: err}
	}

	change, err := p.Diff(values, current)
	if err != nil {
		return Result{Err: err}
	}

	if change.Empty() {
		if err := p.eng.Refresh(ctx); err != nil {
			p.log.Debug(ctx, "refresh after empty submit failed", "error", err)
		}
		return Result{OK: true}
	}

	if err := p.eng.Write(ctx, change); err != nil {
		return Result{Err: writeError(err)}
	}
	return Result{OK: true}
}

// check validates values, with required fields judged on the value the
// record would have after the edit.
func (p *Pipeline) check(values map[string]any, current *models.UserRecord) error {
	var unknown []string
	for name := range values {
		if _, ok := p.byName[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationError{Field: unknown[0], Reason: "is not an editable field"}
	}

	for _, f := range p.schema {
		v, submitted := values[f.Name]
		if !submitted {
			v, _ = current.Lookup(f.Name)
		}

		if f.Required && isEmpty(v) {
			return &ValidationError{Field: f.Name, Reason: "is required"}
		}
		if !submitted || isEmpty(v) {
			continue
		}
		if err := p.checkValue(f, v); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) checkValue(f Field, v any) error {
	switch f.Kind {
	case KindEmail:
		if p.validate.Var(asString(v), "email") != nil {
			return &ValidationError{Field: f.Name, Reason: "must be a valid email address"}
		}
	case KindName:
		s := cleanName(asString(v))
		if !validName(s) {
			return &ValidationError{Field: f.Name, Reason: "may contain only letters, spaces, hyphens and apostrophes"}
		}
		if p.validate.Var(s, "min=2,max=100") != nil {
			return &ValidationError{Field: f.Name, Reason: "must be between 2 and 100 characters"}
		}
	case KindDate:
		if d, ok := parseDate(asString(v)); ok {
			y, m, day := p.now().Date()
			today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
			if d.After(today) {
				return &ValidationError{Field: f.Name, Reason: "cannot be in the future"}
			}
		}
	}
	return nil
}

// Diff returns the normalized change between values and current. Unknown
// enum values are left out; a malformed date fails the whole diff.
func (p *Pipeline) Diff(values map[string]any, current *models.UserRecord) (models.PendingChange, error) {
	var change models.PendingChange

	for _, f := range p.schema {
		raw, ok := values[f.Name]
		if !ok {
			continue
		}
		old, _ := current.Lookup(f.Name)
		if isEmpty(old) && isEmpty(raw) {
			continue
		}

		v, keep, err := p.normalize(f, raw)
		if err != nil {
			return models.PendingChange{}, err
		}
		if !keep || sameValue(old, v) {
			continue
		}

		if f.Namespaced {
			if change.Profile == nil {
				change.Profile = make(map[string]any)
			}
			change.Profile[f.Name] = v
		} else {
			if change.Fields == nil {
				change.Fields = make(map[string]any)
			}
			change.Fields[f.Name] = v
		}
	}
	return change, nil
}

// normalize returns the value to send; keep=false drops the field.
func (p *Pipeline) normalize(f Field, raw any) (v any, keep bool, err error) {
	if f.Kind != KindChips && isEmpty(raw) {
		return nil, true, nil
	}

	switch f.Kind {
	case KindName:
		return normalizeName(asString(raw)), true, nil
	case KindEmail:
		return collapseSpaces(asString(raw)), true, nil
	case KindEnum:
		canonical, ok := f.Synonyms[enumKey(asString(raw))]
		if !ok {
			p.log.Debug(context.Background(), "dropping unknown enum value", "field", f.Name, "value", raw)
			return nil, false, nil
		}
		return canonical, true, nil
	case KindChips:
		return chips(raw), true, nil
	case KindDate:
		d, ok := parseDate(asString(raw))
		if !ok {
			return nil, false, &ValidationError{Field: f.Name, Reason: "must be a date in YYYY-MM-DD format"}
		}
		return d.Format(dateLayout), true, nil
	default:
		return collapseSpaces(asString(raw)), true, nil
	}
}

func writeError(err error) *WriteError {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &WriteError{Message: apiErr.Message, Err: err}
	}
	return &WriteError{Message: GenericWriteFailure, Err: err}
}
