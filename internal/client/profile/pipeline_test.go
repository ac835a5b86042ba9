package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/coachportal/internal/client/client"
	"github.com/dmitrijs2005/coachportal/internal/client/models"
	"github.com/dmitrijs2005/coachportal/internal/common"
	"github.com/dmitrijs2005/coachportal/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	record    *models.UserRecord
	writeErr  error
	writes    []models.PendingChange
	refreshes int
}

func (f *fakeEngine) Record() *models.UserRecord { return f.record.Clone() }

func (f *fakeEngine) Write(_ context.Context, c models.PendingChange) error {
	f.writes = append(f.writes, c)
	return f.writeErr
}

func (f *fakeEngine) Refresh(context.Context) error {
	f.refreshes++
	return nil
}

func asha() *models.UserRecord {
	return &models.UserRecord{
		ID:       "1111",
		FullName: "Asha Rao",
		Email:    "asha@example.com",
		Gender:   "female",
		City:     "Pune",
		Profile: map[string]any{
			"gender":   "female",
			"city":     "Pune",
			"subjects": []any{"Physics", "Chemistry"},
		},
	}
}

func newPipeline(eng *fakeEngine) *Pipeline {
	today := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return New(eng, logging.Nop(), WithClock(func() time.Time { return today }))
}

func requireValidation(t *testing.T, res Result, field string) *ValidationError {
	t.Helper()
	require.False(t, res.OK)
	require.ErrorIs(t, res.Err, common.ErrValidation)
	var ve *ValidationError
	require.ErrorAs(t, res.Err, &ve)
	assert.Equal(t, field, ve.Field)
	return ve
}

func TestSubmit_UnchangedValuesRefreshInsteadOfWriting(t *testing.T) {
	eng := &fakeEngine{record: asha()}
	p := newPipeline(eng)

	res := p.Submit(context.Background(), map[string]any{
		"full_name": "Asha  Rao ",
		"email":     "asha@example.com",
		"phone":     "",
		"city":      "Pune",
		"subjects":  "Physics, Chemistry",
	})

	assert.True(t, res.OK)
	assert.NoError(t, res.Err)
	assert.Empty(t, eng.writes)
	assert.Equal(t, 1, eng.refreshes)
}

func TestSubmit_EmptySubmissionIsOK(t *testing.T) {
	eng := &fakeEngine{record: asha()}
	res := newPipeline(eng).Submit(context.Background(), map[string]any{})
	assert.True(t, res.OK)
	assert.Empty(t, eng.writes)
}

func TestSubmit_FutureDateFailsWithoutNetwork(t *testing.T) {
	eng := &fakeEngine{record: asha()}

	res := newPipeline(eng).Submit(context.Background(), map[string]any{"dob": "2099-01-01"})

	ve := requireValidation(t, res, "dob")
	assert.Equal(t, "cannot be in the future", ve.Reason)
	assert.Empty(t, eng.writes)
	assert.Zero(t, eng.refreshes)
	assert.Equal(t, asha(), eng.record)
}

func TestSubmit_MalformedDateAbortsWholeSubmission(t *testing.T) {
	for _, dob := range []string{"01/02/2005", "2005-2-1", "2005-02-30", "2005-02-01T00:00:00Z"} {
		t.Run(dob, func(t *testing.T) {
			eng := &fakeEngine{record: asha()}
			res := newPipeline(eng).Submit(context.Background(), map[string]any{"dob": dob, "city": "Mumbai"})
			requireValidation(t, res, "dob")
			assert.Empty(t, eng.writes)
		})
	}
}

func TestSubmit_UnknownEnumDroppedOthersSent(t *testing.T) {
	eng := &fakeEngine{record: asha()}

	res := newPipeline(eng).Submit(context.Background(), map[string]any{
		"gender":   "martian",
		"category": "Gen",
		"city":     "Mumbai",
	})

	require.True(t, res.OK)
	require.Len(t, eng.writes, 1)
	assert.Nil(t, eng.writes[0].Fields)
	assert.Equal(t, map[string]any{"city": "Mumbai", "category": "general"}, eng.writes[0].Profile)
}

func TestSubmit_WriteFailureSurfacesServerMessage(t *testing.T) {
	eng := &fakeEngine{
		record:   asha(),
		writeErr: errors.Join(common.ErrWrite, &client.APIError{Status: 409, Message: "phone already registered"}),
	}

	res := newPipeline(eng).Submit(context.Background(), map[string]any{"phone": "+91 98765 43210"})

	require.False(t, res.OK)
	require.ErrorIs(t, res.Err, common.ErrWrite)
	var we *WriteError
	require.ErrorAs(t, res.Err, &we)
	assert.Equal(t, "phone already registered", we.Message)
	assert.Equal(t, "phone already registered", res.Err.Error())
}

func TestSubmit_WriteFailureWithoutMessageIsGeneric(t *testing.T) {
	eng := &fakeEngine{record: asha(), writeErr: errors.Join(common.ErrWrite, client.ErrUnavailable)}

	res := newPipeline(eng).Submit(context.Background(), map[string]any{"city": "Mumbai"})

	var we *WriteError
	require.ErrorAs(t, res.Err, &we)
	assert.Equal(t, GenericWriteFailure, we.Message)
	require.ErrorIs(t, res.Err, client.ErrUnavailable)
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name   string
		record *models.UserRecord
		values map[string]any
		field  string
	}{
		{"required cleared", asha(), map[string]any{"email": "  "}, "email"},
		{"required missing on new record", nil, map[string]any{"email": "a@b.co"}, "full_name"},
		{"bad email", asha(), map[string]any{"email": "asha@"}, "email"},
		{"name with digits", asha(), map[string]any{"full_name": "Asha 2"}, "full_name"},
		{"name too short", asha(), map[string]any{"full_name": "A"}, "full_name"},
		{"guardian name too long", asha(), map[string]any{"guardian_name": longName(101)}, "guardian_name"},
		{"unknown field", asha(), map[string]any{"zz_top": "x", "aa_unknown": "y"}, "aa_unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{record: tt.record}
			requireValidation(t, newPipeline(eng).Submit(context.Background(), tt.values), tt.field)
			assert.Empty(t, eng.writes)
		})
	}
}

func longName(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestSubmit_FirstViolationInFormOrder(t *testing.T) {
	eng := &fakeEngine{record: asha()}
	res := newPipeline(eng).Submit(context.Background(), map[string]any{
		"dob":       "2099-01-01",
		"full_name": "X",
	})
	requireValidation(t, res, "full_name")
}

func TestDiff_Normalizes(t *testing.T) {
	p := newPipeline(&fakeEngine{})

	change, err := p.Diff(map[string]any{
		"full_name":         "  asha   d'souza-rao ",
		"guardian_name":     "Raví  Rao",
		"target_exam":       "JEE  Main",
		"subjects":          []any{" Maths ", "", "Biology"},
		"preferred_batches": "Morning, , Weekend ",
		"dob":               "2008-04-12",
		"school":            "  DPS   Pune ",
	}, asha())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"full_name": "asha d'souza-rao"}, change.Fields)
	assert.Equal(t, map[string]any{
		"guardian_name":     "Raví Rao",
		"target_exam":       "jee_main",
		"subjects":          []string{"Maths", "Biology"},
		"preferred_batches": []string{"Morning", "Weekend"},
		"dob":               "2008-04-12",
		"school":            "DPS Pune",
	}, change.Profile)
}

func TestDiff_TopLevelValueWinsOverNamespaced(t *testing.T) {
	p := newPipeline(&fakeEngine{})
	rec := asha()
	rec.Gender = "male"

	change, err := p.Diff(map[string]any{"gender": "M"}, rec)
	require.NoError(t, err)
	assert.True(t, change.Empty(), "old value comes from the top-level attribute")

	change, err = p.Diff(map[string]any{"gender": "female"}, rec)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"gender": "female"}, change.Profile)
}

func TestDiff_ClearingOptionalField(t *testing.T) {
	p := newPipeline(&fakeEngine{})

	change, err := p.Diff(map[string]any{"city": "", "school": nil}, asha())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": nil}, change.Profile)
}

func TestSchema_Copy(t *testing.T) {
	p := newPipeline(&fakeEngine{})
	s := p.Schema()
	s[0].Name = "changed"
	assert.Equal(t, "full_name", p.Schema()[0].Name)
}
