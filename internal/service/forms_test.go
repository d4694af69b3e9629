package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/testutil"
)

func TestSubmitForm(t *testing.T) {
	svc, s := newTestService(t)
	testutil.Seed(t, s, record.CollectionForms, contactForm())
	ctx := context.Background()

	first, err := svc.SubmitForm(ctx, "contact", map[string]string{"fullName": "Luis", "mail": "luis@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", first.ID)
	assert.Equal(t, "contact", first.FormID)
	assert.Equal(t, record.Timestamp("2026-01-15T09:00:00.000Z"), first.SubmittedAt)

	_, err = svc.SubmitForm(ctx, "contact", map[string]string{"fullName": "Eva", "mail": "eva@x.com", "extra": "kept"})
	require.NoError(t, err)

	subs := testutil.Read[record.FormSubmission](t, s, record.CollectionFormSubmissions)
	assert.Equal(t, []string{"id-2", "id-1"}, testutil.Keys(subs))
	assert.Equal(t, "kept", subs[0].Data["extra"])
}

func TestSubmitForm_Errors(t *testing.T) {
	tests := []struct {
		name    string
		formID  string
		data    map[string]string
		wantErr error
		field   string
	}{
		{"unknown form", "nope", map[string]string{}, ErrFormNotFound, ""},
		{"missing required", "contact", map[string]string{"mail": "a@b.c"}, ErrValidation, "fullName"},
		{"blank required", "contact", map[string]string{"fullName": "  ", "mail": "a@b.c"}, ErrValidation, "fullName"},
		{"bad email", "contact", map[string]string{"fullName": "Ana", "mail": "nope"}, ErrValidation, "mail"},
		{"nil data", "contact", nil, ErrValidation, "fullName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, s := newTestService(t)
			testutil.Seed(t, s, record.CollectionForms, contactForm())

			_, err := svc.SubmitForm(context.Background(), tt.formID, tt.data)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.field != "" {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.field, verr.Field)
			}
			assert.Empty(t, testutil.Read[record.FormSubmission](t, s, record.CollectionFormSubmissions))
		})
	}
}

func TestImportSubmissions_SameEmailTwoUsers(t *testing.T) {
	svc, s := newTestService(t)
	testutil.Seed(t, s, record.CollectionForms, contactForm())
	testutil.Seed(t, s, record.CollectionFormSubmissions,
		record.FormSubmission{ID: "s2", FormID: "contact", Data: record.SubmissionData{"fullName": "Ana", "mail": "ana@example.com"}, SubmittedAt: "2026-02-02T10:00:00.000Z"},
		record.FormSubmission{ID: "s1", FormID: "contact", Data: record.SubmissionData{"fullName": "Ana", "mail": "ana@example.com"}, SubmittedAt: "2026-02-01T10:00:00.000Z"},
	)

	res, err := svc.ImportSubmissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Inserted: 2, CRMCreated: 2}, res)

	users := testutil.Read[record.User](t, s, record.CollectionUsers)
	require.Len(t, users, 2)
	assert.Equal(t, []string{"form_sub_s2", "form_sub_s1"}, testutil.Keys(users))
	for _, u := range users {
		assert.Equal(t, "ana@example.com", u.Email)
		assert.Equal(t, "Ana", u.Name)
		assert.Equal(t, "Formulario de Contacto", u.Source)
	}
	assert.Equal(t, record.Timestamp("2026-02-02T10:00:00.000Z"), users[0].RegisteredAt)

	crm := testutil.Read[record.CrmData](t, s, record.CollectionCRM)
	assert.Equal(t, []string{"form_sub_s2", "form_sub_s1"}, testutil.Keys(crm))
}

func TestImportSubmissions_Idempotent(t *testing.T) {
	svc, s := newTestService(t)
	testutil.Seed(t, s, record.CollectionForms, contactForm())
	testutil.Seed(t, s, record.CollectionFormSubmissions,
		record.FormSubmission{ID: "s1", FormID: "contact", Data: record.SubmissionData{"mail": "a@x.com"}},
	)
	ctx := context.Background()

	_, err := svc.ImportSubmissions(ctx)
	require.NoError(t, err)

	res, err := svc.ImportSubmissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 1}, res)
	assert.Len(t, testutil.Read[record.User](t, s, record.CollectionUsers), 1)
	assert.Len(t, testutil.Read[record.CrmData](t, s, record.CollectionCRM), 1)
}

func TestImportSubmissions_SkipsSubmissionsWithoutID(t *testing.T) {
	svc, s := newTestService(t)
	testutil.Seed(t, s, record.CollectionForms, contactForm())
	testutil.Seed(t, s, record.CollectionFormSubmissions,
		record.FormSubmission{ID: "", FormID: "contact", Data: record.SubmissionData{"fullName": "Eva", "mail": "eva@x.com"}},
		record.FormSubmission{ID: "s1", FormID: "contact", Data: record.SubmissionData{"fullName": "Ana", "mail": "ana@x.com"}},
	)
	ctx := context.Background()

	for run := range 3 {
		res, err := svc.ImportSubmissions(ctx)
		require.NoError(t, err)
		if run == 0 {
			assert.Equal(t, ImportResult{Inserted: 1, MissingID: 1, CRMCreated: 1}, res)
		} else {
			assert.Equal(t, ImportResult{Skipped: 1, MissingID: 1}, res, "run %d", run)
		}
	}

	assert.Equal(t, []string{"form_sub_s1"}, testutil.Keys(testutil.Read[record.User](t, s, record.CollectionUsers)))
	assert.Equal(t, []string{"form_sub_s1"}, testutil.Keys(testutil.Read[record.CrmData](t, s, record.CollectionCRM)))
}

func TestImportSubmissions_PlaceholdersAndMissingForms(t *testing.T) {
	svc, s := newTestService(t)
	noEmail := record.Form{
		ID:     "quote",
		Name:   "Presupuesto",
		Fields: []record.FormField{{ID: "details", Label: "Detalles", Type: record.FieldTypeTextarea}},
	}
	testutil.Seed(t, s, record.CollectionForms, contactForm(), noEmail)
	testutil.Seed(t, s, record.CollectionFormSubmissions,
		record.FormSubmission{ID: "s3", FormID: "deleted"},
		record.FormSubmission{ID: "s2", FormID: "quote", Data: record.SubmissionData{"details": "divorcio"}},
		record.FormSubmission{ID: "s1", FormID: "contact", Data: record.SubmissionData{"fullName": "Eva", "mail": "   "}},
	)

	res, err := svc.ImportSubmissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Inserted: 2, MissingForm: 1, CRMCreated: 2}, res)

	users := testutil.Read[record.User](t, s, record.CollectionUsers)
	require.Len(t, users, 2)
	assert.Equal(t, "form_sub_s2", users[0].ID)
	assert.Equal(t, PlaceholderEmail, users[0].Email)
	assert.Equal(t, PlaceholderName, users[0].Name)
	assert.Equal(t, "Presupuesto", users[0].Source)
	assert.Equal(t, record.Timestamp("2026-01-15T09:00:00.000Z"), users[0].RegisteredAt)

	assert.Equal(t, PlaceholderEmail, users[1].Email, "blank email value falls back too")
	assert.Equal(t, "Eva", users[1].Name)
}

func TestImportSubmissions_KeepsExistingUsersBehind(t *testing.T) {
	svc, s := newTestService(t)
	testutil.Seed(t, s, record.CollectionForms, contactForm())
	testutil.Seed(t, s, record.CollectionUsers, record.User{ID: "reg-1", Source: record.SourceRegistration})
	testutil.Seed(t, s, record.CollectionFormSubmissions,
		record.FormSubmission{ID: "s1", FormID: "contact", Data: record.SubmissionData{"mail": "a@x.com"}},
	)

	_, err := svc.ImportSubmissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"form_sub_s1", "reg-1"}, testutil.Keys(testutil.Read[record.User](t, s, record.CollectionUsers)))
}

func TestImportSubmissions_Empty(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.ImportSubmissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ImportResult{}, res)
}

func TestImportSubmissions_CRMFailure(t *testing.T) {
	logs := captureLogs(t)
	mem := testutil.NewStore(t)
	testutil.Seed(t, mem, record.CollectionForms, contactForm())
	testutil.Seed(t, mem, record.CollectionFormSubmissions, record.FormSubmission{ID: "s1", FormID: "contact"})
	svc := New(newFailWrites(mem, record.CollectionCRM))

	res, err := svc.ImportSubmissions(context.Background())
	var partial *PartialWriteError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 1, res.Inserted)
	assert.Empty(t, partial.Key)
	assert.Contains(t, logs.String(), "crm write failed after user write")

	// Rerunning against a healthy store repairs the CRM side.
	res, err = New(mem).ImportSubmissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 1, CRMCreated: 1}, res)
}

func TestSubmissionName(t *testing.T) {
	form := record.Form{Fields: []record.FormField{
		{ID: "email", Label: "Your name email", Type: record.FieldTypeEmail},
		{ID: "q1", Label: "NOMBRE y apellidos"},
	}}
	sub := record.FormSubmission{Data: record.SubmissionData{"email": "x@y.z", "q1": "Carla Ruiz"}}
	assert.Equal(t, "Carla Ruiz", submissionName(form, sub))
}

func TestSeedDefaultForms(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	seeded, err := svc.SeedDefaultForms(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	forms := testutil.Read[record.Form](t, s, record.CollectionForms)
	require.Len(t, forms, 1)
	assert.Equal(t, ContactFormID, forms[0].ID)
	assert.Len(t, forms[0].FieldsOfType(record.FieldTypeEmail), 1)

	seeded, err = svc.SeedDefaultForms(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestSeedDefaultForms_RespectsEmptiedCollection(t *testing.T) {
	svc, s := newTestService(t)
	testutil.Seed[record.Form](t, s, record.CollectionForms)

	seeded, err := svc.SeedDefaultForms(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Empty(t, testutil.Read[record.Form](t, s, record.CollectionForms))
}

func TestDefaultForms_AcceptTheirOwnSubmission(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.SeedDefaultForms(ctx)
	require.NoError(t, err)

	_, err = svc.SubmitForm(ctx, ContactFormID, map[string]string{
		"nombre": "Ana", "email": "ana@example.com", "mensaje": "Hola",
	})
	require.NoError(t, err)

	res, err := svc.ImportSubmissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
}
