package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/lexstore/internal/query"
	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/relation"
	"github.com/roach88/lexstore/internal/store"
	"github.com/roach88/lexstore/internal/upsert"
)

const (
	// PlaceholderEmail stands in for leads whose form has no email field.
	PlaceholderEmail = "sin-email@formulario.local"

	// PlaceholderName stands in for leads whose form has no name field.
	PlaceholderName = "Sin nombre"

	// ContactFormID is the id of the seeded contact form.
	ContactFormID = "contacto"
)

// SubmitForm validates data against the form and stores a new submission.
func (s *Service) SubmitForm(ctx context.Context, formID string, data map[string]string) (record.FormSubmission, error) {
	forms, _, err := store.GetCollection[record.Form](ctx, s.store, record.CollectionForms)
	if err != nil {
		return record.FormSubmission{}, fmt.Errorf("submit form: %w", err)
	}
	form, ok := relation.Find(forms, formID)
	if !ok {
		return record.FormSubmission{}, fmt.Errorf("submit form %q: %w", formID, ErrFormNotFound)
	}
	if err := validateSubmission(form, data); err != nil {
		return record.FormSubmission{}, fmt.Errorf("submit form %q: %w", formID, err)
	}

	sub := record.FormSubmission{
		ID:          s.ids.Generate(),
		FormID:      form.ID,
		Data:        record.SubmissionData(data),
		SubmittedAt: s.timestamp(),
	}
	if sub.Data == nil {
		sub.Data = record.SubmissionData{}
	}
	if _, err := upsert.UpsertByNaturalKey(ctx, s.store, record.CollectionFormSubmissions, upsert.ByKey[record.FormSubmission], sub); err != nil {
		return record.FormSubmission{}, fmt.Errorf("submit form %q: %w", formID, err)
	}

	slog.Info("form submitted", "form_id", form.ID, "submission_id", sub.ID)
	return sub, nil
}

func validateSubmission(form record.Form, data map[string]string) error {
	for _, f := range form.Fields {
		v := strings.TrimSpace(data[f.ID])
		if f.Required && v == "" {
			return &ValidationError{Field: f.ID, Reason: "required"}
		}
		if f.Type == record.FieldTypeEmail && v != "" && !validEmail(v) {
			return &ValidationError{Field: f.ID, Reason: fmt.Sprintf("invalid address %q", v)}
		}
	}
	return nil
}

// ImportResult counts what ImportSubmissions did.
type ImportResult struct {
	Inserted    int `json:"inserted"`
	Skipped     int `json:"skipped"`
	MissingForm int `json:"missingForm"`
	MissingID   int `json:"missingId"`
	CRMCreated  int `json:"crmCreated"`
}

// ImportSubmissions turns every submission into a lead user with a CRM row.
//
// Each submission maps to the user form_sub_<submissionId>, so re-running
// the import skips what was already imported. Submissions whose form no
// longer exists, and submissions without an id, are skipped and counted.
func (s *Service) ImportSubmissions(ctx context.Context) (ImportResult, error) {
	var res ImportResult

	forms, _, err := store.GetCollection[record.Form](ctx, s.store, record.CollectionForms)
	if err != nil {
		return res, fmt.Errorf("import submissions: %w", err)
	}
	subs, _, err := store.GetCollection[record.FormSubmission](ctx, s.store, record.CollectionFormSubmissions)
	if err != nil {
		return res, fmt.Errorf("import submissions: %w", err)
	}

	candidates := make([]record.User, 0, len(subs))
	for _, sub := range subs {
		if strings.TrimSpace(sub.ID) == "" {
			res.MissingID++
			slog.Warn("submission skipped, no id", "form_id", sub.FormID)
			continue
		}
		form, ok := relation.Find(forms, sub.FormID)
		if !ok {
			res.MissingForm++
			slog.Debug("submission skipped, form missing", "submission_id", sub.ID, "form_id", sub.FormID)
			continue
		}
		candidates = append(candidates, s.leadFromSubmission(form, sub))
	}

	batch, err := upsert.UpsertMany(ctx, s.store, record.CollectionUsers, upsert.SubmissionUserKey, candidates)
	if err != nil {
		return res, fmt.Errorf("import submissions: %w", err)
	}
	res.Inserted, res.Skipped = batch.Inserted, batch.Skipped

	// All candidates, not just the inserted ones, so a rerun also repairs
	// users whose CRM write failed last time.
	rows := make([]record.CrmData, 0, len(candidates))
	for _, u := range candidates {
		rows = append(rows, newCRM(u))
	}
	crm, err := upsert.UpsertMany(ctx, s.store, record.CollectionCRM, upsert.ByKey[record.CrmData], rows)
	if err != nil {
		slog.Error("crm write failed after user write",
			"users", batch.Inserted,
			"error", err,
		)
		return res, &PartialWriteError{
			Primary:   record.CollectionUsers,
			Secondary: record.CollectionCRM,
			Err:       err,
		}
	}
	res.CRMCreated = crm.Inserted

	slog.Info("submissions imported",
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"missing_form", res.MissingForm,
		"missing_id", res.MissingID,
	)
	return res, nil
}

// leadFromSubmission builds the user for one submission.
func (s *Service) leadFromSubmission(form record.Form, sub record.FormSubmission) record.User {
	name := submissionName(form, sub)
	registered := sub.SubmittedAt
	if registered == "" {
		registered = s.timestamp()
	}
	return record.User{
		ID:           upsert.SubmissionUserID(sub.ID),
		Name:         name,
		Email:        submissionEmail(form, sub),
		Source:       form.Name,
		RegisteredAt: registered,
		Avatar:       AvatarURL(name),
	}
}

// submissionEmail returns the first non-empty email-type value, or the
// placeholder when the form has none.
func submissionEmail(form record.Form, sub record.FormSubmission) string {
	for _, f := range form.FieldsOfType(record.FieldTypeEmail) {
		if v := strings.TrimSpace(sub.Data[f.ID]); v != "" {
			return v
		}
	}
	return PlaceholderEmail
}

// submissionName returns the value of the first field whose id or label
// mentions a name.
func submissionName(form record.Form, sub record.FormSubmission) string {
	for _, f := range form.Fields {
		if f.Type == record.FieldTypeEmail {
			continue
		}
		id, label := query.Fold(f.ID), query.Fold(f.Label)
		if !strings.Contains(id, "nombre") && !strings.Contains(id, "name") &&
			!strings.Contains(label, "nombre") && !strings.Contains(label, "name") {
			continue
		}
		if v := strings.TrimSpace(sub.Data[f.ID]); v != "" {
			return v
		}
	}
	return PlaceholderName
}

// DefaultForms returns the forms seeded into an empty installation.
func DefaultForms(createdAt record.Timestamp) []record.Form {
	return []record.Form{
		{
			ID:          ContactFormID,
			Name:        record.SourceContactForm,
			Description: "Consultas generales desde la web",
			CreatedAt:   createdAt,
			Fields: []record.FormField{
				{ID: "nombre", Label: "Nombre completo", Type: record.FieldTypeText, Required: true, Placeholder: "Tu nombre"},
				{ID: "email", Label: "Correo electrónico", Type: record.FieldTypeEmail, Required: true, Placeholder: "tu@correo.com"},
				{ID: "telefono", Label: "Teléfono", Type: record.FieldTypeTel},
				{ID: "mensaje", Label: "Mensaje", Type: record.FieldTypeTextarea, Required: true},
			},
		},
	}
}

// SeedDefaultForms writes DefaultForms when the forms collection has never
// been written. It reports whether it wrote anything.
func (s *Service) SeedDefaultForms(ctx context.Context) (bool, error) {
	_, version, err := store.GetCollection[record.Form](ctx, s.store, record.CollectionForms)
	if err != nil {
		return false, fmt.Errorf("seed forms: %w", err)
	}
	if version > 0 {
		return false, nil
	}

	_, err = store.PutCollection(ctx, s.store, record.CollectionForms, DefaultForms(s.timestamp()), 0)
	if errors.Is(err, store.ErrVersionConflict) {
		// Another writer created the collection first.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seed forms: %w", err)
	}
	slog.Info("default forms seeded")
	return true, nil
}
