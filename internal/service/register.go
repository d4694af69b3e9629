package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/store"
	"github.com/roach88/lexstore/internal/upsert"
)

// RegisterInput is a direct sign-up.
type RegisterInput struct {
	Name  string
	Email string
}

// RegisterResult describes what Register did.
type RegisterResult struct {
	// User is the stored user: the new one, or the existing one when the
	// email was already registered.
	User    record.User    `json:"user"`
	Outcome upsert.Outcome `json:"outcome"`
	// CRMCreated is true when this call wrote the CRM row.
	CRMCreated bool `json:"crmCreated"`
}

func validateRegistration(in RegisterInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if !validEmail(in.Email) {
		return &ValidationError{Field: "email", Reason: fmt.Sprintf("invalid address %q", in.Email)}
	}
	return nil
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// Register creates a Registro user and its CRM row.
//
// The user is written first. Registering an email that already exists
// skips the user write but still makes sure the CRM row exists. A CRM
// failure after the user write returns *PartialWriteError.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	if err := validateRegistration(in); err != nil {
		return RegisterResult{}, fmt.Errorf("register: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	candidate := record.User{
		ID:           s.ids.Generate(),
		Name:         name,
		Email:        strings.TrimSpace(in.Email),
		Source:       record.SourceRegistration,
		RegisteredAt: s.timestamp(),
		Avatar:       AvatarURL(name),
	}

	outcome, err := upsert.UpsertByNaturalKey(ctx, s.store, record.CollectionUsers, upsert.RegistrationKey, candidate)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("register: %w", err)
	}

	user := candidate
	if outcome == upsert.Skipped {
		existing, err := s.registeredUser(ctx, upsert.RegistrationKey(candidate))
		if err != nil {
			return RegisterResult{}, fmt.Errorf("register: %w", err)
		}
		user = existing
		slog.Info("registration matched existing user", "user_id", user.ID)
	} else {
		slog.Info("user registered", "user_id", user.ID, "source", user.Source)
	}

	created, err := s.ensureCRM(ctx, user)
	if err != nil {
		return RegisterResult{User: user, Outcome: outcome}, err
	}

	return RegisterResult{User: user, Outcome: outcome, CRMCreated: created}, nil
}

// registeredUser finds the Registro user with the given natural key.
func (s *Service) registeredUser(ctx context.Context, key string) (record.User, error) {
	users, _, err := store.GetCollection[record.User](ctx, s.store, record.CollectionUsers)
	if err != nil {
		return record.User{}, err
	}
	for _, u := range users {
		if upsert.RegistrationKey(u) == key {
			return u, nil
		}
	}
	// Lost between upsert and read, which only a concurrent delete can cause.
	return record.User{}, fmt.Errorf("registered user %s disappeared", key)
}

// newCRM is the CRM row created for a user that has none.
func newCRM(u record.User) record.CrmData {
	crm := record.CrmData{
		UserID: u.ID,
		Value:  0,
		Status: record.CRMStatusNew,
		Tags:   []string{},
	}
	if u.Source != "" {
		crm.Tags = []string{u.Source}
	}
	return crm
}

// ensureCRM writes the CRM row for a user whose write already succeeded.
func (s *Service) ensureCRM(ctx context.Context, u record.User) (bool, error) {
	outcome, err := upsert.UpsertByNaturalKey(ctx, s.store, record.CollectionCRM, upsert.ByKey[record.CrmData], newCRM(u))
	if err != nil {
		slog.Error("crm write failed after user write",
			"user_id", u.ID,
			"error", err,
		)
		return false, &PartialWriteError{
			Primary:   record.CollectionUsers,
			Secondary: record.CollectionCRM,
			Key:       u.ID,
			Err:       err,
		}
	}
	return outcome == upsert.Inserted, nil
}

// Reconcile creates the missing CRM row for every user that lacks one. It
// is idempotent and returns the number of rows created.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	users, _, err := store.GetCollection[record.User](ctx, s.store, record.CollectionUsers)
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	created := 0
	_, err = store.Update(ctx, s.store, record.CollectionCRM, func(rows []record.CrmData) ([]record.CrmData, error) {
		created = 0
		have := make(map[string]struct{}, len(rows))
		for _, c := range rows {
			have[c.UserID] = struct{}{}
		}
		var missing []record.CrmData
		for _, u := range users {
			if u.ID == "" {
				continue
			}
			if _, ok := have[u.ID]; ok {
				continue
			}
			have[u.ID] = struct{}{}
			missing = append(missing, newCRM(u))
			created++
		}
		if len(missing) == 0 {
			return nil, store.ErrNoChange
		}
		return append(missing, rows...), nil
	})
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	if created > 0 {
		slog.Info("reconciled crm rows", "created", created)
	}
	return created, nil
}
