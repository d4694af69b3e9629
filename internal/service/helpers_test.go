package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/store"
	"github.com/roach88/lexstore/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	s := testutil.NewStore(t)
	svc := New(s,
		WithIDGenerator(&record.SequentialGenerator{Prefix: "id"}),
		WithClock(testutil.NewDeterministicClock().Now),
	)
	return svc, s
}

// captureLogs routes the default slog logger into a buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// failWrites rejects Puts to the named collections.
type failWrites struct {
	store.CollectionStore
	collections map[string]bool
}

func newFailWrites(s store.CollectionStore, collections ...string) *failWrites {
	f := &failWrites{CollectionStore: s, collections: map[string]bool{}}
	for _, c := range collections {
		f.collections[c] = true
	}
	return f
}

func (f *failWrites) Put(ctx context.Context, name string, data []byte, expected int64) (int64, error) {
	if f.collections[name] {
		return 0, errors.New("quota exceeded")
	}
	return f.CollectionStore.Put(ctx, name, data, expected)
}

func contactForm() record.Form {
	return record.Form{
		ID:   "contact",
		Name: "Formulario de Contacto",
		Fields: []record.FormField{
			{ID: "fullName", Label: "Nombre", Type: record.FieldTypeText, Required: true},
			{ID: "mail", Label: "Correo", Type: record.FieldTypeEmail, Required: true},
			{ID: "msg", Label: "Mensaje", Type: record.FieldTypeTextarea},
		},
	}
}
