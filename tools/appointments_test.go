package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *AppointmentStore {
	t.Helper()
	return NewAppointmentStore(filepath.Join(t.TempDir(), "appointments.json"))
}

func TestAppointmentLifecycle(t *testing.T) {
	store := newTestStore(t)
	create := &CreateAppointmentTool{store: store}
	list := &ListAppointmentsTool{store: store}
	update := &UpdateAppointmentTool{store: store}
	ctx := context.Background()

	out, err := create.Execute(ctx, map[string]interface{}{
		"date":     "2026-09-01 14:30",
		"title":    "Dentist",
		"location": "Downtown",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(out, "Appointment created with id ") {
		t.Fatalf("Unexpected create output: %q", out)
	}
	id := strings.TrimPrefix(out, "Appointment created with id ")

	out, err = list.Execute(ctx, nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "Dentist") || !strings.Contains(out, id) {
		t.Errorf("Listing does not show the appointment: %q", out)
	}

	if _, err := update.Execute(ctx, map[string]interface{}{
		"id":       id,
		"location": "Uptown",
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	out, err = list.Execute(ctx, nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "Uptown") {
		t.Errorf("Update did not stick: %q", out)
	}
}

func TestAppointmentValidation(t *testing.T) {
	store := newTestStore(t)
	create := &CreateAppointmentTool{store: store}
	update := &UpdateAppointmentTool{store: store}
	ctx := context.Background()

	if _, err := create.Execute(ctx, map[string]interface{}{
		"date":  "tomorrow",
		"title": "Vague",
	}); err == nil {
		t.Error("Expected an error for a malformed date")
	}

	if _, err := create.Execute(ctx, map[string]interface{}{
		"date": "2026-09-01 14:30",
	}); err == nil {
		t.Error("Expected an error for a missing title")
	}

	_, err := update.Execute(ctx, map[string]interface{}{"id": "does-not-exist"})
	if err == nil {
		t.Fatal("Expected an error for an unknown id")
	}
	if !strings.Contains(err.Error(), "no appointment with id") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestListEmptyStore(t *testing.T) {
	list := &ListAppointmentsTool{store: newTestStore(t)}
	out, err := list.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if out != "No appointments found." {
		t.Errorf("Unexpected output for empty store: %q", out)
	}
}
