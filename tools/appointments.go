package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomdee2/samples/errors"
)

// Appointment is one calendar entry managed by the assistant demo.
type Appointment struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"` // "2006-01-02 15:04"
	Location    string    `json:"location"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AppointmentStore persists appointments as a JSON file. All three
// appointment tools share one store.
type AppointmentStore struct {
	mu   sync.Mutex
	path string
}

// NewAppointmentStore creates a store backed by the given file. An empty
// path selects the default location under .strands/.
func NewAppointmentStore(path string) *AppointmentStore {
	if path == "" {
		path = filepath.Join(".strands", "appointments.json")
	}
	return &AppointmentStore{path: path}
}

func (s *AppointmentStore) load() ([]Appointment, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read appointments file")
	}
	var appts []Appointment
	if err := json.Unmarshal(data, &appts); err != nil {
		return nil, errors.Wrapf(err, "could not parse appointments file")
	}
	return appts, nil
}

func (s *AppointmentStore) save(appts []Appointment) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrapf(err, "could not create appointments directory")
	}
	data, err := json.MarshalIndent(appts, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "could not serialize appointments")
	}
	return os.WriteFile(s.path, data, 0644)
}

const apptDateLayout = "2006-01-02 15:04"

// CreateAppointmentTool adds a new appointment to the store.
type CreateAppointmentTool struct {
	store *AppointmentStore
}

func (t *CreateAppointmentTool) Name() string { return "create_appointment" }
func (t *CreateAppointmentTool) Description() string {
	return "Creates a new appointment. Args: date (string, 'YYYY-MM-DD HH:MM'), title (string), location (string), description (string)."
}

func (t *CreateAppointmentTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"date":        map[string]interface{}{"type": "string", "description": "Date and time in 'YYYY-MM-DD HH:MM' format."},
			"title":       map[string]interface{}{"type": "string"},
			"location":    map[string]interface{}{"type": "string"},
			"description": map[string]interface{}{"type": "string"},
		},
		"required": []string{"date", "title"},
	}
}

func (t *CreateAppointmentTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	date, ok := stringArg(args, "date")
	if !ok {
		return "", errors.New("missing or invalid 'date' argument")
	}
	if _, err := time.Parse(apptDateLayout, date); err != nil {
		return "", errors.New("invalid date '%s', expected 'YYYY-MM-DD HH:MM'", date)
	}
	title, ok := stringArg(args, "title")
	if !ok {
		return "", errors.New("missing or invalid 'title' argument")
	}
	location, _ := stringArg(args, "location")
	description, _ := stringArg(args, "description")

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	appts, err := t.store.load()
	if err != nil {
		return "", err
	}
	appt := Appointment{
		ID:          uuid.New().String(),
		Date:        date,
		Title:       title,
		Location:    location,
		Description: description,
		UpdatedAt:   time.Now().UTC(),
	}
	appts = append(appts, appt)
	if err := t.store.save(appts); err != nil {
		return "", err
	}
	return fmt.Sprintf("Appointment created with id %s", appt.ID), nil
}

// ListAppointmentsTool returns all stored appointments.
type ListAppointmentsTool struct {
	store *AppointmentStore
}

func (t *ListAppointmentsTool) Name() string { return "list_appointments" }
func (t *ListAppointmentsTool) Description() string {
	return "Lists all appointments with their ids. Takes no arguments."
}

func (t *ListAppointmentsTool) Schema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *ListAppointmentsTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	appts, err := t.store.load()
	if err != nil {
		return "", err
	}
	if len(appts) == 0 {
		return "No appointments found.", nil
	}

	var b strings.Builder
	for _, a := range appts {
		fmt.Fprintf(&b, "- %s | %s | %s | %s | %s\n", a.ID, a.Date, a.Title, a.Location, a.Description)
	}
	return b.String(), nil
}

// UpdateAppointmentTool modifies an existing appointment by id.
type UpdateAppointmentTool struct {
	store *AppointmentStore
}

func (t *UpdateAppointmentTool) Name() string { return "update_appointment" }
func (t *UpdateAppointmentTool) Description() string {
	return "Updates an existing appointment. Args: id (string, required) plus any of date, title, location, description."
}

func (t *UpdateAppointmentTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "string", "description": "Appointment id returned by create_appointment or list_appointments."},
			"date":        map[string]interface{}{"type": "string", "description": "Date and time in 'YYYY-MM-DD HH:MM' format."},
			"title":       map[string]interface{}{"type": "string"},
			"location":    map[string]interface{}{"type": "string"},
			"description": map[string]interface{}{"type": "string"},
		},
		"required": []string{"id"},
	}
}

func (t *UpdateAppointmentTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	id, ok := stringArg(args, "id")
	if !ok {
		return "", errors.New("missing or invalid 'id' argument")
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	appts, err := t.store.load()
	if err != nil {
		return "", err
	}
	for i := range appts {
		if appts[i].ID != id {
			continue
		}
		if date, ok := stringArg(args, "date"); ok && date != "" {
			if _, err := time.Parse(apptDateLayout, date); err != nil {
				return "", errors.New("invalid date '%s', expected 'YYYY-MM-DD HH:MM'", date)
			}
			appts[i].Date = date
		}
		if title, ok := stringArg(args, "title"); ok && title != "" {
			appts[i].Title = title
		}
		if location, ok := stringArg(args, "location"); ok && location != "" {
			appts[i].Location = location
		}
		if description, ok := stringArg(args, "description"); ok && description != "" {
			appts[i].Description = description
		}
		appts[i].UpdatedAt = time.Now().UTC()
		if err := t.store.save(appts); err != nil {
			return "", err
		}
		return fmt.Sprintf("Appointment %s updated", id), nil
	}
	return "", errors.New("no appointment with id '%s'", id)
}
