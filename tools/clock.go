package tools

import (
	"context"
	"time"

	"github.com/tomdee2/samples/errors"
)

// CurrentTimeTool reports the current time, optionally in a named IANA
// timezone.
type CurrentTimeTool struct {
	// now is overridable in tests.
	now func() time.Time
}

func (t *CurrentTimeTool) Name() string { return "current_time" }
func (t *CurrentTimeTool) Description() string {
	return "Returns the current date and time. Args: timezone (string, optional IANA name such as 'Europe/Paris')."
}

func (t *CurrentTimeTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"timezone": map[string]interface{}{
				"type":        "string",
				"description": "IANA timezone name. Defaults to the local timezone.",
			},
		},
	}
}

func (t *CurrentTimeTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	now := time.Now
	if t.now != nil {
		now = t.now
	}

	loc := time.Local
	if tz, ok := stringArg(args, "timezone"); ok && tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return "", errors.Wrapf(err, "unknown timezone '%s'", tz)
		}
		loc = l
	}

	return now().In(loc).Format(time.RFC3339), nil
}
