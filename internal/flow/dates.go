package flow

import (
	"log/slog"
	"strings"
	"time"
)

// Friendly messages for event date validation failures.
const (
	msgUnparseableDate = "No pude entender la fecha del evento. ¿Puedes escribirla de nuevo? Por ejemplo: 2025-12-15 18:00"
	msgPastDate        = "⏰ La fecha del evento debe ser futura. Por favor, elige una fecha y hora que aún no haya pasado."
)

// eventDateLayouts are the accepted layouts besides RFC 3339, matching the
// formats users and the oracle actually produce.
var eventDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseEventDate parses a raw event date string into an absolute instant.
// Naive timestamps (no offset in the input) are interpreted in tzName when
// it is a valid IANA zone, otherwise in UTC.
func ParseEventDate(raw, tzName string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &InvalidEventDateError{Reason: "empty date", BotMessage: msgUnparseableDate}
	}

	loc := time.UTC
	if tzName != "" {
		if l, err := time.LoadLocation(tzName); err == nil {
			loc = l
		} else {
			slog.Debug("flow.ParseEventDate: unknown timezone, falling back to UTC", "timezone", tzName)
		}
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &InvalidEventDateError{
		Reason:     "unrecognized format: " + raw,
		BotMessage: msgUnparseableDate,
	}
}

// ValidateEventDate parses raw and verifies the instant lies strictly in
// the future relative to now (compared in UTC). Both failure modes return
// an InvalidEventDateError so callers surface one recoverable error kind.
func ValidateEventDate(raw, tzName string, now time.Time) (time.Time, error) {
	t, err := ParseEventDate(raw, tzName)
	if err != nil {
		return time.Time{}, err
	}
	if !t.UTC().After(now.UTC()) {
		slog.Info("flow.ValidateEventDate: event date not in the future", "date", t, "now", now)
		return time.Time{}, &InvalidEventDateError{
			Reason:     "date is not in the future: " + t.Format(time.RFC3339),
			BotMessage: msgPastDate,
		}
	}
	return t, nil
}
