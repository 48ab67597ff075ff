package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"alfredoptarigan/cv-validator/internal/models"
)

var ErrMalformedReply = errors.New("malformed model reply")

var (
	openingFence = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	closingFence = regexp.MustCompile("\r?\n?```$")
)

type validationReply struct {
	Fields []models.FieldVerdict `json:"fields"`
}

// StripCodeFences removes a leading ``` (optionally with a language tag) and a trailing ```.
func StripCodeFences(reply string) string {
	text := strings.TrimSpace(reply)
	text = openingFence.ReplaceAllString(text, "")
	text = closingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ParseValidationReply decodes the model's JSON reply into field verdicts.
func ParseValidationReply(reply string) ([]models.FieldVerdict, error) {
	text := StripCodeFences(reply)
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}

	var parsed validationReply
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if parsed.Fields == nil {
		return nil, fmt.Errorf("%w: missing \"fields\" array", ErrMalformedReply)
	}

	for i, v := range parsed.Fields {
		if !v.Status.Valid() {
			return nil, fmt.Errorf("%w: field %d (%q) has invalid status %q", ErrMalformedReply, i, v.Field, v.Status)
		}
	}

	return parsed.Fields, nil
}
