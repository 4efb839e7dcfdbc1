package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"release-tracker/internal/domain"
)

// ErrMalformedVersion is returned when the text does not have exactly three
// dot separated segments.
var ErrMalformedVersion = errors.New("malformed version")

// VersionFormatter converts "year.month.number" text to domain.Version and back.
// The locale is accepted for interface compatibility and ignored.
type VersionFormatter struct{}

var _ Formatter[domain.Version] = VersionFormatter{}

func NewVersionFormatter() VersionFormatter {
	return VersionFormatter{}
}

// Parse splits text into at most three segments, so "1.2.3.4" keeps "3.4" as
// the last segment and fails integer conversion.
func (VersionFormatter) Parse(text string, _ language.Tag) (*domain.Version, error) {
	if text == "" {
		return nil, nil
	}

	parts := strings.SplitN(text, ".", 3)
	if len(parts) != 3 {
		return nil, ErrMalformedVersion
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("version year: %w", err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("version month: %w", err)
	}
	number, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("version number: %w", err)
	}

	return &domain.Version{Year: year, Month: month, Number: number}, nil
}

func (VersionFormatter) Print(v *domain.Version, _ language.Tag) string {
	if v == nil {
		return ""
	}
	return v.String()
}
