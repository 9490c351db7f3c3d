// Package models defines the domain value objects exchanged between the
// scraper adapters, the reconciliation engine and the store. Values are
// copied per call; nothing here is shared mutable state.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Source identifies the job board a record was scraped from.
type Source string

const (
	SourceWanted Source = "wanted"
	SourceJumpit Source = "jumpit"
)

// externalIDSeparator joins a source and its external id.
const externalIDSeparator = "::"

// Sources lists every supported job board.
func Sources() []Source {
	return []Source{SourceWanted, SourceJumpit}
}

// ParseSource maps free-form text to a Source, case-insensitively.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if !src.Valid() {
		return "", fmt.Errorf("unknown source %q", s)
	}
	return src, nil
}

// Valid reports whether s is one of the supported boards.
func (s Source) Valid() bool {
	switch s {
	case SourceWanted, SourceJumpit:
		return true
	}
	return false
}

// UnmarshalText lower-cases the tag; unsupported values are kept so that
// validation can reject the single item carrying them.
func (s *Source) UnmarshalText(text []byte) error {
	*s = Source(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// ExternalID composes the "<source>::<externalId>" identifier.
func ExternalID(source Source, id string) string {
	return string(source) + externalIDSeparator + id
}

// SplitExternalID is the inverse of ExternalID.
func SplitExternalID(composite string) (Source, string, error) {
	prefix, id, ok := strings.Cut(composite, externalIDSeparator)
	if !ok || id == "" {
		return "", "", fmt.Errorf("malformed external id %q", composite)
	}
	src, err := ParseSource(prefix)
	if err != nil {
		return "", "", err
	}
	return src, id, nil
}

// CommandType is the kind of scrape a result answers.
type CommandType int

const (
	CommandGetJobListings CommandType = iota
	CommandGetJobDetail
	CommandGetCompany
	CommandUnknown CommandType = -1
)

var commandNames = map[CommandType]string{
	CommandGetJobListings: "GetJobListings",
	CommandGetJobDetail:   "GetJobDetail",
	CommandGetCompany:     "GetCompany",
}

func (c CommandType) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(c)) + ")"
}

// Known reports whether c is a routable command.
func (c CommandType) Known() bool {
	_, ok := commandNames[c]
	return ok
}

func (c CommandType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts the command name or the producer's numeric enum
// value. Anything else decodes to CommandUnknown instead of failing.
func (c *CommandType) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = CommandType(n)
		if !c.Known() {
			*c = CommandUnknown
		}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("command type: %w", err)
	}
	*c = CommandUnknown
	for k, v := range commandNames {
		if strings.EqualFold(v, name) {
			*c = k
			break
		}
	}
	return nil
}

// EducationLevel is the minimum education a posting asks for.
type EducationLevel int

const (
	EducationNone       EducationLevel = 0
	EducationHighSchool EducationLevel = 10
	EducationAssociate  EducationLevel = 20
	EducationBachelor   EducationLevel = 30
	EducationMaster     EducationLevel = 40
	EducationDoctorate  EducationLevel = 50
)

// Valid reports whether l is one of the defined codes.
func (l EducationLevel) Valid() bool {
	switch l {
	case EducationNone, EducationHighSchool, EducationAssociate,
		EducationBachelor, EducationMaster, EducationDoctorate:
		return true
	}
	return false
}
