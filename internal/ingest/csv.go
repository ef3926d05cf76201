// Package ingest reads the semicolon separated seed files of persons and vaccine lots.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"vaxbook/internal/domain"
)

var (
	ErrInvalidEntryType   = errors.New("invalid entry type")
	ErrInvalidEntryFormat = errors.New("invalid entry format")
)

type Kind string

const (
	KindPerson     Kind = "PERSON"
	KindVaccineLot Kind = "VACCINE_LOT"
)

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"

	personFields     = 8
	vaccineLotFields = 8
)

// Entry is one parsed record. Person is set for KindPerson; Vaccine and Lot for
// KindVaccineLot.
type Entry struct {
	Line    int
	Kind    Kind
	Person  domain.Person
	Vaccine domain.Vaccine
	Lot     domain.VaccineLot
}

// LoadFile parses the records in filename.
func LoadFile(filename string) ([]Entry, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file %s: %w", filename, err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return entries, nil
}

// Parse reads records until EOF. Empty lines and lines starting with '#' are ignored.
func Parse(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line, _ := reader.FieldPos(0)

		entry, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entry.Line = line
		entries = append(entries, entry)
	}
}

func parseRecord(record []string) (Entry, error) {
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	switch Kind(record[0]) {
	case KindPerson:
		return parsePerson(record)
	case KindVaccineLot:
		return parseVaccineLot(record)
	default:
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidEntryType, record[0])
	}
}

// PERSON;document;name;surname;email;address;center;birthdate
func parsePerson(record []string) (Entry, error) {
	if len(record) != personFields {
		return Entry{}, fmt.Errorf("%w: %s expects %d fields, got %d", ErrInvalidEntryFormat, KindPerson, personFields, len(record))
	}
	if record[1] == "" {
		return Entry{}, fmt.Errorf("%w: empty document", ErrInvalidEntryFormat)
	}

	p := domain.Person{
		Document:   record[1],
		Name:       record[2],
		Surname:    record[3],
		Email:      record[4],
		Address:    record[5],
		CenterCode: record[6],
	}
	if record[7] != "" {
		birthdate, err := time.ParseInLocation(dateLayout, record[7], time.UTC)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: birthdate %q", ErrInvalidEntryFormat, record[7])
		}
		p.Birthdate = birthdate
	}
	return Entry{Kind: KindPerson, Person: p}, nil
}

// VACCINE_LOT;dd/mm/yyyy;hh:mm;center;vaccine;required;days;doses
func parseVaccineLot(record []string) (Entry, error) {
	if len(record) != vaccineLotFields {
		return Entry{}, fmt.Errorf("%w: %s expects %d fields, got %d", ErrInvalidEntryFormat, KindVaccineLot, vaccineLotFields, len(record))
	}

	receivedAt, err := time.ParseInLocation(dateTimeLayout, record[1]+" "+record[2], time.UTC)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: timestamp %q %q", ErrInvalidEntryFormat, record[1], record[2])
	}
	if record[3] == "" || record[4] == "" {
		return Entry{}, fmt.Errorf("%w: center and vaccine are required", ErrInvalidEntryFormat)
	}

	required, err := parseCount("required doses", record[5], 1)
	if err != nil {
		return Entry{}, err
	}
	days, err := parseCount("interval days", record[6], 0)
	if err != nil {
		return Entry{}, err
	}
	if required > 1 && days < 1 {
		return Entry{}, fmt.Errorf("%w: interval days must be at least 1 for a %d-dose vaccine", ErrInvalidEntryFormat, required)
	}
	doses, err := parseCount("doses", record[7], 1)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Kind:    KindVaccineLot,
		Vaccine: domain.Vaccine{Name: record[4], RequiredDoses: required, IntervalDays: days},
		Lot: domain.VaccineLot{
			CenterCode: record[3],
			Vaccine:    record[4],
			ReceivedAt: receivedAt,
			Doses:      doses,
		},
	}, nil
}

func parseCount(field, raw string, min int) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidEntryFormat, field, raw)
	}
	if n < min {
		return 0, fmt.Errorf("%w: %s must be at least %d, got %d", ErrInvalidEntryFormat, field, min, n)
	}
	return n, nil
}
