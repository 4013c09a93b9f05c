package dispatch

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

var ErrNoContacts = errors.New("dispatch: no valid contacts")

// ParseContacts extracts phone numbers from pasted free-form text. Numbers
// may be separated by newlines, commas, or semicolons.
func ParseContacts(text string) ([]Contact, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ';'
	})
	var out []Contact
	for _, f := range fields {
		n := strings.TrimSpace(f)
		if !looksLikePhone(n) {
			continue
		}
		out = append(out, Contact{PhoneNumber: n})
	}
	if len(out) == 0 {
		return nil, ErrNoContacts
	}
	return out, nil
}

// ParseContactsCSV reads an uploaded contact file. A header row naming
// phoneNumber/name/email columns is honored (case-insensitive); without one,
// the first column is taken as the number.
func ParseContactsCSV(r io.Reader) ([]Contact, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoContacts
	}

	phoneCol, nameCol, emailCol := 0, -1, -1
	start := 0
	if cols, ok := headerColumns(rows[0]); ok {
		phoneCol, nameCol, emailCol = cols[0], cols[1], cols[2]
		start = 1
	}

	var out []Contact
	for _, row := range rows[start:] {
		if phoneCol >= len(row) {
			continue
		}
		n := strings.TrimSpace(row[phoneCol])
		if !looksLikePhone(n) {
			continue
		}
		c := Contact{PhoneNumber: n}
		if nameCol >= 0 && nameCol < len(row) {
			c.Name = strings.TrimSpace(row[nameCol])
		}
		if emailCol >= 0 && emailCol < len(row) {
			c.Email = strings.TrimSpace(row[emailCol])
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrNoContacts
	}
	return out, nil
}

// headerColumns detects a header row and returns phone/name/email indexes.
func headerColumns(row []string) ([3]int, bool) {
	cols := [3]int{-1, -1, -1}
	for i, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "phonenumber", "phone_number", "phone", "number":
			cols[0] = i
		case "name", "contact_name":
			cols[1] = i
		case "email":
			cols[2] = i
		}
	}
	return cols, cols[0] >= 0
}

func looksLikePhone(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 7
}
