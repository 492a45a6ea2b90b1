package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Employee is the profile of an authenticated user. The id is shared with the
// auth identity. Employees are provisioned out of band; the console only reads
// them and updates the name parts and phone.
type Employee struct {
	ID             string  `json:"id,omitempty"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	Phone          *string `json:"phone"`
	Role           string  `json:"role"`
	OrganizationID string  `json:"organization_id"`
	HireDate       Date    `json:"hire_date"`
	IsActive       bool    `json:"is_active"`
}

// Key returns the employee id.
func (e Employee) Key() string {
	return e.ID
}

// FullName joins the name parts.
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// RoleLabel renders the role for display, e.g. "hr_manager" becomes "Hr Manager".
func (e Employee) RoleLabel() string {
	words := strings.Fields(strings.Replace(e.Role, "_", " ", 1))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// EmployeeUpdate carries the only fields an employee may change on their own
// profile. A nil Phone clears the stored number.
type EmployeeUpdate struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone"`
}

const dateLayout = "2006-01-02"

// Date is a calendar date as stored in a SQL date column.
type Date struct {
	time.Time
}

// NewDate truncates t to a calendar date.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode date: %w", err)
	}

	// timestamps are accepted too, some views expose hire_date as timestamptz
	if len(raw) > len(dateLayout) {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", raw, err)
		}
		*d = NewDate(t)
		return nil
	}

	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", raw, err)
	}
	d.Time = t
	return nil
}
