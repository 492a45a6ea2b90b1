package models

import (
	"encoding/json"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "date column", input: `"2021-03-15"`, expected: "2021-03-15"},
		{name: "timestamp", input: `"2021-03-15T10:30:00.123+00:00"`, expected: "2021-03-15"},
		{name: "null", input: `null`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			require.Equal(t, tt.expected, d.String())
		})
	}
}

func TestDate_UnmarshalJSON_invalid(t *testing.T) {
	var d Date
	require.Error(t, json.Unmarshal([]byte(`"15/03/2021"`), &d))
}

func TestEmployee_decode(t *testing.T) {
	body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","phone":null,
		"role":"hr_manager","organization_id":"org-1","hire_date":"2020-01-02","is_active":true}`

	var e Employee
	require.NoError(t, json.Unmarshal([]byte(body), &e))
	require.Equal(t, "Ada Lovelace", e.FullName())
	require.Equal(t, "Hr Manager", e.RoleLabel())
	require.Nil(t, e.Phone)
	require.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), e.HireDate.Time)
}

func TestEmployeeUpdate_nilPhoneIsNull(t *testing.T) {
	data, err := json.Marshal(EmployeeUpdate{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	require.JSONEq(t, `{"first_name":"Ada","last_name":"Lovelace","phone":null}`, string(data))
}

func TestSession_IsExpired(t *testing.T) {
	s := &Session{ExpiresAt: time.Now().Add(time.Hour)}
	require.False(t, s.IsExpired())

	s.ExpiresAt = time.Now().Add(5 * time.Second)
	require.True(t, s.IsExpired())
}

func TestEmployee_RoleLabel(t *testing.T) {
	tests := []struct {
		role     string
		expected string
	}{
		{role: "admin", expected: "Admin"},
		{role: "hr_manager", expected: "Hr Manager"},
		{role: "ñandú", expected: "Ñandú"},
		{role: "élève_délégué", expected: "Élève Délégué"},
		{role: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			label := Employee{Role: tt.role}.RoleLabel()
			require.Equal(t, tt.expected, label)
			require.True(t, utf8.ValidString(label))
		})
	}
}
