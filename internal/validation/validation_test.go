package validation

import "testing"

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr string
	}{
		{"parent@example.com", ""},
		{"kid+chores@mail.example.org", ""},
		{"  padded@example.com  ", ""},
		{"", "email is required"},
		{"   ", "email is required"},
		{"no-at-sign.example.com", "invalid email format"},
		{"parent@", "invalid email format"},
		{"@example.com", "invalid email format"},
		{"two words@example.com", "invalid email format"},
		{"parent@localhost", "invalid email format"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assertValidation(t, ValidateEmail(tt.email), "email", tt.wantErr)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"eight characters", "abcd1234", ""},
		{"long", "correct horse battery staple", ""},
		{"seven characters", "abc1234", "password must be at least 8 characters"},
		{"empty", "", "password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, ValidatePassword(tt.password), "password", tt.wantErr)
		})
	}
}

func TestValidateNamedField(t *testing.T) {
	tests := []struct {
		field   string
		value   string
		wantErr string
	}{
		{"firstName", "Jo", ""},
		{"lastName", "O'Brien-Smith", ""},
		{"firstName", " ", "firstName is required"},
		{"lastName", "", "lastName is required"},
		{"firstName", "J", "firstName must be at least 2 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.value, func(t *testing.T) {
			assertValidation(t, ValidateNamedField(tt.field, tt.value), tt.field, tt.wantErr)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Bob@Example.COM "); got != "bob@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestCollect(t *testing.T) {
	errs := Collect(
		ValidateEmail("nope"),
		ValidatePassword("longenough"),
		ValidateNamedField("lastName", ""),
	)
	if len(errs) != 2 {
		t.Fatalf("Collect() returned %d errors, want 2", len(errs))
	}
	if errs[0].Field != "email" || errs[1].Field != "lastName" {
		t.Errorf("unexpected fields: %+v", errs)
	}
	if errs := Collect(nil, nil); len(errs) != 0 {
		t.Errorf("Collect(nil, nil) = %+v, want none", errs)
	}
}

func assertValidation(t *testing.T, err error, field, wantMsg string) {
	t.Helper()
	if wantMsg == "" {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		return
	}
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("error = %v (%T), want ValidationError", err, err)
	}
	if ve.Field != field || ve.Message != wantMsg {
		t.Errorf("error = %+v, want {%s %s}", ve, field, wantMsg)
	}
}
