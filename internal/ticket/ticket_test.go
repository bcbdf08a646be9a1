package ticket

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ticket  Ticket
		wantErr string
	}{
		{"valid", Ticket{ID: "t1", Number: 1}, ""},
		{"zero number is fine", Ticket{ID: "t1"}, ""},
		{"missing id", Ticket{Number: 1}, "ticket id is required"},
		{"whitespace id", Ticket{ID: "   ", Number: 1}, "ticket id is required"},
		{"negative number", Ticket{ID: "t1", Number: -2}, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.ticket.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	tk := Ticket{Subject: "crash", Body: "it crashes"}
	if got := tk.Text(); got != "crash\nit crashes" {
		t.Errorf("Text() = %q", got)
	}

	empty := Ticket{}
	if got := empty.Text(); got != "" {
		t.Errorf("Text() on empty ticket = %q", got)
	}

	bodyOnly := Ticket{Body: "just body"}
	if got := bodyOnly.Text(); got != "just body" {
		t.Errorf("Text() = %q", got)
	}
}
