package auth

import (
	"errors"
	"testing"
)

func TestResolveOwner(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		name    string
		id      int64
		email   string
		token   string
		want    int64
		wantErr bool
	}{
		{name: "numeric match", id: 42, email: "alice@example.com", token: "42", want: 42},
		{name: "numeric mismatch", id: 42, email: "alice@example.com", token: "43", wantErr: true},
		{name: "email alias match", id: 42, email: "alice@example.com", token: "alice", want: 42},
		{name: "email alias mismatch", id: 42, email: "alice@example.com", token: "bob", wantErr: true},
		{name: "empty token", id: 42, email: "alice@example.com", token: "", wantErr: true},
		{name: "empty email with alias token", id: 42, email: "", token: "alice", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gate.ResolveOwner(tt.id, tt.email, tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrForbidden) {
					t.Fatalf("err = %v, want ErrForbidden", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveOwner: %v", err)
			}
			if got != tt.want {
				t.Errorf("owner = %d, want %d", got, tt.want)
			}
		})
	}
}

// The resolved owner is always the authenticated canonical ID, even when the
// caller matched via the email alias form.
func TestResolveOwnerReturnsCanonicalID(t *testing.T) {
	gate := NewGate()

	got, err := gate.ResolveOwner(99, "carol@example.com", "carol")
	if err != nil {
		t.Fatalf("ResolveOwner: %v", err)
	}
	if got != 99 {
		t.Errorf("owner = %d, want canonical ID 99", got)
	}
}
