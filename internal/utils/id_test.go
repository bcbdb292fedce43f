package utils

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewIDIsHexAndUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 24 {
			t.Fatalf("unexpected id length %d: %q", len(id), id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewMessageID(t *testing.T) {
	id := NewMessageID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("message id %q is not a uuid: %v", id, err)
	}
	if id == NewMessageID() {
		t.Fatal("expected distinct message ids")
	}
}

func TestDefaultUsername(t *testing.T) {
	name := DefaultUsername()
	if !strings.HasPrefix(name, "anonymous-") || len(name) != len("anonymous-")+6 {
		t.Fatalf("unexpected default username %q", name)
	}
}
