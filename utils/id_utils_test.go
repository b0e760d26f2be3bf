package utils

import (
	"strings"
	"testing"
)

func TestGenerateShortID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateShortID()
		if len(id) != 8 {
			t.Fatalf("GenerateShortID() = %q, want 8 characters", id)
		}
		for _, c := range id {
			if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')) {
				t.Fatalf("GenerateShortID() = %q contains %q", id, c)
			}
		}
		if seen[id] {
			t.Fatalf("GenerateShortID() repeated %q within 100 draws", id)
		}
		seen[id] = true
	}
}

func TestGenerateStudyID(t *testing.T) {
	id := GenerateStudyID()
	if !strings.HasPrefix(id, "st-") {
		t.Fatalf("GenerateStudyID() = %q, want st- prefix", id)
	}
	if len(id) != len("st-")+8 {
		t.Fatalf("GenerateStudyID() = %q, want 11 characters", id)
	}
}
