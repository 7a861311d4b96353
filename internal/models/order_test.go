package models

import (
	"reflect"
	"strings"
	"testing"
)

func TestSlotsMergeLastWriteWins(t *testing.T) {
	current := Slots{SlotName: "Ann", SlotEmail: "ann@old.example"}
	merged := current.Merge(Slots{SlotEmail: "ann@new.example", SlotPhone: "555"})

	want := Slots{SlotName: "Ann", SlotEmail: "ann@new.example", SlotPhone: "555"}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("merge mismatch: got %v want %v", merged, want)
	}
	if current[SlotEmail] != "ann@old.example" {
		t.Fatalf("merge must not mutate the receiver, got %v", current)
	}
}

func TestSlotsMergeIsIdempotent(t *testing.T) {
	base := Slots{SlotName: "Ann"}
	extracted := Slots{SlotPhone: "555", SlotOrder: "latte"}

	once := base.Merge(extracted)
	twice := once.Merge(extracted)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge not idempotent: once=%v twice=%v", once, twice)
	}
}

func TestSlotsMergeDropsUnknownKeys(t *testing.T) {
	merged := Slots{}.Merge(Slots{"foo": "x", SlotName: "Ann"})
	if _, ok := merged["foo"]; ok {
		t.Fatalf("unknown key leaked into slots: %v", merged)
	}
	if merged[SlotName] != "Ann" {
		t.Fatalf("expected name to be kept, got %v", merged)
	}
}

func TestSlotsComplete(t *testing.T) {
	full := Slots{
		SlotName:    "Ann",
		SlotEmail:   "ann@example.com",
		SlotPhone:   "555-0100",
		SlotAddress: "1 Main St",
		SlotOrder:   "cappuccino",
	}

	tests := []struct {
		name  string
		slots Slots
		want  bool
	}{
		{"all present", full, true},
		{"empty", Slots{}, false},
		{"one empty string", full.Merge(Slots{SlotPhone: ""}), false},
		{"one whitespace", full.Merge(Slots{SlotAddress: "  \n"}), false},
		{"one missing", func() Slots { s := full.Clone(); delete(s, SlotOrder); return s }(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.slots.Complete(); got != tt.want {
				t.Fatalf("Complete() = %v, want %v (missing=%v)", got, tt.want, tt.slots.Missing())
			}
		})
	}
}

func TestOrderSummary(t *testing.T) {
	o := NewOrder("42", Slots{
		SlotName:    "Ann",
		SlotEmail:   "ann@example.com",
		SlotPhone:   "555-0100",
		SlotAddress: "1 Main St",
		SlotOrder:   "2x cappuccino",
	})
	summary := o.Summary()
	for _, line := range []string{"Name: Ann", "Email: ann@example.com", "Phone: 555-0100", "Address: 1 Main St", "Order: 2x cappuccino"} {
		if !strings.Contains(summary, line) {
			t.Fatalf("summary missing %q:\n%s", line, summary)
		}
	}
}

func TestAuditEntryText(t *testing.T) {
	dialog := AuditEntry{DisplayName: "Ann", UserMessage: "hi", Reply: "hello"}.Text()
	if dialog != "Dialog:\nUser Ann: hi\nBot: hello" {
		t.Fatalf("unexpected dialog text: %q", dialog)
	}
	greeting := AuditEntry{DisplayName: "Ann", Reply: "welcome"}.Text()
	if greeting != "Bot to Ann: welcome" {
		t.Fatalf("unexpected greeting text: %q", greeting)
	}
}
