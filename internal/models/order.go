package models

import (
	"fmt"
	"strings"
)

// Slot names recognised in model output. Anything else is ignored.
const (
	SlotName    = "name"
	SlotEmail   = "email"
	SlotPhone   = "phone"
	SlotAddress = "address"
	SlotOrder   = "order"
)

// SlotNames is the allow-list.
var SlotNames = []string{SlotEmail, SlotPhone, SlotAddress, SlotName, SlotOrder}

// IsSlot reports whether tag is on the allow-list.
func IsSlot(tag string) bool {
	for _, name := range SlotNames {
		if name == tag {
			return true
		}
	}
	return false
}

// Slots maps slot names to their captured values.
type Slots map[string]string

// Merge returns a copy of s with every allow-listed key of extracted written
// over it. Keys missing from extracted keep their previous value.
func (s Slots) Merge(extracted Slots) Slots {
	merged := make(Slots, len(s)+len(extracted))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range extracted {
		if !IsSlot(k) {
			continue
		}
		merged[k] = v
	}
	return merged
}

// Missing lists the required slots that are absent or blank.
func (s Slots) Missing() []string {
	var missing []string
	for _, name := range SlotNames {
		if strings.TrimSpace(s[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether all five slots hold non-empty text.
func (s Slots) Complete() bool {
	return len(s.Missing()) == 0
}

func (s Slots) Clone() Slots {
	out := make(Slots, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Order is a completed slot set ready for delivery.
type Order struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Order   string `json:"order"`
}

func NewOrder(userID string, s Slots) Order {
	return Order{
		UserID:  userID,
		Name:    s[SlotName],
		Email:   s[SlotEmail],
		Phone:   s[SlotPhone],
		Address: s[SlotAddress],
		Order:   s[SlotOrder],
	}
}

// Summary renders the order the way the downstream chat expects it.
func (o Order) Summary() string {
	return fmt.Sprintf("New order:\nName: %s\nEmail: %s\nPhone: %s\nAddress: %s\nOrder: %s",
		o.Name, o.Email, o.Phone, o.Address, o.Order)
}

// AuditEntry pairs what the user said with what the bot answered.
type AuditEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	UserMessage string `json:"user_message,omitempty"`
	Reply       string `json:"reply"`
}

func (a AuditEntry) Text() string {
	if a.UserMessage == "" {
		return fmt.Sprintf("Bot to %s: %s", a.DisplayName, a.Reply)
	}
	return fmt.Sprintf("Dialog:\nUser %s: %s\nBot: %s", a.DisplayName, a.UserMessage, a.Reply)
}
