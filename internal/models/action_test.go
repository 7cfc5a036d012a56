// ABOUTME: Tests for Action variants, menu IDs and saved instructions
// ABOUTME: Verifies ID round-trips and constructor validation
package models

import (
	"errors"
	"strings"
	"testing"
)

func TestParseMenuID(t *testing.T) {
	tests := []struct {
		id       string
		wantKind ActionKind
		wantRef  string
		wantOK   bool
	}{
		{"ask", ActionPassThrough, "", true},
		{"fixed:tldr", ActionFixed, "tldr", true},
		{"saved:1234", ActionSaved, "1234", true},
		{"saved:", "", "", false},
		{"upgrade", "", "", false},
		{"h2c", "", "", false},
		{"bogus:abc", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			kind, ref, ok := ParseMenuID(tt.id)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
			if ref != tt.wantRef {
				t.Errorf("ref = %q, want %q", ref, tt.wantRef)
			}
		})
	}
}

func TestAction_MenuIDRoundTrip(t *testing.T) {
	actions := []Action{
		PassThrough(),
		{Kind: ActionFixed, ID: "tldr"},
		{Kind: ActionSaved, ID: "abc"},
	}

	for _, a := range actions {
		kind, ref, ok := ParseMenuID(a.MenuID())
		if !ok {
			t.Fatalf("ParseMenuID(%q) not ok", a.MenuID())
		}
		if kind != a.Kind || ref != a.ID {
			t.Errorf("round trip of %q = (%q, %q), want (%q, %q)", a.MenuID(), kind, ref, a.Kind, a.ID)
		}
	}
}

func TestActionKind_IsGated(t *testing.T) {
	if PassThrough().Kind.IsGated() {
		t.Error("pass-through should not be gated")
	}
	if ActionFixed.IsGated() {
		t.Error("fixed instructions should not be gated")
	}
	if !ActionSaved.IsGated() {
		t.Error("saved instructions should be gated")
	}
}

func TestNewSavedInstruction(t *testing.T) {
	tests := []struct {
		name     string
		inName   string
		template string
		wantErr  error
	}{
		{"valid", "Reply", "Write a reply to {{text}}", nil},
		{"trims", "  Reply  ", "  tone check  ", nil},
		{"empty name", "   ", "template", ErrEmptyName},
		{"empty template", "Reply", "\n\t", ErrEmptyTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			si, err := NewSavedInstruction(tt.inName, tt.template)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSavedInstruction() error = %v", err)
			}
			if si.ID == "" {
				t.Error("ID should be generated")
			}
			if si.Name != strings.TrimSpace(tt.inName) {
				t.Errorf("Name = %q, want trimmed", si.Name)
			}
			if si.Template != strings.TrimSpace(tt.template) {
				t.Errorf("Template = %q, want trimmed", si.Template)
			}
		})
	}
}

func TestSavedInstruction_Action(t *testing.T) {
	si := SavedInstruction{ID: "id1", Name: "Reply", Template: "t"}
	a := si.Action()

	if a.Kind != ActionSaved {
		t.Errorf("Kind = %q, want saved", a.Kind)
	}
	if a.Label != "Template: Reply" {
		t.Errorf("Label = %q, want %q", a.Label, "Template: Reply")
	}
	if a.MenuID() != "saved:id1" {
		t.Errorf("MenuID = %q, want saved:id1", a.MenuID())
	}
}

func TestFloatingAction_MenuID(t *testing.T) {
	if got := DefaultFloatingAction().MenuID(); got != MenuAskID {
		t.Errorf("default MenuID = %q, want %q", got, MenuAskID)
	}
	saved := FloatingAction{Type: FloatingSaved, ID: "abc"}
	if got := saved.MenuID(); got != "saved:abc" {
		t.Errorf("saved MenuID = %q, want saved:abc", got)
	}
	// A saved type without an ID falls back to pass-through
	broken := FloatingAction{Type: FloatingSaved}
	if broken.IsSaved() {
		t.Error("saved action without ID should not count as saved")
	}
}

func TestNewDeliveryRequest(t *testing.T) {
	a := NewDeliveryRequest("hello")
	b := NewDeliveryRequest("hello")

	if a.RequestID == "" {
		t.Fatal("RequestID should be minted")
	}
	if a.RequestID == b.RequestID {
		t.Error("each request should get a unique RequestID")
	}
	if a.Prompt != "hello" {
		t.Errorf("Prompt = %q, want hello", a.Prompt)
	}
}
