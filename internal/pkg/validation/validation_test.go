package validation

import (
	"errors"
	"testing"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type signup struct {
	Name     string `json:"name" validate:"required,max=5"`
	Phone    string `json:"phone" validate:"required,number,len=4"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=3,eqfield=Confirm"`
	Confirm  string `json:"-"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(signup{Name: "Ada", Phone: "1234", Email: "ada@example.com", Password: "abc", Confirm: "abc"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestStruct_FieldMessages(t *testing.T) {
	err := Struct(signup{Name: "Adaline", Phone: "12", Email: "nope", Password: "abcd", Confirm: "abce"})

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	want := map[string]string{
		"name":     "must not exceed 5 characters",
		"phone":    "must be exactly 4 digits",
		"email":    "must be a valid email address",
		"password": "confirmation does not match",
	}
	for field, msg := range want {
		got := ve.Fields[field]
		if len(got) != 1 || got[0] != msg {
			t.Fatalf("%s: expected %q, got %v", field, msg, got)
		}
	}
	if ve.Message != "The given data was invalid." {
		t.Fatalf("unexpected message %q", ve.Message)
	}
}

func TestStruct_Required(t *testing.T) {
	err := Struct(signup{})

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "phone", "email", "password"} {
		if got := ve.Fields[field]; len(got) != 1 || got[0] != "is required" {
			t.Fatalf("%s: expected required message, got %v", field, got)
		}
	}
}

func TestStruct_NotAStruct(t *testing.T) {
	err := Struct("plain string")
	if err == nil {
		t.Fatal("expected error for non-struct input")
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		t.Fatalf("non-struct input must not produce a validation error")
	}
}

func TestStruct_MaxBytesCountsBytes(t *testing.T) {
	type secret struct {
		Value string `json:"value" validate:"maxbytes=4"`
	}

	if err := Struct(secret{Value: "abcd"}); err != nil {
		t.Fatalf("four bytes must pass, got %v", err)
	}

	// three runes, six bytes
	err := Struct(secret{Value: "ñññ"})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	if got := ve.Fields["value"]; len(got) != 1 || got[0] != "must not exceed 4 bytes" {
		t.Fatalf("unexpected messages %v", got)
	}
}
