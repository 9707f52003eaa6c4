package validator

import "testing"

type contactForm struct {
	Name  string `validate:"required"`
	RUT   string `validate:"omitempty,rut"`
	Phone string `validate:"required,clphone"`
}

func TestStructAppliesChileanTags(t *testing.T) {
	v := New()

	ok := contactForm{Name: "Ana", RUT: "12.345.678-5", Phone: "9 1234 5678"}
	if err := v.Struct(ok); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}

	badRUT := ok
	badRUT.RUT = "12.345.678-9"
	err := v.Struct(badRUT)
	if err == nil {
		t.Fatal("expected rut validation error")
	}
	if got := FirstField(err); got != "RUT" {
		t.Fatalf("expected RUT field, got %q", got)
	}

	badPhone := ok
	badPhone.Phone = "1234"
	if err := v.Struct(badPhone); FirstField(err) != "Phone" {
		t.Fatalf("expected Phone field error, got %v", err)
	}
}
