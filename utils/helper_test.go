package utils

import "testing"

func TestDecimalFromString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"12.50", "12.5"},
		{" 7 ", "7"},
		{"", "0"},
		{"not a number", "0"},
	}
	for _, tc := range cases {
		if got := DecimalFromString(tc.in); got.String() != tc.want {
			t.Fatalf("DecimalFromString(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	if err := ValidatePhoneNumber("0244123456", CountryCode); err != nil {
		t.Fatalf("valid local number rejected: %v", err)
	}
	if err := ValidatePhoneNumber("12345", CountryCode); err == nil {
		t.Fatal("short junk number must be rejected")
	}
}
