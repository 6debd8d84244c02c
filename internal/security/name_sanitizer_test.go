package security

import "testing"

func TestSanitizeName_PlainTextPassesThrough(t *testing.T) {
	s := NewNameSanitizer()

	got := s.SanitizeName("Blue Denim Jacket")
	if got != "Blue Denim Jacket" {
		t.Errorf("SanitizeName = %q, want %q", got, "Blue Denim Jacket")
	}
}

func TestSanitizeName_StripsMarkup(t *testing.T) {
	s := NewNameSanitizer()

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"scriptタグ除去", `<script>alert(1)</script>Shirt`, "Shirt"},
		{"インラインタグはテキストを残す", "<b>Red</b> Dress", "Red Dress"},
		{"imgタグ除去", `<img src="x" onerror="alert(1)">Boots`, "Boots"},
		{"前後の空白除去", "  Sneakers  ", "Sneakers"},
		{"空文字列", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.SanitizeName(tc.input)
			if got != tc.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeName_Idempotent(t *testing.T) {
	s := NewNameSanitizer()

	input := "<i>Silk</i> Scarf"
	once := s.SanitizeName(input)
	twice := s.SanitizeName(once)
	if once != twice {
		t.Errorf("sanitize not idempotent: first %q, second %q", once, twice)
	}
}
