package raw

import "testing"

func TestGetDefaults(t *testing.T) {
	c := New().Prefix("RAWTEST_")

	if got := c.Get("MISSING", "fallback"); got != "fallback" {
		t.Fatalf("Get default = %q", got)
	}
	t.Setenv("RAWTEST_SET", "  value  ")
	if got := c.Get("SET", "x"); got != "value" {
		t.Fatalf("Get trims = %q", got)
	}
	if !c.Has("SET") || c.Has("MISSING") {
		t.Fatalf("Has mismatch")
	}
}

func TestGetBool(t *testing.T) {
	c := New().Prefix("RAWTEST_")
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"", false, false},
		{"1", false, true},
		{"true", false, true},
		{"yes", false, true},
		{"TRUE", false, true},
		{"no", true, false},
		{"0", true, false},
		{"garbage", true, false},
	}
	for _, tc := range cases {
		t.Setenv("RAWTEST_B", tc.val)
		if got := c.GetBool("B", tc.def); got != tc.want {
			t.Fatalf("GetBool(%q, %v) = %v, want %v", tc.val, tc.def, got, tc.want)
		}
	}
}

func TestGetInt(t *testing.T) {
	c := New().Prefix("RAWTEST_")
	cases := []struct {
		val  string
		want int
	}{
		{"", 7},
		{"42", 42},
		{"0", 0},
		{"-3", 7},
		{"12x", 7},
	}
	for _, tc := range cases {
		t.Setenv("RAWTEST_I", tc.val)
		if got := c.GetInt("I", 7); got != tc.want {
			t.Fatalf("GetInt(%q) = %d, want %d", tc.val, got, tc.want)
		}
	}
}

func TestPrefixComposition(t *testing.T) {
	t.Setenv("A_B_KEY", "deep")
	c := New().Prefix("A_").Prefix("B_")
	if got := c.Get("KEY", ""); got != "deep" {
		t.Fatalf("nested prefix = %q", got)
	}
}
