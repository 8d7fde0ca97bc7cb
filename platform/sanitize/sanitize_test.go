package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := map[string]string{
		"  Ana   Souza ":                          "Ana Souza",
		"<b>Ana</b>":                              "Ana",
		"&lt;script&gt;alert(1)&lt;/script&gt;x": "alert(1)x",
		"Tom &amp; Jerry":                         "Tom & Jerry",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Fatalf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCode(t *testing.T) {
	cases := map[string]string{
		" cc-100 ":   "CC-100",
		"ops eu.1":   "OPSEU.1",
		"<i>fin</i>": "FIN",
	}
	for in, want := range cases {
		if got := Code(in); got != want {
			t.Fatalf("Code(%q) = %q, want %q", in, got, want)
		}
	}
}
