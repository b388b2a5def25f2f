package urlcanon

import "testing"

func TestCanonicalize_ScenarioA(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"arxiv abs version suffix", "https://arxiv.org/abs/2312.12345v1", "https://arxiv.org/abs/2312.12345"},
		{"arxiv pdf version and tracking param", "https://arxiv.org/pdf/2312.12345v3?utm_source=x", "https://arxiv.org/pdf/2312.12345"},
		{"github trailing slash, ref param, fragment", "https://github.com/Foo/Bar/?ref=home#readme", "https://github.com/foo/bar"},
		{"uppercase scheme and host, root path", "HTTPS://Example.COM", "https://example.com/"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonicalize(tt.input)
			if got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://arxiv.org/abs/2312.12345v1",
		"https://github.com/Foo/Bar/?ref=home#readme",
		"HTTPS://Example.COM",
		"https://huggingface.co/datasets/Foo/Bar?utm_campaign=x&keep=1",
	}

	for _, in := range inputs {
		once := Canonicalize(in)
		twice := Canonicalize(once)
		if once != twice {
			t.Errorf("canonicalize not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestCanonicalize_ArxivVersionVariantsMerge(t *testing.T) {
	base := Canonicalize("https://arxiv.org/abs/2401.00001")
	v1 := Canonicalize("https://arxiv.org/abs/2401.00001v1")
	v2 := Canonicalize("https://arxiv.org/abs/2401.00001v2")

	if base != v1 || v1 != v2 {
		t.Errorf("expected version variants to merge: base=%q v1=%q v2=%q", base, v1, v2)
	}

	abs := Canonicalize("https://arxiv.org/abs/2401.00001v1")
	pdf := Canonicalize("https://arxiv.org/pdf/2401.00001v1")
	if abs == pdf {
		t.Errorf("abs and pdf variants should differ only in path, got equal: %q", abs)
	}
}

func TestCanonicalize_QueryParamOrderDoesNotMatterForTrackingStrip(t *testing.T) {
	got := Canonicalize("https://example.com/page?b=2&utm_source=x&a=1")
	want := Canonicalize("https://example.com/page?a=1&b=2")
	if got != want {
		t.Errorf("expected tracking-stripped URLs with same remaining params to be equal, got %q vs %q", got, want)
	}
}

func TestCanonicalize_KeepsNonTrackingQueryParams(t *testing.T) {
	got := Canonicalize("https://example.com/search?q=benchmark&ref_src=homepage")
	if got != "https://example.com/search?q=benchmark" {
		t.Errorf("unexpected result: %q", got)
	}
}
