package capture

import "testing"

func TestResolveProfile_KnownRoots(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://nytimes.com/section/world", "nytimes"},
		{"https://www.nytimes.com/2026/01/01/article.html", "nytimes"},
		{"https://cooking.nytimes.com/recipes", "nytimes"},
		{"https://WWW.NYTIMES.COM/x", "nytimes"},
		{"https://lemonde.fr/", "lemonde"},
		{"https://www.lemonde.fr/international/", "lemonde"},
		{"https://youtube.com/watch?v=abc", "youtube"},
		{"https://music.youtube.com/", "youtube"},
		{"https://example.com/", DefaultProfileID},
		{"https://notnytimes.com/", DefaultProfileID},
		{"https://nytimes.com.evil.net/", DefaultProfileID},
	}
	for _, tc := range cases {
		got := ResolveProfile(tc.url)
		if got.ID != tc.want {
			t.Errorf("ResolveProfile(%q): got %q, want %q", tc.url, got.ID, tc.want)
		}
	}
}

func TestResolveProfile_MalformedFallsBack(t *testing.T) {
	for _, raw := range []string{"", "://", "not a url", "mailto:x@y.z"} {
		got := ResolveProfile(raw)
		if got.ID != DefaultProfileID {
			t.Errorf("ResolveProfile(%q): got %q, want default", raw, got.ID)
		}
	}
}

func TestResolveProfile_Pure(t *testing.T) {
	a := ResolveProfile("https://www.nytimes.com/")
	b := ResolveProfile("https://www.nytimes.com/")
	if a != b {
		t.Error("ResolveProfile not deterministic for identical input")
	}
}
