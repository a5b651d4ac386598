package deck

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hazyhaar/snapdeck/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRenderNote(t *testing.T) {
	tests := []struct {
		name, in string
		want     []string
	}{
		{"paragraph", "Hello world.", []string{"<p>Hello world.</p>"}},
		{"strong and em", "a *b* _c_", []string{"<strong>b</strong>", "<em>c</em>"}},
		{"list", "- one\n- two", []string{"<ul>", "<li>one</li>", "<li>two</li>", "</ul>"}},
		{"para then list", "intro\n\n- item", []string{"<p>intro</p>", "<li>item</li>"}},
		{"escapes html", "<script>x</script>", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(RenderNote(tt.in))
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("RenderNote(%q) = %q, missing %q", tt.in, got, w)
				}
			}
			if strings.Contains(got, "<script") {
				t.Errorf("unsanitized script in %q", got)
			}
		})
	}

	if RenderNote("   \n  ") != "" {
		t.Error("blank note should render empty")
	}
}

func TestBuild(t *testing.T) {
	s := testStore(t)
	s.AppendCapture("proj", store.Record{ID: "a", File: "a.png", URL: "https://a.test", Date: "d1"})
	s.AppendCapture("proj", store.Record{ID: "b", File: "b.png", URL: "https://b.test", Date: "d2"})
	s.WriteOrder("proj", []string{"b.png", "a.png"})
	s.WriteNotes("proj", map[string]string{"a.png": "Note for *a*."})

	d, err := Build(s, "proj", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.Title != "Captures - proj" {
		t.Errorf("default title = %q", d.Title)
	}
	if len(d.Slides) != 2 {
		t.Fatalf("got %d slides, want 2", len(d.Slides))
	}
	if d.Slides[0].File != "b.png" {
		t.Errorf("order file not applied, first slide = %q", d.Slides[0].File)
	}
	if d.Slides[1].NoteRaw != "Note for *a*." {
		t.Errorf("note not attached: %+v", d.Slides[1])
	}
	if !strings.Contains(string(d.Slides[1].NoteHTML), "<strong>a</strong>") {
		t.Errorf("note not rendered: %q", d.Slides[1].NoteHTML)
	}
	if d.Slides[0].ImageSrc != "/screenshots/proj/b.png" {
		t.Errorf("ImageSrc = %q", d.Slides[0].ImageSrc)
	}
}

func TestBuildEmptyProject(t *testing.T) {
	s := testStore(t)
	d, err := Build(s, "nothing", "Custom")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.Title != "Custom" || len(d.Slides) != 0 {
		t.Errorf("deck = %+v", d)
	}
}

func TestRenderPage(t *testing.T) {
	s := testStore(t)
	s.AppendCapture("proj", store.Record{ID: "a", File: "a.png", URL: "https://a.test", Date: "d"})
	d, err := Build(s, "proj", "My Deck")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<title>My Deck</title>",
		`data-project="proj"`,
		`data-capture="a.png"`,
		`src="/screenshots/proj/a.png"`,
		"editor-state",
		"export-pdf",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}
