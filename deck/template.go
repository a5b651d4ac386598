package deck

import (
	"html/template"
	"io"
)

var pageTmpl = template.Must(template.New("deck").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
  :root { --line: #d8d8e0; --bg: #f7f7fa; --ink: #1c1c28; }
  * { box-sizing: border-box; }
  body { margin: 0; padding: 24px; font-family: system-ui, sans-serif; background: var(--bg); color: var(--ink); }
  header { display: flex; align-items: center; gap: 12px; margin-bottom: 20px; }
  header h1 { margin: 0; font-size: 22px; flex: 1; }
  header button { border: none; border-radius: 999px; padding: 8px 18px; cursor: pointer; background: var(--ink); color: #fff; }
  .card { background: #fff; border: 1px solid var(--line); border-radius: 18px; padding: 16px; margin-bottom: 18px; }
  .card img { width: 100%; border-radius: 12px; border: 1px solid var(--line); }
  .meta { display: flex; gap: 16px; font-size: 13px; color: #666; margin: 8px 0; }
  .meta a { color: inherit; overflow-wrap: anywhere; }
  .note { border-left: 3px solid var(--line); padding-left: 12px; font-size: 14px; }
  .note-editor { display: none; }
  .edit-mode .note-editor { display: block; }
  .edit-mode .note { display: none; }
  .note-editor textarea { width: 100%; min-height: 90px; border: 1px solid var(--line); border-radius: 10px; padding: 8px; font: inherit; }
  .edit-mode .card { cursor: grab; }
</style>
</head>
<body>
<div id="deck" data-project="{{.Project}}" data-title="{{.Title}}">
  <header>
    <h1>{{.Title}}</h1>
    <button id="toggle-edit" type="button">Mode edition</button>
    <button id="export-pdf" type="button">Export PDF</button>
  </header>
  {{range .Slides}}
  <section class="card" data-capture="{{.File}}" draggable="false">
    <img src="{{.ImageSrc}}" alt="{{.ID}}" loading="lazy">
    <div class="meta">
      <a href="{{.URL}}" rel="noopener" target="_blank">{{.URL}}</a>
      <span>{{.Date}}</span>
    </div>
    {{if .NoteHTML}}<aside class="note">{{.NoteHTML}}</aside>{{end}}
    <div class="note-editor"><textarea>{{.NoteRaw}}</textarea></div>
  </section>
  {{end}}
</div>
<script>
  const root = document.getElementById('deck');
  const projectName = root.getAttribute('data-project');
  const pageTitle = root.getAttribute('data-title');
  const toggle = document.getElementById('toggle-edit');
  const exportPdf = document.getElementById('export-pdf');
  let dragged = null;

  function enableDrag(on) {
    document.querySelectorAll('.card').forEach((card) => {
      card.setAttribute('draggable', on ? 'true' : 'false');
    });
  }

  document.addEventListener('dragstart', (e) => {
    dragged = e.target.closest('.card');
  });
  document.addEventListener('dragover', (e) => {
    const over = e.target.closest('.card');
    if (!dragged || !over || over === dragged) return;
    e.preventDefault();
    const rect = over.getBoundingClientRect();
    const before = e.clientY < rect.top + rect.height / 2;
    over.parentNode.insertBefore(dragged, before ? over : over.nextSibling);
  });

  function buildOrder() {
    const items = [];
    document.querySelectorAll('.card').forEach((card) => {
      const name = card.getAttribute('data-capture');
      if (name) items.push(name);
    });
    return items;
  }

  function buildNotes() {
    const notes = {};
    document.querySelectorAll('.card').forEach((card) => {
      const name = card.getAttribute('data-capture');
      const textarea = card.querySelector('.note-editor textarea');
      if (!name || !textarea) return;
      const value = textarea.value.trim();
      if (value) notes[name] = value;
    });
    return notes;
  }

  function downloadOrder() {
    const blob = new Blob([buildOrder().join('\n') + '\n'], { type: 'text/markdown;charset=utf-8' });
    const url = URL.createObjectURL(blob);
    const a = document.createElement('a');
    a.href = url;
    a.download = 'order_' + projectName + '.md';
    document.body.appendChild(a);
    a.click();
    a.remove();
    URL.revokeObjectURL(url);
  }

  async function saveEditorState() {
    const response = await fetch('/api/projects/' + encodeURIComponent(projectName) + '/editor-state', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ order: buildOrder(), notes: buildNotes() })
    });
    const data = await response.json();
    if (!response.ok) throw new Error(data.error || 'Erreur sauvegarde edition.');
  }

  toggle.addEventListener('click', async () => {
    const editing = root.classList.toggle('edit-mode');
    enableDrag(editing);
    if (editing) {
      toggle.textContent = 'Sauvegarder';
      return;
    }
    toggle.textContent = 'Mode edition';
    try {
      await saveEditorState();
      location.reload();
    } catch (error) {
      alert(error.message + " Telechargement local de l'ordre en secours.");
      downloadOrder();
    }
  });

  exportPdf.addEventListener('click', async () => {
    const originalText = exportPdf.textContent;
    exportPdf.disabled = true;
    exportPdf.textContent = 'Export PDF...';
    try {
      const response = await fetch('/api/projects/' + encodeURIComponent(projectName) + '/export-pdf', {
        method: 'POST',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify({ title: pageTitle })
      });
      const data = await response.json();
      if (!response.ok) throw new Error(data.error || 'Erreur export PDF.');
      window.open(data.url, '_blank', 'noopener');
    } catch (error) {
      alert(error.message);
    } finally {
      exportPdf.disabled = false;
      exportPdf.textContent = originalText;
    }
  });
</script>
</body>
</html>
`))

// Render writes the deck as a standalone HTML page.
func (d *Deck) Render(w io.Writer) error {
	return pageTmpl.Execute(w, d)
}
