package web

const sharedCSS = `
  body { font-family: system-ui, sans-serif; margin: 0; background: #f5f5f5; }
  header { background: #1a1a2e; color: #fff; padding: 1rem 1.5rem; display: flex;
           align-items: center; justify-content: space-between; }
  header h1 { margin: 0; font-size: 1.2rem; }
  header nav a { color: #ccc; text-decoration: none; font-size: 0.85rem; margin-left: 1rem; }
  a { color: #1a1a2e; }
  pre { background: #1e1e1e; color: #d4d4d4; padding: 1rem; border-radius: 8px;
        overflow-x: auto; font-size: 0.8rem; white-space: pre-wrap; }
  .content { padding: 1rem; max-width: 900px; }
  .btn { padding: 0.4rem 0.8rem; border-radius: 6px; border: none; cursor: pointer; font-size: 0.85rem; }
  .btn-approve { background: #16a34a; color: #fff; }
  .btn-reject  { background: #dc2626; color: #fff; }
  .btn-cancel  { background: #d97706; color: #fff; }
  .btn-retry   { background: #0891b2; color: #fff; }
  .btn-delete  { background: #7f1d1d; color: #fff; }
  .btn-edit    { background: #2563eb; color: #fff; }
`

const headerHTML = `
<header>
  <h1>Agent Board</h1>
  <nav>
    <a href="/">Board</a>
    <a href="/progress">Progress</a>
    <a href="/log">Git Log</a>
  </nav>
</header>
`

const boardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Agent Board</title>
  <style>` + sharedCSS + `
    .board { display: flex; gap: 1rem; padding: 1rem; overflow-x: auto; }
    .col { background: #fff; border-radius: 8px; min-width: 180px; flex: 1; padding: 0.75rem; }
    .col h2 { font-size: 0.85rem; text-transform: uppercase; color: #666; margin: 0 0 0.75rem; }
    .card { background: #f9f9f9; border: 1px solid #e0e0e0; border-radius: 6px;
            padding: 0.6rem; margin-bottom: 0.5rem; font-size: 0.85rem; }
    .meta { color: #888; font-size: 0.75rem; margin-top: 0.3rem; }
    form.add { padding: 0 1rem; display: flex; gap: 0.5rem; }
    form.add textarea { flex: 1; padding: 0.5rem; border-radius: 6px; border: 1px solid #ccc; }
  </style>
</head>
<body>` + headerHTML + `
<form class="add" method="post" action="/tasks">
  <textarea name="prompt" rows="2" placeholder="New task..." required></textarea>
  <select name="priority">
    <option value="medium">Medium</option>
    <option value="high">High</option>
    <option value="low">Low</option>
  </select>
  <button class="btn btn-edit" type="submit">Add</button>
</form>
<div class="board">
  {{range .Columns}}
  <div class="col">
    <h2>{{.Label}} ({{len .Tasks}})</h2>
    {{range .Tasks}}
    <div class="card">
      <a href="/tasks/{{.ID}}">#{{.ID}} {{excerpt .Prompt 60}}</a>
      <div class="meta">
        {{if .Priority}}{{.Priority}}{{else}}medium{{end}}
        {{if .Parent}} &middot; subtask of #{{.Parent}}{{end}}
      </div>
    </div>
    {{end}}
  </div>
  {{end}}
</div>
</body>
</html>
`

const detailHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Task #{{.Task.ID}}</title>
  <style>` + sharedCSS + `
    .actions { display: flex; gap: 0.5rem; margin: 1rem 0; flex-wrap: wrap; }
    .subtask { background: #fff; border: 1px solid #e0e0e0; border-radius: 6px;
               padding: 0.5rem; margin-bottom: 0.4rem; font-size: 0.85rem; }
    table.sessions { border-collapse: collapse; font-size: 0.8rem; }
    table.sessions th, table.sessions td { border: 1px solid #e0e0e0; padding: 0.4rem 0.6rem; }
  </style>
</head>
<body>` + headerHTML + `
<div class="content">
<p><a href="/">&larr; Board</a></p>
<h1>#{{.Task.ID}} &mdash; {{.Task.Prompt}}</h1>
<p>Status: <strong>{{.Task.Status}}</strong>
   | Priority: {{if .Task.Priority}}{{.Task.Priority}}{{else}}medium{{end}}
   {{if .Task.Parent}}| Subtask of <a href="/tasks/{{.Task.Parent}}">#{{.Task.Parent}}</a>{{end}}
   {{if .Task.CreatedAt}}| Created: {{.Task.CreatedAt}}{{end}}
   {{if .Task.CompletedAt}}| Completed: {{.Task.CompletedAt}}{{end}}
</p>

<div class="actions">
  {{if .CanApprove}}
  <form method="post" action="/tasks/{{.Task.ID}}/approve">
    <button class="btn btn-approve">Approve Plan</button>
  </form>
  <form method="post" action="/tasks/{{.Task.ID}}/reject">
    <input name="feedback" placeholder="Rejection reason (optional)">
    <button class="btn btn-reject">Reject</button>
  </form>
  {{end}}
  {{if .CanPush}}
  <form method="post" action="/tasks/{{.Task.ID}}/approve-push">
    <button class="btn btn-approve">Approve Push</button>
  </form>
  <form method="post" action="/tasks/{{.Task.ID}}/reject-push">
    <button class="btn btn-reject">Skip Push (keep local)</button>
  </form>
  {{end}}
  {{if .CanCancel}}
  <form method="post" action="/tasks/{{.Task.ID}}/cancel">
    <button class="btn btn-cancel">Cancel</button>
  </form>
  {{end}}
  {{if .CanRetry}}
  <form method="post" action="/tasks/{{.Task.ID}}/retry">
    <button class="btn btn-retry">Retry / Requeue</button>
  </form>
  {{end}}
  {{if .CanDelete}}
  <form method="post" action="/tasks/{{.Task.ID}}/delete">
    <button class="btn btn-delete">Delete</button>
  </form>
  {{end}}
</div>

{{if .CanEdit}}
<form method="post" action="/tasks/{{.Task.ID}}/edit">
  <p><strong>Edit Task</strong></p>
  <textarea name="prompt" rows="3" style="width:100%">{{.Task.Prompt}}</textarea>
  <p>
    <select name="priority">
      <option value="high" {{if eq .Task.Priority "high"}}selected{{end}}>High</option>
      <option value="medium" {{if or (eq .Task.Priority "medium") (not .Task.Priority)}}selected{{end}}>Medium</option>
      <option value="low" {{if eq .Task.Priority "low"}}selected{{end}}>Low</option>
    </select>
    <button class="btn btn-edit" type="submit">Save</button>
  </p>
</form>
{{end}}

{{if .Task.Plan}}
<h2>Plan</h2>
<pre>{{.Task.Plan}}</pre>
{{end}}

{{if .Task.Summary}}
<h2>Result Summary</h2>
<pre>{{.Task.Summary}}</pre>
{{end}}

{{if .Task.Sessions}}
<h2>Sessions</h2>
<table class="sessions">
  <tr><th>Mode</th><th>Started</th><th>Duration</th><th>Exit Code</th></tr>
  {{range .Task.Sessions}}
  <tr><td>{{.Mode}}</td><td>{{.StartedAt}}</td><td>{{.DurationS}}s</td><td>{{.ExitCode}}</td></tr>
  {{end}}
</table>
{{end}}

{{if .Subtasks}}
<h2>Subtasks</h2>
{{range .Subtasks}}
<div class="subtask"><a href="/tasks/{{.ID}}">#{{.ID}}</a> [{{.Status}}] {{excerpt .Prompt 80}}</div>
{{end}}
{{end}}

</div>
</body>
</html>
`

const progressHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Progress Log</title>
  <style>` + sharedCSS + `</style>
</head>
<body>` + headerHTML + `
<div class="content">
<h1>PROGRESS.md</h1>
{{if .Content}}<pre>{{.Content}}</pre>{{else}}<p>No progress entries yet.</p>{{end}}
</div>
</body>
</html>
`

const logHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Git Log</title>
  <style>` + sharedCSS + `</style>
</head>
<body>` + headerHTML + `
<div class="content">
<h1>Recent Git Log</h1>
{{if .Log}}<pre>{{.Log}}</pre>{{else}}<p>No git history available.</p>{{end}}
</div>
</body>
</html>
`
