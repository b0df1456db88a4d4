package web

import (
	"net/http"
	"strings"
)

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(renderPage(indexHTML)))
}

func (h *Handler) handlePlayer(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(renderPage(playerHTML)))
}

// renderPage splices the shared style and theme script into a page body.
func renderPage(body string) string {
	page := strings.Replace(pageShell, "{{BODY}}", body, 1)
	return strings.Replace(page, "{{THEME_SCRIPT}}", themeScript(), 1)
}

const pageShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>AoE2 Scout</title>
<style>
  :root {
    --bg: #0d1117;
    --surface: #161b22;
    --border: #30363d;
    --text: #e6edf3;
    --text-dim: #8b949e;
    --accent: #58a6ff;
    --green: #3fb950;
    --red: #f85149;
  }
  :root[data-theme="light"] {
    --bg: #f7f7f7;
    --surface: #ffffff;
    --border: #e3e3e3;
    --text: #1f1f1f;
    --text-dim: #666666;
    --accent: #0b5cad;
    --green: #1b6c2e;
    --red: #a53434;
  }
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif;
    background: var(--bg);
    color: var(--text);
    font-size: 14px;
    line-height: 1.5;
    padding: 16px;
    max-width: 1100px;
    margin: 0 auto;
  }
  header {
    display: flex;
    align-items: center;
    justify-content: space-between;
    margin-bottom: 16px;
    padding-bottom: 12px;
    border-bottom: 1px solid var(--border);
  }
  header h1 { font-size: 20px; font-weight: 600; }
  header h1 span { color: var(--accent); }
  #theme-toggle {
    background: var(--surface);
    border: 1px solid var(--border);
    border-radius: 6px;
    padding: 4px 10px;
    font-size: 15px;
    cursor: pointer;
  }
  .card {
    background: var(--surface);
    border: 1px solid var(--border);
    border-radius: 8px;
    padding: 16px;
    margin-bottom: 16px;
  }
  .card h2 { font-size: 15px; margin-bottom: 10px; }
  .muted { color: var(--text-dim); }
  input[type="text"] {
    background: var(--bg);
    color: var(--text);
    border: 1px solid var(--border);
    border-radius: 6px;
    padding: 8px;
    font-size: 14px;
    min-width: 16rem;
  }
  button.action {
    background: var(--accent);
    color: var(--bg);
    border: none;
    border-radius: 6px;
    padding: 8px 14px;
    font-size: 14px;
    cursor: pointer;
  }
  table { width: 100%; border-collapse: collapse; margin-top: 10px; }
  th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid var(--border); }
  th { color: var(--text-dim); font-weight: 600; }
  .badge {
    padding: 1px 8px;
    border-radius: 999px;
    font-size: 12px;
    font-weight: 600;
  }
  .badge.win { background: rgba(63,185,80,.15); color: var(--green); }
  .badge.loss { background: rgba(248,81,73,.15); color: var(--red); }
  ul.results { list-style: none; }
  ul.results li { padding: 6px 0; border-bottom: 1px solid var(--border); }
  ul.results a { color: var(--accent); text-decoration: none; }
</style>
</head>
<body>
<header>
  <h1>AoE2 <span>Scout</span></h1>
  <button id="theme-toggle" type="button" title="Toggle theme"><span id="theme-icon"></span></button>
</header>
{{BODY}}
<script>
{{THEME_SCRIPT}}
</script>
</body>
</html>`

const indexHTML = `<section class="card">
  <h2>Find a player</h2>
  <p class="muted">Search aoe2insights.com by name, or open a profile directly by numeric ID.</p>
  <form id="search-form" style="display:flex;gap:10px;margin-top:10px;">
    <input id="search-query" type="text" placeholder="e.g. TheViper or 1520583" autofocus>
    <button class="action" type="submit">Search</button>
  </form>
  <ul id="search-results" class="results"></ul>
</section>
<script>
(function () {
  var form = document.getElementById('search-form');
  var input = document.getElementById('search-query');
  var list = document.getElementById('search-results');

  form.addEventListener('submit', function (e) {
    e.preventDefault();
    var q = input.value.trim();
    if (!q) { return; }
    if (/^[0-9]+$/.test(q)) {
      window.location = '/player/' + q;
      return;
    }
    list.innerHTML = '<li class="muted">Searching…</li>';
    fetch('/api/search?q=' + encodeURIComponent(q))
      .then(function (r) { return r.json(); })
      .then(function (data) {
        list.innerHTML = '';
        var results = data.results || [];
        if (!results.length) {
          list.innerHTML = '<li class="muted">No players found.</li>';
          return;
        }
        results.forEach(function (p) {
          var li = document.createElement('li');
          var a = document.createElement('a');
          a.href = '/player/' + p.id;
          a.textContent = p.name + ' (' + p.id + ')';
          li.appendChild(a);
          list.appendChild(li);
        });
      })
      .catch(function () {
        list.innerHTML = '<li class="muted">Search failed.</li>';
      });
  });
})();
</script>`

const playerHTML = `<section class="card">
  <h2 id="player-title">Player</h2>
  <div style="display:flex;gap:10px;align-items:center;">
    <button class="action" id="refresh-btn" type="button">Refresh</button>
    <button class="action" id="backfill-btn" type="button">Backfill full history</button>
    <span id="fetch-state" class="muted"></span>
  </div>
</section>
<section class="card">
  <h2>Ranked 1v1</h2>
  <div id="ranked" class="muted">Loading&hellip;</div>
</section>
<section class="card">
  <h2>Sessions</h2>
  <div id="sessions" class="muted">Loading&hellip;</div>
</section>
<section class="card">
  <h2>Match history</h2>
  <div id="match-count" class="muted"></div>
  <table>
    <thead>
      <tr><th>Start</th><th>End</th><th>Mode</th><th>Map</th><th>Duration</th><th>Result</th></tr>
    </thead>
    <tbody id="match-rows"></tbody>
  </table>
</section>
<script>
(function () {
  var userID = window.location.pathname.split('/').pop();
  document.getElementById('player-title').textContent = 'Player ' + userID;
  var api = '/api/user/' + userID;
  var pollTimer = null;

  function td(text) {
    var cell = document.createElement('td');
    cell.textContent = text || 'Unknown';
    return cell;
  }

  function loadMatches() {
    fetch(api + '/matches')
      .then(function (r) { return r.json(); })
      .then(function (data) {
        document.getElementById('match-count').textContent =
          data.total + ' matches cached.';
        var rows = document.getElementById('match-rows');
        rows.innerHTML = '';
        (data.matches || []).forEach(function (m) {
          var tr = document.createElement('tr');
          tr.appendChild(td(m.started_at));
          tr.appendChild(td(m.ended_at));
          tr.appendChild(td(m.mode));
          tr.appendChild(td(m.map));
          tr.appendChild(td(m.duration));
          var result = document.createElement('td');
          if (m.result) {
            var span = document.createElement('span');
            span.className = 'badge ' + m.result;
            span.textContent = m.result === 'win' ? 'Win' : 'Loss';
            result.appendChild(span);
          } else {
            result.textContent = 'Unknown';
            result.className = 'muted';
          }
          tr.appendChild(result);
          rows.appendChild(tr);
        });
      });
  }

  function pct(v) { return v.toFixed ? v.toFixed(1) + '%' : v + '%'; }

  function rowList(title, rows, max) {
    var html = '<p><strong>' + title + '</strong></p><ul>';
    (rows || []).slice(0, max).forEach(function (r) {
      var label = r.name || r.key;
      html += '<li>' + label + ': ' + pct(r.win_rate) + ' (' + r.wins + ' / ' + r.matches + ')</li>';
    });
    return html + '</ul>';
  }

  function loadStats() {
    fetch(api + '/stats')
      .then(function (r) { return r.json(); })
      .then(function (s) {
        var el = document.getElementById('ranked');
        el.classList.remove('muted');
        el.innerHTML =
          '<p>' + s.total + ' ranked matches, ' + s.wins + ' wins (' + pct(s.win_rate) + ')</p>' +
          rowList('Frequent opponents', s.opponents, 5) +
          rowList('By duration', s.duration, 10) +
          rowList('Your civilizations', s.civs, 10) +
          rowList('Opponent civilizations', s.opp_civs, 10) +
          rowList('Maps', s.maps, 10);
      });
    fetch(api + '/sessions')
      .then(function (r) { return r.json(); })
      .then(function (s) {
        var el = document.getElementById('sessions');
        el.classList.remove('muted');
        var byN = (s.by_game_number || []).map(function (r) {
          return '<li>Game ' + r.n + ': ' + pct(r.win_rate) + ' (' + r.wins + ' / ' + r.matches + ')</li>';
        }).join('');
        el.innerHTML =
          '<p>' + s.eligible + ' eligible matches across ' + s.sessions + ' sessions</p>' +
          '<p>After a win: ' + pct(s.after_win.win_rate) + ' · After a loss: ' + pct(s.after_loss.win_rate) + '</p>' +
          '<p>After two wins: ' + pct(s.after_two_wins.win_rate) + ' · After two losses: ' + pct(s.after_two_losses.win_rate) + '</p>' +
          '<p><strong>By game number</strong></p><ul>' + byN + '</ul>';
      });
  }

  function pollStatus() {
    fetch(api + '/fetch-status')
      .then(function (r) { return r.json(); })
      .then(function (st) {
        var el = document.getElementById('fetch-state');
        if (st.state === 'running') {
          el.textContent = 'Fetching… ' + st.pages_fetched + ' pages, ' + st.match_count + ' matches';
          pollTimer = setTimeout(pollStatus, 2000);
        } else if (st.state === 'error') {
          el.textContent = 'Fetch failed: ' + st.error;
        } else {
          el.textContent = '';
          loadMatches();
          loadStats();
        }
      });
  }

  document.getElementById('refresh-btn').addEventListener('click', function () {
    document.getElementById('fetch-state').textContent = 'Refreshing…';
    fetch(api + '/refresh', { method: 'POST' })
      .then(function (r) { return r.json(); })
      .then(function (data) {
        document.getElementById('fetch-state').textContent =
          (data.new_matches || 0) + ' new matches';
        loadMatches();
        loadStats();
      });
  });

  document.getElementById('backfill-btn').addEventListener('click', function () {
    fetch(api + '/backfill', { method: 'POST' }).then(function () {
      if (pollTimer) { clearTimeout(pollTimer); }
      pollStatus();
    });
  });

  loadMatches();
  loadStats();
})();
</script>`
