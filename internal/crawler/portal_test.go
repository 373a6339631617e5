package crawler

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	portalUser     = "alice"
	portalPassword = "secret"
)

type portalUnit struct {
	name string
	// href overrides the default detail link
	href string
}

type portalAnnouncement struct {
	title, date, body, href string
}

// portal imitates the pages of the real portal that the crawler touches.
type portal struct {
	mutex  sync.Mutex
	server *httptest.Server

	units []portalUnit
	// broken units answer their detail page with a 500
	broken map[string]bool
	// summary label -> value, shown on every unit's page
	summary [][2]string
	// noUnitTable replaces the unit list with a page without the table
	noUnitTable bool

	members       [][]string
	announcements []portalAnnouncement
}

func newPortal(t *testing.T) *portal {
	p := &portal{
		broken: map[string]bool{},
		summary: [][2]string{
			{"Total de Estudantes:", "1.234"},
			{"Total de Servidores", "45"},
			{"Total de Turmas", "30"},
			{"Total de Estudantes Novatos", "12"},
			{"Estudantes NÃ£O alocados em Turmas", "3"},
			{"Capacidade", "999"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/app/public/autenticacao.jsf", p.login)
	mux.HandleFunc("/app/vinculos.jsf", p.authenticated(p.unitList))
	mux.HandleFunc("/app/escola.jsf", p.authenticated(p.unitDetail))
	mux.HandleFunc("/app/alunos.jsf", p.authenticated(p.memberList))
	mux.HandleFunc("/app/comunicados.jsf", p.authenticated(p.announcementList))
	mux.HandleFunc("/app/inicio.jsf", p.authenticated(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Bem-vindo</h1></body></html>`)
	}))

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *portal) url(path string) string {
	return p.server.URL + path
}

func (p *portal) set(fn func(p *portal)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	fn(p)
}

const loginForm = `<html><body>
<form method="post" action="/app/public/autenticacao.jsf">
	<input type="hidden" name="javax.faces.ViewState" value="view-1">
	<input id="username" name="login" type="text">
	<input id="password" name="senha" type="password">
	<button type="button" name="ajuda">Ajuda</button>
	<button type="submit" name="entrar" value="1">Entrar no Sistema</button>
</form>
</body></html>`

func (p *portal) login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil &&
			r.PostForm.Get("login") == portalUser &&
			r.PostForm.Get("senha") == portalPassword &&
			r.PostForm.Get("entrar") == "1" {
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "session", Path: "/"})
			http.Redirect(w, r, "/app/inicio.jsf", http.StatusFound)
			return
		}
	}
	fmt.Fprint(w, loginForm)
}

func (p *portal) authenticated(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("JSESSIONID")
		if err != nil || cookie.Value != "session" {
			http.Redirect(w, r, "/app/public/autenticacao.jsf", http.StatusFound)
			return
		}
		p.mutex.Lock()
		defer p.mutex.Unlock()
		handler(w, r)
	}
}

func (p *portal) unitList(w http.ResponseWriter, r *http.Request) {
	if p.noUnitTable {
		fmt.Fprint(w, `<html><body><p>Sessão expirada</p></body></html>`)
		return
	}

	var rows strings.Builder
	for i, unit := range p.units {
		href := unit.href
		if href == "" {
			href = fmt.Sprintf("/app/escola.jsf?nome=%s", strings.ReplaceAll(unit.name, " ", "+"))
		}
		fmt.Fprintf(
			&rows,
			`<tr><td>%d</td><td>Professor</td><td>Ativo</td><td><a href="%s">Lotação: %s</a></td></tr>`,
			i, html.EscapeString(href), html.EscapeString(unit.name),
		)
	}

	fmt.Fprintf(w, `<html><body>
<table class="subFormulario">
	<caption>Vínculos</caption>
	<thead><tr><th>#</th><th>Cargo</th><th>Situação</th><th>Lotação</th></tr></thead>
	<tbody>
		<tr><th colspan="4">Vínculos ativos</th></tr>
		%s
		<tr><td>x</td><td>sem</td><td>lotação</td><td>definida</td></tr>
		<tr><td colspan="4">Total</td></tr>
	</tbody>
</table>
</body></html>`, rows.String())
}

func (p *portal) unitDetail(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("nome")
	if p.broken[name] {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	var rows strings.Builder
	for _, entry := range p.summary {
		fmt.Fprintf(&rows, "<tr><td><b>%s</b></td><td>%s</td></tr>\n", entry[0], entry[1])
	}

	fmt.Fprintf(w, `<html><body>
<table class="layout"><tr><td>
	<h2>%s</h2>
	<table id="resumo">
		%s
		<tr><td colspan="2">Dados atualizados diariamente</td></tr>
	</table>
</td></tr></table>
</body></html>`, html.EscapeString(name), rows.String())
}

func (p *portal) memberList(w http.ResponseWriter, r *http.Request) {
	var rows strings.Builder
	for _, member := range p.members {
		rows.WriteString("<tr>")
		for _, cell := range member {
			fmt.Fprintf(&rows, "<td>%s</td>", html.EscapeString(cell))
		}
		rows.WriteString("</tr>")
	}
	fmt.Fprintf(w, `<html><body>
<table id="tabelaAlunos">
	<thead><tr><th>Nome</th><th>Matrícula</th><th>CPF</th><th>Nascimento</th></tr></thead>
	<tbody>%s</tbody>
</table>
</body></html>`, rows.String())
}

func (p *portal) announcementList(w http.ResponseWriter, r *http.Request) {
	var items strings.Builder
	for _, a := range p.announcements {
		fmt.Fprintf(&items, `<div class="card-comunicado">
	<h3 class="titulo-noticia">%s</h3>
	<span class="data-publicacao">%s</span>
	<div class="conteudo-resumido">%s</div>
	<a href="%s">Leia mais</a>
</div>`, html.EscapeString(a.title), a.date, a.body, a.href)
	}
	fmt.Fprintf(w, `<html><body><div id="containerComunicados">%s</div></body></html>`, items.String())
}
