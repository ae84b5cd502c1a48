// Package web serves the restaurant list and menu views as server-rendered
// HTML. Each browser is tied to a session by cookie; every request mounts a
// fresh view against that session and renders its snapshot.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ItzSouraseez/knowyourplate/config"
	"github.com/ItzSouraseez/knowyourplate/models"
	"github.com/ItzSouraseez/knowyourplate/session"
	"github.com/ItzSouraseez/knowyourplate/views"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	sessionCookie = "kyp_session"
	stateCookie   = "kyp_oauth_state"
)

// PasswordProvider builds a sign-in flow from a submitted login form.
type PasswordProvider interface {
	Flow(login, password string) session.Flow
}

// ConsentProvider runs a hosted consent flow that redirects back to
// /auth/callback.
type ConsentProvider interface {
	AuthCodeURL(state string) string
	Flow(code string) session.Flow
}

type Options struct {
	Catalog  views.Catalog
	Sessions *session.Store
	Password PasswordProvider
	Consent  ConsentProvider // nil hides the consent sign-in
	Menu     config.MenuConfig
	Secure   bool // set the Secure flag on cookies
	Log      *zap.Logger
}

type Server struct {
	catalog  views.Catalog
	sessions *session.Store
	password PasswordProvider
	consent  ConsentProvider
	menu     config.MenuConfig
	secure   bool
	log      *zap.Logger
	pages    map[string]*template.Template
}

func New(opts Options) (*Server, error) {
	if opts.Catalog == nil || opts.Sessions == nil || opts.Password == nil {
		return nil, errors.New("web: catalog, sessions and password provider are required")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		catalog:  opts.Catalog,
		sessions: opts.Sessions,
		password: opts.Password,
		consent:  opts.Consent,
		menu:     opts.Menu,
		secure:   opts.Secure,
		log:      log.Named("web"),
		pages:    make(map[string]*template.Template),
	}
	for _, name := range []string{"list", "menu", "login"} {
		t, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		s.pages[name] = t
	}
	return s, nil
}

// Handler returns the routed handler wrapped in the access log.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleList)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET /static/", http.FileServerFS(staticFS))
	mux.HandleFunc("GET /{restaurantID}", s.handleMenu)
	return accessLog(s.log, mux)
}

// Run serves addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.menu.LoadTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", zap.String("addr", addr))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// session returns the caller's session, issuing a new cookie when the
// request carries none or an unknown one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.Lookup(c.Value); ok {
			return sess
		}
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s.sessions.Get(key)
}

type page struct {
	Title    string
	Identity *models.Identity
	Flash    string
	Path     string
}

func newPage(r *http.Request, sess *session.Session, title string, id *models.Identity) page {
	return page{Title: title, Identity: id, Flash: sess.TakeFlash(), Path: r.URL.RequestURI()}
}

type listPage struct {
	page
	Query       string
	Restaurants []restaurantCard
	Err         string
	Empty       string
	NoMatches   bool
}

// restaurantCard is rendered for every restaurant; cards outside the query
// are hidden so search.js can filter without a reload.
type restaurantCard struct {
	ID     string
	Name   string
	Hidden bool
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	v := views.NewListView(s.catalog, s.log, s.menu.LoadTimeout)
	v.Mount(r.Context(), sess)
	defer v.Unmount()

	v.SetQuery(r.URL.Query().Get("q"))
	st := v.Snapshot()
	data := listPage{
		page:  newPage(r, sess, "Restaurants", st.Identity),
		Query: st.Query,
		Err:   st.Err,
		Empty: views.MsgNoRestaurants,
	}
	if st.Identity != nil && st.Err == "" {
		visible := make(map[string]bool)
		for _, rest := range st.Visible() {
			visible[rest.ID] = true
		}
		for _, rest := range st.Restaurants {
			data.Restaurants = append(data.Restaurants, restaurantCard{
				ID:     rest.ID,
				Name:   rest.Name,
				Hidden: !visible[rest.ID],
			})
		}
		data.NoMatches = len(visible) == 0
	}
	s.render(w, r, "list", data)
}

type menuPage struct {
	page
	RestaurantID string
	Name         string
	Sections     []sectionView
	Err          string
	Empty        string
}

type sectionView struct {
	ID    string
	Name  string
	Open  bool
	Items []itemView
	Empty string
}

type itemView struct {
	ID         string
	Name       string
	Fields     []views.ItemField
	Images     []string
	Status     string
	IntervalMS int64
	NoImages   string
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.PathValue("restaurantID")
	sess := s.session(w, r)
	v := views.NewMenuView(s.catalog, restaurantID, views.MenuOptions{
		Fanout:  s.menu.Fanout,
		Timeout: s.menu.LoadTimeout,
	}, s.log)
	v.Mount(r.Context(), sess)
	defer v.Unmount()

	st := v.Snapshot()
	data := menuPage{
		page:         newPage(r, sess, "Restaurant Menu", st.Identity),
		RestaurantID: restaurantID,
		Err:          st.Err,
	}
	if m := st.Menu; st.Identity != nil && m != nil {
		data.Title = m.RestaurantName
		data.Name = m.RestaurantName
		if len(m.Sections) == 0 {
			data.Empty = views.MsgNoMenuItems
		}
		for _, sec := range m.Sections {
			data.Sections = append(data.Sections, s.sectionView(sec, m.Items[sec.ID], !st.Collapsed(sec.ID)))
		}
	}
	s.render(w, r, "menu", data)
}

func (s *Server) sectionView(sec models.Section, items []models.FoodItem, open bool) sectionView {
	out := sectionView{ID: sec.ID, Name: sec.Name, Open: open}
	if len(items) == 0 {
		out.Empty = views.MsgEmptySection(sec.Name)
	}
	for _, it := range items {
		iv := itemView{ID: it.ID, Name: it.Name(), Fields: views.ItemFields(it)}
		if c := views.NewCarousel(it.Images(), s.menu.CarouselInterval); c != nil {
			iv.Images = c.Images()
			iv.Status = c.Status()
			iv.IntervalMS = c.Interval().Milliseconds()
		} else {
			iv.NoImages = views.MsgNoImages
		}
		out.Items = append(out.Items, iv)
	}
	return out
}

type loginPage struct {
	page
	Next    string
	Consent bool
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	next := safeNext(r.URL.Query().Get("next"))
	if sess.Current() != nil {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	if r.URL.Query().Get("provider") == "google" && s.consent != nil {
		state := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    state,
			Path:     "/auth/callback",
			MaxAge:   600,
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, s.consent.AuthCodeURL(state), http.StatusFound)
		return
	}
	s.render(w, r, "login", loginPage{
		page:    newPage(r, sess, "Sign in", nil),
		Next:    next,
		Consent: s.consent != nil,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	next := safeNext(r.PostForm.Get("next"))
	login := r.PostForm.Get("login")
	if err := sess.SignIn(r.Context(), s.password.Flow(login, r.PostForm.Get("password"))); err != nil {
		s.log.Info("password sign-in failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("login", login),
			zap.Error(err))
		sess.Flash(session.MsgSignInFailed)
		http.Redirect(w, r, "/login?next="+url.QueryEscape(next), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.consent == nil {
		http.NotFound(w, r)
		return
	}
	sess := s.session(w, r)
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth/callback", MaxAge: -1})

	q := r.URL.Query()
	c, err := r.Cookie(stateCookie)
	switch {
	case err != nil || c.Value == "" || c.Value != q.Get("state"):
		s.log.Warn("consent callback state mismatch", zap.String("request_id", RequestID(r.Context())))
		sess.Flash(session.MsgSignInFailed)
	case q.Get("error") != "":
		s.log.Info("consent declined", zap.String("error", q.Get("error")))
		sess.Flash(session.MsgSignInFailed)
	default:
		if err := sess.SignIn(r.Context(), s.consent.Flow(q.Get("code"))); err != nil {
			s.log.Warn("consent sign-in failed",
				zap.String("request_id", RequestID(r.Context())),
				zap.Error(err))
			sess.Flash(session.MsgSignInFailed)
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	next := "/"
	if err := r.ParseForm(); err == nil {
		next = safeNext(r.PostForm.Get("next"))
	}
	if err := sess.SignOut(r.Context()); err != nil {
		s.log.Warn("sign-out failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err))
		sess.Flash(session.MsgSignOutFailed)
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error("render template",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("template", name),
			zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	return next
}
