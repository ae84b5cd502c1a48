package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ItzSouraseez/knowyourplate/config"
	"github.com/ItzSouraseez/knowyourplate/models"
	"github.com/ItzSouraseez/knowyourplate/session"
	"github.com/ItzSouraseez/knowyourplate/views"
)

type memCatalog struct {
	restaurants []models.Restaurant
	sections    map[string][]models.Section
	items       map[string][]models.FoodItem
	listCalls   int
}

func (c *memCatalog) ListRestaurants(context.Context) ([]models.Restaurant, error) {
	c.listCalls++
	return append([]models.Restaurant(nil), c.restaurants...), nil
}

func (c *memCatalog) GetRestaurant(_ context.Context, id string) (*models.Restaurant, error) {
	for _, r := range c.restaurants {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrRestaurantNotFound, id)
}

func (c *memCatalog) ListSections(_ context.Context, restaurantID string) ([]models.Section, error) {
	return c.sections[restaurantID], nil
}

func (c *memCatalog) ListFoodItems(_ context.Context, _, sectionID string) ([]models.FoodItem, error) {
	return c.items[sectionID], nil
}

type fakePassword struct{}

func (fakePassword) Flow(login, password string) session.Flow {
	return func(context.Context) (*models.Identity, error) {
		if login != "ada" || password != "secret" {
			return nil, errors.New("invalid login or password")
		}
		return &models.Identity{Subject: "ada", DisplayName: "Ada", Provider: "password"}, nil
	}
}

type fakeConsent struct{}

func (fakeConsent) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (fakeConsent) Flow(code string) session.Flow {
	return func(context.Context) (*models.Identity, error) {
		if code != "good" {
			return nil, errors.New("bad code")
		}
		return &models.Identity{Subject: "g-1", DisplayName: "Grace", Provider: "google"}, nil
	}
}

type signOutProvider struct{ err error }

func (p *signOutProvider) SignOut(context.Context, *models.Identity) error { return p.err }

type fixture struct {
	srv      *httptest.Server
	client   *http.Client
	catalog  *memCatalog
	provider *signOutProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := &memCatalog{
		restaurants: []models.Restaurant{{ID: "r1", Name: "Pizza Place"}, {ID: "r2"}},
		sections: map[string][]models.Section{
			"r1": {
				{ID: "s1", RestaurantID: "r1", Name: "Pizzas"},
				{ID: "s2", RestaurantID: "r1", Name: "Drinks"},
			},
		},
		items: map[string][]models.FoodItem{
			"s1": {
				{ID: "f1", SectionID: "s1", Attributes: map[string]any{
					"name": "Margherita", "price": 12.5, "calories": 800.0,
					"images": []any{"https://img.example.com/a.jpg", "https://img.example.com/b.jpg"},
				}},
				{ID: "f2", SectionID: "s1", Attributes: map[string]any{"name": "Diavola"}},
			},
		},
	}
	provider := &signOutProvider{}
	s, err := New(Options{
		Catalog:  catalog,
		Sessions: session.NewStore(provider),
		Password: fakePassword{},
		Consent:  fakeConsent{},
		Menu:     config.MenuConfig{CarouselInterval: 3 * time.Second, Fanout: 2, LoadTimeout: time.Second},
		Log:      zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &fixture{
		srv:      srv,
		client:   &http.Client{Jar: jar},
		catalog:  catalog,
		provider: provider,
	}
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := f.client.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (f *fixture) post(t *testing.T, path string, form url.Values) (int, string) {
	t.Helper()
	resp, err := f.client.PostForm(f.srv.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	code, body := f.post(t, "/login", url.Values{"login": {"ada"}, "password": {"secret"}})
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "Welcome, Ada")
}

func TestList_SignedOut(t *testing.T) {
	f := newFixture(t)
	code, body := f.get(t, "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Sign in to browse restaurant menus.")
	assert.NotContains(t, body, "Pizza Place")
	assert.Equal(t, 0, f.catalog.listCalls)
}

func TestLogin_Failure(t *testing.T) {
	f := newFixture(t)
	code, body := f.post(t, "/login", url.Values{"login": {"ada"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, session.MsgSignInFailed)
	assert.Contains(t, body, `name="password"`)
	assert.Equal(t, 0, f.catalog.listCalls)

	_, body = f.get(t, "/login")
	assert.NotContains(t, body, session.MsgSignInFailed, "flash is shown once")
}

func TestList_SignedInAndSearch(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	_, body := f.get(t, "/")
	assert.Contains(t, body, "Available Restaurants")
	assert.Contains(t, body, `placeholder="Search restaurants by name..."`)
	assert.Contains(t, body, `<li class="card" data-name="Pizza Place">`)
	assert.Contains(t, body, `<li class="card" data-name="`+models.UnnamedRestaurant+`">`)
	assert.Contains(t, body, "ID: r1")
	assert.Contains(t, body, `href="/r1"`)
	assert.Contains(t, body, `id="no-restaurants" hidden>`)

	// Every card is rendered for the live filter; the query hides the rest.
	_, body = f.get(t, "/?q=pizza")
	assert.Contains(t, body, `<li class="card" data-name="Pizza Place">`)
	assert.Contains(t, body, `<li class="card" data-name="`+models.UnnamedRestaurant+`" hidden>`)
	assert.Contains(t, body, `id="no-restaurants" hidden>`)
	assert.Contains(t, body, `value="pizza"`)

	_, body = f.get(t, "/?q=taco")
	assert.Contains(t, body, `id="no-restaurants">`+views.MsgNoRestaurants+`</p>`)
	assert.Contains(t, body, `<li class="card" data-name="Pizza Place" hidden>`)
}

func TestMenu(t *testing.T) {
	f := newFixture(t)

	code, body := f.get(t, "/r1")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Restaurant Menu")
	assert.NotContains(t, body, "Pizzas")

	f.signIn(t)
	_, body = f.get(t, "/r1")
	assert.Contains(t, body, "<h1>Pizza Place</h1>")
	assert.Less(t, strings.Index(body, "Pizzas"), strings.Index(body, "Drinks"), "sections keep store order")
	assert.Contains(t, body, `id="section-s1" open`)
	assert.Contains(t, body, "No items in Drinks section.")
	assert.Contains(t, body, `data-interval="3000"`)
	assert.Equal(t, 2, strings.Count(body, `class="frame`))
	assert.Contains(t, body, "1 of 2")
	assert.Contains(t, body, "$12.5")
	assert.Contains(t, body, "800 kcal")
	assert.Contains(t, body, views.MsgNoImages)
	assert.Contains(t, body, models.NotAvailable)
	assert.Contains(t, body, `class="order"`)
}

func TestMenu_EmptyAndMissing(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	_, body := f.get(t, "/r2")
	assert.Contains(t, body, views.MsgNoMenuItems)
	assert.Contains(t, body, models.UnnamedRestaurant)

	_, body = f.get(t, "/nope")
	assert.Contains(t, body, views.MsgMenuLoadFailed)
	assert.NotContains(t, body, "<details")
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	f.provider.err = errors.New("revoke failed")
	_, body := f.post(t, "/logout", url.Values{"next": {"/r1"}})
	assert.Contains(t, body, session.MsgSignOutFailed)
	assert.Contains(t, body, "Welcome, Ada", "identity kept when sign-out fails")

	f.provider.err = nil
	_, body = f.post(t, "/logout", nil)
	assert.NotContains(t, body, "Welcome, Ada")
	assert.Contains(t, body, "Sign in to browse restaurant menus.")
}

func TestConsentFlow(t *testing.T) {
	f := newFixture(t)
	f.client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := f.client.Get(f.srv.URL + "/login?provider=google")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.example.com", loc.Host)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	resp, err = f.client.Get(f.srv.URL + "/auth/callback?state=forged&code=good")
	require.NoError(t, err)
	resp.Body.Close()
	f.client.CheckRedirect = nil
	_, body := f.get(t, "/")
	assert.Contains(t, body, session.MsgSignInFailed)
	assert.NotContains(t, body, "Welcome, Grace")

	f.client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err = f.client.Get(f.srv.URL + "/login?provider=google")
	require.NoError(t, err)
	resp.Body.Close()
	loc, err = url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state = loc.Query().Get("state")

	f.client.CheckRedirect = nil
	code, body := f.get(t, "/auth/callback?state="+url.QueryEscape(state)+"&code=good")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Welcome, Grace")
}

func TestStaticAndRequestID(t *testing.T) {
	f := newFixture(t)
	resp, err := f.client.Get(f.srv.URL + "/static/carousel.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	code, body := f.get(t, "/static/search.js")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `addEventListener("input"`)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp2, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "req-42", resp2.Header.Get("X-Request-ID"))
}

func TestSafeNext(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "/"},
		{"/r1", "/r1"},
		{"//evil.example.com", "/"},
		{`/\evil.example.com`, "/"},
		{"https://evil.example.com", "/"},
	}
	for _, tt := range tests {
		if got := safeNext(tt.in); got != tt.want {
			t.Errorf("safeNext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
