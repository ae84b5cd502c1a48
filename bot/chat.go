package bot

import (
	"context"
	"sync"

	"github.com/ItzSouraseez/knowyourplate/models"
	"github.com/ItzSouraseez/knowyourplate/session"
	"github.com/ItzSouraseez/knowyourplate/views"
)

type loginStep int

const (
	stepNone loginStep = iota
	stepLogin
	stepPassword
)

// chat is the per-chat state. Handlers hold mu for the whole update;
// carousel tickers only touch their card, which is immutable after send.
type chat struct {
	mu      sync.Mutex
	id      int64
	session *session.Session
	list    *views.ListView
	menu    *views.MenuView // nil when no restaurant is open

	step  loginStep
	login string
	card  *card
}

// card is one item photo message and the carousel behind it.
type card struct {
	msgID    int
	item     models.FoodItem
	carousel *views.Carousel // nil when the item has no images
	cancel   context.CancelFunc
}

func (c *chat) stopCard() {
	if c.card != nil && c.card.cancel != nil {
		c.card.cancel()
	}
	c.card = nil
}

func (c *chat) closeMenu() {
	c.stopCard()
	if c.menu != nil {
		c.menu.Unmount()
		c.menu = nil
	}
}
