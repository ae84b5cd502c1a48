// Package bot serves the restaurant list and menu views as a Telegram chat.
// Every chat owns a session and a mounted list view; opening a restaurant
// mounts a menu view, and opening an item sends a photo card whose carousel
// advances by editing the message in place.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ItzSouraseez/knowyourplate/config"
	"github.com/ItzSouraseez/knowyourplate/session"
	"github.com/ItzSouraseez/knowyourplate/views"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// PasswordProvider builds a sign-in flow from a login and password typed
// into the chat.
type PasswordProvider interface {
	Flow(login, password string) session.Flow
}

type Options struct {
	Catalog  views.Catalog
	Sessions *session.Store
	Password PasswordProvider
	Menu     config.MenuConfig
	Log      *zap.Logger
}

type Bot struct {
	api      Sender
	catalog  views.Catalog
	sessions *session.Store
	password PasswordProvider
	menu     config.MenuConfig
	log      *zap.Logger

	mu    sync.Mutex
	chats map[int64]*chat
	wg    sync.WaitGroup // carousel tickers
}

func New(api Sender, opts Options) *Bot {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		api:      api,
		catalog:  opts.Catalog,
		sessions: opts.Sessions,
		password: opts.Password,
		menu:     opts.Menu,
		log:      log.Named("bot"),
		chats:    make(map[int64]*chat),
	}
}

func (b *Bot) setCommands() error {
	cfg := tgbotapi.SetMyCommandsConfig{
		Commands: []tgbotapi.BotCommand{
			{Command: "start", Description: "Restaurant list"},
			{Command: "login", Description: "Sign in"},
			{Command: "logout", Description: "Sign out"},
			{Command: "all", Description: "Clear the search"},
			{Command: "cancel", Description: "Cancel sign-in"},
		},
	}
	_, err := b.api.Request(cfg)
	return err
}

// Run handles updates until ctx is done or the channel closes, then stops
// every carousel and detaches every view.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	if err := b.setCommands(); err != nil {
		b.log.Warn("set bot commands", zap.Error(err))
	}
	b.log.Info("bot started")
	defer b.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// Close stops all carousels and unmounts all views.
func (b *Bot) Close() {
	b.mu.Lock()
	chats := make([]*chat, 0, len(b.chats))
	for _, c := range b.chats {
		chats = append(chats, c)
	}
	b.chats = make(map[int64]*chat)
	b.mu.Unlock()

	for _, c := range chats {
		c.mu.Lock()
		c.closeMenu()
		c.list.Unmount()
		c.mu.Unlock()
	}
	b.wg.Wait()
}

func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	}
}

// chat returns the state for chatID, mounting its list view on first use.
func (b *Bot) chat(ctx context.Context, chatID int64) *chat {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.chats[chatID]
	if !ok {
		c = &chat{
			id:      chatID,
			session: b.sessions.Get(sessionKey(chatID)),
			list:    views.NewListView(b.catalog, b.log, b.menu.LoadTimeout),
		}
		c.list.Mount(ctx, c.session)
		b.chats[chatID] = c
	}
	return c
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	c := b.chat(ctx, msg.Chat.ID)
	c.mu.Lock()
	defer c.mu.Unlock()

	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start":
		c.step = stepNone
		b.sendList(c)
	case text == "/login":
		b.startLogin(c)
	case text == "/logout":
		b.logout(ctx, c)
	case text == "/cancel":
		c.step, c.login = stepNone, ""
		b.send(c.id, "Cancelled.")
	case text == "/all":
		c.list.SetQuery("")
		b.sendList(c)
	case c.step == stepLogin:
		c.login = text
		c.step = stepPassword
		b.send(c.id, "Now send your password.")
	case c.step == stepPassword:
		b.finishLogin(ctx, c, msg.MessageID, msg.Text)
	case strings.HasPrefix(text, "/"):
		b.send(c.id, "Unknown command.")
	case c.session.Current() == nil:
		b.send(c.id, signInPrompt)
	default:
		c.list.SetQuery(text)
		b.sendList(c)
	}
}

func (b *Bot) startLogin(c *chat) {
	if id := c.session.Current(); id != nil {
		b.send(c.id, fmt.Sprintf("You are signed in as %s.", id.DisplayName))
		return
	}
	c.step = stepLogin
	b.send(c.id, "Send your login.")
}

func (b *Bot) finishLogin(ctx context.Context, c *chat, messageID int, password string) {
	login := c.login
	c.step, c.login = stepNone, ""
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(c.id, messageID)); err != nil {
		b.log.Debug("delete password message", zap.Int64("chat_id", c.id), zap.Error(err))
	}
	if err := c.session.SignIn(ctx, b.password.Flow(login, password)); err != nil {
		b.log.Info("sign-in failed", zap.Int64("chat_id", c.id), zap.String("login", login), zap.Error(err))
		b.send(c.id, session.MsgSignInFailed)
		return
	}
	b.sendList(c)
}

func (b *Bot) logout(ctx context.Context, c *chat) {
	if c.session.Current() == nil {
		b.send(c.id, signInPrompt)
		return
	}
	if err := c.session.SignOut(ctx); err != nil {
		b.log.Warn("sign-out failed", zap.Int64("chat_id", c.id), zap.Error(err))
		b.send(c.id, session.MsgSignOutFailed)
		return
	}
	c.closeMenu()
	b.send(c.id, "Signed out.")
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	c := b.chat(ctx, cq.Message.Chat.ID)
	c.mu.Lock()
	defer c.mu.Unlock()

	answer := ""
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, answer)); err != nil {
			b.log.Debug("answer callback", zap.Error(err))
		}
	}()

	if c.session.Current() == nil {
		answer = "Please sign in first."
		return
	}
	msgID := cq.Message.MessageID
	kind, arg, _ := strings.Cut(cq.Data, ":")
	switch kind {
	case "r":
		b.openMenu(ctx, c, arg)
	case "t":
		b.toggleSection(c, msgID, arg)
	case "i":
		b.openItem(c, arg)
	case "c":
		answer = b.stepCarousel(c, msgID, arg)
	case "order":
	case "back":
		c.closeMenu()
		b.sendList(c)
	case "all":
		c.list.SetQuery("")
		b.editList(c, msgID)
	case "logout":
		b.logout(ctx, c)
	default:
		b.log.Debug("unknown callback", zap.String("data", cq.Data))
	}
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendWithInline(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0, false
	}
	return sent.MessageID, true
}

func (b *Bot) editWithInline(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ReplyMarkup = kb
	if _, err := b.api.Request(edit); err != nil {
		b.log.Debug("edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
