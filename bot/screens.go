package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ItzSouraseez/knowyourplate/models"
	"github.com/ItzSouraseez/knowyourplate/views"
)

const signInPrompt = "Welcome to KnowYourPlate!\nSign in with /login to browse restaurants."

// Telegram rejects callback data longer than this.
const maxCallbackData = 64

// maxListButtons keeps the list message within Telegram's size limits.
const maxListButtons = 50

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func renderList(st views.ListState) (string, *tgbotapi.InlineKeyboardMarkup) {
	if st.Identity == nil {
		return signInPrompt, nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Welcome, %s\n\n", st.Identity.DisplayName)

	var rows [][]tgbotapi.InlineKeyboardButton
	visible := st.Visible()
	switch {
	case st.Err != "":
		sb.WriteString(st.Err)
	case len(visible) == 0:
		sb.WriteString(views.MsgNoRestaurants)
	default:
		if st.Query != "" {
			fmt.Fprintf(&sb, "Restaurants matching %q:\n", st.Query)
		} else {
			sb.WriteString("Available Restaurants:\n")
		}
		for i, r := range visible {
			if i == maxListButtons {
				fmt.Fprintf(&sb, "\n...and %d more. Type a name to search.", len(visible)-maxListButtons)
				break
			}
			fmt.Fprintf(&sb, "\n%s\nID: %s\n", r.Name, r.ID)
			data := "r:" + r.ID
			if len(data) > maxCallbackData {
				continue
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(r.Name, data)))
		}
		sb.WriteString("\nType a name to search.")
	}

	var last []tgbotapi.InlineKeyboardButton
	if st.Query != "" {
		last = append(last, button("Show all", "all"))
	}
	last = append(last, button("Logout", "logout"))
	rows = append(rows, last)
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return sb.String(), &kb
}

func (b *Bot) sendList(c *chat) {
	text, kb := renderList(c.list.Snapshot())
	b.sendWithInline(c.id, text, kb)
}

func (b *Bot) editList(c *chat, msgID int) {
	text, kb := renderList(c.list.Snapshot())
	b.editWithInline(c.id, msgID, text, kb)
}

func renderMenu(st views.MenuState) (string, *tgbotapi.InlineKeyboardMarkup) {
	back := tgbotapi.NewInlineKeyboardRow(button("« Restaurants", "back"))
	if st.Err != "" || st.Menu == nil {
		msg := st.Err
		if msg == "" {
			msg = views.MsgMenuLoadFailed
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(back)
		return "Restaurant Menu\n\n" + msg, &kb
	}

	m := st.Menu
	var sb strings.Builder
	sb.WriteString(m.RestaurantName)
	sb.WriteString("\n")
	if len(m.Sections) == 0 {
		sb.WriteString("\n" + views.MsgNoMenuItems)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for si, sec := range m.Sections {
		items := m.Items[sec.ID]
		marker := "▼"
		if st.Collapsed(sec.ID) {
			marker = "▶"
		}
		fmt.Fprintf(&sb, "\n%s %s\n", marker, sec.Name)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(marker+" "+sec.Name, "t:"+strconv.Itoa(si)),
		))
		if st.Collapsed(sec.ID) {
			continue
		}
		if len(items) == 0 {
			sb.WriteString(views.MsgEmptySection(sec.Name) + "\n")
			continue
		}
		for ii, it := range items {
			fmt.Fprintf(&sb, "• %s\n", it.Name())
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				button(it.Name(), fmt.Sprintf("i:%d:%d", si, ii)),
			))
		}
	}
	rows = append(rows, back)
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return sb.String(), &kb
}

func (b *Bot) openMenu(ctx context.Context, c *chat, restaurantID string) {
	c.closeMenu()
	c.menu = views.NewMenuView(b.catalog, restaurantID, views.MenuOptions{
		Fanout:  b.menu.Fanout,
		Timeout: b.menu.LoadTimeout,
	}, b.log)
	c.menu.Mount(ctx, c.session)

	text, kb := renderMenu(c.menu.Snapshot())
	b.sendWithInline(c.id, text, kb)
}

func (b *Bot) toggleSection(c *chat, msgID int, arg string) {
	if c.menu == nil {
		return
	}
	si, err := strconv.Atoi(arg)
	st := c.menu.Snapshot()
	if err != nil || st.Menu == nil || si < 0 || si >= len(st.Menu.Sections) {
		return
	}
	c.menu.Toggle(st.Menu.Sections[si].ID)
	text, kb := renderMenu(c.menu.Snapshot())
	b.editWithInline(c.id, msgID, text, kb)
}

func itemCaption(it models.FoodItem, cr *views.Carousel) string {
	var sb strings.Builder
	sb.WriteString(it.Name())
	sb.WriteString("\n")
	for _, f := range views.ItemFields(it) {
		fmt.Fprintf(&sb, "\n%s: %s", f.Label, f.Value)
	}
	if cr == nil {
		sb.WriteString("\n\n" + views.MsgNoImages)
	} else if cr.Frames() > 1 {
		sb.WriteString("\n\n" + cr.Status())
	}
	return sb.String()
}

func itemKeyboard(cr *views.Carousel) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if cr != nil && cr.Frames() > 1 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("◀", "c:prev"),
			button("▶", "c:next"),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(button("Order", "order")),
		tgbotapi.NewInlineKeyboardRow(button("« Restaurants", "back")),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) openItem(c *chat, arg string) {
	if c.menu == nil {
		return
	}
	sArg, iArg, _ := strings.Cut(arg, ":")
	si, err1 := strconv.Atoi(sArg)
	ii, err2 := strconv.Atoi(iArg)
	st := c.menu.Snapshot()
	if err1 != nil || err2 != nil || st.Menu == nil || si < 0 || si >= len(st.Menu.Sections) {
		return
	}
	items := st.Menu.Items[st.Menu.Sections[si].ID]
	if ii < 0 || ii >= len(items) {
		return
	}
	it := items[ii]

	c.stopCard()
	cr := views.NewCarousel(it.Images(), b.menu.CarouselInterval)
	kb := itemKeyboard(cr)
	caption := itemCaption(it, cr)

	var sent tgbotapi.Message
	var err error
	if cr == nil {
		msg := tgbotapi.NewMessage(c.id, caption)
		msg.ReplyMarkup = kb
		sent, err = b.api.Send(msg)
	} else {
		photo := tgbotapi.NewPhoto(c.id, tgbotapi.FileURL(cr.Current()))
		photo.Caption = caption
		photo.ReplyMarkup = kb
		sent, err = b.api.Send(photo)
	}
	if err != nil {
		b.log.Warn("send item card", zap.Int64("chat_id", c.id), zap.String("item_id", it.ID), zap.Error(err))
		return
	}

	cd := &card{msgID: sent.MessageID, item: it, carousel: cr}
	c.card = cd
	if cr == nil || cr.Frames() < 2 {
		return
	}
	ctx, cancel := context.WithCancel(c.menu.Context())
	cd.cancel = cancel
	chatID := c.id
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		cr.Run(ctx, func(int) { b.editCard(chatID, cd) })
	}()
}

func (b *Bot) stepCarousel(c *chat, msgID int, dir string) string {
	cd := c.card
	if cd == nil || cd.msgID != msgID || cd.carousel == nil {
		return "This card is no longer active."
	}
	switch dir {
	case "prev":
		cd.carousel.Back()
	case "next":
		cd.carousel.Advance()
	default:
		return ""
	}
	b.editCard(c.id, cd)
	return ""
}

// editCard swaps the card's photo for the carousel's current frame.
func (b *Bot) editCard(chatID int64, cd *card) {
	media := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(cd.carousel.Current()))
	media.Caption = itemCaption(cd.item, cd.carousel)
	kb := itemKeyboard(cd.carousel)
	edit := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:      chatID,
			MessageID:   cd.msgID,
			ReplyMarkup: &kb,
		},
		Media: media,
	}
	if _, err := b.api.Request(edit); err != nil {
		b.log.Debug("edit item card", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
