// Package markup builds telebot keyboards.
package markup

import (
	"strings"

	tele "gopkg.in/telebot.v3"
)

func InlineMarkup(rows ...tele.Row) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(rows...)
	return m
}

// ReplyMarkup is a resized reply keyboard.
func ReplyMarkup(rows ...tele.Row) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{ResizeKeyboard: true}
	m.Reply(rows...)
	return m
}

func Row(many ...tele.Btn) tele.Row {
	return many
}

// Data is a callback button. Arguments are joined with "|" so that c.Args() splits them back.
func Data(text, unique string, data ...string) tele.Btn {
	return tele.Btn{
		Unique: unique,
		Text:   text,
		Data:   strings.Join(data, "|"),
	}
}

func WebApp(text, url string) tele.Btn {
	return tele.Btn{Text: text, WebApp: &tele.WebApp{URL: url}}
}
