// Package notifier formats stock alerts and delivers them through the
// Telegram Bot API.
//
// Messages are written in Telegram's MarkdownV2 dialect. Every piece of
// static or dynamic text goes through EscapeMarkdownV2 before it is placed in
// the message so the API never rejects it for unbalanced markup.
package notifier
