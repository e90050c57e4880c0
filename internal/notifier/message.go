package notifier

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseModeMarkdownV2 is the Telegram parse_mode used for formatted alerts.
const ParseModeMarkdownV2 = "MarkdownV2"

// Alert carries everything FormatAlert needs to render a message.
type Alert struct {
	Count     int64
	Threshold int64
	URL       string
}

// FormatAlert renders a MarkdownV2 alert message for a.
func FormatAlert(a Alert) string {
	var b strings.Builder
	b.WriteString("🚨 *")
	b.WriteString(EscapeMarkdownV2("SHEIN STOCK ALERT"))
	b.WriteString("* 🚨\n\n")

	if a.Count >= a.Threshold {
		b.WriteString(EscapeMarkdownV2(fmt.Sprintf("Men's stock is over %s!", humanize.Comma(a.Threshold))))
	} else {
		b.WriteString(EscapeMarkdownV2(fmt.Sprintf("Men's stock is below %s.", humanize.Comma(a.Threshold))))
	}
	b.WriteString("\n\n")

	b.WriteString(EscapeMarkdownV2("Current Count: "))
	b.WriteString("*")
	b.WriteString(EscapeMarkdownV2(humanize.Comma(a.Count)))
	b.WriteString("*")

	if a.URL != "" {
		b.WriteString("\n\n[")
		b.WriteString(EscapeMarkdownV2("Click here to check the page"))
		b.WriteString("](")
		b.WriteString(EscapeMarkdownV2URL(a.URL))
		b.WriteString(")")
	}
	return b.String()
}
