package notify

import (
	"fmt"
	"strings"
)

const (
	// MaxMessage is Telegram's text limit, counted in UTF-16 code units.
	MaxMessage = 4096

	listFieldLimit   = 48
	detailFieldLimit = 512
	ellipsis         = "…"
)

// UTF16Len counts s the way Telegram measures message length.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// truncate cuts s to at most limit UTF-16 units, ending with an ellipsis when cut.
func truncate(s string, limit int) string {
	if UTF16Len(s) <= limit {
		return s
	}
	budget := limit - UTF16Len(ellipsis)
	var sb strings.Builder
	n := 0
	for _, r := range s {
		w := 1
		if r >= 0x10000 {
			w = 2
		}
		if n+w > budget {
			break
		}
		sb.WriteRune(r)
		n += w
	}
	return strings.TrimRight(sb.String(), " ") + ellipsis
}

// Fit makes text sendable as one Telegram message.
func Fit(text string) string {
	return truncate(text, MaxMessage)
}

func listMore(n int) string {
	return fmt.Sprintf("…и ещё %d (откройте кнопками ниже)", n)
}
