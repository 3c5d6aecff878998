// Package translate formats operator-facing messages in the host locale.
//
// The locale is taken from BITBOARD_LANG when set, and from the host
// otherwise.
package translate

import (
	"log"
	"os"
	"sync/atomic"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

// LANG_ENV overrides the host locale.
const LANG_ENV = "BITBOARD_LANG"

var printer atomic.Pointer[message.Printer]

func init() {
	if lang := os.Getenv(LANG_ENV); len(lang) != 0 {
		Use(lang)
		return
	}

	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("bitboard: locale: %v", err)
	}

	Use(locales...)
}

// Use selects the best match among locales, falling back to en-US.
func Use(locales ...string) {
	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer.Store(message.NewPrinter(message.MatchLanguage(locales...)))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Load().Sprintf(key, args...)
}

// Hex formats a 16-bit address as the board display shows it, $XXXX.
func Hex(addr uint16) string {
	return printer.Load().Sprintf("$%04X", addr)
}
