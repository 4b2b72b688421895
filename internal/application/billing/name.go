package billing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ledgersync/backend/internal/domain/integration"
)

// graveToAcute fixes the common data-entry mistake of typing grave accents on
// Spanish names, which only ever carry acute ones.
var graveToAcute = strings.NewReplacer(
	"à", "á", "è", "é", "ì", "í", "ò", "ó", "ù", "ú",
	"À", "Á", "È", "É", "Ì", "Í", "Ò", "Ó", "Ù", "Ú",
)

var spanishTitle = cases.Title(language.Spanish)

// NormalizeCustomerName cleans a free-text buyer name into the split form the
// ledger expects: grave accents become acute, every word is capitalized, and
// the words are divided into given names and surname. Two-word surnames are
// the norm locally, so with three words the last two are taken as the
// surname; with four or more, the first two are taken as given names.
func NormalizeCustomerName(raw string) integration.PersonName {
	normalized := spanishTitle.String(graveToAcute.Replace(raw))
	words := strings.Fields(normalized)

	switch len(words) {
	case 0:
		return integration.PersonName{}
	case 1:
		return integration.PersonName{FirstName: words[0]}
	case 2:
		return integration.PersonName{FirstName: words[0], Surname: words[1]}
	case 3:
		return integration.PersonName{
			FirstName: words[0],
			Surname:   strings.Join(words[1:], " "),
		}
	default:
		return integration.PersonName{
			FirstName:  words[0],
			SecondName: words[1],
			Surname:    strings.Join(words[2:], " "),
		}
	}
}
