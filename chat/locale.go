package chat

import "strings"

// Catalog holds the chat messages the widget writes on its own behalf
type Catalog struct {
	SignInRequired string
	SomethingWrong string
}

var catalogs = map[string]Catalog{
	"en": {
		SignInRequired: "Please sign in to continue chatting with the clinic assistant.",
		SomethingWrong: "Sorry, something went wrong. Please try again.",
	},
	"fr": {
		SignInRequired: "Veuillez vous connecter pour continuer à discuter avec l'assistant de la clinique.",
		SomethingWrong: "Désolé, une erreur s'est produite. Veuillez réessayer.",
	},
	"ar": {
		SignInRequired: "يرجى تسجيل الدخول لمتابعة المحادثة مع مساعد العيادة.",
		SomethingWrong: "عذراً، حدث خطأ ما. يرجى المحاولة مرة أخرى.",
	},
}

// CatalogFor returns the catalog of a locale such as "fr" or "fr-CA",
// falling back to English
func CatalogFor(locale string) Catalog {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if c, ok := catalogs[lang]; ok {
		return c
	}
	return catalogs["en"]
}
