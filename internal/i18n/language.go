package i18n

// Language enumerates the bundles the storefront ships translations for.
type Language string

const (
	// LangEN is English, the default bundle.
	LangEN Language = "en"
	// LangSV is Swedish.
	LangSV Language = "sv"
	// LangTR is Turkish.
	LangTR Language = "tr"
)

// DefaultLanguage is substituted for any unsupported language code.
const DefaultLanguage = LangEN

// Resolve maps an arbitrary language code onto a supported Language. Every
// input resolves to something: unsupported codes, the empty string included,
// fall back to the default bundle.
func Resolve(code string) Language {
	switch Language(code) {
	case LangEN, LangSV, LangTR:
		return Language(code)
	default:
		return DefaultLanguage
	}
}

// Supported reports whether the code names a shipped bundle without applying
// the fallback.
func Supported(code string) bool {
	switch Language(code) {
	case LangEN, LangSV, LangTR:
		return true
	default:
		return false
	}
}
