package i18n

// apiMessages holds the flat per-language message map used for synchronous
// API responses. It is distinct from the subject-translation map even where
// keys overlap in spirit.
var apiMessages = map[Language]map[string]string{
	LangEN: {
		"message_sent":      "Thank you! Your message has been sent.",
		"rate_limited":      "Too many messages. Please wait a moment and try again.",
		"validation_failed": "Please check the highlighted fields and try again.",
		"internal_error":    "Something went wrong. Please try again later.",
	},
	LangSV: {
		"message_sent":      "Tack! Ditt meddelande har skickats.",
		"rate_limited":      "För många meddelanden. Vänta en stund och försök igen.",
		"validation_failed": "Kontrollera de markerade fälten och försök igen.",
		"internal_error":    "Något gick fel. Försök igen senare.",
	},
	LangTR: {
		"message_sent":      "Teşekkürler! Mesajınız gönderildi.",
		"rate_limited":      "Çok fazla mesaj. Lütfen biraz bekleyip tekrar deneyin.",
		"validation_failed": "Lütfen işaretli alanları kontrol edip tekrar deneyin.",
		"internal_error":    "Bir şeyler ters gitti. Lütfen daha sonra tekrar deneyin.",
	},
}

// APIMessage resolves a response message for the given language code. The
// language falls back to the default bundle; an unknown key is returned
// verbatim, mirroring TranslatedSubject.
func APIMessage(code, key string) string {
	if msg, ok := apiMessages[Resolve(code)][key]; ok {
		return msg
	}
	return key
}
