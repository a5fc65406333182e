package i18n

import "fmt"

// TemplateData carries submitted contact-form fields into template
// rendering. It is transient input and never persisted.
type TemplateData struct {
	Name      string
	Email     string
	Phone     string
	Subject   string
	Message   string
	Timestamp string
}

// Rendered is a fully rendered email: a plain subject header and a complete
// HTML document for the body.
type Rendered struct {
	Subject string
	HTML    string
}

// TemplateSet holds the two emails produced for one submission: one for the
// store inbox and one back to the submitter.
type TemplateSet struct {
	Admin Rendered
	User  Rendered
}

type bundle struct {
	subjects        map[string]string
	adminSubjectFmt string
	adminHeading    string
	userSubject     string
	userGreetingFmt string
	userIntro       string
	userOutro       string
	yourMessage     string
	phoneMissing    string
	labelName       string
	labelEmail      string
	labelPhone      string
	labelSubject    string
	labelMessage    string
	labelReceived   string
}

var bundles = map[Language]bundle{
	LangEN: {
		subjects: map[string]string{
			"general":   "General Inquiry",
			"order":     "Order Inquiry",
			"product":   "Product Question",
			"complaint": "Complaint",
			"other":     "Other",
		},
		adminSubjectFmt: "%s - From ATP Store contact form - %s",
		adminHeading:    "New contact form submission",
		userSubject:     "Thank you for contacting ATP Store",
		userGreetingFmt: "Hi %s,",
		userIntro:       "We have received your message and will get back to you as soon as possible.",
		userOutro:       "Best regards,<br>ATP Store",
		yourMessage:     "Your message",
		phoneMissing:    "Not provided",
		labelName:       "Name",
		labelEmail:      "Email",
		labelPhone:      "Phone",
		labelSubject:    "Subject",
		labelMessage:    "Message",
		labelReceived:   "Received",
	},
	LangSV: {
		subjects: map[string]string{
			"general":   "Allmän förfrågan",
			"order":     "Orderförfrågan",
			"product":   "Produktfråga",
			"complaint": "Reklamation",
			"other":     "Övrigt",
		},
		adminSubjectFmt: "%s - Från ATP Store kontaktformulär - %s",
		adminHeading:    "Nytt meddelande från kontaktformuläret",
		userSubject:     "Tack för att du kontaktar ATP Store",
		userGreetingFmt: "Hej %s,",
		userIntro:       "Vi har tagit emot ditt meddelande och återkommer så snart som möjligt.",
		userOutro:       "Med vänliga hälsningar,<br>ATP Store",
		yourMessage:     "Ditt meddelande",
		phoneMissing:    "Ej angivet",
		labelName:       "Namn",
		labelEmail:      "E-post",
		labelPhone:      "Telefon",
		labelSubject:    "Ämne",
		labelMessage:    "Meddelande",
		labelReceived:   "Mottaget",
	},
	LangTR: {
		subjects: map[string]string{
			"general":   "Genel Soru",
			"order":     "Sipariş Sorusu",
			"product":   "Ürün Sorusu",
			"complaint": "Şikayet",
			"other":     "Diğer",
		},
		adminSubjectFmt: "%s - ATP Store iletişim formundan - %s",
		adminHeading:    "Yeni iletişim formu mesajı",
		userSubject:     "ATP Store ile iletişime geçtiğiniz için teşekkürler",
		userGreetingFmt: "Merhaba %s,",
		userIntro:       "Mesajınızı aldık ve en kısa sürede size geri döneceğiz.",
		userOutro:       "Saygılarımızla,<br>ATP Store",
		yourMessage:     "Mesajınız",
		phoneMissing:    "Belirtilmedi",
		labelName:       "İsim",
		labelEmail:      "E-posta",
		labelPhone:      "Telefon",
		labelSubject:    "Konu",
		labelMessage:    "Mesaj",
		labelReceived:   "Alındı",
	},
}

// Templates renders the admin and user emails for the given language code,
// falling back to the default bundle for unsupported codes. The four
// producers are independent and side-effect free: identical input yields
// byte-identical output. Field values are interpolated verbatim, markup
// characters included; escaping, where needed, belongs to the rendering or
// transport boundary, not here.
func Templates(code string, data TemplateData) TemplateSet {
	lang := Resolve(code)
	return TemplateSet{
		Admin: Rendered{Subject: adminSubject(lang, data), HTML: adminBody(lang, data)},
		User:  Rendered{Subject: userSubject(lang), HTML: userBody(lang, data)},
	}
}

// TranslatedSubject looks up a subject key within the resolved language's
// subject map. An unknown key is returned verbatim, not replaced with the
// English translation: this fallback is narrower than the language fallback
// and deliberately distinct from it.
func TranslatedSubject(code, key string) string {
	b := bundles[Resolve(code)]
	if translated, ok := b.subjects[key]; ok {
		return translated
	}
	return key
}

func adminSubject(lang Language, data TemplateData) string {
	b := bundles[lang]
	return fmt.Sprintf(b.adminSubjectFmt, data.Name, TranslatedSubject(string(lang), data.Subject))
}

func adminBody(lang Language, data TemplateData) string {
	b := bundles[lang]
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body>
<h2>%s</h2>
<table>
<tr><td><strong>%s:</strong></td><td>%s</td></tr>
<tr><td><strong>%s:</strong></td><td>%s</td></tr>
<tr><td><strong>%s:</strong></td><td>%s</td></tr>
<tr><td><strong>%s:</strong></td><td>%s</td></tr>
<tr><td><strong>%s:</strong></td><td>%s</td></tr>
</table>
<h3>%s</h3>
<div>%s</div>
</body>
</html>`,
		b.adminHeading,
		b.labelName, data.Name,
		b.labelEmail, data.Email,
		b.labelPhone, phoneOrPlaceholder(b, data.Phone),
		b.labelSubject, TranslatedSubject(string(lang), data.Subject),
		b.labelReceived, data.Timestamp,
		b.labelMessage,
		data.Message)
}

func userSubject(lang Language) string {
	return bundles[lang].userSubject
}

func userBody(lang Language, data TemplateData) string {
	b := bundles[lang]
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body>
<p>%s</p>
<p>%s</p>
<h3>%s</h3>
<div>%s</div>
<p>%s</p>
</body>
</html>`,
		fmt.Sprintf(b.userGreetingFmt, data.Name),
		b.userIntro,
		b.yourMessage,
		data.Message,
		b.userOutro)
}

func phoneOrPlaceholder(b bundle, phone string) string {
	if phone == "" {
		return b.phoneMissing
	}
	return phone
}
