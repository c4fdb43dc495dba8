package autotrans

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Language describes a display language offered to readers.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
}

// SupportedLanguages maps ISO-639-1 codes to the languages a page can be shown in.
var SupportedLanguages = map[string]Language{
	"en": {Code: "en", Name: "English", NativeName: "English"},
	"hi": {Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
	"kn": {Code: "kn", Name: "Kannada", NativeName: "ಕನ್ನಡ"},
	"te": {Code: "te", Name: "Telugu", NativeName: "తెలుగు"},
	"ta": {Code: "ta", Name: "Tamil", NativeName: "தமிழ்"},
	"ml": {Code: "ml", Name: "Malayalam", NativeName: "മലയാളം"},
	"bn": {Code: "bn", Name: "Bengali", NativeName: "বাংলা"},
	"gu": {Code: "gu", Name: "Gujarati", NativeName: "ગુજરાતી"},
	"mr": {Code: "mr", Name: "Marathi", NativeName: "मराठी"},
	"pa": {Code: "pa", Name: "Punjabi", NativeName: "ਪੰਜਾਬੀ"},
	"or": {Code: "or", Name: "Odia", NativeName: "ଓଡ଼ିଆ"},
	"as": {Code: "as", Name: "Assamese", NativeName: "অসমীয়া"},

	"fr": {Code: "fr", Name: "French", NativeName: "Français"},
	"de": {Code: "de", Name: "German", NativeName: "Deutsch"},
	"es": {Code: "es", Name: "Spanish", NativeName: "Español"},
	"pt": {Code: "pt", Name: "Portuguese", NativeName: "Português"},
	"ja": {Code: "ja", Name: "Japanese", NativeName: "日本語"},
	"ko": {Code: "ko", Name: "Korean", NativeName: "한국어"},
	"ar": {Code: "ar", Name: "Arabic", NativeName: "العربية"},
	"ru": {Code: "ru", Name: "Russian", NativeName: "Русский"},
	"zh": {Code: "zh", Name: "Chinese", NativeName: "中文"},
}

// RTLLanguages contains language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
}

// NormalizeLanguage parses a BCP-47 tag or locale ("hi-IN", "pt_BR") and
// returns its lowercase base language code.
func NormalizeLanguage(code string) (string, error) {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return "", ErrUnsupportedLanguage
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", err
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// IsSupported reports whether code names a supported language.
func IsSupported(code string) bool {
	base, err := NormalizeLanguage(code)
	if err != nil {
		return false
	}
	_, ok := SupportedLanguages[base]
	return ok
}

// LanguageInfo returns the language for code, falling back to English.
func LanguageInfo(code string) Language {
	if base, err := NormalizeLanguage(code); err == nil {
		if lang, ok := SupportedLanguages[base]; ok {
			return lang
		}
	}
	return SupportedLanguages[DefaultSourceLang]
}

// Languages returns the supported languages sorted by code.
func Languages() []Language {
	langs := make([]Language, 0, len(SupportedLanguages))
	for _, l := range SupportedLanguages {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })
	return langs
}

// GetLanguageName returns the English name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(code string) string {
	if base, err := NormalizeLanguage(code); err == nil {
		if lang, ok := SupportedLanguages[base]; ok {
			return lang.Name
		}
	}
	return code
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(code string) string {
	base, err := NormalizeLanguage(code)
	if err != nil {
		base = strings.ToLower(code)
	}
	if RTLLanguages[base] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(code string) bool {
	return GetDirection(code) == "rtl"
}

// SameLanguage reports whether two codes share a base language.
func SameLanguage(a, b string) bool {
	na, errA := NormalizeLanguage(a)
	nb, errB := NormalizeLanguage(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	return na == nb
}

// GetStyleDescription returns the prompt wording for a translation style.
func GetStyleDescription(style TranslationStyle) string {
	switch style {
	case StyleFormal:
		return "Use formal, respectful language suitable for official school documents."
	case StyleClassroom:
		return "Use simple, clear language that a school student can follow. Keep sentences short."
	default:
		return "Use a neutral, professional tone."
	}
}

// scriptLanguages lists scripts in detection order with the language they imply.
var scriptLanguages = []struct {
	table *unicode.RangeTable
	code  string
}{
	{unicode.Devanagari, "hi"},
	{unicode.Kannada, "kn"},
	{unicode.Telugu, "te"},
	{unicode.Tamil, "ta"},
	{unicode.Malayalam, "ml"},
	{unicode.Bengali, "bn"},
	{unicode.Gujarati, "gu"},
	{unicode.Gurmukhi, "pa"},
	{unicode.Oriya, "or"},
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Han, "zh"},
	{unicode.Hangul, "ko"},
	{unicode.Arabic, "ar"},
	{unicode.Cyrillic, "ru"},
}

// DetectLanguage guesses the language of text from the scripts it uses.
// Kana wins over Han so that Japanese with kanji is not reported as Chinese.
// Text in Latin script, or empty text, is reported as English.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return DefaultSourceLang
	}
	for _, s := range scriptLanguages {
		for _, r := range text {
			if unicode.Is(s.table, r) {
				return s.code
			}
		}
	}
	return DefaultSourceLang
}
