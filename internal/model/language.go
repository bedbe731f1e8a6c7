package model

// Language は記事の言語コードを表す。
type Language string

const (
	// LanguagePrimary は第1言語（英語）。記事の言語は作成時にこの値に固定される。
	LanguagePrimary Language = "en"
	// LanguageSecondary は第2言語（イタリア語）。title_it / content_it に対応する。
	LanguageSecondary Language = "it"
)

// SupportedLanguages は公開ページで指定可能な言語の一覧。
var SupportedLanguages = []Language{LanguagePrimary, LanguageSecondary}

// IsSupported は言語がサポート対象かを返す。
func (l Language) IsSupported() bool {
	for _, s := range SupportedLanguages {
		if l == s {
			return true
		}
	}
	return false
}
