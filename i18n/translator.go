package i18n

import "strings"

// Translator retrieves localized messages for decode error codes. data
// provides optional metadata to embed in the message (for example,
// "expected" or "got").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	var msg string
	switch t.lang {
	case "ja":
		switch code {
		case "invalid_type":
			msg = "型が不正です"
		case "missing_property":
			msg = "必須プロパティが不足しています"
		case "unexpected_property":
			msg = "未知のプロパティです"
		case "invalid_enum":
			msg = "許可されていない列挙値です"
		case "invalid_literal":
			msg = "許可されていないリテラル値です"
		case "invalid_union":
			msg = "どの候補型にも一致しません"
		case "conversion_failed":
			msg = "変換に失敗しました"
		}
	default: // "en"
		switch code {
		case "invalid_type":
			msg = "invalid type"
		case "missing_property":
			msg = "missing property"
		case "unexpected_property":
			msg = "unexpected property"
		case "invalid_enum":
			msg = "value is not one of the enumeration"
		case "invalid_literal":
			msg = "value is not an allowed literal"
		case "invalid_union":
			msg = "value matches no alternative"
		case "conversion_failed":
			msg = "conversion failed"
		}
	}
	if msg == "" {
		msg = code
	}
	if expected, ok := data["expected"]; ok {
		msg += " (expected " + expected + ")"
	}
	if got, ok := data["got"]; ok {
		msg += ", got " + got
	}
	return msg
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if strings.ToLower(lang) == "ja" {
		currentTranslator = dictTranslator{lang: "ja"}
		return
	}
	currentTranslator = dictTranslator{lang: "en"}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
