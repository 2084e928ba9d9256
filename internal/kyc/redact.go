package kyc

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/h2non/filetype"
)

// Порог, после которого строковое поле проверяется на вложенный бинарный
// контент. Короткие строки (имена, статусы, URL) не трогаем.
const redactMinLength = 512

// Redact возвращает payload, пригодный для логирования: строковые поля,
// в которых закодированы изображения или иные бинарные данные (фото
// документов, селфи), заменяются заглушкой. Исходный срез не меняется.
func Redact(raw []byte) []byte {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		// Не JSON — логировать сырые байты всё равно нельзя.
		return []byte(`"<unparseable payload>"`)
	}

	// json.Marshal экранировал бы угловые скобки заглушки.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(redactValue(doc)); err != nil {
		return []byte(`"<unparseable payload>"`)
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}

func redactValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		for k, item := range value {
			value[k] = redactValue(item)
		}
		return value
	case []any:
		for i, item := range value {
			value[i] = redactValue(item)
		}
		return value
	case string:
		if len(value) < redactMinLength {
			return value
		}
		return redactString(value)
	default:
		return v
	}
}

// redactString проверяет магические байты декодированного base64 содержимого.
func redactString(value string) string {
	decoded, err := base64.StdEncoding.DecodeString(trimDataURL(value))
	if err != nil {
		return value
	}

	kind, err := filetype.Match(decoded)
	if err != nil || kind == filetype.Unknown {
		return value
	}
	return "<redacted " + kind.Extension + ">"
}

// trimDataURL отрезает префикс data:image/...;base64, если он есть.
func trimDataURL(value string) string {
	if len(value) < 5 || value[:5] != "data:" {
		return value
	}
	for i := 5; i < len(value) && i < 128; i++ {
		if value[i] == ',' {
			return value[i+1:]
		}
	}
	return value
}
