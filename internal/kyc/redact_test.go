package kyc

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

// makeFakePNG собирает base64 строку с PNG заголовком нужной длины.
func makeFakePNG(size int) string {
	data := make([]byte, size)
	copy(data, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a})
	return base64.StdEncoding.EncodeToString(data)
}

func TestRedactReplacesEmbeddedImages(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{
		"verification": map[string]any{
			"id":     "sess-1",
			"status": "approved",
			"document": map[string]any{
				"front": makeFakePNG(1024),
			},
		},
	})

	redacted := Redact(payload)

	var doc map[string]any
	if err := json.Unmarshal(redacted, &doc); err != nil {
		t.Fatalf("результат должен оставаться валидным JSON: %v", err)
	}

	out := string(redacted)
	if !strings.Contains(out, "<redacted png>") {
		t.Errorf("изображение не было замаскировано: %.120s", out)
	}
	if !strings.Contains(out, "sess-1") {
		t.Errorf("обычные поля не должны затираться")
	}
}

func TestRedactKeepsLongText(t *testing.T) {
	long := strings.Repeat("причина отклонения ", 60)
	payload, _ := json.Marshal(map[string]any{"reason": long})

	out := string(Redact(payload))
	if !strings.Contains(out, "причина отклонения") {
		t.Errorf("текстовое поле не должно маскироваться")
	}
}

func TestRedactNonJSON(t *testing.T) {
	out := string(Redact([]byte("\x89PNG not json")))
	if out != `"<unparseable payload>"` {
		t.Errorf("сырые байты не должны попадать в лог: %s", out)
	}
}
