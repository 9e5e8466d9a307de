package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// === 測試 ClassifyContent ===
// 分類規則要跟既有資料相容, case 不可更動
func TestClassifyContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    ContentKind
	}{
		{"plain text", "hello world", ContentText},
		{"text with dots", "see you at 10.30", ContentText},
		{"bare image url png", "https://cdn.example.com/chat_images/a.png", ContentImage},
		{"bare image url jpeg upper", "https://cdn.example.com/B.JPEG", ContentImage},
		{"bare image url webp", "photo.webp", ContentImage},
		{"not an image ext", "document.pdf", ContentText},
		{"image ext not at end", "a.png?size=large", ContentText},
		{"composed rich", `hi<br/><img src="https://cdn.example.com/a.png" style="max-width:100%;border-radius:8px;margin-top:5px;"/>`, ContentRich},
		{"rich wins over image ext", `<img src="a.png"/>`, ContentRich},
		{"any html-like tag", "<b>bold</b>", ContentRich},
		{"tag across lines", "line1<br/>\nline2", ContentRich},
		{"angle bracket only", "1 < 2 and 3 > 2", ContentText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyContent(tt.content))
		})
	}
}

// === 測試 ComposeContent ===
// 合成格式沿用既有資料, byte-level 不可更動
func TestComposeContent(t *testing.T) {
	got := ComposeContent("hello", "https://cdn.example.com/a.png")
	want := `hello<br/><img src="https://cdn.example.com/a.png" style="max-width:100%;border-radius:8px;margin-top:5px;"/>`
	assert.Equal(t, want, got)

	// text 可為空, 仍是 rich
	gotEmpty := ComposeContent("", "https://cdn.example.com/a.png")
	assert.Equal(t, ContentRich, ClassifyContent(gotEmpty))
}

func TestSamePair(t *testing.T) {
	m := Message{SenderID: "cust-1", ReceiverID: "admin-1"}
	assert.True(t, m.SamePair("cust-1", "admin-1"))
	assert.True(t, m.SamePair("admin-1", "cust-1"))
	assert.False(t, m.SamePair("cust-2", "admin-1"))
}

func TestClockAndDay(t *testing.T) {
	ts := time.Date(2025, 3, 7, 9, 5, 33, 0, time.UTC)
	assert.Equal(t, "09:05", ClockLabel(ts))
	assert.Equal(t, "2025-03-07", DayKey(ts))
}

func TestTrimText(t *testing.T) {
	assert.Equal(t, "", TrimText("   \n\t "))
	assert.Equal(t, "hi", TrimText("  hi "))
}
