package participant

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Participant describes an end user that can open a support conversation.
type Participant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarGlyph string `json:"avatarGlyph"`
	Role        string `json:"role"`
	Group       string `json:"group,omitempty"` // class or department
}

// Seed provides the demo roster. It only supplies names and avatars; a
// participant appears in the admin inbox once they send a message.
func Seed() []Participant {
	return []Participant{
		{ID: "u1", Name: "Aziza Karimova", AvatarGlyph: "A", Role: "student", Group: "9-A"},
		{ID: "u2", Name: "Bekzod Tursunov", AvatarGlyph: "B", Role: "student", Group: "10-B"},
		{ID: "u3", Name: "Dilnoza Rahimova", AvatarGlyph: "D", Role: "parent"},
		{ID: "u4", Name: "Sardor Aliyev", AvatarGlyph: "S", Role: "teacher", Group: "Matematika"},
	}
}

// Glyph derives an avatar glyph from a display name, falling back to "?".
func Glyph(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}
