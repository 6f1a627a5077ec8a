package intent

import "testing"

func TestClassifyCategories(t *testing.T) {
	cases := []struct {
		text string
		want Category
	}{
		{text: "Uy vazifasi qachon topshiriladi?", want: Homework},
		{text: "Baholarim qanday?", want: Grades},
		{text: "DARS JADVALI qayerda", want: Schedule},
		{text: "davomatim haqida", want: Attendance},
		{text: "yordam kerak", want: Help},
		{text: "Katta rahmat!", want: Thanks},
		{text: "Salom", want: Greeting},
		{text: "qwerty", want: Unknown},
		{text: "   ", want: Unknown},
	}

	for _, tc := range cases {
		if got := Classify(tc.text); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	if got := Classify("Salom, baholarimni ko'rsating"); got != Grades {
		t.Fatalf("expected grades to outrank greeting, got %s", got)
	}
	if got := Classify("rahmat, uy vazifa bo'yicha yordam bering"); got != Homework {
		t.Fatalf("expected homework to outrank help and thanks, got %s", got)
	}
}

func TestPriorityOrder(t *testing.T) {
	want := []Category{Homework, Grades, Schedule, Attendance, Help, Thanks, Greeting}
	got := Priority()
	if len(got) != len(want) {
		t.Fatalf("unexpected priority length %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("priority[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRespondUsesCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	if got := Respond("Salom", catalog); got != catalog.Replies[Greeting] {
		t.Fatalf("unexpected greeting reply: %q", got)
	}
	if got := Respond("???", catalog); got != catalog.Replies[Unknown] {
		t.Fatalf("expected fallback reply, got %q", got)
	}
}

func TestCatalogReplyFallsBackToUnknown(t *testing.T) {
	catalog := Catalog{Replies: map[Category]string{Unknown: "?"}}
	if got := catalog.Reply(Grades); got != "?" {
		t.Fatalf("expected unknown reply, got %q", got)
	}
}

func TestCatalogQuickQuestion(t *testing.T) {
	catalog := DefaultCatalog()
	if _, ok := catalog.QuickQuestion(-1); ok {
		t.Fatal("expected negative index to miss")
	}
	if _, ok := catalog.QuickQuestion(len(catalog.QuickQuestions)); ok {
		t.Fatal("expected out of range index to miss")
	}
	q, ok := catalog.QuickQuestion(1)
	if !ok || Classify(q) != Grades {
		t.Fatalf("expected second quick question to be about grades, got %q", q)
	}
}
