package intent

import "strings"

// Category is the topic an inbound support message was classified into.
type Category string

const (
	Homework   Category = "homework"
	Grades     Category = "grades"
	Schedule   Category = "schedule"
	Attendance Category = "attendance"
	Help       Category = "help"
	Thanks     Category = "thanks"
	Greeting   Category = "greeting"
	Unknown    Category = "unknown"
)

type rule struct {
	category Category
	keywords []string
}

// priority is checked top to bottom and the first matching rule wins, so a
// message mentioning both a greeting and grades is answered as grades.
var priority = []rule{
	{category: Homework, keywords: []string{"uy vazifa", "vazifa", "topshiriq", "homework", "домашн"}},
	{category: Grades, keywords: []string{"baho", "reyting", "grade", "оценк"}},
	{category: Schedule, keywords: []string{"jadval", "dars vaqti", "schedule", "расписан"}},
	{category: Attendance, keywords: []string{"davomat", "qatnash", "attendance", "посещ"}},
	{category: Help, keywords: []string{"yordam", "help", "помощ", "помоги"}},
	{category: Thanks, keywords: []string{"rahmat", "tashakkur", "thank", "спасибо"}},
	{category: Greeting, keywords: []string{"salom", "assalom", "hello", "привет"}},
}

// Priority returns the categories in the order they are tested.
func Priority() []Category {
	out := make([]Category, 0, len(priority))
	for _, r := range priority {
		out = append(out, r.category)
	}
	return out
}

// Classify lower-cases the text and returns the first category whose keywords occur in it.
func Classify(text string) Category {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Unknown
	}

	for _, r := range priority {
		for _, word := range r.keywords {
			if strings.Contains(normalized, word) {
				return r.category
			}
		}
	}
	return Unknown
}

// Respond maps inbound text to the catalog's canned reply. It holds no state.
func Respond(text string, catalog Catalog) string {
	return catalog.Reply(Classify(text))
}

// Reply is a canned answer together with the category that selected it.
type Reply struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

// Answer classifies text and returns the reply with its category.
func Answer(text string, catalog Catalog) Reply {
	category := Classify(text)
	return Reply{Category: category, Text: catalog.Reply(category)}
}
