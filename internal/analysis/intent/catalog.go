package intent

// Catalog carries already-localized canned text for the responder and the widget.
type Catalog struct {
	Replies        map[Category]string
	QuickQuestions []string
	ResetNotice    string
}

// Reply returns the canned reply for c, or the Unknown reply when c has none.
func (c Catalog) Reply(category Category) string {
	if reply, ok := c.Replies[category]; ok && reply != "" {
		return reply
	}
	return c.Replies[Unknown]
}

// QuickQuestion returns the i-th shortcut question.
func (c Catalog) QuickQuestion(i int) (string, bool) {
	if i < 0 || i >= len(c.QuickQuestions) {
		return "", false
	}
	return c.QuickQuestions[i], true
}

// DefaultCatalog is the Uzbek text shipped with the widget.
func DefaultCatalog() Catalog {
	return Catalog{
		Replies: map[Category]string{
			Homework: "Uy vazifalaringizni \"Vazifalar\" bo'limida ko'rishingiz mumkin.\n" +
				"Har bir fan bo'yicha muddat va izohlar o'sha yerda ko'rsatilgan.",
			Grades: "Baholaringiz \"Baholar\" sahifasida fanlar kesimida jamlangan.\n" +
				"O'rtacha ball har chorak oxirida yangilanadi.",
			Schedule: "Dars jadvali \"Jadval\" bo'limida joylashgan.\n" +
				"O'zgarishlar bo'lsa, sinf rahbaringiz xabar beradi.",
			Attendance: "Davomatingizni \"Davomat\" sahifasida kunlar bo'yicha tekshirishingiz mumkin.\n" +
				"Sababli qoldirilgan darslar uchun ma'lumotnomani sinf rahbariga topshiring.",
			Help: "Men quyidagilar bo'yicha yordam bera olaman:\n" +
				"- uy vazifalari\n- baholar\n- dars jadvali\n- davomat\n" +
				"Savolingizni yozing yoki tezkor savollardan birini tanlang.",
			Thanks:   "Arzimaydi! Yana savollaringiz bo'lsa, bemalol yozing.",
			Greeting: "Assalomu alaykum! Maktab yordam xizmatiga xush kelibsiz. Sizga qanday yordam bera olaman?",
			Unknown:  "Kechirasiz, savolingizni tushunmadim. Iltimos, boshqacha tarzda yozib ko'ring yoki \"yordam\" deb yozing.",
		},
		QuickQuestions: []string{
			"Uy vazifalarimni qayerdan ko'raman?",
			"Baholarim qanday?",
			"Dars jadvali qayerda?",
			"Davomatimni qanday tekshiraman?",
		},
		ResetNotice: "Suhbat tozalandi. Sizga qanday yordam bera olaman?",
	}
}
