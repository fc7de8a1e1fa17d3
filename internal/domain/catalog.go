package domain

// DefaultQuizID identifies the built-in vibe check quiz.
const DefaultQuizID = "vibe-check"

func pts(pairs ...any) []VibePoints {
	out := make([]VibePoints, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, VibePoints{Vibe: pairs[i].(string), Delta: pairs[i+1].(int)})
	}
	return out
}

// DefaultVibes is the static result table of the built-in quiz.
func DefaultVibes() []Vibe {
	return []Vibe{
		{
			ID:          "mainCharacter",
			Title:       "Main Character Energy 💅",
			Description: "You're the star of your own show, and we're all just living in it. Keep shining!",
			Emoji:       "🌟",
			Color:       "bg-vibe-yellow",
			Quote:       "I'm not bossy, I am the boss.",
		},
		{
			ID:          "softBoi",
			Title:       "Soft Era 🌸",
			Description: "Gentle, thoughtful, and probably loves a good aesthetic. Cozy vibes only.",
			Emoji:       "🧸",
			Color:       "bg-vibe-pink",
			Quote:       "Be kind, rewind (your favorite comfort movie).",
		},
		{
			ID:          "chaoticFun",
			Title:       "Agent of Chaotic Fun ✨",
			Description: "You bring the party, the memes, and a little bit of delightful chaos wherever you go.",
			Emoji:       "🎉",
			Color:       "bg-vibe-green",
			Quote:       "Embrace the glorious mess that you are.",
		},
		{
			ID:          "lowkeyChill",
			Title:       "Lowkey Chill Master 😌",
			Description: "Unbothered. Moisturized. Happy. In your lane. Focused. Flourishing.",
			Emoji:       "🧘",
			Color:       "bg-vibe-blue",
			Quote:       "My vibe is pretty, and my vibe is chill.",
		},
		{
			ID:          "unapologeticallyExtra",
			Title:       "Unapologetically Extra 💖",
			Description: "You're not too much, they're not enough. Own that fabulousness!",
			Emoji:       "💎",
			Color:       "bg-vibe-purple",
			Quote:       "Too glam to give a damn.",
		},
	}
}

// DefaultQuiz returns the built-in five question vibe check.
func DefaultQuiz() Quiz {
	return Quiz{
		ID: DefaultQuizID,
		Questions: []Question{
			{
				ID:     "q1",
				Prompt: "Pick your ultimate red flag 🚩 in a friend:",
				Icon:   "🧠",
				Options: []Option{
					{ID: "q1-a", Text: "Bad taste in memes", Emoji: "😂", Points: pts("chaoticFun", 2, "lowkeyChill", 1)},
					{ID: "q1-b", Text: "Slow texter", Emoji: "⏳", Points: pts("mainCharacter", 1, "softBoi", 1)},
					// Source data had mainCharacter -1; clamped to 0, deltas are never negative.
					{ID: "q1-c", Text: "Self-obsessed", Emoji: "🪞", Points: pts("mainCharacter", 0, "unapologeticallyExtra", 1)},
					{ID: "q1-d", Text: "Never brings snacks", Emoji: "🍿", Points: pts("chaoticFun", 1, "lowkeyChill", 2)},
				},
			},
			{
				ID:     "q2",
				Prompt: "Your go-to chaos meal is:",
				Icon:   "🍔",
				Options: []Option{
					{ID: "q2-a", Text: "Instant noodles at 3 AM", Emoji: "🍜", Points: pts("chaoticFun", 2, "softBoi", 1)},
					{ID: "q2-b", Text: "Cereal for dinner", Emoji: "🥣", Points: pts("lowkeyChill", 2, "softBoi", 1)},
					{ID: "q2-c", Text: "Anything with extra hot sauce", Emoji: "🌶️", Points: pts("unapologeticallyExtra", 2, "chaoticFun", 1)},
					{ID: "q2-d", Text: "A perfectly curated charcuterie board... for one", Emoji: "🧀", Points: pts("mainCharacter", 2, "lowkeyChill", 1)},
				},
			},
			{
				ID:     "q3",
				Prompt: "Weekend plans just got cancelled. Your reaction?",
				Icon:   "🗓️",
				Options: []Option{
					{ID: "q3-a", Text: "YES! Pajamas all day.", Emoji: "😴", Points: pts("softBoi", 2, "lowkeyChill", 2)},
					{ID: "q3-b", Text: "Time to call the backup squad!", Emoji: "👯‍♀️", Points: pts("unapologeticallyExtra", 2, "chaoticFun", 1)},
					{ID: "q3-c", Text: "Finally, time for my 10-step skincare routine.", Emoji: "🧖‍♀️", Points: pts("mainCharacter", 2, "softBoi", 1)},
					{ID: "q3-d", Text: "Spontaneously plan a solo adventure.", Emoji: "✈️", Points: pts("chaoticFun", 1, "mainCharacter", 1)},
				},
			},
			{
				ID:     "q4",
				Prompt: "Choose your fighter (aka your spirit emoji):",
				Icon:   "💥",
				Options: []Option{
					{ID: "q4-a", Text: "💅 (Sassy & fabulous)", Points: pts("unapologeticallyExtra", 2, "mainCharacter", 1)},
					{ID: "q4-b", Text: "💀 (Ironically unbothered)", Points: pts("chaoticFun", 2, "lowkeyChill", 1)},
					{ID: "q4-c", Text: "🌸 (Soft & sweet)", Points: pts("softBoi", 2, "lowkeyChill", 1)},
					{ID: "q4-d", Text: "✨ (Manifesting greatness)", Points: pts("mainCharacter", 2, "unapologeticallyExtra", 1)},
				},
			},
			{
				ID:     "q5",
				Prompt: "Your phone battery is at 13%. You:",
				Icon:   "🔋",
				Options: []Option{
					{ID: "q5-a", Text: "Panic! Find a charger ASAP.", Emoji: "😱", Points: pts("mainCharacter", 1, "unapologeticallyExtra", 1)},
					{ID: "q5-b", Text: "Eh, it'll last. *continues scrolling*", Emoji: "📱", Points: pts("chaoticFun", 2, "lowkeyChill", 2)},
					{ID: "q5-c", Text: "Low power mode, baby. Strategic survival.", Emoji: "💡", Points: pts("lowkeyChill", 1, "softBoi", 1)},
					{ID: "q5-d", Text: "It's a sign to disconnect. Nature walk!", Emoji: "🌿", Points: pts("softBoi", 2, "mainCharacter", 1)},
				},
			},
		},
		Vibes: DefaultVibes(),
	}
}
