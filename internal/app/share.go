package app

import (
	"net/url"

	"vibe-check-service/internal/domain"
)

// ShareLinks are the platform share targets for a result.
type ShareLinks struct {
	Text      string `json:"text"`
	Twitter   string `json:"twitter"`
	WhatsApp  string `json:"whatsapp"`
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"` // clipboard text, Instagram has no share URL
}

// ResultTitle returns the display title of v for someone of gender g.
func ResultTitle(v domain.Vibe, g domain.Gender) string {
	if v.ID == "softBoi" {
		switch g {
		case domain.GenderBoi:
			return "Soft Boi Era 🌸"
		case domain.GenderGurl:
			return "Soft Gurl Era 🌸"
		}
		return "Soft Era 🌸"
	}
	return v.Title
}

// BuildShareLinks templates the share URLs for title, pointing back at origin.
func BuildShareLinks(origin, title string) ShareLinks {
	text := "I got " + title + " on the Vibe Check quiz! What's your aura today? ✨ Check it out!"

	twitter := url.Values{}
	twitter.Set("text", text)
	twitter.Set("url", origin)

	whatsapp := url.Values{}
	whatsapp.Set("text", text+" "+origin)

	facebook := url.Values{}
	facebook.Set("u", origin)
	facebook.Set("quote", text)

	return ShareLinks{
		Text:      text,
		Twitter:   "https://twitter.com/intent/tweet?" + twitter.Encode(),
		WhatsApp:  "https://api.whatsapp.com/send?" + whatsapp.Encode(),
		Facebook:  "https://www.facebook.com/sharer/sharer.php?" + facebook.Encode(),
		Instagram: text + " " + origin,
	}
}
