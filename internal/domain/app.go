package domain

// IconRef is a symbolic icon identifier from IconPalette.
type IconRef string

// IconPalette is the fixed set of icons an app may carry.
var IconPalette = []IconRef{
	"fab fa-instagram", "fab fa-youtube", "fab fa-whatsapp", "fab fa-snapchat",
	"fab fa-reddit", "fab fa-facebook", "fab fa-twitter", "fab fa-tiktok",
	"fab fa-discord", "fab fa-linkedin", "fas fa-book", "fas fa-graduation-cap",
	"fas fa-pencil", "fas fa-clock", "fas fa-brain", "fas fa-gamepad", "fas fa-music",
}

// Known reports whether the icon is part of IconPalette.
func (i IconRef) Known() bool {
	for _, p := range IconPalette {
		if p == i {
			return true
		}
	}
	return false
}

// MonitoredApp is an application the user can mark as blocked.
// UsageMinutes is a static figure; nothing tracks live usage.
type MonitoredApp struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Icon         IconRef `json:"icon"`
	Blocked      bool    `json:"blocked"`
	UsageMinutes int     `json:"usage_minutes"`
}

// UsagePoint is one bucket of the overview usage trend.
type UsagePoint struct {
	Label   string `json:"label"`
	Minutes int    `json:"minutes"`
}
