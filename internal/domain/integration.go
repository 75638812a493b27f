package domain

type HandshakeKind string

const (
	HandshakeBotMenu      HandshakeKind = "bot_menu_webview"
	HandshakeShortNameApp HandshakeKind = "short_name_app_webview"
)

// IntegrationDescriptor описывает, как получить tgWebAppData для одного сервиса
type IntegrationDescriptor struct {
	Key              string        `yaml:"key"`
	Kind             HandshakeKind `yaml:"kind"`
	Bot              string        `yaml:"bot"`
	ShortName        string        `yaml:"short_name,omitempty"`
	EntryURL         string        `yaml:"entry_url,omitempty"`
	SeedStartCommand bool          `yaml:"seed_start_command,omitempty"`

	// ReferralPrefix дописывается перед реферальным кодом в start-параметре
	ReferralPrefix string `yaml:"referral_prefix,omitempty"`
	// ReferralSeedOnly: код уходит только в /start, но не в web view
	ReferralSeedOnly bool `yaml:"referral_seed_only,omitempty"`
}
