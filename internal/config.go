package internal

// Config is populated from the environment with envconfig.Process.
// JWT_SECRET is the only hard requirement; without DATABASE_URL the
// portal runs on the in-memory store.
type Config struct {
	Port         string `envconfig:"PORT" default:"8080"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	CookieSecure bool   `envconfig:"COOKIE_SECURE"`

	DiscordClientID     string `envconfig:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `envconfig:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURI  string `envconfig:"DISCORD_REDIRECT_URI"`

	FivemBridgeURL string `envconfig:"FIVEM_BRIDGE_URL"`
	RoleSyncURL    string `envconfig:"ROLE_SYNC_URL"`
}
