package internal

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	discordAuthURL     = "https://discord.com/api/oauth2/authorize"
	discordTokenURL    = "https://discord.com/api/oauth2/token"
	discordUserInfoURL = "https://discord.com/api/v10/users/@me"
)

// AuthService handles the Discord OAuth dance and issues the JWT
// session cookie. Endpoint URLs are fields so tests can point them at
// a fake provider.
type AuthService struct {
	store        Store
	oauth        *oauth2.Config
	userInfoURL  string
	secret       string
	cookieSecure bool
}

func NewAuthService(cfg Config, s Store) *AuthService {
	return &AuthService{
		store: s,
		oauth: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  discordAuthURL,
				TokenURL: discordTokenURL,
			},
		},
		userInfoURL:  discordUserInfoURL,
		secret:       cfg.JWTSecret,
		cookieSecure: cfg.CookieSecure,
	}
}

// Login returns the provider URL the frontend should redirect to.
func (a *AuthService) Login(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"url": a.oauth.AuthCodeURL("")})
}

// Callback exchanges the code, fetches the Discord identity, upserts
// the user (first login creates a player) and sets the session cookie.
func (a *AuthService) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		fail(c, validationf("code is required"))
		return
	}

	ctx := c.Request.Context()
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		fail(c, upstreamf("failed to get access token"))
		return
	}

	resp, err := a.oauth.Client(ctx, tok).Get(a.userInfoURL)
	if err != nil {
		fail(c, upstreamf("failed to get user info"))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fail(c, upstreamf("failed to get user info"))
		return
	}

	var identity struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		fail(c, upstreamf("failed to decode user info"))
		return
	}

	user, err := a.store.UpsertUser(ctx, identity.ID, identity.Username, identity.Avatar)
	if err != nil {
		fail(c, err)
		return
	}

	session, err := signSession(a.secret, user)
	if err != nil {
		fail(c, fmt.Errorf("sign session: %w", err))
		return
	}
	c.SetCookie(cookieName, session, int(sessionMaxAge.Seconds()), "/", "", a.cookieSecure, true)

	audit(c, a.store, user.DiscordID, "login", "")
	c.JSON(http.StatusOK, gin.H{"success": true, "discord_id": user.DiscordID})
}

func (a *AuthService) Me(c *gin.Context) {
	u, err := a.store.GetUser(c.Request.Context(), uid(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *AuthService) Logout(c *gin.Context) {
	c.SetCookie(cookieName, "", -1, "/", "", a.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
