package oauth

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/discord"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/BizFox/internal/pkg/cache"
	"github.com/ManuelReschke/BizFox/internal/pkg/env"
)

// Setup registers every provider with credentials and stores OAuth state in Redis.
// It returns the names of the enabled providers.
func Setup() []string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}

	var providers []goth.Provider
	var names []string
	if key := env.GetEnv("GOOGLE_KEY", ""); key != "" {
		providers = append(providers, google.New(key, env.GetEnv("GOOGLE_SECRET", ""), base+"/auth/google/callback", "email", "profile"))
		names = append(names, "google")
	}
	if key := env.GetEnv("FACEBOOK_KEY", ""); key != "" {
		providers = append(providers, facebook.New(key, env.GetEnv("FACEBOOK_SECRET", ""), base+"/auth/facebook/callback", "email", "public_profile"))
		names = append(names, "facebook")
	}
	if key := env.GetEnv("DISCORD_KEY", ""); key != "" {
		providers = append(providers, discord.New(key, env.GetEnv("DISCORD_SECRET", ""), base+"/auth/discord/callback", discord.ScopeIdentify, discord.ScopeEmail))
		names = append(names, "discord")
	}
	if len(providers) == 0 {
		log.Info("[OAuth] no provider credentials configured, social login disabled")
		return nil
	}
	goth.UseProviders(providers...)

	// state lives next to the app sessions in a separate Redis database
	host, port := "127.0.0.1", 6379
	username, password := "", ""
	if opts := cache.GetClient().Options(); opts != nil {
		username, password = opts.Username, opts.Password
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if parsed, err := strconv.Atoi(p); err == nil {
				port = parsed
			}
		}
	}

	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: username,
			Password: password,
			Database: 2,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     time.Hour,
	})

	log.Infof("[OAuth] enabled providers: %s", strings.Join(names, ", "))
	return names
}
