/**
 * @description
 * Theme middleware.
 * Resolves the colour scheme once per request from the theme cookie and the
 * Sec-CH-Prefers-Color-Scheme client hint.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: HTTP Context
 * - backend/internal/theme
 *
 * @notes
 * - Handlers read the result with ThemeFrom and pass it on explicitly.
 */

package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sol-erda/tracker/internal/theme"
)

const (
	themeLocalKey   = "theme"
	prefersHintName = "Sec-CH-Prefers-Color-Scheme"
	themeCookieAge  = 365 * 24 * time.Hour
)

// Theme stores the resolved theme in c.Locals
func Theme() fiber.Handler {
	return func(c *fiber.Ctx) error {
		resolved := theme.Resolve(c.Cookies(theme.CookieName), theme.PrefersDark(c.Get(prefersHintName)))
		c.Locals(themeLocalKey, resolved)

		// Ask supporting browsers to send the system preference on later requests
		c.Append(fiber.HeaderVary, prefersHintName)
		c.Set("Accept-CH", prefersHintName)
		return c.Next()
	}
}

// ThemeFrom returns the theme resolved for this request, light when the
// middleware did not run
func ThemeFrom(c *fiber.Ctx) theme.Theme {
	if t, ok := c.Locals(themeLocalKey).(theme.Theme); ok {
		return t
	}
	return theme.Light
}

// PersistTheme writes the theme cookie
func PersistTheme(c *fiber.Ctx, t theme.Theme) {
	c.Cookie(&fiber.Cookie{
		Name:     theme.CookieName,
		Value:    t.String(),
		Path:     "/",
		Expires:  time.Now().Add(themeCookieAge),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals(themeLocalKey, t)
}
