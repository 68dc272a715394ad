// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storyline-backend/internal/i18n"
)

func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = i18n.DefaultLanguage
	}
	return func(c *gin.Context) {
		c.Set("lang", negotiateLanguage(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

// negotiateLanguage takes the first preference of a header like
// "zh-TW,zh;q=0.9,en;q=0.8" that has a loaded locale.
func negotiateLanguage(header, defaultLang string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		if tag == "" {
			continue
		}
		if lang := localeFor(tag); i18n.Supports(lang) {
			return lang
		}
	}
	return defaultLang
}

// localeFor maps a BCP 47 tag onto locale file names. Chinese is only
// served in Traditional.
func localeFor(tag string) string {
	tag = strings.ReplaceAll(tag, "-", "_")
	base := strings.ToLower(strings.Split(tag, "_")[0])
	if base == "zh" {
		return "zh_TW"
	}
	return base
}
