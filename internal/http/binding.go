package http

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"release-tracker/internal/domain"
	"release-tracker/internal/format"
)

const (
	langParam = "lang"
	localeKey = "locale"
)

var validatorsOnce sync.Once

// registerValidators adds the calver tag to gin's validator: the field must be
// empty or parse as a version once surrounding space is trimmed, the same way
// parseVersion reads it.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		versions := format.NewVersionFormatter()
		_ = v.RegisterValidation("calver", func(fl validator.FieldLevel) bool {
			_, err := versions.Parse(strings.TrimSpace(fl.Field().String()), language.Und)
			return err == nil
		})
	})
}

// localeMiddleware stores the request locale, taken from ?lang= and then
// Accept-Language, defaulting to English.
func localeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(localeKey, resolveLocale(c))
		c.Next()
	}
}

func resolveLocale(c *gin.Context) language.Tag {
	if lang := strings.TrimSpace(c.Query(langParam)); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			return tag
		}
	}
	if accept := strings.TrimSpace(c.GetHeader("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return tags[0]
		}
	}
	return language.English
}

func localeOf(c *gin.Context) language.Tag {
	if v, ok := c.Get(localeKey); ok {
		if tag, ok := v.(language.Tag); ok {
			return tag
		}
	}
	return language.English
}

// parseVersion runs the registered formatter over a bound text field.
func (h *Handler) parseVersion(c *gin.Context, text string) (*domain.Version, error) {
	return h.versions.Parse(strings.TrimSpace(text), localeOf(c))
}

func (h *Handler) printVersion(c *gin.Context, v domain.Version) string {
	return h.versions.Print(&v, localeOf(c))
}
