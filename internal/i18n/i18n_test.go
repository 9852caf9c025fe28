package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMatch(t *testing.T) {
	cases := map[string]string{
		"":                  LocaleZhCN,
		"en-US,en;q=0.9":    LocaleEnUS,
		"en":                LocaleEnUS,
		"zh-CN,zh;q=0.8":    LocaleZhCN,
		"fr-FR":             LocaleZhCN,
		"fr-FR,en-GB;q=0.7": LocaleEnUS,
	}
	for input, want := range cases {
		if got := Match(input); got != want {
			t.Fatalf("match %q: expected %s, got %s", input, want, got)
		}
	}
}

func TestResolveLocaleQueryOverridesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/carts/x?lang=en-US", nil)
	c.Request.Header.Set("Accept-Language", "zh-CN")
	if got := ResolveLocale(c); got != LocaleEnUS {
		t.Fatalf("expected en-US, got %s", got)
	}
}

func TestTranslateFallback(t *testing.T) {
	if got := T(LocaleEnUS, "error.cart_empty"); got != "Cart is empty" {
		t.Fatalf("unexpected translation: %s", got)
	}
	if got := T("ja-JP", "error.cart_empty"); got != "购物车为空" {
		t.Fatalf("expected default locale fallback, got %s", got)
	}
	if got := T(LocaleEnUS, "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("expected key fallback, got %s", got)
	}
	if got := Sprintf(LocaleEnUS, "error.promotion_codes_too_many", 5); got != "At most 5 promotion codes per request" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}
