package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSanitize_BodyAndQuery(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/?q=%20abc%00%20&bad%20key=1", `{"email":"  a@b.com\u0000 ","na<me>":"x"}`)

	h := Sanitize()(func(c echo.Context) error {
		if got := c.QueryParam("q"); got != "abc" {
			t.Fatalf("query not sanitised: %q", got)
		}
		if c.QueryParam("badkey") != "1" {
			t.Fatalf("query key not reduced: %v", c.QueryParams())
		}

		raw, _ := io.ReadAll(c.Request().Body)
		var body map[string]string
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("body not json: %v", err)
		}
		if body["email"] != "a@b.com" {
			t.Fatalf("body value not sanitised: %q", body["email"])
		}
		if body["name"] != "x" {
			t.Fatalf("body key not reduced: %v", body)
		}
		if c.Request().ContentLength != int64(len(raw)) {
			t.Fatalf("content length not updated")
		}
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestSanitize_InvalidJSONUntouched(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/", "not-json")
	h := Sanitize()(func(c echo.Context) error {
		raw, _ := io.ReadAll(c.Request().Body)
		if string(raw) != "not-json" {
			t.Fatalf("invalid body should pass through, got %q", raw)
		}
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}
