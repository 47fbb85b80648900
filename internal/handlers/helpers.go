package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradepost/storefront/internal/events"
	"github.com/tradepost/storefront/internal/mail"
)

func errorJSON(c echo.Context, code int, message string) error {
	return c.JSON(code, echo.Map{"error": message})
}

// bindStrict decodes a JSON body rejecting unknown keys, so partial updates
// cannot smuggle fields past the allow-list structs.
func bindStrict(c echo.Context, v interface{}) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// publish sends a domain event, logging failures without affecting the
// request.
func publish(c echo.Context, producer events.Publisher, topic, key string, event map[string]interface{}) {
	if producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := producer.PublishEvent(ctx, topic, key, event); err != nil {
		c.Logger().Errorf("event publish error: %v", err)
	}
}

// sendMail dispatches one email, logging failures without affecting the
// request.
func sendMail(c echo.Context, mailer mail.Mailer, to, subject, body string) {
	if mailer == nil || to == "" {
		return
	}
	if err := mailer.Send(to, subject, body); err != nil {
		c.Logger().Errorf("mail send error: %v", err)
	}
}
