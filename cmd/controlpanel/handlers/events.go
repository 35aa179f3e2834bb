package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
)

// EventSource hands out per-user event streams. Satisfied by
// orchestrator.Hub.
type EventSource interface {
	Subscribe(userSub string) (<-chan orchestrator.Event, func())
}

const eventKeepAliveInterval = 30 * time.Second

// EventStreamHandler serves the caller's task notifications as
// server-sent events. The stream lives until the client goes away;
// keep-alive comments hold idle connections open through proxies.
func EventStreamHandler(events EventSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}

		ch, cancel := events.Subscribe(caller.Sub)
		defer cancel()

		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set(echo.HeaderCacheControl, "no-cache")
		res.Header().Set(echo.HeaderConnection, "keep-alive")
		res.WriteHeader(http.StatusOK)
		res.Flush()

		keepAlive := time.NewTicker(eventKeepAliveInterval)
		defer keepAlive.Stop()

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-keepAlive.C:
				if _, err := res.Write([]byte(": keep-alive\n\n")); err != nil {
					return nil
				}
				res.Flush()
			case event := <-ch:
				data, err := json.Marshal(event.Data)
				if err != nil {
					continue
				}
				if _, err := res.Write([]byte(
					"event: " + event.Event + "\ndata: " + string(data) + "\n\n",
				)); err != nil {
					return nil
				}
				res.Flush()
			}
		}
	}
}
