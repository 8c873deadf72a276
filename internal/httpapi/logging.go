package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, the HTTP layer stays quiet.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logRequestStart(r *http.Request, msg, task, model string) {
	if zlog == nil {
		return
	}
	e := zlog.Info().Str("path", r.URL.Path).Str("task", task).Str("model", model)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		e = e.Str("request_id", rid)
	}
	e.Msg(msg)
}

func logRequestEnd(r *http.Request, msg string, status int, dur time.Duration, err error) {
	if zlog == nil {
		return
	}
	e := zlog.Info().Int("status", status).Dur("dur", dur)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		e = e.Str("request_id", rid)
	}
	if err != nil {
		e = e.Err(err)
	}
	e.Msg(msg)
}
