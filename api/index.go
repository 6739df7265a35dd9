package handler

import (
	"net/http"
	"sync"

	"caskmarket-backend/bootstrap"

	"github.com/rs/zerolog/log"
)

var (
	once    sync.Once
	app     http.Handler
	initErr error
)

// Handler is the serverless entry point; every path is rewritten here.
// The app is built on the first request so a cold start with bad config
// answers 503 instead of crashing the function.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		app, initErr = bootstrap.HTTPHandler()
		if initErr != nil {
			log.Error().Err(initErr).Msg("app create failed")
		}
	})
	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"error","error":{"message":"Service unavailable","statusCode":503,"details":{}}}`))
		return
	}
	app.ServeHTTP(w, r)
}
