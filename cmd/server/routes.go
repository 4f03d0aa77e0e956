package main

import "net/http"

// routes maps the application endpoints to their respective handlers
func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /upload", app.handlers.Upload)
	mux.HandleFunc("GET /dataset", app.handlers.Dataset)
	mux.HandleFunc("GET /messages", app.handlers.Messages)
	mux.HandleFunc("POST /messages", app.handlers.CreateMessage)
	mux.HandleFunc("GET /messages/{id}", app.handlers.MessageDetail)
	mux.HandleFunc("GET /healthz", app.handlers.Health)

	var chain http.Handler = mux
	chain = app.logRequest(chain)
	chain = app.recoverPanic(chain)

	return chain
}
