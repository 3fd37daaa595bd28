package main

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/julienschmidt/httprouter"
	mw "wuyrush.io/valentine/common/middleware"
)

//go:embed templates static
var assets embed.FS

// set up routes
func (s *valentineServer) SetupMux() {
	r := httprouter.New()
	chain := func(h httprouter.Handle) httprouter.Handle {
		return mw.Chain(h, mw.HSTSer(s.HSTS), mw.RequestLogger(), mw.PanicRecoverer())
	}
	r.GET("/", chain(s.HandleGetCreatePage()))
	r.POST("/create", chain(s.HandleCreateExperience()))
	r.GET("/v/:id", chain(s.HandleGetExperience()))
	r.POST("/v/:id", chain(s.HandleUnlockExperience()))
	r.GET("/uploads/:filename", chain(s.HandleGetUpload()))
	r.GET("/api/stats/:id", chain(s.HandleGetStats()))
	r.GET("/api/catalog", chain(s.HandleGetCatalog()))
	r.GET("/health", chain(s.HandleHealth()))
	// static assets
	static, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	r.Handler(
		http.MethodGet,
		"/static/*filepath",
		http.StripPrefix("/static/", http.FileServer(http.FS(static))),
	)
	notFound := chain(s.HandleNotFound())
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notFound(w, r, nil)
	})

	s.Router = r
}
