package http

import "net/http"

// RouterConfig bundles the handlers mounted by the router.
type RouterConfig struct {
	Reconcile *ReconcileHandler
	Preview   *PreviewHandler
	Loop      *LoopHandler
}

// NewRouter mounts the API surface.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Reconcile != nil {
		mux.HandleFunc("/api/reconcile", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Reconcile.Trigger(w, r)
		})
	}

	if cfg.Preview != nil {
		mux.HandleFunc("/api/preview", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Preview.Enumerate(w, r)
		})
	}

	if cfg.Loop != nil {
		mux.HandleFunc("/api/loop", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Loop.Status(w, r)
		})
		mux.HandleFunc("/api/loop/start", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Loop.Start(w, r)
		})
		mux.HandleFunc("/api/loop/stop", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Loop.StopLoop(w, r)
		})
	}

	return mux
}
