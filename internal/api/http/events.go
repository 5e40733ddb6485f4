package http

import (
	"net/http"
	"strconv"

	"github.com/mind-engage/fungiquest/internal/apierr"
	"github.com/mind-engage/fungiquest/internal/events"
)

// GET /admin/events?after=<seq>&limit=<n>
func ListEventsHandler(ev *events.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var after int64
		if s := q.Get("after"); s != "" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil || n < 0 {
				apierr.Write(w, apierr.Invalid("bad after"))
				return
			}
			after = n
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		es, err := ev.Since(r.Context(), after, limit)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		if es == nil {
			es = []events.Event{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": es})
	}
}
