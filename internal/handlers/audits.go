package handlers

import (
	"net/http"
	"strconv"

	"github.com/medirank/medirank-api/internal/services/audits"
)

// listAudits serves the paged demo audit list
func (r *Router) listAudits(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	page := r.audits.List(audits.Query{
		Page:       atoiOr(q.Get("page"), 0),
		Limit:      atoiOr(q.Get("limit"), 0),
		Sort:       q.Get("sort"),
		Order:      q.Get("order"),
		FilterName: q.Get("filterName"),
	})
	respondJSON(w, http.StatusOK, page)
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
