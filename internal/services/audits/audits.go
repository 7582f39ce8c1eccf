// Package audits serves the fixed demo dataset behind the audits table.
package audits

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	datasetSize  = 60
	DefaultPage  = 1
	DefaultLimit = 10
	DefaultSort  = "id"
	DefaultOrder = "desc"
)

var statusCycle = []string{"AUDIT CLOSED", "Draft", "Under Review", "Escalated", "Open"}

// Audit is one row of the audits table.
type Audit struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Date     string `json:"date"`
	Unit     string `json:"unit"`
	By       string `json:"by"`
	Closed   string `json:"closed"`
	Incharge string `json:"incharge"`
	Admin    string `json:"admin"`
	Status   string `json:"status"`
}

// Query selects a page of audits. Zero values take the defaults.
type Query struct {
	Page       int
	Limit      int
	Sort       string
	Order      string
	FilterName string
}

// Page is one page of results.
type Page struct {
	Items []Audit `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}

type seed struct {
	name, typ, date, unit, by, closed, incharge, admin string
}

var seeds = []seed{
	{"Medication Chart Review Checklist", "Clinical", "23-Oct-2025 03:00 pm", "Test Unit", "msswapnatoka", "29-Oct-2025", "soumya", ""},
	{"Transfusion Reaction Reporting Form", "Clinical", "03-Oct-2025 03:28 pm", "Ankura Banjara Hills", "soumya", "06-Oct-2025", "nagendra", ""},
	{"Radiology Safety Audit Checklist", "Clinical", "03-Oct-2025 11:28 am", "Ankura Banjara Hills", "soumya", "06-Oct-2025", "soumya", ""},
	{"Bronchiolitis Cases Audit Form", "Clinical", "23-Sep-2025 02:28 pm", "Test Unit", "soumya", "29-Sep-2025", "soumya", ""},
	{"WHO Surgical Safety Check List Audit", "Clinical", "30-Sep-2025 11:46 am", "Ankura Banjara Hills", "soumya", "03-Oct-2025", "soumya", ""},
}

// Dataset builds the demo rows by cycling the seeds.
func Dataset() []Audit {
	out := make([]Audit, 0, datasetSize)
	for i := 0; i < datasetSize; i++ {
		s := seeds[i%len(seeds)]
		name := s.name
		if i > 0 {
			name = fmt.Sprintf("%s (%d)", name, i)
		}
		out = append(out, Audit{
			ID:       i + 1,
			Name:     name,
			Type:     s.typ,
			Date:     s.date,
			Unit:     s.unit,
			By:       s.by,
			Closed:   s.closed,
			Incharge: s.incharge,
			Admin:    s.admin,
			Status:   statusCycle[i%len(statusCycle)],
		})
	}
	return out
}

// Service pages through an immutable dataset.
type Service struct {
	all []Audit
}

func NewService() *Service {
	return &Service{all: Dataset()}
}

// List filters, sorts and pages the dataset. Sorting compares the
// lower-cased string form of the field; unknown fields compare as "".
func (s *Service) List(q Query) Page {
	q = q.withDefaults()

	items := make([]Audit, 0, len(s.all))
	filter := strings.ToLower(q.FilterName)
	for _, a := range s.all {
		if filter != "" &&
			!strings.Contains(strings.ToLower(a.Name), filter) &&
			!strings.Contains(strings.ToLower(a.Unit), filter) {
			continue
		}
		items = append(items, a)
	}

	asc := q.Order == "asc"
	sort.SliceStable(items, func(i, j int) bool {
		a, b := sortKey(items[i], q.Sort), sortKey(items[j], q.Sort)
		if asc {
			return a < b
		}
		return a > b
	})

	total := len(items)
	start, end := pageBounds(q.Page, q.Limit, total)
	return Page{Items: items[start:end], Total: total, Page: q.Page, Limit: q.Limit}
}

// pageBounds returns the slice bounds of page within total items. page and
// limit are at least 1; the arithmetic never overflows.
func pageBounds(page, limit, total int) (int, int) {
	start := total
	if page-1 <= total/limit {
		start = min(total, (page-1)*limit)
	}
	end := start + min(limit, total-start)
	return start, end
}

func (q Query) withDefaults() Query {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Sort == "" {
		q.Sort = DefaultSort
	}
	q.Order = strings.ToLower(q.Order)
	if q.Order == "" {
		q.Order = DefaultOrder
	}
	return q
}

func sortKey(a Audit, field string) string {
	var v string
	switch field {
	case "id":
		v = strconv.Itoa(a.ID)
	case "name":
		v = a.Name
	case "type":
		v = a.Type
	case "date":
		v = a.Date
	case "unit":
		v = a.Unit
	case "by":
		v = a.By
	case "closed":
		v = a.Closed
	case "incharge":
		v = a.Incharge
	case "admin":
		v = a.Admin
	case "status":
		v = a.Status
	}
	return strings.ToLower(v)
}
