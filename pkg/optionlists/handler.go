package optionlists

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type listResponse struct {
	Data []Record `json:"data"`
}

type validateRequest struct {
	Value any `json:"value"`
}

type validateResponse struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const maxValidateBody = 64 << 10

// Handler serves lists relative to its mount point: /{list} and
// /{list}/validate.
func Handler(lists Lists, fns ...OptionFn) http.Handler {
	return HandlerWithOptions(lists, NewOptions(fns...))
}

// HandlerWithOptions builds the handler from a pre-constructed Options value.
// Defaults are applied again so a zero value is safe.
func HandlerWithOptions(lists Lists, opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	h := &handler{lists: lists, opts: opts}

	r := chi.NewRouter()
	if opts.Guard != nil {
		r.Use(h.guard)
	}
	r.Get("/{list}", h.search)
	r.Head("/{list}", h.search)
	r.Get("/{list}/validate", h.validate)
	r.Post("/{list}/validate", h.validate)
	return r
}

type handler struct {
	lists Lists
	opts  Options
}

func (h *handler) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.opts.Guard(r); err != nil {
			writeGuardError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) ([]Record, bool) {
	name := chi.URLParam(r, "list")
	records, ok := h.lists[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown list %q", name)})
		return nil, false
	}
	return records, true
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	records, ok := h.list(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get(h.opts.SearchParam)
	limit := parseInt(r.URL.Query().Get(h.opts.LimitParam))

	results := Search(records, query, limit, h.opts)
	if results == nil {
		results = []Record{}
	}
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: results})
}

func (h *handler) validate(w http.ResponseWriter, r *http.Request) {
	records, ok := h.list(w, r)
	if !ok {
		return
	}

	value := r.URL.Query().Get("value")
	if r.Method == http.MethodPost {
		var body validateRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, maxValidateBody))
		if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		if body.Value != nil {
			value = text(body.Value)
		}
	}

	value = strings.TrimSpace(value)
	if value == "" {
		writeJSON(w, http.StatusOK, validateResponse{IsValid: false, Message: "value is required"})
		return
	}
	if _, found := Find(records, value, h.opts); !found {
		writeJSON(w, http.StatusOK, validateResponse{
			IsValid: false,
			Message: fmt.Sprintf("%q is not a known %s value", value, chi.URLParam(r, "list")),
		})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{IsValid: true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func writeGuardError(w http.ResponseWriter, err error) {
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
		if code <= 0 {
			code = http.StatusForbidden
		}
	}
	writeJSON(w, code, errorResponse{Error: http.StatusText(code)})
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
