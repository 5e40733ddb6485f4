package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/fungiquest/internal/apierr"
	"github.com/mind-engage/fungiquest/internal/auth"
	"github.com/mind-engage/fungiquest/internal/backend"
	"github.com/mind-engage/fungiquest/internal/content"
	"github.com/mind-engage/fungiquest/internal/events"
	"github.com/mind-engage/fungiquest/internal/logger"
	"github.com/mind-engage/fungiquest/internal/rbac"
	"github.com/mind-engage/fungiquest/internal/schema"
)

const maxUpsertBody = 4 << 20

var errForbidden = errors.New("forbidden")

func isContentTable(t string) bool {
	return t == backend.TableLessons || t == backend.TableQuestions || t == backend.TableAnswers
}

// resource is the permission prefix guarding a table.
func resource(table string) string {
	switch table {
	case backend.TableProgress:
		return "progress"
	case backend.TableProfiles:
		return "profile"
	default:
		return "content"
	}
}

func tableParam(r *http.Request) (string, error) {
	t := chi.URLParam(r, "table")
	if !backend.KnownTable(t) {
		return "", apierr.NotFound("table " + t)
	}
	return t, nil
}

// GET /rest/v1/{table}?col=eq.v&col=in.(a,b)&order=col.desc&limit=n
func SelectTableHandler(store backend.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := tableParam(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		if !rbac.Can(rbac.RoleFromContext(r.Context()), resource(table)+":read") {
			apierr.Write(w, apierr.New(http.StatusForbidden, "forbidden", errForbidden))
			return
		}
		q, err := backend.DecodeQuery(table, r.URL.Query())
		if err != nil {
			apierr.Write(w, apierr.Invalid(err.Error()))
			return
		}
		if err := backend.CheckColumns(table, q.Columns()...); err != nil {
			apierr.Write(w, apierr.Invalid(err.Error()))
			return
		}
		rows, err := store.Select(r.Context(), q)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		if rows == nil {
			rows = []schema.Record{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// decodeRows accepts a single JSON object or an array of them.
func decodeRows(body io.Reader) ([]schema.Record, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}
	if raw[0] == '[' {
		var rows []schema.Record
		err := json.Unmarshal(raw, &rows)
		return rows, err
	}
	var row schema.Record
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return []schema.Record{row}, nil
}

func ownerOf(row schema.Record) string {
	switch v := row["user_id"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// POST /rest/v1/{table}?on_conflict=cols  body: object | [object...]
//
// Content tables are admin-only. Progress and profile rows may only be
// written by their owner unless the caller holds the full write permission.
func UpsertTableHandler(store backend.Store, c *content.Client, ev *events.Log, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := tableParam(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		if oc := r.URL.Query().Get("on_conflict"); oc != "" {
			if !slices.Equal(strings.Split(oc, ","), backend.ConflictKeys[table]) {
				apierr.Write(w, apierr.Invalid("on_conflict must be "+strings.Join(backend.ConflictKeys[table], ",")))
				return
			}
		}
		rows, err := decodeRows(http.MaxBytesReader(w, r.Body, maxUpsertBody))
		if err != nil {
			apierr.Write(w, apierr.Invalid("bad json: "+err.Error()))
			return
		}

		role := rbac.RoleFromContext(r.Context())
		sub := auth.SubjectFromContext(r.Context())
		now := time.Now().Unix()
		for _, row := range rows {
			cols := make([]string, 0, len(row))
			for k := range row {
				cols = append(cols, k)
			}
			if err := backend.CheckColumns(table, cols...); err != nil {
				apierr.Write(w, apierr.Invalid(err.Error()))
				return
			}
			var allowed bool
			if isContentTable(table) {
				allowed = rbac.Can(role, "content:write")
			} else {
				allowed = rbac.CanWriteOwned(role, resource(table), sub, ownerOf(row))
			}
			if !allowed {
				apierr.Write(w, apierr.New(http.StatusForbidden, "forbidden", errForbidden))
				return
			}
			if table == backend.TableProgress {
				if _, ok := row["updated_at"]; !ok {
					row["updated_at"] = now
				}
			}
		}

		if err := store.Upsert(r.Context(), table, rows); err != nil {
			apierr.Write(w, err)
			return
		}

		if isContentTable(table) {
			c.Cache().Invalidate()
		}
		if ev != nil {
			for _, row := range rows {
				typ, key := eventFor(table, row)
				if err := ev.Append(r.Context(), typ, key, row); err != nil {
					log.Warn("event not recorded", "table", table, "key", key, "error", err)
				}
			}
		}
		writeJSON(w, http.StatusCreated, rows)
	}
}

func eventFor(table string, row schema.Record) (typ, key string) {
	switch table {
	case backend.TableProgress:
		return events.TypeProgress, ownerOf(row) + "/" + fmt.Sprint(row["lesson_id"])
	case backend.TableProfiles:
		return events.TypeProfile, ownerOf(row)
	default:
		var id any
		for _, k := range backend.ConflictKeys[table] {
			id = row[k]
		}
		return events.TypeContent, table + "/" + fmt.Sprint(id)
	}
}
