package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/fungiquest/internal/apierr"
	"github.com/mind-engage/fungiquest/internal/storage"
)

const maxAssetBytes = 16 << 20

func assetError(err error) error {
	switch {
	case errors.Is(err, storage.ErrBadKey):
		return apierr.Invalid(err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return apierr.NotFound("asset")
	default:
		return err
	}
}

// GET /assets/*  -> the image stored under whatever follows /assets/
func GetAssetHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		rc, err := bs.Get(key)
		if err != nil {
			apierr.Write(w, assetError(err))
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = io.Copy(w, rc)
	}
}

// PUT /assets/*  body: raw bytes, or multipart with a "file" part
func PutAssetHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		var body io.Reader = http.MaxBytesReader(w, r.Body, maxAssetBytes)
		if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
			r.Body = http.MaxBytesReader(w, r.Body, maxAssetBytes)
			f, _, err := r.FormFile("file")
			if err != nil {
				apierr.Write(w, apierr.Invalid("file required"))
				return
			}
			defer f.Close()
			body = f
		}
		canon, err := bs.Put(key, body)
		if err != nil {
			apierr.Write(w, assetError(err))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": canon, "url": bs.URL(canon)})
	}
}
