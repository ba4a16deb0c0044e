// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// gzipResponseWriter defers the status line until the first body write
// so bodyless responses are sent uncompressed.
type gzipResponseWriter struct {
	http.ResponseWriter
	out     io.Writer
	gz      *gzip.Writer
	status  int
	started bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.started || w.status != 0 {
		return
	}
	w.status = status
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.started {
		w.start()
	}
	return w.out.Write(b)
}

func (w *gzipResponseWriter) start() {
	w.started = true
	if w.status == 0 {
		w.status = http.StatusOK
	}

	h := w.Header()
	w.out = w.ResponseWriter
	if h.Get("Content-Encoding") == "" && w.status != http.StatusNoContent && w.status != http.StatusNotModified {
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
		h.Add("Vary", "Accept-Encoding")

		gz := gzipWriterPool.Get().(*gzip.Writer)
		gz.Reset(w.ResponseWriter)
		w.gz = gz
		w.out = gz
	}
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *gzipResponseWriter) finish() {
	if !w.started {
		if w.status != 0 {
			w.ResponseWriter.WriteHeader(w.status)
		}
		return
	}
	if w.gz != nil {
		_ = w.gz.Close() // response already committed
		gzipWriterPool.Put(w.gz)
		w.gz = nil
	}
}

// Compression gzips response bodies for clients that accept gzip.
// HEAD requests and protocol upgrades pass through untouched.
func Compression(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || r.Header.Get("Upgrade") != "" ||
			!strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next(w, r)
			return
		}

		gzw := &gzipResponseWriter{ResponseWriter: w}
		defer gzw.finish()
		next(gzw, r)
	}
}
