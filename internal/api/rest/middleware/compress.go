// Package middleware provides various middleware functionality.
package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// compressedWriter wraps http.ResponseWriter routing the body through a gzip writer.
type compressedWriter struct {
	http.ResponseWriter
	gz io.Writer
}

func (w compressedWriter) Write(b []byte) (int, error) {
	return w.gz.Write(b)
}

// CompressHandle gzips response bodies for clients accepting gzip. File
// payloads travel as base64 inside JSON, so compression pays off even at the
// fastest level.
func CompressHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
		if err != nil {
			log.Warn().Err(err).Msg("could not initialize gzip writer")
			next.ServeHTTP(w, r)
			return
		}
		defer gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		next.ServeHTTP(compressedWriter{ResponseWriter: w, gz: gz}, r)
	})
}

// DecompressHandle transparently unpacks gzip-encoded request bodies.
func DecompressHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer gz.Close()
		r.Body = gz
		next.ServeHTTP(w, r)
	})
}
