package api

import "net/http"

// loggingResponseWriter records what the access log needs. The status
// defaults to 200 because handlers that only call Write never set one.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	responseSize  int
	headerWritten bool
}

func newLoggingResponseWriter(w http.ResponseWriter) *loggingResponseWriter {
	return &loggingResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (lrw *loggingResponseWriter) WriteHeader(statusCode int) {
	if !lrw.headerWritten {
		lrw.statusCode = statusCode
		lrw.headerWritten = true
	}
	lrw.ResponseWriter.WriteHeader(statusCode)
}

func (lrw *loggingResponseWriter) Write(data []byte) (int, error) {
	lrw.headerWritten = true
	size, err := lrw.ResponseWriter.Write(data)
	lrw.responseSize += size
	return size, err
}

func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}
