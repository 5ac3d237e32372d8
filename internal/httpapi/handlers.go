package httpapi

import "net/http"

func Hello(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("hello!"))
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
