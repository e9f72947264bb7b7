package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"cospi/internal/fault"
	"cospi/internal/ledger"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"  Bearer   abc123  ", "abc123"},
		{"", ""},
		{"abc123", ""},
		{"Basic abc123", ""},
	}
	for _, tc := range tests {
		if got := bearerToken(tc.header); got != tc.want {
			t.Fatalf("header %q: got %q want %q", tc.header, got, tc.want)
		}
	}
}

func TestWriteDomainErrorMapping(t *testing.T) {
	s := &Server{log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	tests := []struct {
		err  error
		want int
	}{
		{ledger.ErrAmountNotUnit, http.StatusBadRequest},
		{ledger.ErrBoothNotFound, http.StatusNotFound},
		{ledger.ErrInsufficientBalance, http.StatusConflict},
		{ledger.ErrBoothCapExceeded, http.StatusConflict},
		{ledger.ErrVisitRequired, http.StatusConflict},
		{ledger.ErrContention, http.StatusServiceUnavailable},
		{fault.New(fault.Validation, "bad input"), http.StatusBadRequest},
		{errors.New("plain failure"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		s.writeDomainError(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%v: got status %d want %d", tc.err, rec.Code, tc.want)
		}
	}

	rec := httptest.NewRecorder()
	s.writeDomainError(rec, ledger.ErrContention)
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("contention responses should carry Retry-After")
	}
}
