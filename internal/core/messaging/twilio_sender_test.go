package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTwilioSender_Send(t *testing.T) {
	var gotPath, gotUser, gotPass, gotFrom, gotTo, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotFrom, gotTo, gotBody = r.PostForm.Get("From"), r.PostForm.Get("To"), r.PostForm.Get("Body")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	s := NewTwilioSender(srv.URL+"/", "AC1", "tok", "+14155238886")
	res, err := s.Send(context.Background(), "+5511999999999", "Olá!")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "SM123" {
		t.Errorf("MessageID = %q; want SM123", res.MessageID)
	}
	if gotPath != "/Accounts/AC1/Messages.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "AC1" || gotPass != "tok" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
	if gotFrom != "whatsapp:+14155238886" || gotTo != "whatsapp:+5511999999999" || gotBody != "Olá!" {
		t.Errorf("form = From:%q To:%q Body:%q", gotFrom, gotTo, gotBody)
	}
}

func TestTwilioSender_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	s := NewTwilioSender(srv.URL, "AC1", "tok", "+14155238886")
	_, err := s.Send(context.Background(), "bad", "oi")
	if err == nil {
		t.Fatal("Send = nil error; want provider failure")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "Invalid 'To'") {
		t.Errorf("err = %v; want status and provider body", err)
	}
}

func TestWhatsAppAddress(t *testing.T) {
	tests := []struct{ in, want string }{
		{"+5511999999999", "whatsapp:+5511999999999"},
		{"whatsapp:+5511999999999", "whatsapp:+5511999999999"},
	}
	for _, tt := range tests {
		if got := WhatsAppAddress(tt.in); got != tt.want {
			t.Errorf("WhatsAppAddress(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
	if got := StripWhatsAppPrefix("whatsapp:+1"); got != "+1" {
		t.Errorf("StripWhatsAppPrefix = %q; want +1", got)
	}
}

func TestShort(t *testing.T) {
	long := strings.Repeat("é", 200)
	if got := short(long); len([]rune(got)) != logPreview+3 {
		t.Errorf("short rune len = %d; want 183", len([]rune(got)))
	}
	if got := short("oi"); got != "oi" {
		t.Errorf("short(oi) = %q", got)
	}
}
