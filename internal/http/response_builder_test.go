package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("HX-Trigger set without triggers: %q", w.Header().Get("HX-Trigger"))
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerExpenseCreated("mem:3").
		TriggerFormReset().
		TriggerSuccessNotification("¡Guardado!").
		Write(w)

	var got map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &got); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, event := range []string{EventExpenseCreated, EventFormReset, EventNotification} {
		if _, ok := got[event]; !ok {
			t.Errorf("HX-Trigger missing %q", event)
		}
	}
	if !strings.Contains(string(got[EventExpenseCreated]), `"ref":"mem:3"`) {
		t.Errorf("expense:created payload = %s", got[EventExpenseCreated])
	}
	if !strings.Contains(string(got[EventNotification]), `"type":"success"`) {
		t.Errorf("notification payload = %s", got[EventNotification])
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad request",
			builder:    BadRequestError("Solicitud inválida"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="alert error" role="alert">Solicitud inválida</div>`,
		},
		{
			name:       "unprocessable entity",
			builder:    UnprocessableEntityError(msgInvalidAmount),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `<div class="alert error" role="alert">Escribe un monto válido.</div>`,
		},
		{
			name:       "bad gateway",
			builder:    BadGatewayError("Error al guardar"),
			wantStatus: http.StatusBadGateway,
			wantBody:   `<div class="alert error" role="alert">Error al guardar</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError("<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}

func TestUnauthorizedRedirects(t *testing.T) {
	w := httptest.NewRecorder()

	UnauthorizedError().Write(w)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if got := w.Header().Get("HX-Redirect"); got != "/" {
		t.Errorf("HX-Redirect = %q, want /", got)
	}
}

func TestNotificationTypes(t *testing.T) {
	tests := []struct {
		notifType NotificationType
		want      string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		NewHTMXResponse().
			TriggerNotification(tt.notifType, "test", 1000).
			Write(w)

		trigger := w.Header().Get("HX-Trigger")
		if !strings.Contains(trigger, `"type":"`+tt.want+`"`) {
			t.Errorf("Notification type %q not found in trigger: %s", tt.want, trigger)
		}
	}
}
