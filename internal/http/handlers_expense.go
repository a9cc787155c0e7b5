package http

import (
	"errors"
	"html/template"
	"net/http"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

const (
	msgSaved         = "¡Guardado!"
	msgInvalidAmount = "Escribe un monto válido."
	msgStoreFailure  = "Error al guardar: no se pudo escribir en el almacén. Tus datos siguen en el formulario."
)

// validationMessage maps a core validation error to the text shown next to
// the form.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return msgInvalidAmount
	case errors.Is(err, core.ErrInvalidDate):
		return "Escribe una fecha válida."
	case errors.Is(err, core.ErrInvalidCategory):
		return "Elige una categoría."
	case errors.Is(err, core.ErrInvalidPayer):
		return "Elige quién pagó."
	case errors.Is(err, core.ErrInvalidPayment):
		return "Elige un método de pago."
	default:
		return "Revisa los datos del gasto."
	}
}

// handleCreateExpense records one expense. Failures leave the form as the
// user typed it; only success resets it.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		logger.WarnContext(ctx, "Unparseable expense submission", applog.FieldError, err)
		s.expenseError(w, p, http.StatusBadRequest, "Solicitud inválida.")
		return
	}

	in := ExpenseInputFrom(p)
	e, err := in.Expense(today(s.now(), s.location))
	if err != nil {
		logger.InfoContext(ctx, "Expense rejected",
			applog.FieldError, err,
			"amount", in.Amount,
			applog.FieldCategory, in.Category)
		s.expenseError(w, p, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	ref, err := s.recorder.Record(ctx, e)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrStoreWrite):
		s.expenseError(w, p, http.StatusBadGateway, msgStoreFailure)
		return
	default:
		s.expenseError(w, p, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	if p.IsJSON() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "ref": ref})
		return
	}
	NewHTMXResponse().
		TriggerExpenseCreated(ref).
		TriggerFormReset().
		TriggerSuccessNotification(msgSaved).
		BodyHTML(`<div class="alert success" role="status">` + msgSaved + ` ` +
			template.HTMLEscapeString(e.Category.Label()) + ` · ` +
			template.HTMLEscapeString(e.Amount.Display()) + `</div>`).
		Write(w)
}

func (s *Server) expenseError(w http.ResponseWriter, p *RequestBodyParser, status int, msg string) {
	if p.IsJSON() {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	ErrorResponse(status, msg).Write(w)
}
