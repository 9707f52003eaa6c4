package notification

import (
	"fmt"
	"strings"
	"time"

	"fm_servicios_backend/internal/email"
	"fm_servicios_backend/internal/events"
	paysvc "fm_servicios_backend/internal/payments/service"
	quotesvc "fm_servicios_backend/internal/quotes/service"
	"fm_servicios_backend/platform/money"
	"fm_servicios_backend/platform/phone"

	"github.com/shopspring/decimal"
)

const (
	signature = "\n\nSaludos,\nFM Servicios Generales"

	subjectRequestReceived  = "Hemos recibido tu solicitud"
	subjectRequestForStaff  = "Nuevo contacto recibido"
	subjectQuoteReady       = "Tu Cotizacion esta lista"
	subjectQuoteAccepted    = "Cotizacion aceptada"
	subjectQuoteRejected    = "Cotizacion rechazada"
	subjectPaymentAuthFmt   = "Pago autorizado - Cotizacion #%d"
	subjectPaymentDoneFmt   = "Pago realizado con exito - Cotizacion #%d"
	subjectPaymentStaffFmt  = "Pago recibido - Cotizacion #%d"
	subjectVisitScheduled   = "Visita técnica agendada"
	subjectVisitRescheduled = "Visita técnica reprogramada"
	subjectVisitReminder    = "Recordatorio de visita técnica"

	defaultVisitTime = "10:00"
	officeHours      = "08:00 a 20:00"
)

// Reminder is a visit about to happen.
type Reminder struct {
	VisitID       int64
	QuoteID       *int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Technician    string
	Address       string
	StartsAt      time.Time
	Timed         bool
}

func withSignature(body string) string {
	return strings.TrimRight(body, "\n") + signature
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}

func nameOr(name, fallback string) string {
	if name = strings.TrimSpace(name); name == "" {
		return fallback
	}
	return name
}

func serviceOf(n quotesvc.Notice) string {
	if n.ServiceTitle != "" {
		return n.ServiceTitle
	}
	return orDash(n.Subject)
}

func visitLines(v *quotesvc.VisitInfo, place string) []string {
	date, at, tech, addr := "Por definir", defaultVisitTime, "Nuestro tecnico asignado", orDash(place)
	if v != nil {
		date = v.Date.Format("02/01/2006")
		if v.Time != nil {
			at = v.Time.String()
		}
		tech = nameOr(v.Technician, tech)
		addr = orDash(v.Address)
	}
	return []string{
		"- Fecha: " + date,
		fmt.Sprintf("- Hora: %s (horario %s)", at, officeHours),
		"- Tecnico asignado: " + tech,
		"- Direccion: " + addr,
	}
}

func budgetText(b decimal.NullDecimal) string {
	if !b.Valid {
		return "-"
	}
	return money.Thousands(b.Decimal)
}

func requestReceivedMessage(n quotesvc.RequestNotice) email.Message {
	name := nameOr(n.FirstName, nameOr(n.CustomerName, "cliente"))
	var body string
	if n.Covered {
		body = fmt.Sprintf("Hola %s,\n\n"+
			"Recibimos tu solicitud correctamente y la estamos revisando. "+
			"Pronto enviaremos la Cotizacion formal.\n\n"+
			"Gracias por contactarnos.", name)
	} else {
		body = fmt.Sprintf("Hola %s,\n\n"+
			"Recibimos tu solicitud, pero actualmente no contamos con cobertura en %s.\n"+
			"Si deseas coordinar un servicio en otra Ubicacion, escríbenos nuevamente.\n\n"+
			"Gracias por considerar a FM Servicios Generales.", name, orDash(n.Comuna))
	}
	return email.Message{Subject: subjectRequestReceived, To: []string{n.CustomerEmail}, Text: withSignature(body)}
}

func requestForStaffMessage(n quotesvc.RequestNotice, inbox string) email.Message {
	tel := n.Phone
	if tel != "" {
		tel = phone.Display(tel)
	}
	body := strings.Join([]string{
		"Nuevo contacto recibido:",
		"",
		fmt.Sprintf("Nombre: %s %s", orDash(n.FirstName), n.LastName),
		"Correo: " + orDash(n.CustomerEmail),
		"Teléfono: " + orDash(tel),
		"Asunto: " + orDash(n.Subject),
		"Servicio: " + orDash(n.ServiceTitle),
		"Lugar: " + orDash(n.Place),
		fmt.Sprintf("Ubicacion: %s/%s", orDash(n.Region), orDash(n.Comuna)),
		fmt.Sprintf("Cotizacion: #%d", n.QuoteID),
		"Mensaje:",
		orDash(n.Body),
	}, "\n")
	return email.Message{Subject: subjectRequestForStaff, To: []string{inbox}, Text: withSignature(body)}
}

func quoteReadyMessage(n quotesvc.Notice) email.Message {
	lines := []string{
		fmt.Sprintf("Hola %s,", nameOr(n.CustomerName, "cliente")),
		"",
		"Ya revisamos tu solicitud y preparamos la Cotizacion para que la revises.",
		"",
		fmt.Sprintf("Valor estimado: $%s CLP", budgetText(n.Budget)),
		"",
		"Visita programada:",
	}
	lines = append(lines, visitLines(n.Visit, n.Place)...)
	lines = append(lines,
		fmt.Sprintf("- Region/Comuna: %s/%s", orDash(n.Region), orDash(n.Comuna)),
		"",
		"Resumen de tu solicitud:",
		"- Servicio: "+orDash(n.ServiceTitle),
		"- Asunto: "+orDash(n.Subject),
		"- Mensaje: "+orDash(n.Message),
		"",
		"Ingresa a tu cuenta y ve a 'Mis cotizaciones' para aceptar o rechazar esta propuesta.",
	)
	return email.Message{Subject: subjectQuoteReady, To: []string{n.CustomerEmail}, Text: withSignature(strings.Join(lines, "\n"))}
}

func quoteAcceptedMessage(n quotesvc.Notice) email.Message {
	lines := []string{
		fmt.Sprintf("Hola %s,", nameOr(n.CustomerName, "cliente")),
		"",
		"Tu Cotizacion fue aceptada. Muchas gracias por confiar en nosotros.",
		"",
		"Resumen:",
		"- Asunto: " + orDash(n.Subject),
		"- Servicio: " + orDash(n.ServiceTitle),
		fmt.Sprintf("- Ubicacion: %s/%s", orDash(n.Region), orDash(n.Comuna)),
		"- Mensaje: " + orDash(n.Message),
		"- Costo estimado: $" + budgetText(n.Budget),
		"",
		"Visita estimada:",
	}
	lines = append(lines, visitLines(n.Visit, n.Place)...)
	return email.Message{Subject: subjectQuoteAccepted, To: []string{n.CustomerEmail}, Text: withSignature(strings.Join(lines, "\n"))}
}

func quoteRejectedMessage(n quotesvc.Notice) email.Message {
	body := strings.Join([]string{
		fmt.Sprintf("Hola %s,", nameOr(n.CustomerName, "cliente")),
		"",
		"Tu Cotizacion fue rechazada.",
		"",
		"Resumen:",
		"- Asunto: " + orDash(n.Subject),
		"- Servicio: " + orDash(n.ServiceTitle),
		fmt.Sprintf("- Ubicacion: %s/%s", orDash(n.Region), orDash(n.Comuna)),
		"- Mensaje: " + orDash(n.Message),
		"",
		"Motivo del rechazo:",
		"- " + nameOr(n.Reason, "Motivo no especificado"),
		"",
		"Si necesitas más información contáctanos.",
	}, "\n")
	return email.Message{Subject: subjectQuoteRejected, To: []string{n.CustomerEmail}, Text: withSignature(body)}
}

func paymentAuthorizedMessage(n quotesvc.PaymentNotice, qr []byte) email.Message {
	lines := []string{
		fmt.Sprintf("Hola %s,", nameOr(n.CustomerName, "cliente")),
		"",
		fmt.Sprintf("Autorizamos el pago de tu Cotizacion #%d.", n.QuoteID),
		"Monto total: " + money.CLP(n.Amount),
		"Servicio: " + serviceOf(n.Notice),
		fmt.Sprintf("Ubicacion: %s / %s", orDash(n.Region), orDash(n.Comuna)),
		"",
		"Puedes pagar directamente en este enlace: " + n.PayURL,
	}
	msg := email.Message{Subject: fmt.Sprintf(subjectPaymentAuthFmt, n.QuoteID), To: []string{n.CustomerEmail}}
	if len(qr) > 0 {
		lines = append(lines, "", "Tambien puedes escanear el codigo QR adjunto.")
		msg.Attachments = []email.Attachment{{
			Content:  qr,
			FileName: fmt.Sprintf("pago_cotizacion_%d.png", n.QuoteID),
			MIMEType: "image/png",
		}}
	}
	msg.Text = withSignature(strings.Join(lines, "\n"))
	return msg
}

func paymentReceiptMessage(r paysvc.Receipt) email.Message {
	q := r.Quote
	status := q.Gateway.Status
	if status == "" {
		status = string(q.Status)
	}
	reference := q.Gateway.AuthCode
	if reference == "" {
		reference = orDash(q.Gateway.Token)
	}
	body := strings.Join([]string{
		fmt.Sprintf("Hola %s,", nameOr(q.CustomerName, "cliente")),
		"",
		fmt.Sprintf("Pago realizado con exito en %s. Recibimos tu pago correctamente.", r.Provider),
		"",
		"Detalle del pago:",
		fmt.Sprintf("- Cotizacion: #%d", q.ID),
		"- Monto: " + money.CLP(r.Amount),
		"- Estado: " + status,
		"- Referencia: " + reference,
		"",
		"Adjuntamos tu factura en PDF.",
		"",
		"Gracias por confiar en FM Servicios Generales.",
	}, "\n")

	msg := email.Message{Subject: fmt.Sprintf(subjectPaymentDoneFmt, q.ID), To: []string{q.CustomerEmail}, Text: withSignature(body)}
	if len(r.PDF) > 0 {
		name := r.FileName
		if name == "" {
			name = fmt.Sprintf("factura_cotizacion_%d.pdf", q.ID)
		}
		msg.Attachments = []email.Attachment{{Content: r.PDF, FileName: name, MIMEType: "application/pdf"}}
	}
	return msg
}

func paymentStaffMessage(e events.PaymentCompleted, inbox string) email.Message {
	body := strings.Join([]string{
		fmt.Sprintf("Se completo el pago de la Cotizacion #%d.", e.QuoteID),
		"",
		"- Monto: " + money.CLP(decimal.NewFromInt(e.Amount)),
		"- Codigo de autorizacion: " + orDash(e.AuthCode),
	}, "\n")
	return email.Message{Subject: fmt.Sprintf(subjectPaymentStaffFmt, e.QuoteID), To: []string{inbox}, Text: withSignature(body)}
}

func paymentSMS(e events.PaymentCompleted) string {
	return fmt.Sprintf("FM Servicios Generales: recibimos tu pago de %s por la Cotizacion #%d. Gracias.",
		money.CLP(decimal.NewFromInt(e.Amount)), e.QuoteID)
}

// slotText splits a wall-clock visit start into display date and time.
func slotText(startsAt time.Time, timed bool) (string, string) {
	date := startsAt.Format("02/01/2006")
	if !timed {
		return date, defaultVisitTime
	}
	return date, startsAt.Format("15:04")
}

func visitScheduledMessage(e events.VisitScheduled) email.Message {
	date, at := slotText(e.StartsAt, e.Timed)
	body := strings.Join([]string{
		fmt.Sprintf("Hola %s,", nameOr(e.CustomerName, "cliente")),
		"",
		"Agendamos una visita técnica con los siguientes datos:",
		"- Fecha: " + date,
		fmt.Sprintf("- Hora: %s (nuestro horario es de %s)", at, officeHours),
		"- Técnico asignado: " + orDash(e.TechnicianName),
		"- Direccion: " + orDash(e.Address),
		fmt.Sprintf("- Región/Comuna: %s/%s", orDash(e.Region), orDash(e.Comuna)),
		"",
		"Notas: " + orDash(e.Notes),
	}, "\n")
	return email.Message{Subject: subjectVisitScheduled, To: []string{e.CustomerEmail}, Text: withSignature(body)}
}

func visitRescheduledMessage(e events.VisitRescheduled) email.Message {
	date, at := slotText(e.StartsAt, e.Timed)
	body := strings.Join([]string{
		fmt.Sprintf("Hola %s,", nameOr(e.CustomerName, "cliente")),
		"",
		"Tu visita técnica cambió de fecha:",
		"- Fecha: " + date,
		fmt.Sprintf("- Hora: %s (nuestro horario es de %s)", at, officeHours),
		"- Técnico asignado: " + orDash(e.TechnicianName),
		"- Direccion: " + orDash(e.Address),
	}, "\n")
	return email.Message{Subject: subjectVisitRescheduled, To: []string{e.CustomerEmail}, Text: withSignature(body)}
}

func reminderMessage(r Reminder) email.Message {
	date, at := slotText(r.StartsAt, r.Timed)
	body := strings.Join([]string{
		fmt.Sprintf("Hola %s,", nameOr(r.CustomerName, "cliente")),
		"",
		"Te recordamos tu visita técnica:",
		"- Fecha: " + date,
		"- Hora: " + at,
		"- Técnico asignado: " + orDash(r.Technician),
		"- Direccion: " + orDash(r.Address),
	}, "\n")
	return email.Message{Subject: subjectVisitReminder, To: []string{r.CustomerEmail}, Text: withSignature(body)}
}

func reminderSMS(r Reminder) string {
	date, at := slotText(r.StartsAt, r.Timed)
	return fmt.Sprintf("FM Servicios Generales: te recordamos tu visita técnica el %s a las %s con %s.",
		date, at, nameOr(r.Technician, "nuestro técnico"))
}
