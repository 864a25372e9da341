package services

import (
	"bytes"
	"html/template"
	"strings"
)

const (
	confirmationSubject = "Request registered - Hour bank (%s)"
	cancellationSubject = "Request cancelled - Hour bank"
	rejectionSubject    = "Request rejected - Hour bank (%s)"
)

var mailTemplates = template.Must(template.New("mail").Parse(`
{{define "confirmation"}}<div style="font-family: Calibri, Arial, sans-serif; max-width:650px; margin:0 auto;">
  <p>Your request has been registered. These are the details:</p>
  <ul>
    <li><b>Reservation ID:</b> {{.ReservationID}}</li>
    <li><b>Campaign:</b> {{.Campaign}}</li>
    <li><b>Date:</b> {{.Date}}</li>
    <li><b>Time:</b> {{.Span}}</li>
    <li><b>Hours:</b> {{.Hours}}</li>
  </ul>
  <p>You can cancel this request up to one day before the booked date.{{if .AppURL}} New requests can be made from the <a href="{{.AppURL}}">hour bank</a>.{{end}}</p>
</div>{{end}}
{{define "cancellation"}}<div style="font-family: Calibri, Arial, sans-serif; max-width:650px; margin:0 auto;">
  <p>Your request has been cancelled.</p>
  <ul>
    {{if .ReservationID}}<li><b>Reservation ID:</b> {{.ReservationID}}</li>{{end}}
    <li><b>Campaign:</b> {{.Campaign}}</li>
    <li><b>Date:</b> {{.Date}}</li>
    <li><b>Time:</b> {{.Span}}</li>
  </ul>
  {{if .AppURL}}<p>New requests can be made from the <a href="{{.AppURL}}">hour bank</a>.</p>{{end}}
</div>{{end}}
{{define "rejection"}}<div style="font-family: Calibri, Arial, sans-serif; max-width:650px; margin:0 auto;">
  <p>Your request has been reviewed and rejected.</p>
  <ul>
    <li><b>Campaign:</b> {{.Campaign}}</li>
    <li><b>Date:</b> {{.Date}}</li>
    <li><b>Time:</b> {{.Span}}</li>
    <li><b>Hours:</b> {{.Hours}}</li>
  </ul>
  {{if .AppURL}}<p>You can make a new request from the <a href="{{.AppURL}}">hour bank</a>.</p>{{end}}
</div>{{end}}
`))

type mailData struct {
	ReservationID string
	Campaign      string
	Date          string
	Span          string
	Hours         int
	AppURL        string
}

func renderMail(name string, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isEmail(s string) bool {
	return strings.Contains(s, "@")
}
