package templates

import (
	"fmt"
	"html"
)

// RenderReminderEmail generates the HTML body of a dose reminder email
func RenderReminderEmail(medication, dosage, timeOfDay string) string {
	body := fmt.Sprintf(`<p>It is time to take your medication.</p>
      <table class="dose">
        <tr><td class="label">Medication</td><td>%s</td></tr>
        <tr><td class="label">Dosage</td><td>%s</td></tr>
        <tr><td class="label">Scheduled time</td><td>%s</td></tr>
      </table>
      <p>Once you have taken it, mark the dose as taken in the app.</p>`,
		html.EscapeString(medication), html.EscapeString(dosage), html.EscapeString(timeOfDay))

	return renderEmail("Medication reminder", body)
}

// renderEmail places an already escaped body inside the branded layout
func renderEmail(subject, body string) string {
	safeSubject := html.EscapeString(subject)

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: Arial, Helvetica, sans-serif; margin: 0; padding: 0; background-color: #f3f6f9; }
    .container { max-width: 560px; margin: 0 auto; background-color: #ffffff; }
    .header { background-color: #1f9d8b; padding: 32px 24px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 22px; }
    .content { padding: 32px 24px; color: #1f2933; line-height: 1.6; font-size: 15px; }
    .dose td { padding: 4px 12px 4px 0; }
    .dose .label { color: #52606d; }
    .footer { padding: 24px; text-align: center; color: #7b8794; font-size: 12px; border-top: 1px solid #e4e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
    </div>
    <div class="footer">
      <p>You receive this email because reminders are enabled for one of your treatments.</p>
    </div>
  </div>
</body>
</html>`, safeSubject, safeSubject, body)
}
