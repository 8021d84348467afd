// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// Message is a rendered notification body.
type Message struct {
	Subject  string
	TextBody string
	HTMLBody string
}

// OwnerAddedData holds data for the owner-added message.
type OwnerAddedData struct {
	SiteName  string
	GroupName string
	Username  string
}

// BuildOwnerAddedMessage renders the message sent to a user who was just
// made an owner of a group. The subject names the group.
func BuildOwnerAddedMessage(data OwnerAddedData) Message {
	return Message{
		Subject:  fmt.Sprintf("You've been added as an owner of the %s group", data.GroupName),
		TextBody: buildOwnerAddedText(data),
		HTMLBody: buildOwnerAddedHTML(data),
	}
}

func buildOwnerAddedText(data OwnerAddedData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.Username)
	fmt.Fprintf(&buf, "You've been added as an owner of the %s group", data.GroupName)
	if data.SiteName != "" {
		fmt.Fprintf(&buf, " on %s", data.SiteName)
	}
	buf.WriteString(".\n\n")
	buf.WriteString("As an owner you can add and remove members and manage membership requests.\n")
	return buf.String()
}

var ownerAddedHTML = template.Must(template.New("owner_added").Parse(ownerAddedHTMLTemplate))

func buildOwnerAddedHTML(data OwnerAddedData) string {
	var buf bytes.Buffer
	_ = ownerAddedHTML.Execute(&buf, data)
	return buf.String()
}

const ownerAddedHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Group Owner</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          {{if .SiteName}}
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          {{end}}
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151;">Hi {{.Username}},</p>
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151; line-height: 1.5;">
                You've been added as an owner of the <strong>{{.GroupName}}</strong> group.
              </p>
              <p style="margin: 0; font-size: 14px; color: #6b7280;">
                As an owner you can add and remove members and manage membership requests.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
