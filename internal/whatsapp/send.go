package whatsapp

import (
	"context"
	"strings"
)

// SendIntakeInvite sends the configured confirmation template for one
// appointment. displayTime is the human-readable "<date> at <time>" string;
// the template carries date and time in separate body slots. The URL button
// receives only the token slug because the template fixes the link prefix.
func (c *Client) SendIntakeInvite(ctx context.Context, to, patientName, displayTime, intakeURL string) error {
	datePart, timePart := splitDisplayTime(displayTime)
	req := TemplateRequest{
		To:             to,
		TemplateName:   c.templateName,
		HeaderImageID:  c.headerImageID,
		BodyParams:     []string{patientName, datePart, timePart},
		ButtonURLParam: tokenSlug(intakeURL),
	}
	_, err := c.SendTemplate(ctx, req)
	return err
}

func splitDisplayTime(displayTime string) (string, string) {
	parts := strings.SplitN(displayTime, " at ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return displayTime, ""
}

func tokenSlug(intakeURL string) string {
	trimmed := strings.TrimRight(intakeURL, "/")
	if trimmed == "" {
		return ""
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return trimmed + "/"
}
