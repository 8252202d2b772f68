package whatsapp

import (
	"errors"
	"strings"
)

// TemplateRequest describes one outbound template send.
type TemplateRequest struct {
	To             string
	TemplateName   string
	LanguageCode   string
	HeaderImageID  string
	BodyParams     []string
	ButtonURLParam string
}

func (r TemplateRequest) validate() error {
	if strings.TrimSpace(r.To) == "" {
		return errors.New("whatsapp: recipient phone required")
	}
	if strings.TrimSpace(r.TemplateName) == "" {
		return errors.New("whatsapp: template name required")
	}
	return nil
}

// message builds the Graph API /messages body for this request.
func (r TemplateRequest) message() templateMessage {
	lang := r.LanguageCode
	if lang == "" {
		lang = "en"
	}

	var components []component
	if r.HeaderImageID != "" {
		components = append(components, component{
			Type: "header",
			Parameters: []parameter{
				{Type: "image", Image: &imageRef{ID: r.HeaderImageID}},
			},
		})
	}
	if len(r.BodyParams) > 0 {
		params := make([]parameter, 0, len(r.BodyParams))
		for _, p := range r.BodyParams {
			params = append(params, parameter{Type: "text", Text: p})
		}
		components = append(components, component{Type: "body", Parameters: params})
	}
	if r.ButtonURLParam != "" {
		components = append(components, component{
			Type:    "button",
			SubType: "url",
			Index:   "0",
			Parameters: []parameter{
				{Type: "text", Text: r.ButtonURLParam},
			},
		})
	}

	return templateMessage{
		MessagingProduct: "whatsapp",
		To:               sanitizePhone(r.To),
		Type:             "template",
		Template: template{
			Name:       r.TemplateName,
			Language:   language{Code: lang},
			Components: components,
		},
	}
}

// templateMessage mirrors the WhatsApp Cloud API template send payload.
type templateMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Template         template `json:"template"`
}

type template struct {
	Name       string      `json:"name"`
	Language   language    `json:"language"`
	Components []component `json:"components,omitempty"`
}

type language struct {
	Code string `json:"code"`
}

type component struct {
	Type       string      `json:"type"`
	SubType    string      `json:"sub_type,omitempty"`
	Index      string      `json:"index,omitempty"`
	Parameters []parameter `json:"parameters,omitempty"`
}

type parameter struct {
	Type  string    `json:"type"`
	Text  string    `json:"text,omitempty"`
	Image *imageRef `json:"image,omitempty"`
}

type imageRef struct {
	ID string `json:"id"`
}

// SendResponse carries the gateway's acknowledgment of a send.
type SendResponse struct {
	MessageID string
	WaID      string
}

type sendEnvelope struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Contacts []struct {
		WaID string `json:"wa_id"`
	} `json:"contacts"`
}

// sanitizePhone strips everything but digits; the Cloud API wants country
// code plus number with no plus sign.
func sanitizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
