package core

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// fromPattern matches `"Name" <email>` as well as bare `email` From headers
var fromPattern = regexp.MustCompile(`^"?([^"<]*)"?\s*<?([^>]+)>?$`)

// ExtractContent extracts body content and sender metadata from a message.
// It never fails: any decode or parse problem degrades to empty content
// plus best-effort metadata.
func ExtractContent(msg *Message) ExtractedContent {
	content := ExtractedContent{}
	if msg == nil || msg.Payload == nil {
		return content
	}

	content.Metadata = extractMetadata(msg.Payload.Headers)

	if body := firstLeafBody(msg.Payload, "text/html"); body != "" {
		content.Body = body
		return content
	}
	content.Body = firstLeafBody(msg.Payload, "text/plain")
	return content
}

// firstLeafBody walks the part tree depth-first and returns the decoded
// body of the first leaf with the wanted content type. The walk is
// iterative so adversarially nested messages cannot exhaust the call
// stack. A message without sub-parts is treated as its own sole leaf.
func firstLeafBody(root *MessagePart, mimeType string) string {
	stack := []*MessagePart{root}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(part.Parts) > 0 {
			// Push children in reverse so they pop in listed order
			for i := len(part.Parts) - 1; i >= 0; i-- {
				if part.Parts[i] != nil {
					stack = append(stack, part.Parts[i])
				}
			}
			continue
		}

		if !strings.EqualFold(part.MimeType, mimeType) {
			continue
		}
		if part.Body == nil || part.Body.Data == "" {
			continue
		}
		if decoded, ok := decodeBody(part.Body.Data); ok {
			return decoded
		}
		// Undecodable leaf: keep walking
	}
	return ""
}

// decodeBody decodes Gmail's base64url body data, which may arrive padded
// or unpadded
func decodeBody(data string) (string, bool) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b), true
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b), true
	}
	return "", false
}

// extractMetadata parses sender, subject and date headers. Every field
// defaults to the empty string when parsing fails.
func extractMetadata(headers []Header) SenderMetadata {
	md := SenderMetadata{}

	for _, h := range headers {
		switch strings.ToLower(h.Name) {
		case "from":
			md.Sender = h.Value
			parseFrom(h.Value, &md)
		case "subject":
			md.Subject = h.Value
		case "date":
			md.Date = h.Value
		}
	}

	md.SenderName = strings.TrimSpace(strings.Trim(md.SenderName, `"'`))

	// No display name anywhere: make the first domain label readable,
	// e.g. amazon.com -> Amazon
	if md.SenderName == "" && md.Domain != "" {
		label := md.Domain
		if idx := strings.IndexByte(label, '.'); idx > 0 {
			label = label[:idx]
		}
		if label != "" {
			md.SenderName = strings.ToUpper(label[:1]) + label[1:]
		}
	}

	return md
}

func parseFrom(value string, md *SenderMetadata) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	// The pattern backtracks badly on a bare address, so only trust a
	// match whose captured email looks like one
	if m := fromPattern.FindStringSubmatch(value); m != nil && strings.Contains(m[2], "@") {
		name := strings.TrimSpace(m[1])
		email := strings.TrimSpace(m[2])
		md.SenderEmail = email
		if name != "" {
			md.SenderName = name
		} else if at := strings.IndexByte(email, '@'); at > 0 {
			md.SenderName = email[:at]
		}
		if at := strings.IndexByte(email, '@'); at >= 0 && at < len(email)-1 {
			md.Domain = strings.ToLower(email[at+1:])
		}
		return
	}

	// Fallback: treat the whole value as an address
	md.SenderEmail = value
	if at := strings.IndexByte(value, '@'); at >= 0 {
		md.SenderName = value[:at]
		if at < len(value)-1 {
			md.Domain = strings.ToLower(value[at+1:])
		}
	}
}
