package core

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func encodeBody(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func leafPart(mimeType, body string) *MessagePart {
	return &MessagePart{
		MimeType: mimeType,
		Body:     &MessagePartBody{Data: encodeBody(body)},
	}
}

// TestExtractContent_PrefersHTMLOverPlain tests that the HTML part wins
// even when a plain-text part appears first in the tree
func TestExtractContent_PrefersHTMLOverPlain(t *testing.T) {
	// Arrange
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*MessagePart{
				leafPart("text/plain", "plain version"),
				leafPart("text/html", "<p>html version</p>"),
			},
		},
	}

	// Act
	content := ExtractContent(msg)

	// Assert
	assert.Equal(t, "<p>html version</p>", content.Body)
}

// TestExtractContent_FallsBackToPlainText tests the plain-text fallback
// when no HTML part exists
func TestExtractContent_FallsBackToPlainText(t *testing.T) {
	// Arrange
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*MessagePart{
				leafPart("text/plain", "plain only"),
				leafPart("application/pdf", "not text"),
			},
		},
	}

	// Act
	content := ExtractContent(msg)

	// Assert
	assert.Equal(t, "plain only", content.Body)
}

// TestExtractContent_PartlessMessage tests that a message without
// sub-parts is treated as its own sole leaf
func TestExtractContent_PartlessMessage(t *testing.T) {
	// Arrange
	msg := &Message{ID: "m1", Payload: leafPart("text/html", "<p>single</p>")}

	// Act
	content := ExtractContent(msg)

	// Assert
	assert.Equal(t, "<p>single</p>", content.Body)
}

// TestExtractContent_NeverFails tests that nil and empty inputs degrade
// to empty content
func TestExtractContent_NeverFails(t *testing.T) {
	assert.Equal(t, ExtractedContent{}, ExtractContent(nil))
	assert.Equal(t, ExtractedContent{}, ExtractContent(&Message{ID: "m1"}))
	assert.Empty(t, ExtractContent(&Message{ID: "m1", Payload: &MessagePart{MimeType: "text/html"}}).Body)
}

// TestExtractContent_SkipsUndecodableLeaf tests that a corrupt leaf does
// not mask a later decodable one
func TestExtractContent_SkipsUndecodableLeaf(t *testing.T) {
	// Arrange
	corrupt := &MessagePart{
		MimeType: "text/html",
		Body:     &MessagePartBody{Data: "%%%not-base64%%%"},
	}
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "multipart/alternative",
			Parts:    []*MessagePart{corrupt, leafPart("text/html", "<p>good</p>")},
		},
	}

	// Act
	content := ExtractContent(msg)

	// Assert
	assert.Equal(t, "<p>good</p>", content.Body)
}

// TestExtractContent_UnpaddedBase64 tests that Gmail's unpadded body
// encoding decodes
func TestExtractContent_UnpaddedBase64(t *testing.T) {
	// Arrange
	raw := base64.RawURLEncoding.EncodeToString([]byte("<p>unpadded</p>"))
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/html",
			Body:     &MessagePartBody{Data: raw},
		},
	}

	// Act
	content := ExtractContent(msg)

	// Assert
	assert.Equal(t, "<p>unpadded</p>", content.Body)
}

// TestExtractContent_Deterministic tests that repeated extraction of the
// same message yields identical results
func TestExtractContent_Deterministic(t *testing.T) {
	// Arrange
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "multipart/alternative",
			Headers: []Header{
				{Name: "From", Value: `"Deals" <deals@example.com>`},
			},
			Parts: []*MessagePart{
				leafPart("text/html", "<p>a</p>"),
				leafPart("text/html", "<p>b</p>"),
			},
		},
	}

	// Act + Assert
	first := ExtractContent(msg)
	assert.Equal(t, "<p>a</p>", first.Body)
	assert.Equal(t, first, ExtractContent(msg))
}

// TestExtractContent_ParsesNameAddrFrom tests the `"Name" <email>` form
func TestExtractContent_ParsesNameAddrFrom(t *testing.T) {
	// Arrange
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/plain",
			Headers: []Header{
				{Name: "From", Value: `"Amazing Deals" <deals@shopping.example.com>`},
				{Name: "Subject", Value: "50% off everything"},
				{Name: "Date", Value: "Mon, 2 Jun 2025 10:00:00 +0000"},
			},
			Body: &MessagePartBody{Data: encodeBody("hello")},
		},
	}

	// Act
	md := ExtractContent(msg).Metadata

	// Assert
	assert.Equal(t, `"Amazing Deals" <deals@shopping.example.com>`, md.Sender)
	assert.Equal(t, "Amazing Deals", md.SenderName)
	assert.Equal(t, "deals@shopping.example.com", md.SenderEmail)
	assert.Equal(t, "shopping.example.com", md.Domain)
	assert.Equal(t, "50% off everything", md.Subject)
	assert.Equal(t, "Mon, 2 Jun 2025 10:00:00 +0000", md.Date)
}

// TestExtractContent_BareAddressFrom tests that a bare address falls
// back to the local part for the sender name
func TestExtractContent_BareAddressFrom(t *testing.T) {
	// Arrange
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/plain",
			Headers:  []Header{{Name: "From", Value: "news@amazon.com"}},
			Body:     &MessagePartBody{Data: encodeBody("hello")},
		},
	}

	// Act
	md := ExtractContent(msg).Metadata

	// Assert
	assert.Equal(t, "news", md.SenderName)
	assert.Equal(t, "news@amazon.com", md.SenderEmail)
	assert.Equal(t, "amazon.com", md.Domain)
}

// TestExtractContent_SenderNameFromDomainLabel tests the last-resort
// fallback that capitalizes the first domain label
func TestExtractContent_SenderNameFromDomainLabel(t *testing.T) {
	// Arrange
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/plain",
			Headers:  []Header{{Name: "From", Value: "<@amazon.com>"}},
			Body:     &MessagePartBody{Data: encodeBody("hello")},
		},
	}

	// Act
	md := ExtractContent(msg).Metadata

	// Assert
	assert.Equal(t, "Amazon", md.SenderName)
	assert.Equal(t, "amazon.com", md.Domain)
}

// TestExtractContent_MissingFromHeader tests that metadata fields stay
// empty rather than absent
func TestExtractContent_MissingFromHeader(t *testing.T) {
	// Arrange
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/plain",
			Headers:  []Header{{Name: "Subject", Value: "no sender"}},
			Body:     &MessagePartBody{Data: encodeBody("hello")},
		},
	}

	// Act
	md := ExtractContent(msg).Metadata

	// Assert
	assert.Empty(t, md.Sender)
	assert.Empty(t, md.SenderName)
	assert.Empty(t, md.SenderEmail)
	assert.Empty(t, md.Domain)
	assert.Equal(t, "no sender", md.Subject)
}
