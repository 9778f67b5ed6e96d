package smtpd

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// extractParts pulls the text/plain and text/html bodies out of an email
// message. Non-multipart messages return the whole body as text.
func extractParts(msg *mail.Message) (text, html string, err error) {
	contentType := msg.Header.Get("Content-Type")

	if !strings.Contains(strings.ToLower(contentType), "multipart/") {
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", "", err
		}
		if strings.Contains(strings.ToLower(contentType), "text/html") {
			return "", string(body), nil
		}
		return string(body), "", nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		body, rerr := io.ReadAll(msg.Body)
		if rerr != nil {
			return "", "", rerr
		}
		return string(body), "", nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		body, rerr := io.ReadAll(msg.Body)
		if rerr != nil {
			return "", "", rerr
		}
		return string(body), "", nil
	}

	mr := multipart.NewReader(msg.Body, boundary)
	var textBuf, htmlBuf bytes.Buffer

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		partType := strings.ToLower(part.Header.Get("Content-Type"))
		switch {
		case strings.Contains(partType, "text/plain"):
			b, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			textBuf.Write(b)
			textBuf.WriteString("\n")
		case strings.Contains(partType, "text/html"):
			b, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			htmlBuf.Write(b)
		}
		// nested multiparts and attachments are skipped
	}

	return textBuf.String(), htmlBuf.String(), nil
}
