package evaluate

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"attest/domain/assessment"
	"attest/ports"
)

// prepareWorkers bounds the fan-out used for per-control evidence
// preparation. The transforms are pure and order-independent; results land
// in an indexed slice so output order matches input order.
const prepareWorkers = 4

// prepareAttachments converts a control's evidence files to transport-ready
// form. Office documents are reduced to extracted plain text, because the
// LLM boundary accepts only image/PDF/plain-text payloads; everything else
// becomes a base64 data URL.
func prepareAttachments(ctx context.Context, files []assessment.EvidenceFile) ([]ports.EvidenceAttachment, error) {
	out := make([]ports.EvidenceAttachment, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prepareWorkers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			att, err := toAttachment(f)
			if err != nil {
				return fmt.Errorf("prepare %s: %w", f.Name, err)
			}
			out[i] = att
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func toAttachment(f assessment.EvidenceFile) (ports.EvidenceAttachment, error) {
	switch strings.ToLower(path.Ext(f.Name)) {
	case ".docx", ".doc":
		text, err := ExtractDocText(f.Content)
		if err != nil {
			return ports.EvidenceAttachment{}, err
		}
		return ports.EvidenceAttachment{
			Name:     f.Name,
			MimeType: "text/plain",
			Text:     text,
		}, nil
	}

	return ports.EvidenceAttachment{
		Name:     f.Name,
		MimeType: f.MimeType,
		DataURL: fmt.Sprintf("data:%s;base64,%s",
			f.MimeType, base64.StdEncoding.EncodeToString(f.Content)),
	}, nil
}

// ExtractDocText pulls the readable text out of a DOCX payload. A .docx is
// a ZIP of XML parts; the body text lives in word/document.xml as w:t runs
// with w:p paragraph boundaries. Legacy binary .doc files fail here and the
// failure surfaces as a per-file preparation error.
func ExtractDocText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("not a readable document archive: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("document archive has no word/document.xml part")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
