package deploy

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"scene2d.dev/catalyst/authchain"
	"scene2d.dev/catalyst/client"
	"scene2d.dev/catalyst/entity"
)

// Form assembles the multipart submission envelope: one text part named
// entityId, the auth-chain fields, then one binary part per payload
// named by its ContentId.
//
// Part names are the deduplication guarantee: two files with identical
// content collapse to the same ContentId and are uploaded once. Pure
// assembly; no I/O happens here.
func Form(entityID entity.ContentId, chain authchain.Chain, files []FileData) (client.Envelope, error) {
	fields, err := authchain.FormFields(chain)
	if err != nil {
		return client.Envelope{}, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("entityId", entityID.String()); err != nil {
		return client.Envelope{}, fmt.Errorf("deploy: writing entityId field: %w", err)
	}
	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return client.Envelope{}, fmt.Errorf("deploy: writing auth field %s: %w", f.Name, err)
		}
	}

	seen := make(map[entity.ContentId]bool, len(files))
	for _, f := range files {
		if seen[f.CID] {
			continue
		}
		seen[f.CID] = true

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, f.CID.String(), f.CID.String()))
		header.Set("Content-Type", f.MIME)

		part, err := w.CreatePart(header)
		if err != nil {
			return client.Envelope{}, fmt.Errorf("deploy: creating part %s: %w", f.CID, err)
		}
		if _, err := part.Write(f.Bytes); err != nil {
			return client.Envelope{}, fmt.Errorf("deploy: writing part %s: %w", f.CID, err)
		}
	}

	if err := w.Close(); err != nil {
		return client.Envelope{}, fmt.Errorf("deploy: finalizing envelope: %w", err)
	}
	return client.Envelope{ContentType: w.FormDataContentType(), Body: buf.Bytes()}, nil
}
