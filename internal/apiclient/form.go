package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// Form is a multipart/form-data payload for PostForm.
// The Content-Type header, including the boundary, comes from the encoder;
// the client never sets application/json on form requests.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name, value string
}

type formFile struct {
	field, filename string
	data            []byte
	reader          io.Reader
}

// NewForm creates an empty form.
func NewForm() *Form {
	return &Form{}
}

// AddField appends a plain text field.
func (f *Form) AddField(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// AddFile appends a file part with in-memory content.
func (f *Form) AddFile(field, filename string, data []byte) *Form {
	f.files = append(f.files, formFile{field: field, filename: filename, data: data})
	return f
}

// AddReader appends a file part whose content is read from r when the form is encoded.
// The reader is consumed once; retries reuse the encoded bytes.
func (f *Form) AddReader(field, filename string, r io.Reader) *Form {
	f.files = append(f.files, formFile{field: field, filename: filename, reader: r})
	return f
}

// encode renders the form and returns the body and its Content-Type.
func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, field := range f.fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("write form field %q: %w", field.name, err)
		}
	}

	for i := range f.files {
		file := &f.files[i]
		part, err := w.CreateFormFile(file.field, file.filename)
		if err != nil {
			return nil, "", fmt.Errorf("create form file %q: %w", file.filename, err)
		}
		if file.reader != nil {
			data, err := io.ReadAll(file.reader)
			if err != nil {
				return nil, "", fmt.Errorf("read form file %q: %w", file.filename, err)
			}
			file.data, file.reader = data, nil
		}
		if _, err := part.Write(file.data); err != nil {
			return nil, "", fmt.Errorf("write form file %q: %w", file.filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
