package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	trerrors "github.com/trove-dev/trove/internal/errors"
)

// pdfText pulls the plain-text stream out of a PDF. The pdf package panics
// on some malformed inputs instead of returning an error, so the whole read
// runs under a recover that converts the panic into an extraction failure.
func pdfText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = trerrors.New(trerrors.CodeExtractFailed, fmt.Sprintf("parse pdf %s: %v", path, r))
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", trerrors.Wrapf(trerrors.CodeExtractFailed, err, "open pdf %s", path)
	}
	defer func() { _ = f.Close() }()

	body, err := reader.GetPlainText()
	if err != nil {
		return "", trerrors.Wrapf(trerrors.CodeExtractFailed, err, "extract pdf %s", path)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, body); err != nil {
		return "", trerrors.Wrapf(trerrors.CodeExtractFailed, err, "extract pdf %s", path)
	}
	return sb.String(), nil
}
