// Package extract turns files into the character streams the indexer
// tokenizes. Extraction is dispatched on the lowercased file extension;
// everything outside the fixed allowlist is reported as unsupported so the
// pipeline can skip it.
package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	trerrors "github.com/trove-dev/trove/internal/errors"
)

// kind selects the extractor for an extension.
type kind int

const (
	kindText kind = iota
	kindMarkup
	kindPDF
)

// extensions is the fixed allowlist. Text covers plain prose plus the
// common source and config formats that read fine as UTF-8; markup formats
// get their character data pulled out of the tags; PDF goes through the PDF
// reader.
var extensions = map[string]kind{
	"xml": kindMarkup, "xhtml": kindMarkup,

	"pdf": kindPDF,

	"txt": kindText, "md": kindText, "mdx": kindText,
	"rs": kindText, "js": kindText, "jsx": kindText, "ts": kindText, "tsx": kindText,
	"json": kindText, "toml": kindText, "yaml": kindText, "yml": kindText,
	"py": kindText, "go": kindText, "java": kindText, "kt": kindText, "kts": kindText,
	"c": kindText, "h": kindText, "hpp": kindText, "hh": kindText,
	"cpp": kindText, "cc": kindText, "cxx": kindText,
	"cs": kindText, "rb": kindText, "php": kindText,
	"html": kindText, "htm": kindText, "css": kindText, "scss": kindText, "less": kindText,
	"ini": kindText, "cfg": kindText, "conf": kindText,
	"sh": kindText, "bash": kindText, "zsh": kindText, "fish": kindText,
	"pl": kindText, "sql": kindText, "gradle": kindText, "properties": kindText,
	"r": kindText, "tex": kindText, "rst": kindText,
	"vue": kindText, "svelte": kindText, "dart": kindText,
	"erl": kindText, "ex": kindText, "exs": kindText, "lua": kindText, "nim": kindText,
}

// Supported reports whether path's extension is on the allowlist. Files
// without an extension are not.
func Supported(path string) bool {
	_, ok := extensions[normalizedExt(path)]
	return ok
}

// Extract returns the text content of path minus any format scaffolding.
// Unsupported extensions yield extract_unsupported; a supported file that
// cannot be read or decoded yields extract_failed. Either way the caller
// skips the file and moves on.
func Extract(path string) (string, error) {
	k, ok := extensions[normalizedExt(path)]
	if !ok {
		return "", trerrors.New(trerrors.CodeExtractUnsupported, "no extractor for "+path)
	}

	switch k {
	case kindMarkup:
		return markupText(path)
	case kindPDF:
		return pdfText(path)
	default:
		return plainText(path)
	}
}

func normalizedExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return strings.TrimPrefix(ext, ".")
}

// plainText reads the whole file as-is. Invalid UTF-8 bytes survive the
// read; the tokenizer treats them as delimiters. A null byte near the start
// marks a misnamed binary, which is an extraction failure rather than token
// soup.
func plainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", trerrors.Wrapf(trerrors.CodeExtractFailed, err, "read %s", path)
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return "", trerrors.New(trerrors.CodeExtractFailed, "binary content in "+path)
	}
	return string(data), nil
}

// markupText streams through an XML document harvesting character data and
// dropping everything else. The decoder runs in lenient mode so real-world
// XHTML with HTML entities and unclosed void elements still yields text.
func markupText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", trerrors.Wrapf(trerrors.CodeExtractFailed, err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	dec := xml.NewDecoder(f)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", trerrors.Wrapf(trerrors.CodeExtractFailed, err, "parse markup %s", path)
		}
		if cd, ok := tok.(xml.CharData); ok {
			sb.Write(cd)
			sb.WriteByte(' ')
		}
	}
	return sb.String(), nil
}
