package reader

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Code page numbers commonly written to .cpg files instead of IANA names.
var codePages = map[string]string{
	"65001": "UTF-8",
	"UTF8":  "UTF-8",
	"88591": "ISO-8859-1",
	"1250":  "windows-1250",
	"1251":  "windows-1251",
	"1252":  "windows-1252",
	"936":   "GBK",
	"950":   "Big5",
	"932":   "Shift_JIS",
}

// attributeDecoder returns the decoder for a .cpg tag. An empty tag or UTF-8
// yields a nil decoder: attribute bytes are used as they are.
func attributeDecoder(tag string) (*encoding.Decoder, error) {
	name := strings.TrimSpace(tag)
	if name == "" {
		return nil, nil
	}
	if alias, ok := codePages[strings.ToUpper(name)]; ok {
		name = alias
	}
	if strings.EqualFold(name, "UTF-8") {
		return nil, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown attribute encoding %q: %w", tag, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported attribute encoding %q", tag)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}

	return enc.NewDecoder(), nil
}

func decodeAttribute(dec *encoding.Decoder, raw string) string {
	if dec == nil {
		return raw
	}
	s, err := dec.String(raw)
	if err != nil {
		return raw
	}
	return s
}
